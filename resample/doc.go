// SPDX-License-Identifier: EPL-2.0

// Package resample converts a voice's source samples to the device rate.
//
// Positions are fixed-point: an integer sample index plus a FracBits-bit
// fraction. A resampler reads from a slice that starts MaxPadding samples
// before the current position, so every kernel can look back and ahead
// without bounds checks on the caller's side:
//
//	src := make([]float32, resample.BufferSize(frac, inc, n))
//	// src[:MaxPadding] is history, src[MaxPadding] is the current sample
//	fn := resample.Select(resample.BSinc)
//	fn(&state, src, frac, inc, dst[:n])
//
// The function for a voice is resolved once with Select; there is no
// per-sample dispatch.
package resample
