// SPDX-License-Identifier: EPL-2.0

// Package dsp provides the block-level signal processing primitives shared by
// the mixer and the effect processors:
//   - Biquad shelf and pass filters (RBJ cookbook designs)
//   - A first-order near-field compensation filter
//   - Power-of-two delay lines addressed with a bitmask
//   - Gain-ramped accumulation into output buffers
//   - Device post-processing: distance-compensation delay, limiter, dither
//
// Nothing in this package allocates once constructed, so all processing
// methods are safe to call from the real-time mixer goroutine.
package dsp
