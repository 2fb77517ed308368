// SPDX-License-Identifier: EPL-2.0

// Package wav decodes and encodes linear PCM WAV files through
// github.com/go-audio/wav.
//
// Decoder accepts 8, 16, 24 and 32-bit integer PCM with any channel count
// and returns an audio.Source of float32 samples in [-1, 1]:
//
//	src, err := wav.Decoder{}.Decode(f)
//
// Encode writes interleaved float samples at any of the same bit depths,
// the format rendered device output is saved in:
//
//	err := wav.Encode(f, 48000, 2, 16, samples)
//
// Encoding needs an io.WriteSeeker to patch the header sizes at the end.
// WriteBuffer is an in-memory one.
package wav
