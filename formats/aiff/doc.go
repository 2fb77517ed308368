// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes uncompressed AIFF files through
// github.com/go-audio/aiff.
//
// Big-endian signed PCM at 8, 16, 24 and 32 bits is accepted with any
// channel count and sample rate. Samples come out as float32 in [-1, 1):
//
//	src, err := aiff.Decoder{}.Decode(f)
//	samples, err := audio.ReadAll(src, 0)
//
// go-audio needs an io.ReadSeeker. Other readers are buffered in memory
// first.
package aiff
