// SPDX-License-Identifier: EPL-2.0

// Package audio holds the contracts for decoded PCM input.
//
// Decoders in the formats packages produce a Source, a stream of
// interleaved float32 samples in [-1, 1]. A Registry maps format names to
// decoders:
//
//	reg := audio.NewRegistry()
//	reg.Register("wav", wav.Decoder{})
//	src, err := reg.Decode("wav", f)
//
// ReadAll drains a Source into memory, the shape engine buffers are built
// from. Downmixer folds a multichannel Source to mono, since only mono
// buffers are positioned in 3D:
//
//	samples, err := audio.ReadAll(audio.NewDownmixer(src), 0)
//
// Sources return io.EOF at the end of the stream, possibly together with
// the last samples.
package audio
