// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis streams through
// github.com/jfreymuth/oggvorbis.
//
// Any channel count the stream declares is passed through unchanged, and
// decoded values are already clamped to [-1, 1]:
//
//	src, err := vorbis.Decoder{}.Decode(f)
//	samples, err := audio.ReadAll(src, 0)
package vorbis
