// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG Layer III audio through
// github.com/hajimehoshi/go-mp3.
//
// go-mp3 always produces 16-bit stereo, so every source from this package
// reports two channels even for mono files. Use audio.Downmixer to fold
// them back before feeding a positional (mono) engine buffer:
//
//	src, err := mp3.Decoder{}.Decode(f)
//	mono := audio.NewDownmixer(src)
package mp3
