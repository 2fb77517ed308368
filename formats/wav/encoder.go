// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/ik5/spatmix/utils"
)

const encodeChunk = 8192

// Encode writes interleaved float samples as a linear PCM WAV with the
// given bit depth (8, 16, 24 or 32). w must be seekable so the header
// sizes can be patched when the data is complete.
func Encode(w io.WriteSeeker, sampleRate, channels, bitDepth int, samples []float32) error {
	if channels <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}
	if len(samples)%channels != 0 {
		return fmt.Errorf("%w: %d samples, %d channels", ErrPartialFrame, len(samples), channels)
	}
	var conv func(float32) int
	switch bitDepth {
	case 8:
		conv = func(s float32) int { return int(utils.Float32ToUint8(s)) }
	case 16:
		conv = func(s float32) int { return int(utils.Float32ToInt16(s)) }
	case 24:
		conv = func(s float32) int { return int(utils.Float32ToInt32(s) >> 8) }
	case 32:
		conv = func(s float32) int { return int(utils.Float32ToInt32(s)) }
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}

	enc := gowav.NewEncoder(w, sampleRate, bitDepth, channels, formatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: bitDepth,
	}
	step := encodeChunk - encodeChunk%channels
	for i := 0; i < len(samples); i += step {
		chunk := samples[i:min(i+step, len(samples))]
		buf.Data = buf.Data[:0]
		for _, s := range chunk {
			buf.Data = append(buf.Data, conv(s))
		}
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("wav encode: %w", err)
		}
	}
	if len(samples) == 0 {
		// Write emits the header; an empty file still needs one.
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("wav encode: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav close: %w", err)
	}

	return nil
}

// WriteWAV16 writes 16-bit PCM samples that are already quantised.
func WriteWAV16(w io.WriteSeeker, sampleRate, channels int, samples []int16) error {
	if channels <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}
	if len(samples)%channels != 0 {
		return fmt.Errorf("%w: %d samples, %d channels", ErrPartialFrame, len(samples), channels)
	}

	enc := gowav.NewEncoder(w, sampleRate, 16, channels, formatPCM)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav close: %w", err)
	}

	return nil
}
