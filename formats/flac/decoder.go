// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"fmt"
	"io"

	"github.com/gopxl/beep/v2"
	beepflac "github.com/gopxl/beep/v2/flac"

	"github.com/ik5/spatmix/audio"
)

const bufFrames = 2048

// stream is the part of beep.StreamSeekCloser the source reads through.
type stream interface {
	Stream(samples [][2]float64) (int, bool)
	Err() error
	Close() error
}

// source flattens beep's stereo frames back to the file's channel count.
type source struct {
	st         stream
	sampleRate int
	channels   int
	frames     [][2]float64
	done       bool
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) BufSize() int    { return bufFrames * s.channels }

func (s *source) Close() error {
	if err := s.st.Close(); err != nil {
		return fmt.Errorf("flac close: %w", err)
	}
	return nil
}

func (s *source) ReadSamples(dst []float32) (int, error) {
	if s.done {
		return 0, io.EOF
	}
	want := len(dst) / s.channels
	if want == 0 {
		return 0, nil
	}
	if cap(s.frames) < want {
		s.frames = make([][2]float64, want)
	}
	s.frames = s.frames[:want]

	n, ok := s.st.Stream(s.frames)
	if !ok {
		s.done = true
		if err := s.st.Err(); err != nil {
			return 0, fmt.Errorf("flac frame: %w", err)
		}
	}
	if n == 0 {
		s.done = true
		return 0, io.EOF
	}

	for i, f := range s.frames[:n] {
		if s.channels == 1 {
			dst[i] = float32(f[0])
			continue
		}
		dst[2*i] = float32(f[0])
		dst[2*i+1] = float32(f[1])
	}

	return n * s.channels, nil
}

// Decoder reads mono or stereo FLAC through beep.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	st, format, err := beepflac.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFlacFile, err)
	}

	return newSource(st, format)
}

func newSource(st stream, format beep.Format) (*source, error) {
	if format.NumChannels != 1 && format.NumChannels != 2 {
		st.Close()
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedChannels, format.NumChannels)
	}

	return &source{
		st:         st,
		sampleRate: int(format.SampleRate),
		channels:   format.NumChannels,
	}, nil
}
