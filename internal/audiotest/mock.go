// SPDX-License-Identifier: EPL-2.0

// Package audiotest builds synthetic PCM sources for tests.
package audiotest

import (
	"errors"
	"io"
	"math"
)

// MockSource generates interleaved frames from a waveform function. It
// satisfies audio.Source without importing it.
type MockSource struct {
	sampleRate int
	channels   int
	frames     int
	generated  int
	waveform   func(frame, channel int) float32

	// FailAfter makes ReadSamples return Err once that many frames have
	// been produced. Zero disables it.
	FailAfter int
	Err       error
	Closed    bool
}

// ErrMock is the default error of a failing MockSource.
var ErrMock = errors.New("mock source failure")

func NewMockSource(sampleRate, channels, frames int, waveform func(frame, channel int) float32) *MockSource {
	return &MockSource{
		sampleRate: sampleRate,
		channels:   channels,
		frames:     frames,
		waveform:   waveform,
	}
}

func NewSilentSource(sampleRate, channels, frames int) *MockSource {
	return NewConstantSource(sampleRate, channels, frames, 0)
}

func NewSineSource(sampleRate, channels, frames int, frequency float64) *MockSource {
	return NewMockSource(sampleRate, channels, frames, func(frame, _ int) float32 {
		t := float64(frame) / float64(sampleRate)
		return float32(math.Sin(2 * math.Pi * frequency * t))
	})
}

func NewConstantSource(sampleRate, channels, frames int, value float32) *MockSource {
	return NewMockSource(sampleRate, channels, frames, func(int, int) float32 { return value })
}

// NewChannelSource gives channel c the constant value levels[c].
func NewChannelSource(sampleRate, frames int, levels ...float32) *MockSource {
	return NewMockSource(sampleRate, len(levels), frames, func(_, c int) float32 { return levels[c] })
}

// NewFailingSource produces frames frames and then fails with ErrMock.
func NewFailingSource(sampleRate, channels, frames int) *MockSource {
	m := NewSilentSource(sampleRate, channels, frames+1)
	m.FailAfter = frames
	m.Err = ErrMock

	return m
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) BufSize() int    { return 4096 }

func (m *MockSource) Close() error {
	m.Closed = true
	return nil
}

// Reset rewinds the source.
func (m *MockSource) Reset() {
	m.generated = 0
}

func (m *MockSource) ReadSamples(dst []float32) (int, error) {
	if m.FailAfter > 0 && m.generated >= m.FailAfter {
		return 0, m.Err
	}
	if m.generated >= m.frames {
		return 0, io.EOF
	}

	limit := m.frames
	if m.FailAfter > 0 {
		limit = min(limit, m.FailAfter)
	}
	n := min(len(dst)/m.channels, limit-m.generated)
	for f := range n {
		for c := range m.channels {
			dst[f*m.channels+c] = m.waveform(m.generated+f, c)
		}
	}
	m.generated += n

	if m.generated >= m.frames {
		return n * m.channels, io.EOF
	}

	return n * m.channels, nil
}

// Interleave builds interleaved samples from per-channel slices of equal
// length.
func Interleave(chans ...[]float32) []float32 {
	if len(chans) == 0 {
		return nil
	}
	out := make([]float32, len(chans)*len(chans[0]))
	for c, ch := range chans {
		for i, s := range ch {
			out[i*len(chans)+c] = s
		}
	}

	return out
}
