// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"io"
	"testing"

	"github.com/chewxy/math32"
	"github.com/pion/logging"
)

func quietLogger() logging.LoggerFactory {
	return &logging.DefaultLoggerFactory{Writer: io.Discard, DefaultLogLevel: logging.LogLevelDisabled}
}

// newTestDevice opens a 48kHz stereo float device with the limiter off so
// output levels can be checked exactly.
func newTestDevice(t *testing.T, opts ...Option) (*Device, *Context) {
	t.Helper()

	base := []Option{WithLoggerFactory(quietLogger()), WithLimiter(false)}
	d, err := NewDevice(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	return d, d.NewContext()
}

func constBuffer(t *testing.T, layout ChannelLayout, rate, frames int, level float32) *Buffer {
	t.Helper()

	data := make([]float32, frames*layout.Channels())
	for i := range data {
		data[i] = level
	}
	b, err := NewBufferFloat32(layout, rate, data)
	if err != nil {
		t.Fatalf("NewBufferFloat32: %v", err)
	}

	return b
}

func sineBuffer(t *testing.T, rate, frames int, freq float32) *Buffer {
	t.Helper()

	data := make([]float32, frames)
	for i := range data {
		data[i] = 0.5 * math32.Sin(2*math32.Pi*freq*float32(i)/float32(rate))
	}
	b, err := NewBufferFloat32(ChannelsMono, rate, data)
	if err != nil {
		t.Fatalf("NewBufferFloat32: %v", err)
	}

	return b
}

func render(d *Device, frames int) []float32 {
	out := make([]float32, frames*d.Channels())
	d.RenderFloat32(out, frames)
	return out
}

func channelEnergy(out []float32, chans, ch int) float64 {
	var e float64
	for i := ch; i < len(out); i += chans {
		e += float64(out[i]) * float64(out[i])
	}

	return e
}
