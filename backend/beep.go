// SPDX-License-Identifier: EPL-2.0

package backend

import (
	"fmt"

	"github.com/gopxl/beep/v2"

	"github.com/ik5/spatmix/engine"
)

// Streamer is a beep.Streamer over a mono or stereo device. Mono output is
// copied to both beep channels.
type Streamer struct {
	dev   *engine.Device
	chans int
	buf   []float32
	err   error
}

// NewStreamer rejects devices with more than two output channels.
func NewStreamer(dev *engine.Device) (*Streamer, error) {
	chans := dev.Channels()
	if chans != 1 && chans != 2 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedLayout, chans)
	}

	return &Streamer{
		dev:   dev,
		chans: chans,
		buf:   make([]float32, dev.Config().UpdateSize*chans),
	}, nil
}

// Format describes the stream for beep consumers.
func (s *Streamer) Format() beep.Format {
	return beep.Format{
		SampleRate:  beep.SampleRate(s.dev.Config().SampleRate),
		NumChannels: 2,
		Precision:   4,
	}
}

// Stream fills samples from the device. It ends the stream once the device
// is disconnected.
func (s *Streamer) Stream(samples [][2]float64) (int, bool) {
	if !s.dev.Connected() {
		s.err = ErrDisconnected
		return 0, false
	}

	done := 0
	for done < len(samples) {
		frames := min(len(samples)-done, len(s.buf)/s.chans)
		s.dev.RenderFloat32(s.buf, frames)
		for i := range frames {
			if s.chans == 1 {
				v := float64(s.buf[i])
				samples[done+i] = [2]float64{v, v}
				continue
			}
			samples[done+i] = [2]float64{float64(s.buf[2*i]), float64(s.buf[2*i+1])}
		}
		done += frames
	}

	return done, true
}

// Err is ErrDisconnected after the stream ended on a device loss.
func (s *Streamer) Err() error {
	return s.err
}
