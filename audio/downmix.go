// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// Downmixer averages every channel of a source into mono, the layout
// positional playback needs.
type Downmixer struct {
	src Source
	tmp []float32
}

func NewDownmixer(src Source) *Downmixer {
	return &Downmixer{
		src: src,
		tmp: make([]float32, 4096),
	}
}

func (m *Downmixer) SampleRate() int { return m.src.SampleRate() }
func (m *Downmixer) Channels() int   { return 1 }
func (m *Downmixer) BufSize() int    { return max(m.src.BufSize()/max(m.src.Channels(), 1), 1) }

func (m *Downmixer) Close() error {
	if err := m.src.Close(); err != nil {
		return fmt.Errorf("downmix: %w", err)
	}

	return nil
}

// ReadSamples fills dst with up to len(dst) mono frames.
func (m *Downmixer) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	chans := m.src.Channels()
	if chans == 1 {
		return m.src.ReadSamples(dst)
	}
	if chans <= 0 {
		return 0, ErrNoChannels
	}

	need := len(dst) * chans
	if cap(m.tmp) < need {
		m.tmp = make([]float32, need)
	}
	tmp := m.tmp[:need]

	n, err := m.src.ReadSamples(tmp)
	if n%chans != 0 {
		return 0, fmt.Errorf("%w: %d samples for %d channels", ErrPartialFrame, n, chans)
	}
	frames := n / chans
	scale := 1 / float32(chans)

	switch chans {
	case 2:
		for f := range frames {
			dst[f] = (tmp[2*f] + tmp[2*f+1]) * 0.5
		}
	default:
		for f := range frames {
			var sum float32
			for _, s := range tmp[f*chans : (f+1)*chans] {
				sum += s
			}
			dst[f] = sum * scale
		}
	}

	return frames, err
}
