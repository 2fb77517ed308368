// SPDX-License-Identifier: EPL-2.0

package hrtf

// Params is the filter a Mixer applies: a response plus a linear gain.
type Params struct {
	Measurement
	Gain float32
}

// Mixer filters one mono channel to stereo.
type Mixer struct {
	hist [HistoryLength]float32
	pos  int

	cur  Params
	old  Params
	fade int

	// next waits for the running blend to finish.
	next    Params
	pending bool
}

// SetTarget switches to p. Unless snap is set the previous filter keeps
// running and the two outputs are cross-faded over BlendSamples. A target
// set while a blend is running starts its own blend once that one ends.
func (m *Mixer) SetTarget(p Params, snap bool) {
	switch {
	case snap:
		m.cur = p
		m.fade = 0
		m.pending = false
	case m.fade > 0:
		m.next = p
		m.pending = true
	default:
		m.old = m.cur
		m.cur = p
		m.fade = BlendSamples
	}
}

// Current returns the latest target.
func (m *Mixer) Current() Params {
	if m.pending {
		return m.next
	}
	return m.cur
}

// Clear drops the input history and any pending blend.
func (m *Mixer) Clear() {
	m.hist = [HistoryLength]float32{}
	m.pos = 0
	m.fade = 0
	m.pending = false
}

// Process accumulates the filtered src into left and right.
func (m *Mixer) Process(left, right, src []float32) {
	for i, s := range src {
		m.hist[m.pos&historyMask] = s

		l, r := fir(&m.hist, m.pos, &m.cur)
		if m.fade > 0 {
			ol, or := fir(&m.hist, m.pos, &m.old)
			w := float32(m.fade) / BlendSamples
			l = l*(1-w) + ol*w
			r = r*(1-w) + or*w
			m.fade--
			if m.fade == 0 && m.pending {
				m.old, m.cur = m.cur, m.next
				m.fade = BlendSamples
				m.pending = false
			}
		}
		left[i] += l
		right[i] += r
		m.pos++
	}
	m.pos &= historyMask
}

func fir(hist *[HistoryLength]float32, pos int, p *Params) (float32, float32) {
	if p.Gain == 0 {
		return 0, 0
	}
	var l, r float32
	pl := pos - p.Delay[0]
	pr := pos - p.Delay[1]
	for k := range IRSize {
		l += hist[(pl-k)&historyMask] * p.Coeffs[k][0]
		r += hist[(pr-k)&historyMask] * p.Coeffs[k][1]
	}

	return l * p.Gain, r * p.Gain
}
