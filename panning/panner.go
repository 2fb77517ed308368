// SPDX-License-Identifier: EPL-2.0

package panning

import "fmt"

// Panner decodes ambisonic coefficients onto the channels of a layout.
type Panner struct {
	layout Layout
	rows   [][NumCoeffs]float32
}

// stereoRows is an equal-power decode for a ±30° pair: a centred source
// feeds both sides at about -4.5dB and a hard-left source feeds only the
// left speaker.
var stereoRows = [][NumCoeffs]float32{
	{0.5, 0.2886751345948129, 0, 0.0552305643},
	{0.5, -0.2886751345948129, 0, 0.0552305643},
}

// NewPanner builds the decoder for l.
func NewPanner(l Layout) (*Panner, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLayout, l)
	}

	p := &Panner{layout: l}
	switch l {
	case LayoutAmbi3D:
		p.rows = nil
	case LayoutStereo:
		p.rows = stereoRows
	default:
		p.rows = basicDecoder(speakerTables[l])
	}

	return p, nil
}

// basicDecoder projects each speaker direction onto the first-order basis.
// A source at angle θ from a speaker reaches it at (1+cosθ)/N, where N is the
// number of full-range speakers; the LFE gets nothing.
func basicDecoder(speakers []Speaker) [][NumCoeffs]float32 {
	n := 0
	for _, s := range speakers {
		if s.Channel != LFE {
			n++
		}
	}

	rows := make([][NumCoeffs]float32, len(speakers))
	if n == 1 {
		for i, s := range speakers {
			if s.Channel != LFE {
				rows[i] = [NumCoeffs]float32{1}
			}
		}
		return rows
	}

	norm := 1 / float32(n)
	for i, s := range speakers {
		if s.Channel == LFE {
			continue
		}
		c := CalcAngleCoeffs(s.Azimuth, s.Elevation, 0)
		rows[i][0] = norm
		for k := 1; k < NumCoeffs; k++ {
			rows[i][k] = norm * c[k] / 3
		}
	}

	return rows
}

// Layout reports the layout the panner decodes to.
func (p *Panner) Layout() Layout {
	return p.layout
}

// Channels is the number of gains ComputePanGains writes.
func (p *Panner) Channels() int {
	return p.layout.Channels()
}

// ComputePanGains writes one gain per output channel for a source with the
// given coefficients and overall gain.
func (p *Panner) ComputePanGains(coeffs Coeffs, gain float32, out []float32) {
	p.decode(coeffs, gain, out)
}

// ComputeFirstOrderGains writes the output gains for one channel of a
// first-order ambisonic signal, where in is that channel's row of the input
// transform (already N3D scaled and in ACN order).
func (p *Panner) ComputeFirstOrderGains(in [NumCoeffs]float32, gain float32, out []float32) {
	p.decode(Coeffs(in), gain, out)
}

func (p *Panner) decode(coeffs Coeffs, gain float32, out []float32) {
	if p.rows == nil {
		for i := range out {
			if i < NumCoeffs {
				out[i] = coeffs[i] * gain
			} else {
				out[i] = 0
			}
		}
		return
	}

	for i := range out {
		if i >= len(p.rows) {
			out[i] = 0
			continue
		}
		row := &p.rows[i]
		var v float32
		for k := range NumCoeffs {
			v += row[k] * coeffs[k]
		}
		out[i] = v * gain
	}
}
