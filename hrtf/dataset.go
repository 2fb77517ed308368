// SPDX-License-Identifier: EPL-2.0

package hrtf

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/chewxy/math32"
	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/ik5/spatmix/internal/vecmath"
)

const (
	// IRSize is the number of taps in each impulse response.
	IRSize = 32
	// HistoryLength is the size of the per-channel input ring. It covers the
	// longest onset delay plus IRSize at 192kHz.
	HistoryLength = 256
	historyMask   = HistoryLength - 1
	// BlendSamples is the cross-fade length used when the response changes.
	BlendSamples = 128

	headRadius  = 0.0875
	speedOfSnd  = 343.3
	alphaMin    = 0.1
	thetaMinDeg = 150.0
	fftSize     = 256

	minElevation  = -40
	elevationStep = 10

	// passthruCoeff is the per-ear level of an omnidirectional source.
	passthruCoeff = 0.70710678118654752
)

// azimuthCounts is the number of measurements on each elevation ring, from
// -40° up to 90° in 10° steps.
var azimuthCounts = []int{56, 60, 72, 72, 72, 72, 72, 60, 56, 45, 36, 24, 12, 1}

// Measurement is the response for one direction.
type Measurement struct {
	Coeffs [IRSize][2]float32
	Delay  [2]int
}

type ring struct {
	offset int
	count  int
}

// DataSet is a grid of measurements at one sample rate.
type DataSet struct {
	sampleRate int
	rings      []ring
	irs        []Measurement
}

// NewDataSet builds the spherical-head data set for sampleRate.
func NewDataSet(sampleRate int) (*DataSet, error) {
	if sampleRate < 8000 || sampleRate > 192000 {
		return nil, fmt.Errorf("%w: %d", ErrSampleRate, sampleRate)
	}

	d := &DataSet{sampleRate: sampleRate}
	total := 0
	for _, n := range azimuthCounts {
		d.rings = append(d.rings, ring{offset: total, count: n})
		total += n
	}
	d.irs = make([]Measurement, total)

	taper := window.Hann(2 * IRSize)[IRSize:]
	for ei, r := range d.rings {
		elev := float64(minElevation+ei*elevationStep) * math.Pi / 180
		for ai := range r.count {
			azi := 2 * math.Pi * float64(ai) / float64(r.count)
			d.irs[r.offset+ai] = synthesize(elev, azi, sampleRate, taper)
		}
	}

	return d, nil
}

// SampleRate is the rate the responses were generated for.
func (d *DataSet) SampleRate() int {
	return d.sampleRate
}

// synthesize models both ears for a source at the given elevation and
// azimuth (radians, azimuth clockwise from the front).
func synthesize(elev, azi float64, sampleRate int, taper []float64) Measurement {
	dir := [3]float64{
		math.Sin(azi) * math.Cos(elev),
		math.Sin(elev),
		-math.Cos(azi) * math.Cos(elev),
	}

	var m Measurement
	w0 := speedOfSnd / headRadius
	thetaMin := thetaMinDeg * math.Pi / 180
	for ear, side := range [2]float64{-1, 1} {
		// Incidence angle between the source and the ear axis.
		cosTheta := dir[0] * side
		theta := math.Acos(max(-1, min(1, cosTheta)))

		alpha := (1 + alphaMin/2) + (1-alphaMin/2)*math.Cos(theta/thetaMin*math.Pi)

		spectrum := make([]complex128, fftSize)
		for k := 0; k <= fftSize/2; k++ {
			w := 2 * math.Pi * float64(k) * float64(sampleRate) / fftSize
			h := complex(1, alpha*w/(2*w0)) / complex(1, w/(2*w0))
			if k == fftSize/2 {
				h = complex(real(h), 0)
			}
			spectrum[k] = h
			if k > 0 && k < fftSize/2 {
				spectrum[fftSize-k] = cmplx.Conj(h)
			}
		}
		ir := fft.IFFT(spectrum)

		for i := range IRSize {
			m.Coeffs[i][ear] = float32(real(ir[i]) * taper[i] * passthruCoeff)
		}

		var itd float64
		if theta < math.Pi/2 {
			itd = -headRadius / speedOfSnd * math.Cos(theta)
		} else {
			itd = headRadius / speedOfSnd * (theta - math.Pi/2)
		}
		itd += headRadius / speedOfSnd
		m.Delay[ear] = int(math.Round(itd * float64(sampleRate)))
	}

	return m
}

// Coeffs returns the response for a direction given as elevation and
// azimuth in radians (positive azimuth is to the right). spread widens the
// source: at 2π the result is a plain pass-through with no delay.
// Neighbouring measurements are blended bilinearly.
func (d *DataSet) Coeffs(elevation, azimuth, spread float32) Measurement {
	dirFact := 1 - spread/(2*math32.Pi)
	dirFact = vecmath.Clamp(dirFact, 0, 1)

	evf := (elevation*180/math32.Pi - minElevation) / elevationStep
	evf = vecmath.Clamp(evf, 0, float32(len(d.rings)-1))
	ev0 := int(evf)
	ev1 := min(ev0+1, len(d.rings)-1)
	ef := evf - float32(ev0)

	azi := math32.Mod(azimuth, 2*math32.Pi)
	if azi < 0 {
		azi += 2 * math32.Pi
	}

	var idx [4]int
	var blend [4]float32
	for i, ev := range [2]int{ev0, ev1} {
		r := d.rings[ev]
		af := azi / (2 * math32.Pi) * float32(r.count)
		a0 := int(af) % r.count
		a1 := (a0 + 1) % r.count
		frac := af - math32.Floor(af)
		rowW := 1 - ef
		if i == 1 {
			rowW = ef
		}
		idx[2*i] = r.offset + a0
		idx[2*i+1] = r.offset + a1
		blend[2*i] = rowW * (1 - frac) * dirFact
		blend[2*i+1] = rowW * frac * dirFact
	}

	var out Measurement
	var delay [2]float32
	for i, ir := range idx {
		w := blend[i]
		if w == 0 {
			continue
		}
		m := &d.irs[ir]
		delay[0] += float32(m.Delay[0]) * w
		delay[1] += float32(m.Delay[1]) * w
		for k := range IRSize {
			out.Coeffs[k][0] += m.Coeffs[k][0] * w
			out.Coeffs[k][1] += m.Coeffs[k][1] * w
		}
	}
	out.Coeffs[0][0] += passthruCoeff * (1 - dirFact)
	out.Coeffs[0][1] += passthruCoeff * (1 - dirFact)
	out.Delay[0] = int(delay[0] + 0.5)
	out.Delay[1] = int(delay[1] + 0.5)

	return out
}
