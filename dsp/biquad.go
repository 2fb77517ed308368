// SPDX-License-Identifier: EPL-2.0

package dsp

import "github.com/chewxy/math32"

// BiquadType selects the filter response.
type BiquadType int

const (
	HighShelf BiquadType = iota
	LowShelf
	Peaking
	LowPass
	HighPass
	BandPass
)

// MinFilterGain is the floor applied to shelf gains so the coefficient
// equations never degenerate. Callers may clamp higher.
const MinFilterGain = 0.0001

// Biquad is a second-order IIR section in transposed direct form II.
type Biquad struct {
	b0, b1, b2 float32
	a1, a2     float32
	z1, z2     float32
}

// NewBiquad returns a filter that passes its input unchanged.
func NewBiquad() Biquad {
	return Biquad{b0: 1}
}

// Clear resets the filter history without touching its coefficients.
func (f *Biquad) Clear() {
	f.z1 = 0
	f.z2 = 0
}

// CopyParams takes the coefficients of other, keeping this filter's history.
func (f *Biquad) CopyParams(other *Biquad) {
	f.b0, f.b1, f.b2 = other.b0, other.b1, other.b2
	f.a1, f.a2 = other.a1, other.a2
}

// SetParams designs the filter. gain is linear amplitude (used by the shelf
// and peaking types), f0norm is the reference frequency divided by the
// sample rate, rcpQ is 1/Q.
func (f *Biquad) SetParams(typ BiquadType, gain, f0norm, rcpQ float32) {
	if gain < MinFilterGain {
		gain = MinFilterGain
	}
	w0 := 2 * math32.Pi * f0norm
	sinW0, cosW0 := math32.Sincos(w0)
	alpha := sinW0 / 2 * rcpQ

	var b [3]float32
	var a [3]float32
	switch typ {
	case HighShelf:
		sqrtGain := math32.Sqrt(gain)
		s2a := 2 * math32.Sqrt(sqrtGain) * alpha
		b[0] = sqrtGain * ((sqrtGain + 1) + (sqrtGain-1)*cosW0 + s2a)
		b[1] = -2 * sqrtGain * ((sqrtGain - 1) + (sqrtGain+1)*cosW0)
		b[2] = sqrtGain * ((sqrtGain + 1) + (sqrtGain-1)*cosW0 - s2a)
		a[0] = (sqrtGain + 1) - (sqrtGain-1)*cosW0 + s2a
		a[1] = 2 * ((sqrtGain - 1) - (sqrtGain+1)*cosW0)
		a[2] = (sqrtGain + 1) - (sqrtGain-1)*cosW0 - s2a
	case LowShelf:
		sqrtGain := math32.Sqrt(gain)
		s2a := 2 * math32.Sqrt(sqrtGain) * alpha
		b[0] = sqrtGain * ((sqrtGain + 1) - (sqrtGain-1)*cosW0 + s2a)
		b[1] = 2 * sqrtGain * ((sqrtGain - 1) - (sqrtGain+1)*cosW0)
		b[2] = sqrtGain * ((sqrtGain + 1) - (sqrtGain-1)*cosW0 - s2a)
		a[0] = (sqrtGain + 1) + (sqrtGain-1)*cosW0 + s2a
		a[1] = -2 * ((sqrtGain - 1) + (sqrtGain+1)*cosW0)
		a[2] = (sqrtGain + 1) + (sqrtGain-1)*cosW0 - s2a
	case Peaking:
		sqrtGain := math32.Sqrt(gain)
		b[0] = 1 + alpha*sqrtGain
		b[1] = -2 * cosW0
		b[2] = 1 - alpha*sqrtGain
		a[0] = 1 + alpha/sqrtGain
		a[1] = -2 * cosW0
		a[2] = 1 - alpha/sqrtGain
	case LowPass:
		b[0] = (1 - cosW0) / 2
		b[1] = 1 - cosW0
		b[2] = (1 - cosW0) / 2
		a[0] = 1 + alpha
		a[1] = -2 * cosW0
		a[2] = 1 - alpha
	case HighPass:
		b[0] = (1 + cosW0) / 2
		b[1] = -(1 + cosW0)
		b[2] = (1 + cosW0) / 2
		a[0] = 1 + alpha
		a[1] = -2 * cosW0
		a[2] = 1 - alpha
	case BandPass:
		b[0] = alpha
		b[1] = 0
		b[2] = -alpha
		a[0] = 1 + alpha
		a[1] = -2 * cosW0
		a[2] = 1 - alpha
	}

	f.a1 = a[1] / a[0]
	f.a2 = a[2] / a[0]
	f.b0 = b[0] / a[0]
	f.b1 = b[1] / a[0]
	f.b2 = b[2] / a[0]
}

// Process filters src into dst. dst and src may be the same slice.
func (f *Biquad) Process(dst, src []float32) {
	b0, b1, b2, a1, a2 := f.b0, f.b1, f.b2, f.a1, f.a2
	z1, z2 := f.z1, f.z2
	for i, in := range src {
		out := in*b0 + z1
		z1 = in*b1 - out*a1 + z2
		z2 = in*b2 - out*a2
		dst[i] = out
	}
	f.z1, f.z2 = z1, z2
}

// ProcessSample filters a single sample.
func (f *Biquad) ProcessSample(in float32) float32 {
	out := in*f.b0 + f.z1
	f.z1 = in*f.b1 - out*f.a1 + f.z2
	f.z2 = in*f.b2 - out*f.a2
	return out
}

// Passthru advances the filter history over src without producing output,
// so a filter that is switched back in later starts from a settled state.
func (f *Biquad) Passthru(src []float32) {
	n := len(src)
	if n >= 2 {
		f.z1 = src[n-2]*f.b2 + src[n-1]*(f.b1-f.a1*f.b0)
		f.z2 = src[n-1] * (f.b2 - f.a2*f.b0)
	} else if n == 1 {
		f.z1 = src[0]*f.b1 - src[0]*f.b0*f.a1 + f.z2
		f.z2 = src[0]*f.b2 - src[0]*f.b0*f.a2
	}
}

// RcpQFromSlope converts a shelf slope into 1/Q.
func RcpQFromSlope(gain, slope float32) float32 {
	if gain < MinFilterGain {
		gain = MinFilterGain
	}
	a := math32.Sqrt(gain)
	return math32.Sqrt((a+1/a)*(1/slope-1) + 2)
}

// RcpQFromBandwidth converts a bandwidth in octaves into 1/Q.
func RcpQFromBandwidth(f0norm, bandwidth float32) float32 {
	w0 := 2 * math32.Pi * f0norm
	return 2 * math32.Sinh(math32.Ln2/2*bandwidth*w0/math32.Sin(w0))
}
