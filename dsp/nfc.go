// SPDX-License-Identifier: EPL-2.0

package dsp

// SpeedOfSound is in metres per second.
const SpeedOfSound = 343.3

// NFC is a first-order near-field compensation filter. It models the bass
// boost a point source at distance r shows relative to a plane wave, as
// reproduced by speakers placed at distance R:
//
//	H(s) = (s + c/r) / (s + c/R)
//
// discretised with the bilinear transform.
type NFC struct {
	b0, b1, a1 float32
	x1, y1     float32
}

// NewNFC designs a filter for a source at srcDist metres, with speakers at
// speakerDist metres and the given sample rate.
func NewNFC(srcDist, speakerDist float32, sampleRate int) NFC {
	var f NFC
	f.b0 = 1
	f.Adjust(srcDist, speakerDist, sampleRate)

	return f
}

// Adjust updates the coefficients for a new source distance, keeping state.
// A source at or beyond the speaker distance needs no compensation.
func (f *NFC) Adjust(srcDist, speakerDist float32, sampleRate int) {
	if srcDist <= 0 || speakerDist <= 0 || srcDist >= speakerDist || sampleRate <= 0 {
		f.b0, f.b1, f.a1 = 1, 0, 0
		return
	}
	fs := float32(sampleRate)
	w0 := SpeedOfSound / (srcDist * fs)
	w1 := SpeedOfSound / (speakerDist * fs)
	norm := 2 + w1
	f.b0 = (2 + w0) / norm
	f.b1 = (w0 - 2) / norm
	f.a1 = (w1 - 2) / norm
}

// Clear drops the filter history.
func (f *NFC) Clear() {
	f.x1 = 0
	f.y1 = 0
}

// Process filters src into dst; they may alias.
func (f *NFC) Process(dst, src []float32) {
	b0, b1, a1 := f.b0, f.b1, f.a1
	x1, y1 := f.x1, f.y1
	for i, x := range src {
		y := b0*x + b1*x1 - a1*y1
		x1, y1 = x, y
		dst[i] = y
	}
	f.x1, f.y1 = x1, y1
}
