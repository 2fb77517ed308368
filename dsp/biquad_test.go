// SPDX-License-Identifier: EPL-2.0

package dsp

import (
	"math"
	"testing"
)

func settle(f *Biquad, level float32, n int) float32 {
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = level
	}
	f.Process(buf, buf)

	return buf[n-1]
}

func TestBiquad_ShelfDCResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		typ  BiquadType
		gain float32
		want float32
	}{
		{name: "high shelf passes DC", typ: HighShelf, gain: 0.25, want: 1},
		{name: "low shelf cuts DC", typ: LowShelf, gain: 0.25, want: 0.25},
		{name: "unity low shelf", typ: LowShelf, gain: 1, want: 1},
		{name: "low pass passes DC", typ: LowPass, gain: 1, want: 1},
		{name: "high pass blocks DC", typ: HighPass, gain: 1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := NewBiquad()
			f.SetParams(tt.typ, tt.gain, 1000.0/48000.0, RcpQFromSlope(tt.gain, 1))

			got := settle(&f, 1, 48000)
			if math.Abs(float64(got-tt.want)) > 0.01 {
				t.Errorf("DC response = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBiquad_NewIsIdentity(t *testing.T) {
	t.Parallel()

	f := NewBiquad()
	src := []float32{0.1, -0.5, 0.9, 0}
	dst := make([]float32, len(src))
	f.Process(dst, src)

	for i := range src {
		if dst[i] != src[i] {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], src[i])
		}
	}
}

func TestBiquad_GainFloor(t *testing.T) {
	t.Parallel()

	f := NewBiquad()
	f.SetParams(LowShelf, 0, 250.0/44100.0, RcpQFromSlope(0, 1))

	got := settle(&f, 1, 44100)
	if got < MinFilterGain*0.5 || math.IsNaN(float64(got)) {
		t.Errorf("DC response = %v, want about %v", got, MinFilterGain)
	}
}

func TestBiquad_ClearAndCopyParams(t *testing.T) {
	t.Parallel()

	a := NewBiquad()
	a.SetParams(LowPass, 1, 0.1, 1.414)
	settle(&a, 1, 64)

	var b Biquad
	b.CopyParams(&a)
	if b.z1 != 0 || b.z2 != 0 {
		t.Fatal("CopyParams() copied history")
	}

	a.Clear()
	if a.z1 != 0 || a.z2 != 0 {
		t.Errorf("Clear() left z1=%v z2=%v", a.z1, a.z2)
	}
	if a.b0 != b.b0 || a.a1 != b.a1 {
		t.Error("Clear() touched coefficients")
	}
}
