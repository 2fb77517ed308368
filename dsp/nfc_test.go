// SPDX-License-Identifier: EPL-2.0

package dsp

import (
	"math"
	"testing"
)

func TestNFC_DCGainIsDistanceRatio(t *testing.T) {
	t.Parallel()

	f := NewNFC(1, 2, 48000)
	buf := make([]float32, 48000)
	for i := range buf {
		buf[i] = 0.25
	}
	f.Process(buf, buf)

	// DC gain of (s+c/r)/(s+c/R) is R/r.
	got := buf[len(buf)-1]
	if math.Abs(float64(got-0.5)) > 0.001 {
		t.Errorf("settled output = %v, want 0.5", got)
	}
}

func TestNFC_FarSourceIsIdentity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		src     float32
		speaker float32
	}{
		{name: "beyond speakers", src: 5, speaker: 2},
		{name: "at speakers", src: 2, speaker: 2},
		{name: "no speaker distance", src: 1, speaker: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := NewNFC(tt.src, tt.speaker, 44100)
			in := []float32{1, -1, 0.5, 0.25}
			out := make([]float32, len(in))
			f.Process(out, in)
			for i := range in {
				if out[i] != in[i] {
					t.Errorf("out[%d] = %v, want %v", i, out[i], in[i])
				}
			}
		})
	}
}
