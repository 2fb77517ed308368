// SPDX-License-Identifier: EPL-2.0

package dsp

import (
	"math"
	"testing"
)

func TestChannelDelay_ShiftsImpulse(t *testing.T) {
	t.Parallel()

	d := NewChannelDelay(3, 0.5)
	buf := []float32{1, 0, 0, 0, 0, 0}
	d.Process(buf)

	want := []float32{0, 0, 0, 0.5, 0, 0}
	for i := range want {
		if buf[i] != want[i] {
			t.Errorf("buf[%d] = %v, want %v", i, buf[i], want[i])
		}
	}
}

func TestLimiter_HoldsThreshold(t *testing.T) {
	t.Parallel()

	l := NewLimiter(1, 0.05, 48000)
	bufs := [][]float32{ones(256), make([]float32, 256)}
	for i := range bufs[0] {
		bufs[0][i] = 2
		bufs[1][i] = -0.5
	}
	l.Process(bufs, 256)

	for i := range 256 {
		if math.Abs(float64(bufs[0][i])) > 1.0001 {
			t.Fatalf("bufs[0][%d] = %v, over threshold", i, bufs[0][i])
		}
	}
	if bufs[1][0] != -0.25 {
		t.Errorf("linked channel = %v, want -0.25", bufs[1][0])
	}
	if l.Gain() != 0.5 {
		t.Errorf("Gain() = %v, want 0.5", l.Gain())
	}
}

func TestDither_QuantisesWithinOneStep(t *testing.T) {
	t.Parallel()

	const scale = 256
	buf := make([]float32, 512)
	for i := range buf {
		buf[i] = float32(i)/512 - 0.5
	}
	orig := append([]float32(nil), buf...)
	seed := uint32(22222)

	Dither([][]float32{buf}, len(buf), scale, &seed)

	for i, v := range buf {
		steps := float64(v) * scale
		if steps != math.Round(steps) {
			t.Fatalf("buf[%d] = %v is not on the quantisation grid", i, v)
		}
		if math.Abs(float64(v-orig[i])) > 1.5/scale {
			t.Fatalf("buf[%d] moved from %v to %v", i, orig[i], v)
		}
	}
	if seed == 22222 {
		t.Error("seed was not advanced")
	}
}

func TestLimiter_RecoversToUnity(t *testing.T) {
	t.Parallel()

	l := NewLimiter(1, 0.001, 48000)
	loud := [][]float32{make([]float32, 64)}
	for i := range loud[0] {
		loud[0][i] = 4
	}
	l.Process(loud, 64)
	if l.Gain() >= 1 {
		t.Fatalf("Gain() = %v after an overload", l.Gain())
	}

	quiet := [][]float32{make([]float32, 48000)}
	for i := range quiet[0] {
		quiet[0][i] = 0.5
	}
	l.Process(quiet, 48000)
	if l.Gain() != 1 {
		t.Fatalf("Gain() = %v, want exactly 1 after recovery", l.Gain())
	}
	if got := quiet[0][len(quiet[0])-1]; got != 0.5 {
		t.Errorf("last sample = %v, want untouched 0.5", got)
	}
}
