// SPDX-License-Identifier: EPL-2.0

package effect

import (
	"errors"
	"math"
	"testing"

	"github.com/ik5/spatmix/panning"
)

const testRate = 48000

func buffers(channels, n int) [][]float32 {
	bufs := make([][]float32, channels)
	for i := range bufs {
		bufs[i] = make([]float32, n)
	}

	return bufs
}

func stereoPanner(t *testing.T) *panning.Panner {
	t.Helper()

	p, err := panning.NewPanner(panning.LayoutStereo)
	if err != nil {
		t.Fatal(err)
	}

	return p
}

func newReady(t *testing.T, typ Type, props Props) State {
	t.Helper()

	st, err := NewState(typ)
	if err != nil {
		t.Fatalf("NewState(%v) error = %v", typ, err)
	}
	if err := st.DeviceUpdate(testRate); err != nil {
		t.Fatalf("DeviceUpdate() error = %v", err)
	}
	st.Update(testRate, stereoPanner(t), 1, &props)

	return st
}

func TestNewState_Unknown(t *testing.T) {
	t.Parallel()

	if _, err := NewState(Type(99)); !errors.Is(err, ErrUnknownEffect) {
		t.Errorf("NewState(99) error = %v, want ErrUnknownEffect", err)
	}
}

func TestDeviceUpdate_RejectsRate(t *testing.T) {
	t.Parallel()

	for _, typ := range []Type{TypeReverb, TypeChorus} {
		st, _ := NewState(typ)
		if err := st.DeviceUpdate(0); !errors.Is(err, ErrSampleRate) {
			t.Errorf("%v DeviceUpdate(0) error = %v, want ErrSampleRate", typ, err)
		}
	}
}

func TestNull_ProducesNothing(t *testing.T) {
	t.Parallel()

	st := newReady(t, TypeNull, DefaultProps(TypeNull))
	in := buffers(4, 64)
	for c := range in {
		for i := range in[c] {
			in[c][i] = 1
		}
	}
	out := buffers(2, 64)
	st.Process(64, in, out)

	for c := range out {
		for i, v := range out[c] {
			if v != 0 {
				t.Fatalf("out[%d][%d] = %v, want 0", c, i, v)
			}
		}
	}
}

func energy(bufs [][]float32, from, to int) float64 {
	var e float64
	for _, b := range bufs {
		for _, v := range b[from:to] {
			e += float64(v) * float64(v)
		}
	}

	return e
}

func TestReverb_ImpulseDecays(t *testing.T) {
	t.Parallel()

	for _, typ := range []Type{TypeReverb, TypeEAXReverb} {
		t.Run(typ.String(), func(t *testing.T) {
			t.Parallel()

			st := newReady(t, typ, DefaultProps(typ))
			n := 3 * testRate
			in := buffers(4, n)
			in[0][0] = 1
			out := buffers(2, n)

			for base := 0; base < n; base += 1024 {
				todo := min(1024, n-base)
				sub := func(b [][]float32) [][]float32 {
					s := make([][]float32, len(b))
					for i := range b {
						s[i] = b[i][base : base+todo]
					}
					return s
				}
				st.Process(todo, sub(in), sub(out))
			}

			for c := range out {
				for i, v := range out[c] {
					if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
						t.Fatalf("out[%d][%d] = %v", c, i, v)
					}
				}
			}

			head := energy(out, 0, testRate/2)
			tail := energy(out, n-testRate/2, n)
			if head == 0 {
				t.Fatal("reverb produced no output")
			}
			if tail > head*1e-4 {
				t.Errorf("tail energy %v not well below head %v", tail, head)
			}
		})
	}
}

func TestReverb_SilenceInSilenceOut(t *testing.T) {
	t.Parallel()

	st := newReady(t, TypeReverb, DefaultProps(TypeReverb))
	out := buffers(2, 2048)
	st.Process(2048, buffers(4, 2048), out)

	if e := energy(out, 0, 2048); e != 0 {
		t.Errorf("energy = %v, want 0", e)
	}
}

func TestReverb_TapsStayInsideLines(t *testing.T) {
	t.Parallel()

	props := DefaultProps(TypeEAXReverb)
	props.Reverb.Density = 1
	props.Reverb.ReflectionsDelay = ReverbMaxReflectionsDelay
	props.Reverb.LateReverbDelay = ReverbMaxLateReverbDelay
	props.Reverb.EchoTime = ReverbMaxEchoTime
	props.Reverb.ModulationDepth = 1

	r := newReady(t, TypeEAXReverb, props).(*reverbState)

	for _, line := range []struct {
		name string
		n    int
	}{
		{"main", r.main.Len()}, {"early allpass", r.earlyAP.Len()}, {"early", r.earlyLine.Len()},
		{"late allpass", r.lateAP.Len()}, {"late", r.lateLine.Len()}, {"echo", r.echo.Len()},
	} {
		if line.n&(line.n-1) != 0 {
			t.Errorf("%s line length %d is not a power of two", line.name, line.n)
		}
	}

	for j := range 4 {
		if r.earlyTap[j] >= r.main.Len() || r.lateTap[j] >= r.main.Len() {
			t.Errorf("line %d taps %d/%d exceed main line %d", j, r.earlyTap[j], r.lateTap[j], r.main.Len())
		}
		if r.lateLineOffset[j]+int(r.modDepth)+2 >= r.lateLine.Len() {
			t.Errorf("line %d modulated late offset exceeds late line", j)
		}
		if r.earlyAPOffset[j] >= r.earlyAP.Len() || r.lateAPOffset[j] >= r.lateAP.Len() {
			t.Errorf("line %d all-pass offsets exceed their lines", j)
		}
	}
	if r.echoOffset >= r.echo.Len() {
		t.Errorf("echo offset %d exceeds line %d", r.echoOffset, r.echo.Len())
	}
}

func TestReverb_TapCrossFade(t *testing.T) {
	t.Parallel()

	props := DefaultProps(TypeReverb)
	r := newReady(t, TypeReverb, props).(*reverbState)
	out := stereoPanner(t)
	first := r.earlyTap
	if r.tapFade != 0 {
		t.Fatalf("first update fades taps: tapFade = %d", r.tapFade)
	}

	props.Reverb.ReflectionsDelay = 0.02
	r.Update(testRate, out, 1, &props)
	second := r.earlyTap
	if second == first || r.earlyTapOld != first || r.tapFade != FadeSamples {
		t.Fatalf("taps %v old %v fade %d after a delay change", second, r.earlyTapOld, r.tapFade)
	}

	process := func(n int) {
		r.Process(n, buffers(4, n), buffers(2, n))
	}
	process(FadeSamples / 2)
	if r.tapFade != FadeSamples/2 {
		t.Fatalf("tapFade = %d after half the fade", r.tapFade)
	}

	props.Reverb.ReflectionsDelay = 0.05
	r.Update(testRate, out, 1, &props)
	if r.earlyTap != second || r.tapFade != FadeSamples/2 || !r.tapPending {
		t.Fatalf("retarget mid-fade replaced the running fade: taps %v fade %d", r.earlyTap, r.tapFade)
	}

	process(FadeSamples / 2)
	if r.earlyTapOld != second || r.tapFade != FadeSamples || r.tapPending {
		t.Fatalf("queued taps did not start after the fade: old %v fade %d", r.earlyTapOld, r.tapFade)
	}
	if r.earlyTap == second {
		t.Fatal("queued taps not applied")
	}

	process(FadeSamples)
	if r.tapFade != 0 {
		t.Errorf("tapFade = %d after a full fade", r.tapFade)
	}
}

func TestChorus_StaticDelay(t *testing.T) {
	t.Parallel()

	props := DefaultProps(TypeChorus)
	props.Chorus.Rate = 0
	props.Chorus.Depth = 0
	props.Chorus.Feedback = 0
	props.Chorus.Delay = 0.001

	st := newReady(t, TypeChorus, props)
	in := buffers(4, 128)
	in[0][0] = 1
	out := buffers(2, 128)
	st.Process(128, in, out)

	const delay = 48
	for c := range out {
		for i, v := range out[c] {
			want := 0.0
			if i == delay {
				want = 1
			}
			if math.Abs(float64(v)-want) > 1e-3 {
				t.Errorf("out[%d][%d] = %v, want %v", c, i, v, want)
			}
		}
	}
}

func TestChorus_FlangerModulates(t *testing.T) {
	t.Parallel()

	st := newReady(t, TypeFlanger, DefaultProps(TypeFlanger))
	n := testRate
	in := buffers(4, n)
	for i := range in[0] {
		in[0][i] = float32(math.Sin(float64(i) * 0.05))
	}
	out := buffers(2, n)
	st.Process(n, in, out)

	if energy(out, 0, n) == 0 {
		t.Fatal("flanger produced no output")
	}
	for c := range out {
		for _, v := range out[c] {
			if math.IsNaN(float64(v)) || math.Abs(float64(v)) > 4 {
				t.Fatalf("unstable output %v", v)
			}
		}
	}
}

func TestProps_Validate(t *testing.T) {
	t.Parallel()

	for _, typ := range []Type{TypeNull, TypeReverb, TypeEAXReverb, TypeChorus, TypeFlanger} {
		p := DefaultProps(typ)
		if err := p.Validate(typ); err != nil {
			t.Errorf("%v defaults: %v", typ, err)
		}
	}

	tests := []struct {
		name string
		typ  Type
		edit func(*Props)
		want error
	}{
		{"decay too short", TypeReverb, func(p *Props) { p.Reverb.DecayTime = 0.01 }, ErrInvalidProps},
		{"nan gain", TypeReverb, func(p *Props) { p.Reverb.Gain = float32(math.NaN()) }, ErrInvalidProps},
		{"flanger delay", TypeFlanger, func(p *Props) { p.Chorus.Delay = 0.01 }, ErrInvalidProps},
		{"waveform", TypeChorus, func(p *Props) { p.Chorus.Waveform = 7 }, ErrInvalidProps},
		{"unknown type", Type(12), func(*Props) {}, ErrUnknownEffect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := DefaultProps(tt.typ)
			tt.edit(&p)
			if err := p.Validate(tt.typ); !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}
