// SPDX-License-Identifier: EPL-2.0

package effect

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/ik5/spatmix/dsp"
	"github.com/ik5/spatmix/internal/vecmath"
	"github.com/ik5/spatmix/panning"
)

const (
	reverbUpdateSize = 256

	// FadeSamples is how long tap offset and output gain changes take.
	FadeSamples = 128

	densityScale  = 125000
	decayGain     = 0.001
	minShelfGain  = 0.001
	allpassCoeff  = 0.6180339887
	modDepthScale = 0.0025
	sqrt3         = 1.7320508075688772
)

// Base lengths in seconds, scaled by the density multiplier.
var (
	earlyTapLengths     = [4]float32{0, 1.0e-4, 2.1e-4, 3.4e-4}
	earlyAllpassLengths = [4]float32{9.7e-5, 1.43e-4, 1.86e-4, 2.31e-4}
	earlyLineLengths    = [4]float32{0, 2.04e-4, 4.13e-4, 6.32e-4}
	lateAllpassLengths  = [4]float32{1.54e-4, 2.21e-4, 2.97e-4, 3.49e-4}
	lateLineLengths     = [4]float32{1.94e-4, 4.02e-4, 5.78e-4, 7.60e-4}
)

// bToA converts ACN/N3D first-order B-format to four tetrahedral A-format
// lines; aToB is its inverse.
var (
	bToA = [4][4]float32{
		{0.5, 0.5, 0.5, 0.5},
		{0.5, -0.5, -0.5, 0.5},
		{0.5, 0.5, -0.5, -0.5},
		{0.5, -0.5, 0.5, -0.5},
	}
	aToB = [4][4]float32{
		{0.5, 0.5, 0.5, 0.5},
		{0.5, -0.5, 0.5, -0.5},
		{0.5, -0.5, -0.5, 0.5},
		{0.5, 0.5, -0.5, -0.5},
	}
)

type t60Filter struct {
	midGain float32
	lf, hf  dsp.Biquad
}

type outputGains struct {
	current [4][MaxOutputChannels]float32
	target  [4][MaxOutputChannels]float32
}

type reverbState struct {
	eax        bool
	sampleRate int
	ready      bool

	arena     [][4]float32
	main      dsp.DelayLine
	earlyAP   dsp.DelayLine
	earlyLine dsp.DelayLine
	lateAP    dsp.DelayLine
	lateLine  dsp.DelayLine
	echo      dsp.DelayLine

	inLF, inHF [4]dsp.Biquad
	t60        [4]t60Filter

	mixX, mixY float32
	apCoeff    float32

	earlyTap, earlyTapOld     [4]int
	lateTap, lateTapOld       [4]int
	earlyTapNext, lateTapNext [4]int
	tapFade                   int
	tapPending                bool

	earlyDelayCoeff [4]float32
	earlyAPOffset   [4]int
	earlyLineOffset [4]int
	earlyCoeff      [4]float32

	lateAPOffset    [4]int
	lateLineOffset  [4]int
	lateDensityGain float32

	echoOffset int
	echoCoeff  float32
	echoMix    float32

	modPhase float32
	modStep  float32
	modDepth float32

	offset int

	outChans  int
	early     outputGains
	late      outputGains
	gainFade  int
	firstPass bool

	aBuf     [4][reverbUpdateSize]float32
	earlyBuf [4][reverbUpdateSize]float32
	lateBuf  [4][reverbUpdateSize]float32
	bBuf     [reverbUpdateSize]float32
}

func newReverb(eax bool) *reverbState {
	r := &reverbState{eax: eax, firstPass: true}
	for i := range 4 {
		r.inLF[i] = dsp.NewBiquad()
		r.inHF[i] = dsp.NewBiquad()
		r.t60[i] = t60Filter{midGain: 1, lf: dsp.NewBiquad(), hf: dsp.NewBiquad()}
	}

	return r
}

func delayLengthMult(density float32) float32 {
	return max(5, math32.Cbrt(density*densityScale))
}

// decayCoeff is the gain that decays a signal by 60dB over decayTime when
// applied once per length seconds.
func decayCoeff(length, decayTime float32) float32 {
	return math32.Pow(decayGain, length/decayTime)
}

// limitedHFRatio caps the HF decay ratio so the tail never decays slower at
// high frequencies than air absorption allows.
func limitedHFRatio(hfRatio, airAbsorption, decayTime float32) float32 {
	length := math32.Log10(airAbsorption) * decayTime / math32.Log10(decayGain)
	limit := 1 / (length * dsp.SpeedOfSound)

	return vecmath.Clamp(limit, 0.1, hfRatio)
}

func (r *reverbState) DeviceUpdate(sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: %d", ErrSampleRate, sampleRate)
	}
	fs := float32(sampleRate)
	mult := delayLengthMult(1)

	lengths := []int{
		dsp.LineForSeconds(ReverbMaxReflectionsDelay+ReverbMaxLateReverbDelay+earlyTapLengths[3]*mult, 1, sampleRate),
		dsp.LineForSeconds(earlyAllpassLengths[3]*mult, 1, sampleRate),
		dsp.LineForSeconds(earlyLineLengths[3]*mult, 1, sampleRate),
		dsp.LineForSeconds(lateAllpassLengths[3]*mult, 1, sampleRate),
		dsp.LineForSeconds(lateLineLengths[3]*mult+modDepthScale, 2, sampleRate),
		dsp.LineForSeconds(ReverbMaxEchoTime, 1, sampleRate),
	}
	total := 0
	for _, n := range lengths {
		total += n
	}

	arena := make([][4]float32, total)
	lines, err := dsp.Carve(arena, lengths...)
	if err != nil {
		return fmt.Errorf("reverb at %v Hz: %w", fs, err)
	}

	r.arena = arena
	r.main, r.earlyAP, r.earlyLine = lines[0], lines[1], lines[2]
	r.lateAP, r.lateLine, r.echo = lines[3], lines[4], lines[5]
	r.sampleRate = sampleRate
	r.offset = 0
	r.modPhase = 0
	for i := range 4 {
		r.inLF[i].Clear()
		r.inHF[i].Clear()
		r.t60[i].lf.Clear()
		r.t60[i].hf.Clear()
	}
	r.firstPass = true
	r.ready = true

	return nil
}

func (r *reverbState) Update(_ int, out *panning.Panner, slotGain float32, props *Props) {
	if !r.ready {
		return
	}
	p := props.Reverb
	if !r.eax {
		p.GainLF = 1
		p.DecayLFRatio = 1
		p.ReflectionsPan = vecmath.Vec3{}
		p.LateReverbPan = vecmath.Vec3{}
		p.EchoDepth = 0
		p.ModulationDepth = 0
		p.HFReference = 5000
		p.LFReference = 250
	}

	fs := float32(r.sampleRate)
	hfNorm := min(p.HFReference/fs, 0.49)
	lfNorm := min(p.LFReference/fs, 0.49)

	gainHF := max(p.GainHF, minShelfGain)
	gainLF := max(p.GainLF, minShelfGain)
	for i := range 4 {
		r.inHF[i].SetParams(dsp.HighShelf, gainHF, hfNorm, dsp.RcpQFromSlope(gainHF, 1))
		r.inLF[i].SetParams(dsp.LowShelf, gainLF, lfNorm, dsp.RcpQFromSlope(gainLF, 1))
	}

	mult := delayLengthMult(vecmath.Clamp(p.Density, 0, 1))
	decay := max(p.DecayTime, 0.1)
	theta := p.Diffusion * math32.Atan(sqrt3)
	r.mixX = math32.Cos(theta)
	r.mixY = math32.Sin(theta) / sqrt3
	r.apCoeff = allpassCoeff * p.Diffusion

	hfRatio := p.DecayHFRatio
	if p.DecayHFLimit && p.AirAbsorptionGainHF < 1 {
		hfRatio = limitedHFRatio(hfRatio, p.AirAbsorptionGainHF, decay)
	}

	reflDelay := min(p.ReflectionsDelay, ReverbMaxReflectionsDelay)
	lateDelay := min(p.LateReverbDelay, ReverbMaxLateReverbDelay)

	var earlyTap, lateTap [4]int
	for j := range 4 {
		earlyTap[j] = int((reflDelay + earlyTapLengths[j]*mult) * fs)
		lateTap[j] = int((reflDelay + lateDelay + earlyTapLengths[j]*mult) * fs)

		r.earlyDelayCoeff[j] = decayCoeff(earlyTapLengths[j]*mult, decay)
		r.earlyAPOffset[j] = max(1, int(earlyAllpassLengths[j]*mult*fs))
		r.earlyLineOffset[j] = int(earlyLineLengths[j] * mult * fs)
		r.earlyCoeff[j] = decayCoeff(earlyLineLengths[j]*mult, decay)

		r.lateAPOffset[j] = max(1, int(lateAllpassLengths[j]*mult*fs))
		r.lateLineOffset[j] = max(1, int(lateLineLengths[j]*mult*fs))

		length := (lateLineLengths[j] + lateAllpassLengths[j]) * mult
		mid := decayCoeff(length, decay)
		hf := max(decayCoeff(length, decay*hfRatio)/mid, minShelfGain)
		lf := max(decayCoeff(length, decay*p.DecayLFRatio)/mid, minShelfGain)
		r.t60[j].midGain = mid
		r.t60[j].hf.SetParams(dsp.HighShelf, hf, hfNorm, dsp.RcpQFromSlope(hf, 1))
		r.t60[j].lf.SetParams(dsp.LowShelf, lf, lfNorm, dsp.RcpQFromSlope(lf, 1))
	}

	var avg float32
	for _, l := range lateLineLengths {
		avg += l
	}
	avg = avg / 4 * mult
	dc := decayCoeff(avg, decay)
	r.lateDensityGain = math32.Sqrt(1 - dc*dc)

	echoTime := min(p.EchoTime, ReverbMaxEchoTime)
	r.echoOffset = max(1, int(echoTime*fs))
	r.echoCoeff = decayCoeff(echoTime, decay)
	r.echoMix = p.EchoDepth

	r.modStep = 2 * math32.Pi / (max(p.ModulationTime, 0.04) * fs)
	r.modDepth = p.ModulationDepth * modDepthScale * fs

	if r.firstPass {
		r.earlyTap, r.earlyTapOld = earlyTap, earlyTap
		r.lateTap, r.lateTapOld = lateTap, lateTap
		r.tapFade = 0
		r.tapPending = false
	} else if r.tapFade > 0 {
		// Retarget once the running fade is done.
		r.earlyTapNext, r.lateTapNext = earlyTap, lateTap
		r.tapPending = true
	} else if earlyTap != r.earlyTap || lateTap != r.lateTap {
		r.startTapFade(earlyTap, lateTap)
	}

	r.outChans = min(out.Channels(), MaxOutputChannels)
	gain := p.Gain * slotGain
	r.panOutput(out, &r.early, p.ReflectionsPan, gain*p.ReflectionsGain)
	r.panOutput(out, &r.late, p.LateReverbPan, gain*p.LateReverbGain)

	if r.firstPass {
		r.early.current = r.early.target
		r.late.current = r.late.target
		r.gainFade = 0
		r.firstPass = false
	} else {
		r.gainFade = FadeSamples
	}
}

func (r *reverbState) startTapFade(early, late [4]int) {
	r.earlyTapOld, r.lateTapOld = r.earlyTap, r.lateTap
	r.earlyTap, r.lateTap = early, late
	r.tapFade = FadeSamples
}

func (r *reverbState) panOutput(out *panning.Panner, g *outputGains, pan vecmath.Vec3, gain float32) {
	tr := panning.RotationTransform(vecmath.RotationFromVector(pan))
	for c := range 4 {
		out.ComputeFirstOrderGains(tr.Column(c), gain, g.target[c][:r.outChans])
	}
}

func (r *reverbState) tap(taps, old *[4]int, j int) float32 {
	v := r.main.Get(r.offset-taps[j], j)
	if r.tapFade > 0 {
		w := float32(r.tapFade) / FadeSamples
		v = v*(1-w) + r.main.Get(r.offset-old[j], j)*w
	}

	return v
}

// allpass runs the four lines through one Schroeder all-pass each and
// scatters what is fed back.
func (r *reverbState) allpass(line dsp.DelayLine, offsets *[4]int, f [4]float32) [4]float32 {
	var out, feed [4]float32
	for j := range 4 {
		d := line.Get(r.offset-offsets[j], j)
		out[j] = d - r.apCoeff*f[j]
		feed[j] = f[j] + r.apCoeff*out[j]
	}
	line.SetFrame(r.offset, r.scatter(feed))

	return out
}

// scatter mixes the four lines with an orthogonal matrix whose spread is set
// by diffusion.
func (r *reverbState) scatter(in [4]float32) [4]float32 {
	x, y := r.mixX, r.mixY

	return [4]float32{
		x*in[0] + y*(in[1]-in[2]+in[3]),
		x*in[1] + y*(-in[0]+in[2]+in[3]),
		x*in[2] + y*(in[0]-in[1]+in[3]),
		x*in[3] + y*(-in[0]-in[1]-in[2]),
	}
}

func (r *reverbState) lateRead(j int) float32 {
	if r.modDepth <= 0 {
		return r.lateLine.Get(r.offset-r.lateLineOffset[j], j)
	}
	phase := r.modPhase + float32(j)*math32.Pi/2
	d := float32(r.lateLineOffset[j]) + r.modDepth*0.5*(1+math32.Sin(phase))
	di := int(d)
	mu := d - float32(di)
	a := r.lateLine.Get(r.offset-di, j)
	b := r.lateLine.Get(r.offset-di-1, j)

	return a + (b-a)*mu
}

func (r *reverbState) Process(samplesToDo int, in [][]float32, out [][]float32) {
	if !r.ready || r.outChans == 0 {
		return
	}
	dry := out[:min(len(out), r.outChans)]

	for base := 0; base < samplesToDo; {
		todo := min(samplesToDo-base, reverbUpdateSize)

		for k := range 4 {
			a := r.aBuf[k][:todo]
			clear(a)
			for c := range min(len(in), 4) {
				g := bToA[k][c]
				src := in[c][base : base+todo]
				for i, s := range src {
					a[i] += s * g
				}
			}
			r.inHF[k].Process(a, a)
			r.inLF[k].Process(a, a)
		}

		for i := range todo {
			r.main.SetFrame(r.offset, [4]float32{r.aBuf[0][i], r.aBuf[1][i], r.aBuf[2][i], r.aBuf[3][i]})

			var f [4]float32
			for j := range 4 {
				f[j] = r.tap(&r.earlyTap, &r.earlyTapOld, j) * r.earlyDelayCoeff[j]
			}
			f = r.allpass(r.earlyAP, &r.earlyAPOffset, f)
			r.earlyLine.SetFrame(r.offset, f)
			for j := range 4 {
				f[j] += r.earlyLine.Get(r.offset-r.earlyLineOffset[j], 3-j) * r.earlyCoeff[j]
				r.earlyBuf[j][i] = f[j]
			}

			var l, echoOut [4]float32
			for j := range 4 {
				l[j] = r.tap(&r.lateTap, &r.lateTapOld, j) * r.lateDensityGain
				e := r.echo.Get(r.offset-r.echoOffset, j)
				r.echo.Set(r.offset, j, l[j]+e*r.echoCoeff)
				echoOut[j] = e * r.echoMix

				v := l[j] + r.lateRead(j)
				t := &r.t60[j]
				v = t.hf.ProcessSample(v)
				v = t.lf.ProcessSample(v)
				l[j] = v * t.midGain
			}
			l = r.allpass(r.lateAP, &r.lateAPOffset, l)
			for j := range 4 {
				r.lateBuf[j][i] = l[j] + echoOut[j]
			}
			s := r.scatter(l)
			r.lateLine.SetFrame(r.offset, [4]float32{s[3], s[2], s[1], s[0]})

			r.offset++
			r.modPhase += r.modStep
			if r.modPhase >= 2*math32.Pi {
				r.modPhase -= 2 * math32.Pi
			}
			if r.tapFade > 0 {
				r.tapFade--
				if r.tapFade == 0 && r.tapPending {
					r.tapPending = false
					if r.earlyTapNext != r.earlyTap || r.lateTapNext != r.lateTap {
						r.startTapFade(r.earlyTapNext, r.lateTapNext)
					}
				}
			}
		}

		r.mixOut(&r.earlyBuf, &r.early, dry, base, todo)
		r.mixOut(&r.lateBuf, &r.late, dry, base, todo)
		r.gainFade = max(r.gainFade-todo, 0)
		base += todo
	}
	r.offset &= r.main.Mask
}

// mixOut converts four A-format lines back to B-format and pans each
// B-format channel onto the output with ramped gains.
func (r *reverbState) mixOut(a *[4][reverbUpdateSize]float32, g *outputGains, out [][]float32, base, todo int) {
	b := r.bBuf[:todo]
	for c := range 4 {
		clear(b)
		for k := range 4 {
			gain := aToB[c][k]
			for i, s := range a[k][:todo] {
				b[i] += s * gain
			}
		}
		dsp.MixSamples(b, out, g.current[c][:r.outChans], g.target[c][:r.outChans], r.gainFade, base)
	}
}
