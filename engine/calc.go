// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"github.com/chewxy/math32"

	"github.com/ik5/spatmix/dsp"
	"github.com/ik5/spatmix/hrtf"
	"github.com/ik5/spatmix/internal/vecmath"
	"github.com/ik5/spatmix/panning"
	"github.com/ik5/spatmix/resample"
)

const (
	// airAbsorbGainHF is the high frequency gain per metre of air.
	airAbsorbGainHF = 0.99426
	// reverbDecayGain is the level a reverb tail has decayed to after its
	// decay time.
	reverbDecayGain = 0.001
	gainMixMax      = 16
	// minNFCDistance keeps the near-field filter stable for sources inside
	// the listener's head.
	minNFCDistance = 0.1
)

// attenuation applies a distance model. It returns the gain and the
// distance after clamping.
func attenuation(model DistanceModel, dist, ref, maxDist, rolloff float32) (float32, float32) {
	switch model {
	case DistanceInverseClamped, DistanceLinearClamped, DistanceExponentClamped:
		if maxDist < ref {
			return 1, dist
		}
		dist = vecmath.Clamp(dist, ref, maxDist)
	}

	gain := float32(1)
	switch model {
	case DistanceInverse, DistanceInverseClamped:
		if ref > 0 {
			if den := ref + rolloff*(dist-ref); den > 0 {
				gain = ref / den
			}
		}
	case DistanceLinear, DistanceLinearClamped:
		if maxDist != ref {
			gain = max(1-rolloff*(dist-ref)/(maxDist-ref), 0)
		}
	case DistanceExponent, DistanceExponentClamped:
		if dist > 0 && ref > 0 {
			gain = math32.Pow(dist/ref, -rolloff)
		}
	}

	return gain, dist
}

// dopplerPitch scales pitch for the radial velocities of source and
// listener. toListener is the unit vector from source to listener.
func dopplerPitch(pitch, factor, speedOfSound float32, srcVel, lisVel, toListener vecmath.Vec3) float32 {
	if factor <= 0 {
		return pitch
	}
	vss := srcVel.Dot(toListener) * factor
	vls := lisVel.Dot(toListener) * factor
	switch {
	case !(vls < speedOfSound):
		return 0
	case !(vss < speedOfSound):
		return MaxPitch
	}

	return pitch * (speedOfSound - vls) / (speedOfSound - vss)
}

// coneGains returns the volume and high frequency gain for a listener at
// angle degrees off the cone axis.
func coneGains(angle float32, p *SourceProps) (float32, float32) {
	if angle <= p.InnerAngle {
		return 1, 1
	}
	if angle >= p.OuterAngle || p.OuterAngle <= p.InnerAngle {
		return p.OuterGain, p.OuterGainHF
	}
	scale := (angle - p.InnerAngle) / (p.OuterAngle - p.InnerAngle)

	return 1 + (p.OuterGain-1)*scale, 1 + (p.OuterGainHF-1)*scale
}

// sourceSpeakers lists the channel positions of a buffer layout.
func sourceSpeakers(l ChannelLayout, stereo [2]float32) []panning.Speaker {
	deg := func(d float32) float32 { return d * math32.Pi / 180 }
	switch l {
	case ChannelsMono:
		return []panning.Speaker{{Channel: panning.FrontCenter}}
	case ChannelsStereo:
		return []panning.Speaker{
			{Channel: panning.FrontLeft, Azimuth: stereo[0]},
			{Channel: panning.FrontRight, Azimuth: stereo[1]},
		}
	case ChannelsRear:
		return []panning.Speaker{
			{Channel: panning.BackLeft, Azimuth: deg(-150)},
			{Channel: panning.BackRight, Azimuth: deg(150)},
		}
	case ChannelsQuad:
		return panning.Speakers(panning.LayoutQuad)
	case Channels51:
		return panning.Speakers(panning.Layout51)
	case Channels61:
		return panning.Speakers(panning.Layout61)
	case Channels71:
		return panning.Speakers(panning.Layout71)
	}

	return nil
}

// mixGains collects the per-path gains of one parameter update.
type mixGains struct {
	dry, dryHF, dryLF float32
	wet, wetHF, wetLF [MaxSendsLimit]float32
}

func (v *Voice) positional() bool {
	switch v.props.Spatialize {
	case SpatializeOn:
		return !v.layout.BFormat()
	case SpatializeOff:
		return false
	}

	return v.layout == ChannelsMono
}

// calcParams derives filter, panning and pitch parameters from the voice's
// snapshot and the listener. Mixer only.
func (v *Voice) calcParams(d *Device, lp *listenerParams) {
	p := &v.props
	rate := d.cfg.SampleRate
	sends := d.cfg.MaxSends

	for i := range sends {
		v.sendSlots[i] = p.Sends[i].Slot
	}

	v.useHRTF = d.hrtf != nil && !p.DirectChannels && !v.layout.BFormat()
	positional := v.positional()
	v.useNFC = d.nfc && positional && !v.useHRTF

	pitch := p.Pitch * float32(v.srcRate) / float32(rate)
	var g mixGains
	if positional {
		pitch = v.calcPositional(d, lp, pitch, &g)
	} else {
		v.calcStatic(d, lp, &g)
	}

	for c := range v.numChannels {
		ch := &v.chans[c]
		ch.dry.set(g.dryHF, g.dryLF, p.Direct.HFReference, p.Direct.LFReference, rate)
		for i := range sends {
			s := &p.Sends[i]
			ch.sends[i].set(g.wetHF[i], g.wetLF[i], s.HFReference, s.LFReference, rate)
		}
		if v.fresh {
			ch.dry.current = ch.dry.target
			for i := range sends {
				ch.sends[i].current = ch.sends[i].target
			}
		}
	}
	if !v.fresh {
		v.fade = d.cfg.FadeSamples
	}

	v.setStep(pitch)
}

func (v *Voice) setStep(pitch float32) {
	// A step that underflows to zero mutes the voice for the block.
	var step int
	switch scaled := pitch * resample.FracOne; {
	case pitch > MaxPitch || math32.IsInf(pitch, 1):
		step = MaxPitch << resample.FracBits
	case scaled >= 1:
		step = int(scaled)
	}
	kind := v.props.Resampler
	if step != v.step || kind != v.kind || v.resampler == nil {
		v.step = step
		v.kind = kind
		v.resampler = resample.Select(kind)
		v.rstate.Prepare(kind, step)
	}
}

// sendSlotInfo reads the per-slot values used for room rolloff and decay.
func sendSlotInfo(slot *EffectSlot) (rolloff, decayDist, decayHFDist, airHF float32) {
	sp := &slot.params
	airHF = 1
	if !sp.auxSendAuto {
		return 0, 0, 0, airHF
	}
	decayDist = sp.decayTime * dsp.SpeedOfSound
	decayHFDist = decayDist * sp.decayHFRatio

	return sp.roomRolloff, decayDist, decayHFDist, sp.airAbsorbGainHF
}

func (v *Voice) calcPositional(d *Device, lp *listenerParams, pitch float32, g *mixGains) float32 {
	p := &v.props
	sends := d.cfg.MaxSends

	pos, vel, dir := p.Position, p.Velocity, p.Direction
	lisVel := lp.velocity
	if !p.HeadRelative {
		pos = lp.basis.Transform(pos.Sub(lp.position))
		vel = lp.basis.Transform(vel)
		dir = lp.basis.Transform(dir)
	} else {
		lisVel = vecmath.Vec3{}
	}

	toSource, dist := pos.Normalize()
	toListener := toSource.Scale(-1)

	model := lp.distanceModel
	if lp.sourceModel {
		model = p.DistanceModel
	}
	attn, clamped := attenuation(model, dist, p.RefDistance, p.MaxDistance, p.RolloffFactor)

	g.dry = p.Gain * attn
	g.dryHF, g.dryLF = 1, 1
	var decayDist, decayHFDist [MaxSendsLimit]float32
	for i := range sends {
		g.wet[i], g.wetHF[i], g.wetLF[i] = p.Gain, 1, 1
		slot := v.sendSlots[i]
		if slot == nil {
			continue
		}
		rolloff, dd, dhf, airHF := sendSlotInfo(slot)
		decayDist[i], decayHFDist[i] = dd, dhf
		roomAttn, _ := attenuation(model, dist, p.RefDistance, p.MaxDistance, p.RoomRolloffFactor+rolloff)
		g.wet[i] *= roomAttn
		if p.AirAbsorptionFactor > 0 && airHF < 1 && clamped > p.RefDistance {
			meters := (clamped - p.RefDistance) * lp.metersPerUnit * p.AirAbsorptionFactor
			g.wetHF[i] *= math32.Pow(airHF, meters)
		}
	}

	if clamped > p.RefDistance && p.RolloffFactor > 0 {
		base := (clamped - p.RefDistance) * p.RolloffFactor * lp.metersPerUnit
		if p.AirAbsorptionFactor > 0 {
			hf := math32.Pow(airAbsorbGainHF, base*p.AirAbsorptionFactor)
			g.dryHF *= hf
		}
		if p.WetGainAuto {
			for i := range sends {
				if !(decayDist[i] > 0) {
					continue
				}
				gain := math32.Pow(reverbDecayGain, base/decayDist[i])
				g.wet[i] *= gain
				if gain > 0 && decayHFDist[i] > 0 {
					gainHF := math32.Pow(reverbDecayGain, base/decayHFDist[i])
					g.wetHF[i] *= min(gainHF/gain, 1)
				}
			}
		}
	}

	if axis, l := dir.Normalize(); l > 0 && dist > 0 {
		cosA := vecmath.Clamp(axis.Dot(toListener), -1, 1)
		angle := math32.Acos(cosA) * d.cfg.ConeScale * 2 * 180 / math32.Pi
		vol, hf := coneGains(angle, p)
		g.dry *= vol
		if p.DryGainHFAuto {
			g.dryHF *= hf
		}
		for i := range sends {
			if p.WetGainAuto {
				g.wet[i] *= vol
			}
			if p.WetGainHFAuto {
				g.wetHF[i] *= hf
			}
		}
	}

	g.dry = min(vecmath.Clamp(g.dry, p.MinGain, p.MaxGain)*p.Direct.Gain*lp.gain, gainMixMax)
	g.dryHF *= p.Direct.GainHF
	g.dryLF *= p.Direct.GainLF
	for i := range sends {
		s := &p.Sends[i]
		g.wet[i] = min(vecmath.Clamp(g.wet[i], p.MinGain, p.MaxGain)*s.Gain*lp.gain, gainMixMax)
		g.wetHF[i] *= s.GainHF
		g.wetLF[i] *= s.GainLF
	}

	pitch = dopplerPitch(pitch, p.DopplerFactor*lp.dopplerFactor, lp.speedOfSound, vel, lisVel, toListener)

	var spread float32
	switch {
	case p.Radius > dist:
		spread = 2*math32.Pi - dist/p.Radius*math32.Pi
	case dist > 1e-6:
		spread = 2 * math32.Asin(p.Radius/dist)
	}

	panDir := toSource
	if dist <= 1e-6 {
		panDir = vecmath.Vec3{0, 0, -1}
	}
	panDir[2] *= d.cfg.ZScale

	coeffs := panning.CalcDirectionCoeffs(panDir, spread)
	var m hrtf.Measurement
	if v.useHRTF {
		elev := math32.Asin(vecmath.Clamp(panDir[1], -1, 1))
		azi := math32.Atan2(panDir[0], -panDir[2])
		m = d.hrtf.Coeffs(elev, azi, spread)
	}
	nfcDist := max(dist*lp.metersPerUnit, minNFCDistance)

	for c := range v.numChannels {
		ch := &v.chans[c]
		if v.useHRTF {
			ch.dry.hrtf.SetTarget(hrtf.Params{Measurement: m, Gain: g.dry}, v.fresh)
		} else {
			d.panner.ComputePanGains(coeffs, g.dry, ch.dry.target[:])
		}
		if v.useNFC {
			ch.dry.nfc.Adjust(nfcDist, d.cfg.AvgSpeakerDist, d.cfg.SampleRate)
		}
		for i := range sends {
			d.ambiPanner.ComputePanGains(coeffs, g.wet[i], ch.sends[i].target[:])
		}
	}

	return pitch
}

func (v *Voice) calcStatic(d *Device, lp *listenerParams, g *mixGains) {
	p := &v.props
	sends := d.cfg.MaxSends

	base := vecmath.Clamp(p.Gain, p.MinGain, p.MaxGain)
	g.dry = min(base*p.Direct.Gain*lp.gain, gainMixMax)
	g.dryHF, g.dryLF = p.Direct.GainHF, p.Direct.GainLF
	for i := range sends {
		s := &p.Sends[i]
		g.wet[i] = min(base*s.Gain*lp.gain, gainMixMax)
		g.wetHF[i], g.wetLF[i] = s.GainHF, s.GainLF
	}

	if v.layout.BFormat() {
		v.calcBFormat(d, lp, g)
		return
	}

	speakers := sourceSpeakers(v.layout, p.StereoAngles)
	for c, spk := range speakers[:v.numChannels] {
		ch := &v.chans[c]
		ch.dry.target = [maxOutputChannels]float32{}
		for i := range sends {
			ch.sends[i].target = [panning.NumCoeffs]float32{}
		}

		if spk.Channel == panning.LFE || p.DirectChannels {
			if idx := panning.ChannelIndex(d.cfg.Layout, spk.Channel); idx >= 0 && !d.cfg.Layout.Ambisonic() {
				ch.dry.target[idx] = g.dry
			}
			if v.useHRTF {
				ch.dry.hrtf.SetTarget(hrtf.Params{}, v.fresh)
			}
			if spk.Channel == panning.LFE {
				continue
			}
		} else if v.useHRTF {
			m := d.hrtf.Coeffs(spk.Elevation, spk.Azimuth, 0)
			ch.dry.hrtf.SetTarget(hrtf.Params{Measurement: m, Gain: g.dry}, v.fresh)
		} else {
			coeffs := panning.CalcAngleCoeffs(spk.Azimuth, spk.Elevation, 0)
			d.panner.ComputePanGains(coeffs, g.dry, ch.dry.target[:])
		}

		coeffs := panning.CalcAngleCoeffs(spk.Azimuth, spk.Elevation, 0)
		for i := range sends {
			d.ambiPanner.ComputePanGains(coeffs, g.wet[i], ch.sends[i].target[:])
		}
	}
}

// calcBFormat rotates an ambisonic buffer by the source orientation and,
// for world-relative sources, the listener orientation.
func (v *Voice) calcBFormat(d *Device, lp *listenerParams, g *mixGains) {
	p := &v.props
	at, up := p.OrientAt, p.OrientUp
	if !p.HeadRelative {
		at = lp.basis.Transform(at)
		up = lp.basis.Transform(up)
	}
	b := vecmath.NewBasis(at, up)
	var rot vecmath.Mat3
	for r := range 3 {
		rot[r] = [3]float32{b.Right[r], b.Up[r], -b.Front[r]}
	}
	xform := panning.RotationTransform(rot)

	for c := range v.numChannels {
		ch := &v.chans[c]
		acn := panning.FuMaToACN[c]
		scale := panning.FuMaToN3D[c]
		col := xform.Column(acn)
		ch.dry.target = [maxOutputChannels]float32{}
		d.panner.ComputeFirstOrderGains(col, g.dry*scale, ch.dry.target[:])
		for i := range d.cfg.MaxSends {
			d.ambiPanner.ComputeFirstOrderGains(col, g.wet[i]*scale, ch.sends[i].target[:])
		}
	}
}
