// SPDX-License-Identifier: EPL-2.0

package effect

import (
	"fmt"

	"github.com/ik5/spatmix/internal/vecmath"
)

// Type identifies an effect.
type Type int

const (
	TypeNull Type = iota
	TypeReverb
	TypeEAXReverb
	TypeChorus
	TypeFlanger
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeReverb:
		return "reverb"
	case TypeEAXReverb:
		return "eaxreverb"
	case TypeChorus:
		return "chorus"
	case TypeFlanger:
		return "flanger"
	}

	return fmt.Sprintf("Type(%d)", int(t))
}

// Waveform is the LFO shape of chorus and flanger.
type Waveform int

const (
	WaveformSine Waveform = iota
	WaveformTriangle
)

// ReverbProps are the reverb parameters. GainLF, DecayLFRatio, the pan
// vectors, echo, modulation and the reference frequencies only affect the
// EAX reverb.
type ReverbProps struct {
	Density             float32
	Diffusion           float32
	Gain                float32
	GainHF              float32
	GainLF              float32
	DecayTime           float32
	DecayHFRatio        float32
	DecayLFRatio        float32
	ReflectionsGain     float32
	ReflectionsDelay    float32
	ReflectionsPan      vecmath.Vec3
	LateReverbGain      float32
	LateReverbDelay     float32
	LateReverbPan       vecmath.Vec3
	EchoTime            float32
	EchoDepth           float32
	ModulationTime      float32
	ModulationDepth     float32
	AirAbsorptionGainHF float32
	HFReference         float32
	LFReference         float32
	RoomRolloffFactor   float32
	DecayHFLimit        bool
}

// ChorusProps drive both chorus and flanger.
type ChorusProps struct {
	Waveform Waveform
	Phase    int // degrees between the left and right LFO
	Rate     float32
	Depth    float32
	Feedback float32
	Delay    float32
}

// Props is the parameter block carried by an effect slot snapshot.
type Props struct {
	Reverb ReverbProps
	Chorus ChorusProps
}

// Reverb limits in seconds or linear gain.
const (
	ReverbMaxReflectionsDelay = 0.3
	ReverbMaxLateReverbDelay  = 0.1
	ReverbMaxEchoTime         = 0.25
	ReverbMaxModulationTime   = 4.0
	ChorusMaxDelay            = 0.016
	FlangerMaxDelay           = 0.004
)

// DefaultReverbProps is the generic preset.
func DefaultReverbProps() ReverbProps {
	return ReverbProps{
		Density:             1,
		Diffusion:           1,
		Gain:                0.32,
		GainHF:              0.89,
		GainLF:              1,
		DecayTime:           1.49,
		DecayHFRatio:        0.83,
		DecayLFRatio:        1,
		ReflectionsGain:     0.05,
		ReflectionsDelay:    0.007,
		LateReverbGain:      1.26,
		LateReverbDelay:     0.011,
		EchoTime:            0.25,
		EchoDepth:           0,
		ModulationTime:      0.25,
		ModulationDepth:     0,
		AirAbsorptionGainHF: 0.994,
		HFReference:         5000,
		LFReference:         250,
		RoomRolloffFactor:   0,
		DecayHFLimit:        true,
	}
}

// DefaultChorusProps is the chorus default.
func DefaultChorusProps() ChorusProps {
	return ChorusProps{Waveform: WaveformTriangle, Phase: 90, Rate: 1.1, Depth: 0.1, Feedback: 0.25, Delay: 0.016}
}

// DefaultFlangerProps is the flanger default.
func DefaultFlangerProps() ChorusProps {
	return ChorusProps{Waveform: WaveformTriangle, Phase: 0, Rate: 0.27, Depth: 1, Feedback: -0.5, Delay: 0.002}
}

// DefaultProps returns the default parameters for t.
func DefaultProps(t Type) Props {
	p := Props{Reverb: DefaultReverbProps(), Chorus: DefaultChorusProps()}
	if t == TypeFlanger {
		p.Chorus = DefaultFlangerProps()
	}

	return p
}

type bound struct {
	name   string
	v      float32
	lo, hi float32
}

func checkBounds(bounds []bound) error {
	for _, b := range bounds {
		if !(b.v >= b.lo && b.v <= b.hi) {
			return fmt.Errorf("%w: %s = %v not in [%v, %v]", ErrInvalidProps, b.name, b.v, b.lo, b.hi)
		}
	}

	return nil
}

// Validate checks the parameters of effect t.
func (p *Props) Validate(t Type) error {
	switch t {
	case TypeNull:
		return nil
	case TypeReverb, TypeEAXReverb:
		r := &p.Reverb
		return checkBounds([]bound{
			{"density", r.Density, 0, 1},
			{"diffusion", r.Diffusion, 0, 1},
			{"gain", r.Gain, 0, 1},
			{"gainhf", r.GainHF, 0, 1},
			{"gainlf", r.GainLF, 0, 1},
			{"decay time", r.DecayTime, 0.1, 20},
			{"decay hf ratio", r.DecayHFRatio, 0.1, 2},
			{"decay lf ratio", r.DecayLFRatio, 0.1, 2},
			{"reflections gain", r.ReflectionsGain, 0, 3.16},
			{"reflections delay", r.ReflectionsDelay, 0, ReverbMaxReflectionsDelay},
			{"late reverb gain", r.LateReverbGain, 0, 10},
			{"late reverb delay", r.LateReverbDelay, 0, ReverbMaxLateReverbDelay},
			{"echo time", r.EchoTime, 0.075, ReverbMaxEchoTime},
			{"echo depth", r.EchoDepth, 0, 1},
			{"modulation time", r.ModulationTime, 0.04, ReverbMaxModulationTime},
			{"modulation depth", r.ModulationDepth, 0, 1},
			{"air absorption gainhf", r.AirAbsorptionGainHF, 0.892, 1},
			{"hf reference", r.HFReference, 1000, 20000},
			{"lf reference", r.LFReference, 20, 1000},
			{"room rolloff factor", r.RoomRolloffFactor, 0, 10},
		})
	case TypeChorus, TypeFlanger:
		c := &p.Chorus
		maxDelay := float32(ChorusMaxDelay)
		if t == TypeFlanger {
			maxDelay = FlangerMaxDelay
		}
		if c.Waveform != WaveformSine && c.Waveform != WaveformTriangle {
			return fmt.Errorf("%w: waveform %d", ErrInvalidProps, c.Waveform)
		}
		return checkBounds([]bound{
			{"phase", float32(c.Phase), -180, 180},
			{"rate", c.Rate, 0, 10},
			{"depth", c.Depth, 0, 1},
			{"feedback", c.Feedback, -1, 1},
			{"delay", c.Delay, 0, maxDelay},
		})
	}

	return fmt.Errorf("%w: %d", ErrUnknownEffect, t)
}
