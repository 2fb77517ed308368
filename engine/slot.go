// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ik5/spatmix/effect"
	"github.com/ik5/spatmix/panning"
)

// SlotProps is the state an effect slot publishes to the mixer.
type SlotProps struct {
	Gain        float32
	AuxSendAuto bool
	Type        effect.Type
	Props       effect.Props
	// State is the processor to install. A new instance is created
	// whenever the effect type changes.
	State effect.State
}

// slotParams is the applied slot state the mixer and source sends read.
type slotParams struct {
	gain        float32
	auxSendAuto bool
	typ         effect.Type
	props       effect.Props
	state       effect.State

	roomRolloff     float32
	decayTime       float32
	decayHFRatio    float32
	airAbsorbGainHF float32
}

// EffectSlot owns one effect processor and its ambisonic wet buffer.
// Sources feed it through their auxiliary sends.
type EffectSlot struct {
	ctx *Context

	mu     sync.Mutex
	props  SlotProps
	dirty  atomic.Bool
	update *exchange[SlotProps]
	refs   atomic.Int32

	params slotParams
	wet    [][]float32
}

func newEffectSlot(ctx *Context) (*EffectSlot, error) {
	st, err := effect.NewState(effect.TypeNull)
	if err != nil {
		return nil, err
	}
	if err := st.DeviceUpdate(ctx.device.cfg.SampleRate); err != nil {
		return nil, err
	}

	s := &EffectSlot{
		ctx: ctx,
		props: SlotProps{
			Gain:        1,
			AuxSendAuto: true,
			Type:        effect.TypeNull,
			Props:       effect.DefaultProps(effect.TypeNull),
			State:       st,
		},
		update: newExchange[SlotProps](2, func(p *SlotProps) { p.State = nil }),
		wet:    make([][]float32, panning.NumCoeffs),
	}
	for c := range s.wet {
		s.wet[c] = make([]float32, ctx.device.cfg.UpdateSize)
	}
	s.params.gain = 1
	s.params.auxSendAuto = true
	s.params.state = st
	s.params.props = s.props.Props
	s.params.airAbsorbGainHF = 1

	return s, nil
}

// Props returns a copy of the live slot state.
func (s *EffectSlot) Props() SlotProps {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.props
}

func (s *EffectSlot) set(fn func(p *SlotProps)) {
	s.mu.Lock()
	fn(&s.props)
	s.dirty.Store(true)
	if s.ctx.immediate() {
		s.applyLocked(true)
	}
	s.mu.Unlock()
}

func (s *EffectSlot) applyLocked(allocate bool) {
	if s.update.publish(func(p *SlotProps) { *p = s.props }, allocate) {
		s.dirty.Store(false)
	}
}

func (s *EffectSlot) apply(allocate bool) {
	if !s.dirty.Load() {
		return
	}
	if allocate {
		s.mu.Lock()
	} else if !s.mu.TryLock() {
		return
	}
	s.applyLocked(allocate)
	s.mu.Unlock()
}

// SetEffect loads an effect. Changing the type replaces the processor;
// keeping it only updates the parameters.
func (s *EffectSlot) SetEffect(t effect.Type, props effect.Props) error {
	if err := props.Validate(t); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t != s.props.Type {
		st, err := effect.NewState(t)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		if err := st.DeviceUpdate(s.ctx.device.cfg.SampleRate); err != nil {
			return err
		}
		s.props.State = st
	}
	s.props.Type = t
	s.props.Props = props
	s.dirty.Store(true)
	if s.ctx.immediate() {
		s.applyLocked(true)
	}
	s.ctx.log.Debugf("slot effect set to %v", t)

	return nil
}

// SetGain scales the effect output, between 0 and 1.
func (s *EffectSlot) SetGain(g float32) error {
	if g < 0 || g > 1 || !finite(g) {
		return fmt.Errorf("%w: slot gain %v", ErrInvalidValue, g)
	}
	s.set(func(p *SlotProps) { p.Gain = g })
	return nil
}

// SetAuxSendAuto controls whether sends into this slot get distance-based
// decay from the slot's reverb parameters.
func (s *EffectSlot) SetAuxSendAuto(auto bool) {
	s.set(func(p *SlotProps) { p.AuxSendAuto = auto })
}

// consume installs a pending snapshot and refreshes the processor. Mixer
// only.
func (s *EffectSlot) consume(d *Device) bool {
	n := s.update.take()
	if n == nil {
		return false
	}
	p := &s.params
	p.gain = n.props.Gain
	p.auxSendAuto = n.props.AuxSendAuto
	p.typ = n.props.Type
	p.props = n.props.Props
	if n.props.State != nil && n.props.State != p.state {
		p.state = n.props.State
	}
	s.update.release(n)

	p.roomRolloff, p.decayTime, p.decayHFRatio, p.airAbsorbGainHF = 0, 0, 0, 1
	gain := p.gain
	if p.typ == effect.TypeReverb || p.typ == effect.TypeEAXReverb {
		r := &p.props.Reverb
		p.roomRolloff = r.RoomRolloffFactor
		p.decayTime = r.DecayTime
		p.decayHFRatio = r.DecayHFRatio
		p.airAbsorbGainHF = r.AirAbsorptionGainHF
		gain *= d.cfg.ReverbBoost
	}
	p.state.Update(d.cfg.SampleRate, d.panner, gain, &p.props)

	return true
}
