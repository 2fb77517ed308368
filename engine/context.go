// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/pion/logging"

	"github.com/ik5/spatmix/dsp"
)

// Context is a listener with its sources and effect slots. Several
// contexts may render into one device.
type Context struct {
	device   *Device
	log      logging.LeveledLogger
	listener *Listener

	mu         sync.Mutex
	sources    map[uint32]*Source
	nextID     uint32
	sourceList atomic.Pointer[[]*Source]
	slots      atomic.Pointer[[]*EffectSlot]
	voices     atomic.Pointer[[]*Voice]

	deferUpdates atomic.Bool
	holdUpdates  atomic.Bool
	updateCount  atomic.Uint32
}

func newContext(d *Device) *Context {
	c := &Context{
		device:  d,
		log:     d.cfg.LoggerFactory.NewLogger("spatmix-context"),
		sources: make(map[uint32]*Source),
	}
	c.listener = newListener(c, d.cfg.SpeedOfSound)
	c.sourceList.Store(&[]*Source{})
	c.slots.Store(&[]*EffectSlot{})
	c.voices.Store(&[]*Voice{})

	return c
}

// Device returns the device the context renders into.
func (c *Context) Device() *Device {
	return c.device
}

// Listener returns the context's listener.
func (c *Context) Listener() *Listener {
	return c.listener
}

func (c *Context) immediate() bool {
	return !c.deferUpdates.Load() && !c.device.cfg.LazyUpdates
}

// NewSource creates a source in the initial state.
func (c *Context) NewSource() *Source {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	s := newSource(c, c.nextID)
	c.sources[s.id] = s
	list := append(slices.Clone(*c.sourceList.Load()), s)
	c.sourceList.Store(&list)

	return s
}

// Source looks a source up by ID.
func (c *Context) Source(id uint32) (*Source, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sources[id]
	return s, ok
}

// DeleteSource stops s, empties its queue and detaches its sends.
func (c *Context) DeleteSource(s *Source) error {
	c.mu.Lock()
	if c.sources[s.id] != s {
		c.mu.Unlock()
		return fmt.Errorf("%w: unknown source %d", ErrInvalidValue, s.id)
	}
	delete(c.sources, s.id)
	list := slices.DeleteFunc(slices.Clone(*c.sourceList.Load()), func(o *Source) bool { return o == s })
	c.sourceList.Store(&list)
	c.mu.Unlock()

	c.Stop(s)
	if err := s.SetBuffer(nil); err != nil {
		return err
	}
	s.mu.Lock()
	for i := range s.props.Sends {
		if slot := s.props.Sends[i].Slot; slot != nil {
			slot.refs.Add(-1)
			s.props.Sends[i].Slot = nil
		}
	}
	s.mu.Unlock()

	return nil
}

// NewEffectSlot creates a slot holding the null effect.
func (c *Context) NewEffectSlot() (*EffectSlot, error) {
	slot, err := newEffectSlot(c)
	if err != nil {
		return nil, err
	}
	slot.mu.Lock()
	slot.applyLocked(true)
	slot.mu.Unlock()

	c.mu.Lock()
	list := append(slices.Clone(*c.slots.Load()), slot)
	c.slots.Store(&list)
	c.mu.Unlock()

	return slot, nil
}

// DeleteEffectSlot removes a slot no source sends to. It returns once the
// mixer can no longer be using it.
func (c *Context) DeleteEffectSlot(slot *EffectSlot) error {
	if slot.refs.Load() != 0 {
		return fmt.Errorf("%w: effect slot in use", ErrInvalidOperation)
	}

	c.mu.Lock()
	old := *c.slots.Load()
	if !slices.Contains(old, slot) {
		c.mu.Unlock()
		return fmt.Errorf("%w: unknown effect slot", ErrInvalidValue)
	}
	list := slices.DeleteFunc(slices.Clone(old), func(o *EffectSlot) bool { return o == slot })
	c.slots.Store(&list)
	c.mu.Unlock()

	c.device.waitForMix()

	return nil
}

// SetDopplerFactor scales every Doppler shift in the context.
func (c *Context) SetDopplerFactor(f float32) error {
	if f < 0 || !finite(f) {
		return fmt.Errorf("%w: doppler factor %v", ErrInvalidValue, f)
	}
	c.listener.set(func(p *ListenerProps) { p.DopplerFactor = f })
	return nil
}

// SetDopplerVelocity scales the speed of sound for Doppler only.
func (c *Context) SetDopplerVelocity(v float32) error {
	if v <= 0 || !finite(v) {
		return fmt.Errorf("%w: doppler velocity %v", ErrInvalidValue, v)
	}
	c.listener.set(func(p *ListenerProps) { p.DopplerVelocity = v })
	return nil
}

// SetSpeedOfSound sets the speed of sound in world units per second.
func (c *Context) SetSpeedOfSound(v float32) error {
	if v <= 0 || !finite(v) {
		return fmt.Errorf("%w: speed of sound %v", ErrInvalidValue, v)
	}
	c.listener.set(func(p *ListenerProps) { p.SpeedOfSound = v })
	return nil
}

// SetDistanceModel sets the attenuation curve for every source, unless
// per-source models are enabled.
func (c *Context) SetDistanceModel(m DistanceModel) error {
	if !m.valid() {
		return fmt.Errorf("%w: distance model %d", ErrInvalidValue, m)
	}
	c.listener.set(func(p *ListenerProps) { p.DistanceModel = m })
	return nil
}

// SetSourceDistanceModel lets each source pick its own distance model.
func (c *Context) SetSourceDistanceModel(enabled bool) {
	c.listener.set(func(p *ListenerProps) { p.SourceDistanceModel = enabled })
}

// DeferUpdates batches property changes until ProcessUpdates.
func (c *Context) DeferUpdates() {
	c.deferUpdates.Store(true)
}

// ProcessUpdates publishes every change made since DeferUpdates so the
// mixer picks them up together.
func (c *Context) ProcessUpdates() {
	if !c.deferUpdates.Swap(false) {
		return
	}
	c.holdUpdates.Store(true)
	for c.updateCount.Load()&1 != 0 {
		runtime.Gosched()
	}
	c.applyDirty(true)
	c.holdUpdates.Store(false)
}

func (c *Context) applyDirty(allocate bool) {
	c.listener.apply(allocate)
	for _, slot := range *c.slots.Load() {
		slot.apply(allocate)
	}
	for _, s := range *c.sourceList.Load() {
		s.apply(allocate)
	}
}

// Play starts or resumes sources. Either every source gets a voice or
// none is started.
func (c *Context) Play(sources ...*Source) error {
	d := c.device
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected.Load() {
		for _, s := range sources {
			s.state.Store(int32(Stopped))
		}
		return ErrDisconnected
	}

	need := 0
	for _, s := range sources {
		if s.activeVoice() == nil && s.BuffersQueued() > 0 {
			need++
		}
	}
	if !c.reserveVoices(need) {
		c.log.Warnf("voice limit %d reached", d.cfg.MaxVoices)
		return ErrOutOfMemory
	}

	for _, s := range sources {
		c.playLocked(s)
	}

	return nil
}

// reserveVoices grows the pool so at least n voices are idle.
func (c *Context) reserveVoices(n int) bool {
	voices := *c.voices.Load()
	idle := 0
	for _, v := range voices {
		if v.source.Load() == nil {
			idle++
		}
	}
	if idle >= n {
		return true
	}
	grow := n - idle
	if len(voices)+grow > c.device.cfg.MaxVoices {
		return false
	}
	list := slices.Grow(slices.Clone(voices), grow)
	for range grow {
		list = append(list, &Voice{})
	}
	c.voices.Store(&list)

	return true
}

func (c *Context) idleVoice() *Voice {
	for _, v := range *c.voices.Load() {
		if v.source.Load() == nil {
			return v
		}
	}

	return nil
}

func (c *Context) playLocked(s *Source) {
	s.qmu.RLock()
	head := s.head
	s.qmu.RUnlock()
	if head == nil {
		s.state.Store(int32(Stopped))
		s.offset = pendingOffset{}
		return
	}

	v := s.activeVoice()
	if v != nil && s.State() == Paused {
		v.playing.Store(true)
		s.state.Store(int32(Playing))
		return
	}
	if v == nil {
		v = c.idleVoice()
	}
	v.playing.Store(false)
	v.start(head, s.looping.Load())

	if s.offset.set {
		s.qmu.RLock()
		item, pos, frac, ok := s.locate(s.offset.unit, s.offset.value)
		s.qmu.RUnlock()
		if ok {
			v.current.Store(item)
			v.position.Store(int64(pos))
			v.frac.Store(int32(frac))
		}
		s.offset = pendingOffset{}
	}

	s.mu.Lock()
	s.applyLocked(true)
	v.props = s.props
	s.mu.Unlock()

	s.voice.Store(v)
	v.source.Store(s)
	v.playing.Store(true)
	s.state.Store(int32(Playing))
}

// Pause holds playing sources at their current position.
func (c *Context) Pause(sources ...*Source) {
	d := c.device
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, s := range sources {
		if s.State() != Playing {
			continue
		}
		if v := s.activeVoice(); v != nil {
			v.playing.Store(false)
		}
		s.state.Store(int32(Paused))
	}
}

// Stop halts sources. A later Play starts from the head of the queue.
func (c *Context) Stop(sources ...*Source) {
	d := c.device
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, s := range sources {
		c.detach(s)
		if s.State() != Initial {
			s.state.Store(int32(Stopped))
		}
	}
}

// Rewind stops sources and returns them to the initial state.
func (c *Context) Rewind(sources ...*Source) {
	d := c.device
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, s := range sources {
		c.detach(s)
		s.state.Store(int32(Initial))
	}
}

func (c *Context) detach(s *Source) {
	if v := s.activeVoice(); v != nil {
		v.release()
	}
	s.voice.Store(nil)
	s.offset = pendingOffset{}
}

// update applies and consumes pending property snapshots. Mixer only.
func (c *Context) update(d *Device) {
	c.updateCount.Add(1)
	if !c.holdUpdates.Load() {
		if !c.deferUpdates.Load() {
			c.applyDirty(false)
		}
		force := c.listener.consume()
		for _, slot := range *c.slots.Load() {
			if slot.consume(d) {
				force = true
			}
		}
		for _, v := range *c.voices.Load() {
			v.refresh(d, &c.listener.params, force)
		}
	}
	c.updateCount.Add(1)
}

// mix renders every playing voice and effect slot. Mixer only.
func (c *Context) mix(d *Device, n int) {
	slots := *c.slots.Load()
	for _, slot := range slots {
		dsp.ClearBuffers(slot.wet, n)
	}
	for _, v := range *c.voices.Load() {
		if v.playing.Load() {
			v.mix(d, n)
		}
	}
	for _, slot := range slots {
		slot.params.state.Process(n, slot.wet, d.dry)
	}
}

// stopAll detaches every voice, marking their sources stopped.
func (c *Context) stopAll() {
	for _, v := range *c.voices.Load() {
		if s := v.source.Load(); s != nil {
			s.voice.CompareAndSwap(v, nil)
			s.state.Store(int32(Stopped))
		}
		v.release()
	}
}
