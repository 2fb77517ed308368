// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chewxy/math32"

	"github.com/ik5/spatmix/internal/vecmath"
	"github.com/ik5/spatmix/resample"
)

// SourceState is the playback state of a source.
type SourceState int32

const (
	Initial SourceState = iota
	Playing
	Paused
	Stopped
)

func (s SourceState) String() string {
	switch s {
	case Initial:
		return "initial"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	}

	return fmt.Sprintf("SourceState(%d)", int32(s))
}

// SpatializeMode selects whether a source is positioned in 3D.
type SpatializeMode int

const (
	// SpatializeAuto positions mono sources only.
	SpatializeAuto SpatializeMode = iota
	SpatializeOff
	SpatializeOn
)

// OffsetUnit is the unit of a playback offset.
type OffsetUnit int

const (
	OffsetSamples OffsetUnit = iota
	OffsetSeconds
	OffsetBytes
)

// Filter is a gain with independent high and low shelf gains.
type Filter struct {
	Gain        float32
	GainHF      float32
	GainLF      float32
	HFReference float32
	LFReference float32
}

// DefaultFilter passes everything through.
func DefaultFilter() Filter {
	return Filter{Gain: 1, GainHF: 1, GainLF: 1, HFReference: 5000, LFReference: 250}
}

func (f Filter) validate() error {
	if f.Gain < 0 || f.GainHF < 0 || f.GainLF < 0 || f.HFReference <= 0 || f.LFReference <= 0 ||
		!finite(f.Gain) || !finite(f.GainHF) || !finite(f.GainLF) {
		return fmt.Errorf("%w: filter %+v", ErrInvalidValue, f)
	}

	return nil
}

// SendProps routes part of a source into an effect slot.
type SendProps struct {
	Slot *EffectSlot
	Filter
}

// SourceProps is every source parameter the mixer reads.
type SourceProps struct {
	Pitch       float32
	Gain        float32
	MinGain     float32
	MaxGain     float32
	OuterGain   float32
	OuterGainHF float32
	InnerAngle  float32
	OuterAngle  float32

	RefDistance         float32
	MaxDistance         float32
	RolloffFactor       float32
	RoomRolloffFactor   float32
	AirAbsorptionFactor float32
	DopplerFactor       float32
	Radius              float32

	Position  vecmath.Vec3
	Velocity  vecmath.Vec3
	Direction vecmath.Vec3
	// OrientAt and OrientUp rotate B-format sound fields.
	OrientAt vecmath.Vec3
	OrientUp vecmath.Vec3
	// StereoAngles are the azimuths of the left and right channels of a
	// non-spatialized stereo buffer, in radians.
	StereoAngles [2]float32

	HeadRelative   bool
	DirectChannels bool
	DryGainHFAuto  bool
	WetGainAuto    bool
	WetGainHFAuto  bool
	Spatialize     SpatializeMode
	DistanceModel  DistanceModel
	Resampler      resample.Kind

	Direct Filter
	Sends  [MaxSendsLimit]SendProps
}

func defaultSourceProps(cfg *Config) SourceProps {
	p := SourceProps{
		Pitch:         1,
		Gain:          1,
		MaxGain:       1,
		OuterGainHF:   1,
		InnerAngle:    360,
		OuterAngle:    360,
		RefDistance:   1,
		MaxDistance:   math32.MaxFloat32,
		RolloffFactor: 1,
		DopplerFactor: 1,
		OrientAt:      vecmath.Vec3{0, 0, -1},
		OrientUp:      vecmath.Vec3{0, 1, 0},
		StereoAngles:  [2]float32{-math32.Pi / 6, math32.Pi / 6},
		DryGainHFAuto: true,
		WetGainAuto:   true,
		WetGainHFAuto: true,
		DistanceModel: DistanceInverseClamped,
		Resampler:     cfg.Resampler,
		Direct:        DefaultFilter(),
	}
	for i := range p.Sends {
		p.Sends[i].Filter = DefaultFilter()
	}

	return p
}

type bufferItem struct {
	buffer *Buffer
	next   atomic.Pointer[bufferItem]
}

type pendingOffset struct {
	set   bool
	unit  OffsetUnit
	value float64
}

// Source plays a queue of buffers through a voice.
type Source struct {
	id  uint32
	ctx *Context

	mu     sync.Mutex
	props  SourceProps
	dirty  atomic.Bool
	update *exchange[SourceProps]

	qmu    sync.RWMutex
	head   *bufferItem
	tail   *bufferItem
	queued int

	state   atomic.Int32
	looping atomic.Bool
	voice   atomic.Pointer[Voice]
	offset  pendingOffset
}

func newSource(ctx *Context, id uint32) *Source {
	return &Source{
		id:    id,
		ctx:   ctx,
		props: defaultSourceProps(&ctx.device.cfg),
		update: newExchange[SourceProps](2, func(p *SourceProps) {
			p.Sends = [MaxSendsLimit]SendProps{}
		}),
	}
}

// ID is the context-unique handle of the source.
func (s *Source) ID() uint32 {
	return s.id
}

// State is the current playback state.
func (s *Source) State() SourceState {
	return SourceState(s.state.Load())
}

// Props returns a copy of the live source parameters.
func (s *Source) Props() SourceProps {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.props
}

func (s *Source) set(fn func(p *SourceProps)) {
	s.mu.Lock()
	fn(&s.props)
	s.dirty.Store(true)
	if s.ctx.immediate() {
		s.applyLocked(true)
	}
	s.mu.Unlock()
}

func (s *Source) applyLocked(allocate bool) {
	if s.update.publish(func(p *SourceProps) { *p = s.props }, allocate) {
		s.dirty.Store(false)
	}
}

func (s *Source) apply(allocate bool) {
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

func checkRange(name string, v, lo, hi float32) error {
	if !finite(v) || v < lo || v > hi {
		return fmt.Errorf("%w: %s %v", ErrInvalidValue, name, v)
	}

	return nil
}

func (s *Source) setFloat(name string, v, lo, hi float32, fn func(p *SourceProps, v float32)) error {
	if err := checkRange(name, v, lo, hi); err != nil {
		return err
	}
	s.set(func(p *SourceProps) { fn(p, v) })

	return nil
}

const inf = math32.MaxFloat32

// SetPitch scales the playback rate. Doppler shift multiplies on top.
func (s *Source) SetPitch(v float32) error {
	return s.setFloat("pitch", v, 1e-6, MaxPitch, func(p *SourceProps, v float32) { p.Pitch = v })
}

// SetGain sets the linear source gain before distance attenuation.
func (s *Source) SetGain(v float32) error {
	return s.setFloat("gain", v, 0, inf, func(p *SourceProps, v float32) { p.Gain = v })
}

// SetMinGain is the floor applied after attenuation.
func (s *Source) SetMinGain(v float32) error {
	return s.setFloat("min gain", v, 0, 1, func(p *SourceProps, v float32) { p.MinGain = v })
}

// SetMaxGain is the ceiling applied after attenuation.
func (s *Source) SetMaxGain(v float32) error {
	return s.setFloat("max gain", v, 0, 1, func(p *SourceProps, v float32) { p.MaxGain = v })
}

// SetReferenceDistance is the distance at which attenuation is unity.
func (s *Source) SetReferenceDistance(v float32) error {
	return s.setFloat("reference distance", v, 0, inf, func(p *SourceProps, v float32) { p.RefDistance = v })
}

// SetMaxDistance clamps the distance used by the clamped distance models.
func (s *Source) SetMaxDistance(v float32) error {
	return s.setFloat("max distance", v, 0, inf, func(p *SourceProps, v float32) { p.MaxDistance = v })
}

// SetRolloffFactor scales how fast the dry path attenuates with distance.
func (s *Source) SetRolloffFactor(v float32) error {
	return s.setFloat("rolloff factor", v, 0, inf, func(p *SourceProps, v float32) { p.RolloffFactor = v })
}

// SetRoomRolloffFactor is the rolloff added to the auxiliary sends.
func (s *Source) SetRoomRolloffFactor(v float32) error {
	return s.setFloat("room rolloff factor", v, 0, 10, func(p *SourceProps, v float32) { p.RoomRolloffFactor = v })
}

// SetAirAbsorptionFactor scales the high frequency loss per metre.
func (s *Source) SetAirAbsorptionFactor(v float32) error {
	return s.setFloat("air absorption factor", v, 0, 10, func(p *SourceProps, v float32) { p.AirAbsorptionFactor = v })
}

// SetDopplerFactor scales this source's Doppler shift, 0 disabling it.
func (s *Source) SetDopplerFactor(v float32) error {
	return s.setFloat("doppler factor", v, 0, 1, func(p *SourceProps, v float32) { p.DopplerFactor = v })
}

// SetRadius gives the source a physical size; panning widens as the
// listener approaches it.
func (s *Source) SetRadius(v float32) error {
	return s.setFloat("radius", v, 0, inf, func(p *SourceProps, v float32) { p.Radius = v })
}

// SetCone sets the inner and outer cone angles in degrees and the gains
// applied outside the outer cone.
func (s *Source) SetCone(inner, outer, outerGain, outerGainHF float32) error {
	for _, c := range []struct {
		name      string
		v, lo, hi float32
	}{
		{"cone inner angle", inner, 0, 360},
		{"cone outer angle", outer, 0, 360},
		{"cone outer gain", outerGain, 0, 1},
		{"cone outer gain hf", outerGainHF, 0, 1},
	} {
		if err := checkRange(c.name, c.v, c.lo, c.hi); err != nil {
			return err
		}
	}
	s.set(func(p *SourceProps) {
		p.InnerAngle = inner
		p.OuterAngle = outer
		p.OuterGain = outerGain
		p.OuterGainHF = outerGainHF
	})

	return nil
}

// SetPosition moves the source, in world units or relative to the
// listener when head-relative.
func (s *Source) SetPosition(v vecmath.Vec3) error {
	if !finiteVec(v) {
		return fmt.Errorf("%w: position %v", ErrInvalidValue, v)
	}
	s.set(func(p *SourceProps) { p.Position = v })
	return nil
}

// SetVelocity is used only for Doppler shift.
func (s *Source) SetVelocity(v vecmath.Vec3) error {
	if !finiteVec(v) {
		return fmt.Errorf("%w: velocity %v", ErrInvalidValue, v)
	}
	s.set(func(p *SourceProps) { p.Velocity = v })
	return nil
}

// SetDirection points the source cone. A zero vector makes the source
// omnidirectional.
func (s *Source) SetDirection(v vecmath.Vec3) error {
	if !finiteVec(v) {
		return fmt.Errorf("%w: direction %v", ErrInvalidValue, v)
	}
	s.set(func(p *SourceProps) { p.Direction = v })
	return nil
}

// SetOrientation rotates a B-format buffer's sound field.
func (s *Source) SetOrientation(at, up vecmath.Vec3) error {
	if !finiteVec(at) || !finiteVec(up) || at.Cross(up).Len() == 0 {
		return fmt.Errorf("%w: orientation %v %v", ErrInvalidValue, at, up)
	}
	s.set(func(p *SourceProps) {
		p.OrientAt = at
		p.OrientUp = up
	})
	return nil
}

// SetStereoAngles places the channels of a non-spatialized stereo buffer.
// Azimuths are radians, positive to the right.
func (s *Source) SetStereoAngles(left, right float32) error {
	if !finite(left) || !finite(right) {
		return fmt.Errorf("%w: stereo angles %v %v", ErrInvalidValue, left, right)
	}
	s.set(func(p *SourceProps) { p.StereoAngles = [2]float32{left, right} })
	return nil
}

// SetHeadRelative makes position, velocity and direction relative to the
// listener.
func (s *Source) SetHeadRelative(v bool) {
	s.set(func(p *SourceProps) { p.HeadRelative = v })
}

// SetDirectChannels sends buffer channels straight to matching output
// channels, dropping those the device lacks.
func (s *Source) SetDirectChannels(v bool) {
	s.set(func(p *SourceProps) { p.DirectChannels = v })
}

// SetAutoFlags selects which cone and distance effects apply to the dry
// high frequencies, the send gains and the send high frequencies.
func (s *Source) SetAutoFlags(dryGainHF, wetGain, wetGainHF bool) {
	s.set(func(p *SourceProps) {
		p.DryGainHFAuto = dryGainHF
		p.WetGainAuto = wetGain
		p.WetGainHFAuto = wetGainHF
	})
}

// SetSpatialize picks whether the buffer is panned as a point source.
func (s *Source) SetSpatialize(m SpatializeMode) error {
	if m < SpatializeAuto || m > SpatializeOn {
		return fmt.Errorf("%w: spatialize mode %d", ErrInvalidValue, m)
	}
	s.set(func(p *SourceProps) { p.Spatialize = m })
	return nil
}

// SetDistanceModel takes effect only when the context allows per-source
// models.
func (s *Source) SetDistanceModel(m DistanceModel) error {
	if !m.valid() {
		return fmt.Errorf("%w: distance model %d", ErrInvalidValue, m)
	}
	s.set(func(p *SourceProps) { p.DistanceModel = m })
	return nil
}

// SetResampler selects the interpolation kernel for this source.
func (s *Source) SetResampler(k resample.Kind) error {
	if k < resample.Point || k > resample.BSinc {
		return fmt.Errorf("%w: resampler %d", ErrInvalidValue, k)
	}
	s.set(func(p *SourceProps) { p.Resampler = k })
	return nil
}

// SetDirectFilter filters the dry path.
func (s *Source) SetDirectFilter(f Filter) error {
	if err := f.validate(); err != nil {
		return err
	}
	s.set(func(p *SourceProps) { p.Direct = f })
	return nil
}

// SetSend routes the source into slot through send index i. A nil slot
// disconnects the send.
func (s *Source) SetSend(i int, slot *EffectSlot, f Filter) error {
	if i < 0 || i >= s.ctx.device.cfg.MaxSends {
		return fmt.Errorf("%w: send %d", ErrInvalidValue, i)
	}
	if slot != nil && slot.ctx != s.ctx {
		return fmt.Errorf("%w: slot belongs to another context", ErrInvalidValue)
	}
	if err := f.validate(); err != nil {
		return err
	}
	// The swap and both ref adjustments happen under one hold of s.mu.
	s.set(func(p *SourceProps) {
		if slot != nil {
			slot.refs.Add(1)
		}
		if old := p.Sends[i].Slot; old != nil {
			old.refs.Add(-1)
		}
		p.Sends[i] = SendProps{Slot: slot, Filter: f}
	})

	return nil
}

// SetLooping makes the queue repeat. With a single queued buffer its loop
// points bound the repeated range.
func (s *Source) SetLooping(loop bool) {
	d := s.ctx.device
	d.mu.Lock()
	defer d.mu.Unlock()

	s.looping.Store(loop)
	if v := s.activeVoice(); v != nil {
		if loop {
			s.qmu.RLock()
			v.loopItem.Store(s.head)
			s.qmu.RUnlock()
		} else {
			v.loopItem.Store(nil)
		}
	}
}

// Looping reports whether the queue repeats.
func (s *Source) Looping() bool {
	return s.looping.Load()
}

func (s *Source) activeVoice() *Voice {
	v := s.voice.Load()
	if v == nil || v.source.Load() != s {
		return nil
	}

	return v
}

// Queue appends buffers to the play queue. Every buffer in a queue must
// share format, layout and sample rate.
func (s *Source) Queue(buffers ...*Buffer) error {
	if len(buffers) == 0 {
		return nil
	}
	s.qmu.Lock()
	defer s.qmu.Unlock()

	ref := buffers[0]
	if s.head != nil {
		ref = s.head.buffer
	}
	for _, b := range buffers {
		if b == nil {
			return fmt.Errorf("%w: nil buffer", ErrInvalidValue)
		}
		if !b.sameFormat(ref) {
			return fmt.Errorf("%w: buffer format %v/%v/%d does not match queue %v/%v/%d",
				ErrInvalidOperation, b.format, b.layout, b.sampleRate, ref.format, ref.layout, ref.sampleRate)
		}
	}

	var first, last *bufferItem
	for _, b := range buffers {
		b.refs.Add(1)
		item := &bufferItem{buffer: b}
		if first == nil {
			first = item
		} else {
			last.next.Store(item)
		}
		last = item
	}

	if s.tail == nil {
		s.head = first
	} else {
		s.tail.next.Store(first)
	}
	s.tail = last
	s.queued += len(buffers)

	return nil
}

// SetBuffer replaces the queue with a single buffer, or empties it when b
// is nil. The source must not be playing or paused.
func (s *Source) SetBuffer(b *Buffer) error {
	switch s.State() {
	case Playing, Paused:
		return fmt.Errorf("%w: source is %v", ErrInvalidOperation, s.State())
	}
	s.qmu.Lock()
	for it := s.head; it != nil; it = it.next.Load() {
		it.buffer.refs.Add(-1)
	}
	s.head, s.tail, s.queued = nil, nil, 0
	s.qmu.Unlock()

	if b == nil {
		return nil
	}

	return s.Queue(b)
}

// BuffersQueued is the number of buffers in the queue.
func (s *Source) BuffersQueued() int {
	s.qmu.RLock()
	defer s.qmu.RUnlock()

	return s.queued
}

// BuffersProcessed is the number of buffers at the head of the queue that
// have finished playing and may be unqueued.
func (s *Source) BuffersProcessed() int {
	s.qmu.RLock()
	defer s.qmu.RUnlock()

	return s.processedLocked()
}

func (s *Source) processedLocked() int {
	switch s.State() {
	case Initial:
		return 0
	case Stopped:
		return s.queued
	}
	if s.looping.Load() {
		return 0
	}
	v := s.activeVoice()
	if v == nil {
		return 0
	}
	cur := v.current.Load()
	n := 0
	for it := s.head; it != nil && it != cur; it = it.next.Load() {
		n++
	}

	return n
}

// Unqueue removes n processed buffers from the head of the queue.
func (s *Source) Unqueue(n int) ([]*Buffer, error) {
	s.qmu.Lock()
	defer s.qmu.Unlock()

	if n < 0 || n > s.processedLocked() {
		return nil, fmt.Errorf("%w: unqueue %d buffers", ErrInvalidValue, n)
	}
	out := make([]*Buffer, 0, n)
	for range n {
		item := s.head
		s.head = item.next.Load()
		item.buffer.refs.Add(-1)
		out = append(out, item.buffer)
	}
	if s.head == nil {
		s.tail = nil
	}
	s.queued -= n

	return out, nil
}

// Play starts the source from the head of its queue, or resumes it when
// paused. Playing a playing source restarts it.
func (s *Source) Play() error {
	return s.ctx.Play(s)
}

// Pause holds the playback position. Play resumes it.
func (s *Source) Pause() { s.ctx.Pause(s) }

// Stop halts playback; the queue is left intact.
func (s *Source) Stop() { s.ctx.Stop(s) }

// Rewind stops the source and returns it to the initial state.
func (s *Source) Rewind() { s.ctx.Rewind(s) }

// SetOffset seeks. On a playing or paused source it moves the voice; on an
// idle one it is remembered until the next Play.
func (s *Source) SetOffset(unit OffsetUnit, value float64) error {
	if unit < OffsetSamples || unit > OffsetBytes || value < 0 {
		return fmt.Errorf("%w: offset %v", ErrInvalidValue, value)
	}
	d := s.ctx.device
	d.mu.Lock()
	defer d.mu.Unlock()

	s.qmu.RLock()
	item, pos, frac, ok := s.locate(unit, value)
	s.qmu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: offset %v past end of queue", ErrInvalidValue, value)
	}

	if v := s.activeVoice(); v != nil {
		v.current.Store(item)
		v.position.Store(int64(pos))
		v.frac.Store(int32(frac))
		s.offset = pendingOffset{}
		return nil
	}
	s.offset = pendingOffset{set: true, unit: unit, value: value}

	return nil
}

// locate resolves an offset to a queue item, a frame within it and a
// fixed-point fraction. qmu is held for reading.
func (s *Source) locate(unit OffsetUnit, value float64) (*bufferItem, int, int, bool) {
	if s.head == nil {
		return nil, 0, 0, false
	}
	b := s.head.buffer
	var frames float64
	switch unit {
	case OffsetSamples:
		frames = value
	case OffsetSeconds:
		frames = value * float64(b.sampleRate)
	case OffsetBytes:
		frames = float64(int(value) / (b.format.Bytes() * b.Channels()))
	}
	whole := int(frames)
	frac := int((frames - float64(whole)) * resample.FracOne)

	for it := s.head; it != nil; it = it.next.Load() {
		if whole < it.buffer.frames {
			return it, whole, frac, true
		}
		whole -= it.buffer.frames
	}

	return nil, 0, 0, false
}

// Offset reports the playback position in unit. Idle sources report zero.
func (s *Source) Offset(unit OffsetUnit) float64 {
	off, _ := s.OffsetClock(unit)
	return off
}

// OffsetClock reports the playback position together with the device clock
// time it corresponds to.
func (s *Source) OffsetClock(unit OffsetUnit) (float64, time.Duration) {
	d := s.ctx.device
	var (
		cur     *bufferItem
		pos     int64
		frac    int32
		elapsed time.Duration
	)
	for {
		c := d.mixCount.Load()
		if c&1 != 0 {
			runtime.Gosched()
			continue
		}
		cur = nil
		if v := s.activeVoice(); v != nil {
			cur = v.current.Load()
			pos = v.position.Load()
			frac = v.frac.Load()
		}
		elapsed = d.clockTime()
		if d.mixCount.Load() == c {
			break
		}
	}
	if cur == nil {
		return 0, elapsed
	}

	s.qmu.RLock()
	defer s.qmu.RUnlock()
	var frames int64
	for it := s.head; it != nil && it != cur; it = it.next.Load() {
		frames += int64(it.buffer.frames)
	}
	frames += pos
	b := cur.buffer

	switch unit {
	case OffsetSeconds:
		return (float64(frames) + float64(frac)/resample.FracOne) / float64(b.sampleRate), elapsed
	case OffsetBytes:
		return float64(frames * int64(b.format.Bytes()*b.Channels())), elapsed
	}

	return float64(frames) + float64(frac)/resample.FracOne, elapsed
}
