// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chewxy/math32"

	"github.com/ik5/spatmix/internal/vecmath"
)

func TestSource_QueueUnqueueRoundTrip(t *testing.T) {
	t.Parallel()

	d, ctx := newTestDevice(t)
	src := ctx.NewSource()
	bufs := []*Buffer{
		constBuffer(t, ChannelsMono, 48000, 100, 0.1),
		constBuffer(t, ChannelsMono, 48000, 100, 0.2),
		constBuffer(t, ChannelsMono, 48000, 100, 0.3),
	}
	if err := src.Queue(bufs...); err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if got := src.BuffersQueued(); got != 3 {
		t.Fatalf("queued = %d", got)
	}
	if got := src.BuffersProcessed(); got != 0 {
		t.Fatalf("processed before play = %d", got)
	}
	if _, err := src.Unqueue(1); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("unqueue unplayed: err = %v", err)
	}

	if err := src.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	render(d, 150)
	if got := src.BuffersProcessed(); got != 1 {
		t.Fatalf("processed after 150 frames = %d, want 1", got)
	}
	got, err := src.Unqueue(1)
	if err != nil {
		t.Fatalf("Unqueue: %v", err)
	}
	if len(got) != 1 || got[0] != bufs[0] {
		t.Errorf("unqueued %v, want first buffer", got)
	}
	if bufs[0].InUse() {
		t.Error("unqueued buffer still referenced")
	}
	if _, err := src.Unqueue(1); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("unqueue the playing buffer: err = %v", err)
	}

	render(d, 200)
	if st := src.State(); st != Stopped {
		t.Fatalf("state after queue end = %v", st)
	}
	if got := src.BuffersProcessed(); got != 2 {
		t.Fatalf("processed after stop = %d, want 2", got)
	}
	if _, err := src.Unqueue(2); err != nil {
		t.Fatalf("Unqueue rest: %v", err)
	}
	if src.BuffersQueued() != 0 {
		t.Errorf("queue not empty")
	}
}

func TestSource_QueueRejectsMixedFormats(t *testing.T) {
	t.Parallel()

	_, ctx := newTestDevice(t)
	src := ctx.NewSource()
	if err := src.Queue(constBuffer(t, ChannelsMono, 48000, 10, 0)); err != nil {
		t.Fatal(err)
	}
	err := src.Queue(constBuffer(t, ChannelsStereo, 48000, 10, 0))
	if !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("stereo after mono: err = %v", err)
	}
	err = src.Queue(constBuffer(t, ChannelsMono, 44100, 10, 0))
	if !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("rate change: err = %v", err)
	}
}

func TestSource_PlayWithoutBuffersStops(t *testing.T) {
	t.Parallel()

	_, ctx := newTestDevice(t)
	src := ctx.NewSource()
	if err := src.Play(); err != nil {
		t.Fatal(err)
	}
	if st := src.State(); st != Stopped {
		t.Errorf("state = %v, want stopped", st)
	}
}

func TestSource_SeekStopReplay(t *testing.T) {
	t.Parallel()

	d, ctx := newTestDevice(t)
	src := ctx.NewSource()
	if err := src.Queue(constBuffer(t, ChannelsMono, 48000, 1000, 0.5)); err != nil {
		t.Fatal(err)
	}

	if err := src.SetOffset(OffsetSamples, 500); err != nil {
		t.Fatalf("SetOffset: %v", err)
	}
	if got := src.Offset(OffsetSamples); got != 0 {
		t.Errorf("offset before play = %v, want 0", got)
	}
	if err := src.Play(); err != nil {
		t.Fatal(err)
	}
	if got := src.Offset(OffsetSamples); got != 500 {
		t.Errorf("offset after play = %v, want 500", got)
	}
	render(d, 10)
	if got := src.Offset(OffsetSamples); got != 510 {
		t.Errorf("offset after 10 frames = %v, want 510", got)
	}
	if got := src.Offset(OffsetBytes); got != 510*4 {
		t.Errorf("byte offset = %v, want %v", got, 510*4)
	}

	src.Stop()
	if st := src.State(); st != Stopped {
		t.Fatalf("state = %v", st)
	}
	if err := src.Play(); err != nil {
		t.Fatal(err)
	}
	if got := src.Offset(OffsetSamples); got != 0 {
		t.Errorf("replay offset = %v, want 0", got)
	}

	if err := src.SetOffset(OffsetSeconds, 1); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("seek past end: err = %v", err)
	}
}

func TestSource_PauseResume(t *testing.T) {
	t.Parallel()

	d, ctx := newTestDevice(t)
	src := ctx.NewSource()
	if err := src.Queue(constBuffer(t, ChannelsMono, 48000, 1000, 0.5)); err != nil {
		t.Fatal(err)
	}
	if err := src.Play(); err != nil {
		t.Fatal(err)
	}
	render(d, 100)
	src.Pause()
	out := render(d, 100)
	for i, s := range out {
		if s != 0 {
			t.Fatalf("paused source produced %v at %d", s, i)
		}
	}
	if got := src.Offset(OffsetSamples); got != 100 {
		t.Errorf("paused offset = %v, want 100", got)
	}
	if err := src.Play(); err != nil {
		t.Fatal(err)
	}
	render(d, 50)
	if got := src.Offset(OffsetSamples); got != 150 {
		t.Errorf("resumed offset = %v, want 150", got)
	}

	src.Rewind()
	if st := src.State(); st != Initial {
		t.Errorf("state after rewind = %v", st)
	}
}

func TestSource_VoiceLimit(t *testing.T) {
	t.Parallel()

	_, ctx := newTestDevice(t, WithMaxVoices(1))
	a, b := ctx.NewSource(), ctx.NewSource()
	for _, s := range []*Source{a, b} {
		if err := s.Queue(constBuffer(t, ChannelsMono, 48000, 100, 0)); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.Play(); err != nil {
		t.Fatal(err)
	}
	if err := b.Play(); !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("second voice: err = %v", err)
	}
	if st := b.State(); st != Initial {
		t.Errorf("rejected source state = %v", st)
	}
	a.Stop()
	if err := b.Play(); err != nil {
		t.Errorf("voice not reused after stop: %v", err)
	}
}

func TestSource_LoopPoints(t *testing.T) {
	t.Parallel()

	d, ctx := newTestDevice(t)
	b := constBuffer(t, ChannelsMono, 48000, 100, 0.5)
	if err := b.SetLoopPoints(20, 40); err != nil {
		t.Fatal(err)
	}
	src := ctx.NewSource()
	if err := src.Queue(b); err != nil {
		t.Fatal(err)
	}
	src.SetLooping(true)
	if err := src.Play(); err != nil {
		t.Fatal(err)
	}
	render(d, 1000)
	if st := src.State(); st != Playing {
		t.Fatalf("looping source state = %v", st)
	}
	// 1000 frames: 40 to reach the loop end, then 960 more wrap inside
	// the 20 frame loop back to its start.
	if got := src.Offset(OffsetSamples); got != 20 {
		t.Errorf("offset = %v, want 20", got)
	}
	if got := src.BuffersProcessed(); got != 0 {
		t.Errorf("looping source reports %d processed", got)
	}

	src.SetLooping(false)
	render(d, 100)
	if st := src.State(); st != Stopped {
		t.Errorf("state after loop disabled = %v", st)
	}
}

func TestSource_SetterValidation(t *testing.T) {
	t.Parallel()

	_, ctx := newTestDevice(t)
	src := ctx.NewSource()
	nan := math32.NaN()

	checks := []struct {
		name string
		err  error
	}{
		{"negative gain", src.SetGain(-1)},
		{"zero pitch", src.SetPitch(0)},
		{"nan position", src.SetPosition(vecmath.Vec3{nan, 0, 0})},
		{"cone angle", src.SetCone(400, 360, 0, 1)},
		{"send index", src.SetSend(5, nil, DefaultFilter())},
		{"filter gain", src.SetDirectFilter(Filter{Gain: -1, GainHF: 1, GainLF: 1, HFReference: 5000, LFReference: 250})},
		{"parallel orientation", src.SetOrientation(vecmath.Vec3{0, 1, 0}, vecmath.Vec3{0, 2, 0})},
	}
	for _, c := range checks {
		if !errors.Is(c.err, ErrInvalidValue) {
			t.Errorf("%s: err = %v, want ErrInvalidValue", c.name, c.err)
		}
	}

	if err := src.SetGain(0.5); err != nil {
		t.Fatal(err)
	}
	if got := src.Props().Gain; got != 0.5 {
		t.Errorf("gain = %v", got)
	}
}

func TestSource_ConcurrentSetSendKeepsRefs(t *testing.T) {
	t.Parallel()

	_, ctx := newTestDevice(t)
	slots := make([]*EffectSlot, 2)
	for i := range slots {
		s, err := ctx.NewEffectSlot()
		if err != nil {
			t.Fatal(err)
		}
		slots[i] = s
	}
	src := ctx.NewSource()

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				if err := src.SetSend(0, slots[(g+i)%2], DefaultFilter()); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	cur := src.Props().Sends[0].Slot
	for i, s := range slots {
		want := int32(0)
		if s == cur {
			want = 1
		}
		if got := s.refs.Load(); got != want {
			t.Errorf("slot %d refs = %d, want %d", i, got, want)
		}
	}

	if err := src.SetSend(0, nil, DefaultFilter()); err != nil {
		t.Fatal(err)
	}
	for i, s := range slots {
		if err := ctx.DeleteEffectSlot(s); err != nil {
			t.Errorf("DeleteEffectSlot(%d): %v", i, err)
		}
	}
}

func TestSource_QueueReadersShareLock(t *testing.T) {
	t.Parallel()

	_, ctx := newTestDevice(t)
	src := ctx.NewSource()
	if err := src.Queue(constBuffer(t, ChannelsMono, 48000, 10, 0)); err != nil {
		t.Fatal(err)
	}

	src.qmu.RLock()
	defer src.qmu.RUnlock()

	done := make(chan int)
	go func() {
		_ = src.BuffersProcessed()
		_ = src.Offset(OffsetSamples)
		done <- src.BuffersQueued()
	}()
	select {
	case n := <-done:
		if n != 1 {
			t.Errorf("BuffersQueued() = %d, want 1", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("queue readers blocked behind another reader")
	}
}
