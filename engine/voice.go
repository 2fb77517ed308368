// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"sync/atomic"

	"github.com/ik5/spatmix/dsp"
	"github.com/ik5/spatmix/hrtf"
	"github.com/ik5/spatmix/panning"
	"github.com/ik5/spatmix/resample"
)

const (
	// maxVoiceChannels is the widest buffer layout (7.1).
	maxVoiceChannels = 8
	// srcWindow bounds how many source samples one mix chunk may consume.
	srcWindow = 4096
	srcBufLen = srcWindow + 2*resample.MaxPadding + 1
)

type filterMode uint8

const (
	filterLowPass filterMode = 1 << iota
	filterHighPass
)

type shelfPair struct {
	mode     filterMode
	lowpass  dsp.Biquad
	highpass dsp.Biquad
}

// set designs the shelves for the given gains and reference frequencies.
func (f *shelfPair) set(gainHF, gainLF, hfRef, lfRef float32, rate int) {
	f.mode = 0
	if gainHF != 1 {
		f.mode |= filterLowPass
		f.lowpass.SetParams(dsp.HighShelf, gainHF, hfRef/float32(rate), dsp.RcpQFromSlope(gainHF, 1))
	}
	if gainLF != 1 {
		f.mode |= filterHighPass
		f.highpass.SetParams(dsp.LowShelf, gainLF, lfRef/float32(rate), dsp.RcpQFromSlope(gainLF, 1))
	}
}

func (f *shelfPair) clear() {
	f.lowpass.Clear()
	f.highpass.Clear()
}

// process returns src filtered into scratch, or src itself when both
// shelves are off. Idle shelves still track the signal.
func (f *shelfPair) process(src, scratch []float32) []float32 {
	switch f.mode {
	case filterLowPass:
		f.lowpass.Process(scratch, src)
		f.highpass.Passthru(src)
		return scratch
	case filterHighPass:
		f.lowpass.Passthru(src)
		f.highpass.Process(scratch, src)
		return scratch
	case filterLowPass | filterHighPass:
		f.lowpass.Process(scratch, src)
		f.highpass.Process(scratch, scratch)
		return scratch
	}
	f.lowpass.Passthru(src)
	f.highpass.Passthru(src)

	return src
}

type directParams struct {
	shelfPair
	nfc     dsp.NFC
	hrtf    hrtf.Mixer
	current [maxOutputChannels]float32
	target  [maxOutputChannels]float32
}

type sendParams struct {
	shelfPair
	current [panning.NumCoeffs]float32
	target  [panning.NumCoeffs]float32
}

type voiceChannel struct {
	history [resample.MaxPadding]float32
	dry     directParams
	sends   [MaxSendsLimit]sendParams
}

// Voice is a mixer slot bound to at most one playing source. Its fields
// below the atomics are only touched with the device lock held.
type Voice struct {
	source   atomic.Pointer[Source]
	playing  atomic.Bool
	current  atomic.Pointer[bufferItem]
	loopItem atomic.Pointer[bufferItem]
	position atomic.Int64
	frac     atomic.Int32

	props    SourceProps
	needCalc bool
	fresh    bool
	fade     int

	layout      ChannelLayout
	srcRate     int
	numChannels int

	step      int
	kind      resample.Kind
	resampler resample.Func
	rstate    resample.State

	useHRTF   bool
	useNFC    bool
	sendSlots [MaxSendsLimit]*EffectSlot

	chans [maxVoiceChannels]voiceChannel
}

// start binds the voice to the head of a queue. The device lock is held
// and the voice is idle.
func (v *Voice) start(head *bufferItem, loop bool) {
	b := head.buffer
	v.layout = b.layout
	v.srcRate = b.sampleRate
	v.numChannels = b.Channels()
	v.current.Store(head)
	if loop {
		v.loopItem.Store(head)
	} else {
		v.loopItem.Store(nil)
	}
	v.position.Store(0)
	v.frac.Store(0)

	v.step = 0
	v.needCalc = true
	v.fresh = true
	v.fade = 0
	v.sendSlots = [MaxSendsLimit]*EffectSlot{}
	for c := range v.chans {
		ch := &v.chans[c]
		ch.history = [resample.MaxPadding]float32{}
		ch.dry.clear()
		ch.dry.nfc.Clear()
		ch.dry.hrtf.Clear()
		ch.dry.current = [maxOutputChannels]float32{}
		for i := range ch.sends {
			ch.sends[i].clear()
			ch.sends[i].current = [panning.NumCoeffs]float32{}
		}
	}
}

// release detaches the voice from its source.
func (v *Voice) release() {
	v.playing.Store(false)
	v.source.Store(nil)
	v.current.Store(nil)
	v.loopItem.Store(nil)
	v.sendSlots = [MaxSendsLimit]*EffectSlot{}
}

// refresh installs a pending source snapshot and recalculates the mixing
// parameters when anything changed. Mixer only.
func (v *Voice) refresh(d *Device, lp *listenerParams, force bool) {
	src := v.source.Load()
	if src == nil {
		return
	}
	if n := src.update.take(); n != nil {
		v.props = n.props
		src.update.release(n)
		v.needCalc = true
	}
	if v.needCalc || force {
		v.calcParams(d, lp)
		v.needCalc = false
	}
}

// singleLoop reports whether item repeats between its own loop points.
func singleLoop(item, loop *bufferItem) bool {
	return loop != nil && item == loop && loop.next.Load() == nil
}

// fill copies samples of channel c starting at (item, pos) into dst,
// following the queue and the loop settings, and zero-fills past the end.
func fill(dst []float32, c int, item *bufferItem, pos int, loop *bufferItem) {
	n := 0
	for n < len(dst) && item != nil {
		b := item.buffer
		end := b.frames
		single := singleLoop(item, loop)
		if single {
			ls, le := b.LoopPoints()
			if pos < le {
				end = le
			} else {
				pos = ls
				end = le
			}
		}
		if pos < end {
			k := copy(dst[n:], b.samples[c][pos:end])
			n += k
			pos += k
		}
		if pos < end {
			break
		}
		if single {
			pos, _ = b.LoopPoints()
			continue
		}
		item = item.next.Load()
		if item == nil {
			item = loop
		}
		pos = 0
	}
	clear(dst[n:])
}

// advance moves (item, pos) forward by n frames. It returns a nil item when
// a non-looping queue runs out.
func advance(item *bufferItem, pos, n int, loop *bufferItem) (*bufferItem, int) {
	pos += n
	for item != nil {
		b := item.buffer
		if singleLoop(item, loop) {
			ls, le := b.LoopPoints()
			if pos >= le {
				pos = ls + (pos-ls)%(le-ls)
			}
			return item, pos
		}
		if pos < b.frames {
			return item, pos
		}
		pos -= b.frames
		item = item.next.Load()
		if item == nil {
			item = loop
		}
	}

	return nil, 0
}

// mix renders n frames of the voice into the device dry buffer and the
// wet buffers of its sends. Mixer only.
func (v *Voice) mix(d *Device, n int) {
	src := v.source.Load()
	if src == nil || v.step <= 0 {
		return
	}
	if SourceState(src.state.Load()) == Stopped {
		v.release()
		return
	}

	item := v.current.Load()
	loop := v.loopItem.Load()
	pos := int(v.position.Load())
	frac := int(v.frac.Load())

	out := 0
	for out < n && item != nil {
		todo := min(n-out, ((srcWindow<<resample.FracBits)-frac)/v.step)
		todo = max(todo, 1)
		adv, nextFrac := resample.Advance(frac, v.step, todo)
		srcLen := max(resample.BufferSize(frac, v.step, todo), adv+resample.MaxPadding)

		for c := range v.numChannels {
			ch := &v.chans[c]
			buf := d.srcBuf[:srcLen]
			copy(buf, ch.history[:])
			fill(buf[resample.MaxPadding:], c, item, pos, loop)

			samples := d.resampled[:todo]
			v.resampler(&v.rstate, buf, frac, v.step, samples)
			copy(ch.history[:], buf[adv:adv+resample.MaxPadding])

			v.mixChannel(d, ch, samples, out)
		}

		v.fade = max(v.fade-todo, 0)
		frac = nextFrac
		item, pos = advance(item, pos, adv, loop)
		out += todo
	}
	v.fresh = false

	if item == nil {
		src.voice.CompareAndSwap(v, nil)
		src.state.CompareAndSwap(int32(Playing), int32(Stopped))
		v.release()
		d.log.Debugf("source %d reached the end of its queue", src.id)
		return
	}
	v.current.Store(item)
	v.position.Store(int64(pos))
	v.frac.Store(int32(frac))
}

func (v *Voice) mixChannel(d *Device, ch *voiceChannel, samples []float32, outPos int) {
	n := len(samples)
	dry := ch.dry.process(samples, d.filtered[:n])

	switch {
	case v.useHRTF:
		ch.dry.hrtf.Process(d.dry[0][outPos:outPos+n], d.dry[1][outPos:outPos+n], dry)
	case v.useNFC:
		dsp.MixSamples(dry, d.dry[:1], ch.dry.current[:1], ch.dry.target[:1], v.fade, outPos)
		nfc := d.nfcBuf[:n]
		ch.dry.nfc.Process(nfc, dry)
		dsp.MixSamples(nfc, d.dry[1:panning.NumCoeffs], ch.dry.current[1:], ch.dry.target[1:], v.fade, outPos)
	default:
		dsp.MixSamples(dry, d.dry, ch.dry.current[:], ch.dry.target[:], v.fade, outPos)
	}

	for i, slot := range v.sendSlots[:d.cfg.MaxSends] {
		if slot == nil {
			continue
		}
		sp := &ch.sends[i]
		wet := sp.process(samples, d.filtered[:n])
		dsp.MixSamples(wet, slot.wet, sp.current[:], sp.target[:], v.fade, outPos)
	}
}
