// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"encoding/binary"
	"fmt"
	"math"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chewxy/math32"
	"github.com/pion/logging"

	"github.com/ik5/spatmix/dsp"
	"github.com/ik5/spatmix/hrtf"
	"github.com/ik5/spatmix/panning"
	"github.com/ik5/spatmix/utils"
)

const (
	limiterThreshold = 0.999
	limiterRelease   = 0.2
)

// Device mixes every context attached to it into one output stream. A
// backend, or the caller, drives it by calling Render.
type Device struct {
	cfg Config
	log logging.LeveledLogger

	// mu serialises mix blocks with play state changes.
	mu        sync.Mutex
	contexts  atomic.Pointer[[]*Context]
	connected atomic.Bool

	mixCount    atomic.Uint64
	totalFrames atomic.Uint64
	samplesDone atomic.Uint64
	clockBase   atomic.Int64

	panner     *panning.Panner
	ambiPanner *panning.Panner
	hrtf       *hrtf.DataSet
	nfc        bool

	dry       [][]float32
	srcBuf    []float32
	resampled []float32
	filtered  []float32
	nfcBuf    []float32

	delays     []*dsp.ChannelDelay
	limiter    *dsp.Limiter
	ditherSeed uint32
}

// NewDevice creates a connected device from DefaultConfig adjusted by opts.
func NewDevice(opts ...Option) (*Device, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.LoggerFactory == nil {
		cfg.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	d := &Device{
		cfg:        cfg,
		log:        cfg.LoggerFactory.NewLogger("spatmix-device"),
		ditherSeed: 22222,
	}

	var err error
	if d.panner, err = panning.NewPanner(cfg.Layout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLayout, err)
	}
	if d.ambiPanner, err = panning.NewPanner(panning.LayoutAmbi3D); err != nil {
		return nil, err
	}
	if cfg.HRTF {
		if d.hrtf, err = hrtf.NewDataSet(cfg.SampleRate); err != nil {
			return nil, err
		}
		d.log.Infof("HRTF rendering at %d Hz", cfg.SampleRate)
	}
	d.nfc = cfg.AvgSpeakerDist > 0 && cfg.Layout.Ambisonic()

	chans := cfg.Layout.Channels()
	d.dry = make([][]float32, chans)
	for c := range d.dry {
		d.dry[c] = make([]float32, cfg.UpdateSize)
	}
	d.srcBuf = make([]float32, srcBufLen)
	d.resampled = make([]float32, cfg.UpdateSize)
	d.filtered = make([]float32, cfg.UpdateSize)
	d.nfcBuf = make([]float32, cfg.UpdateSize)

	if len(cfg.ChannelDistances) > 0 {
		d.delays = channelDelays(cfg.ChannelDistances, cfg.SampleRate)
	}
	if cfg.Limiter {
		d.limiter = dsp.NewLimiter(limiterThreshold, limiterRelease, cfg.SampleRate)
	}

	d.contexts.Store(&[]*Context{})
	d.connected.Store(true)
	d.log.Debugf("device opened: %d Hz %v %v, update size %d",
		cfg.SampleRate, cfg.Layout, cfg.SampleType, cfg.UpdateSize)

	return d, nil
}

// channelDelays aligns every speaker to the farthest one in time and level.
func channelDelays(dist []float32, rate int) []*dsp.ChannelDelay {
	maxDist := slices.Max(dist)
	out := make([]*dsp.ChannelDelay, len(dist))
	for c, dc := range dist {
		var length int
		gain := float32(1)
		if maxDist > 0 {
			length = int(math32.Round((maxDist - dc) / dsp.SpeedOfSound * float32(rate)))
			gain = dc / maxDist
		}
		out[c] = dsp.NewChannelDelay(length, gain)
	}

	return out
}

// Config returns the device configuration.
func (d *Device) Config() Config {
	return d.cfg
}

// Channels is the number of interleaved output channels.
func (d *Device) Channels() int {
	return len(d.dry)
}

// FrameSize is the size in bytes of one output frame.
func (d *Device) FrameSize() int {
	return len(d.dry) * d.cfg.SampleType.Bytes()
}

// NewContext attaches a new context.
func (d *Device) NewContext() *Context {
	c := newContext(d)

	d.mu.Lock()
	list := append(slices.Clone(*d.contexts.Load()), c)
	d.contexts.Store(&list)
	d.mu.Unlock()

	return c
}

// DestroyContext detaches c and stops its sources.
func (d *Device) DestroyContext(c *Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := slices.DeleteFunc(slices.Clone(*d.contexts.Load()), func(o *Context) bool { return o == c })
	d.contexts.Store(&list)
	c.stopAll()
}

// Connected reports whether the device still produces audio.
func (d *Device) Connected() bool {
	return d.connected.Load()
}

// Disconnect marks the device lost. Every playing source stops and Render
// produces silence from then on.
func (d *Device) Disconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected.Swap(false) {
		return
	}
	for _, c := range *d.contexts.Load() {
		c.stopAll()
	}
	d.log.Warn("device disconnected")
}

// Close disconnects the device and detaches every context.
func (d *Device) Close() error {
	d.Disconnect()
	d.mu.Lock()
	d.contexts.Store(&[]*Context{})
	d.mu.Unlock()

	return nil
}

// waitForMix returns once any mix block in progress has finished.
func (d *Device) waitForMix() {
	c := d.mixCount.Load()
	if c&1 == 0 {
		return
	}
	for d.mixCount.Load() == c {
		runtime.Gosched()
	}
}

func (d *Device) clockTime() time.Duration {
	return time.Duration(d.clockBase.Load()) +
		time.Duration(d.samplesDone.Load())*time.Second/time.Duration(d.cfg.SampleRate)
}

// Clock returns the number of frames rendered and the matching elapsed
// time, read consistently with respect to the mixer.
func (d *Device) Clock() (uint64, time.Duration) {
	for {
		c := d.mixCount.Load()
		if c&1 != 0 {
			runtime.Gosched()
			continue
		}
		frames := d.totalFrames.Load()
		t := d.clockTime()
		if d.mixCount.Load() == c {
			return frames, t
		}
	}
}

func (d *Device) advanceClock(n int) {
	rate := uint64(d.cfg.SampleRate)
	d.totalFrames.Add(uint64(n))
	done := d.samplesDone.Load() + uint64(n)
	if done >= rate {
		secs := done / rate
		d.clockBase.Add(int64(secs) * int64(time.Second))
		done -= secs * rate
	}
	d.samplesDone.Store(done)
}

// Render mixes up to frames frames into dst as interleaved samples of the
// configured type and returns the number of frames written.
func (d *Device) Render(dst []byte, frames int) int {
	fs := d.FrameSize()
	frames = min(frames, len(dst)/fs)

	d.mu.Lock()
	defer d.mu.Unlock()

	for done := 0; done < frames; {
		n := min(frames-done, d.cfg.UpdateSize)
		d.mixBlock(n)
		d.writeBlock(dst[done*fs:], n)
		done += n
	}

	return frames
}

// RenderFloat32 mixes up to frames frames into dst as interleaved floats,
// whatever the configured sample type, and returns the frames written.
func (d *Device) RenderFloat32(dst []float32, frames int) int {
	chans := len(d.dry)
	frames = min(frames, len(dst)/chans)

	d.mu.Lock()
	defer d.mu.Unlock()

	for done := 0; done < frames; {
		n := min(frames-done, d.cfg.UpdateSize)
		d.mixBlock(n)
		out := dst[done*chans:]
		for i := range n {
			for c, buf := range d.dry {
				out[i*chans+c] = buf[i]
			}
		}
		done += n
	}

	return frames
}

func (d *Device) mixBlock(n int) {
	d.mixCount.Add(1)

	dsp.ClearBuffers(d.dry, n)
	if d.connected.Load() {
		for _, c := range *d.contexts.Load() {
			c.update(d)
			c.mix(d, n)
		}
	}
	d.postProcess(n)
	d.advanceClock(n)

	d.mixCount.Add(1)
}

func (d *Device) postProcess(n int) {
	for c, dl := range d.delays {
		dl.Process(d.dry[c][:n])
	}
	if d.limiter != nil {
		d.limiter.Process(d.dry, n)
	}
	if d.cfg.Dither {
		switch d.cfg.SampleType {
		case SampleInt16:
			dsp.Dither(d.dry, n, 32768, &d.ditherSeed)
		case SampleUint8:
			dsp.Dither(d.dry, n, 128, &d.ditherSeed)
		}
	}
}

func (d *Device) writeBlock(dst []byte, n int) {
	chans := len(d.dry)
	bps := d.cfg.SampleType.Bytes()
	for i := range n {
		frame := dst[i*chans*bps:]
		for c, buf := range d.dry {
			s := buf[i]
			out := frame[c*bps:]
			switch d.cfg.SampleType {
			case SampleFloat32:
				binary.LittleEndian.PutUint32(out, math.Float32bits(s))
			case SampleInt16:
				binary.LittleEndian.PutUint16(out, uint16(utils.Float32ToInt16(s)))
			case SampleInt32:
				binary.LittleEndian.PutUint32(out, uint32(utils.Float32ToInt32(s)))
			case SampleUint8:
				out[0] = utils.Float32ToUint8(s)
			}
		}
	}
}
