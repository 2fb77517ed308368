// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"math"

	"github.com/pion/logging"

	"github.com/ik5/spatmix/panning"
	"github.com/ik5/spatmix/resample"
)

// SampleType is the device output sample format.
type SampleType int

const (
	SampleFloat32 SampleType = iota
	SampleInt16
	SampleInt32
	SampleUint8
)

func (t SampleType) String() string {
	switch t {
	case SampleFloat32:
		return "f32"
	case SampleInt16:
		return "s16"
	case SampleInt32:
		return "s32"
	case SampleUint8:
		return "u8"
	}

	return fmt.Sprintf("SampleType(%d)", int(t))
}

// Bytes is the size of one sample.
func (t SampleType) Bytes() int {
	switch t {
	case SampleInt16:
		return 2
	case SampleUint8:
		return 1
	}

	return 4
}

const (
	// MaxSendsLimit is the most auxiliary sends a source can have.
	MaxSendsLimit = 4
	// MaxPitch bounds the playback rate multiplier.
	MaxPitch = 255
	// maxOutputChannels is the widest dry buffer (7.1).
	maxOutputChannels = 8
)

// Config holds the device parameters and the tuning constants the mixer and
// spatialization code read. Start from DefaultConfig.
type Config struct {
	SampleRate int
	Layout     panning.Layout
	SampleType SampleType
	// UpdateSize is the largest block mixed in one pass, in frames.
	UpdateSize int
	// Resampler is the default kernel for new sources.
	Resampler resample.Kind
	// HRTF renders positional sources binaurally. It needs a stereo layout.
	HRTF bool
	// AvgSpeakerDist in metres enables near-field compensation on
	// ambisonic output.
	AvgSpeakerDist float32
	// ChannelDistances in metres, one per output channel, enables per
	// channel delay and gain compensation.
	ChannelDistances []float32
	// SpeedOfSound is the initial context speed of sound in units/s.
	SpeedOfSound float32
	// ConeScale widens or narrows every source cone.
	ConeScale float32
	// ZScale scales the front-back axis of panning directions.
	ZScale float32
	// ReverbBoost scales the output of reverb slots.
	ReverbBoost float32
	// MaxVoices bounds the voice pool of each context.
	MaxVoices int
	// MaxSends is the number of auxiliary sends per source.
	MaxSends int
	// FadeSamples is the gain ramp length after a parameter change.
	FadeSamples int
	// LazyUpdates makes setters only mark entities dirty; the mixer then
	// applies them at the start of the next block.
	LazyUpdates bool
	Limiter     bool
	Dither      bool

	LoggerFactory logging.LoggerFactory
}

// DefaultConfig returns a 48kHz stereo float device.
func DefaultConfig() Config {
	return Config{
		SampleRate:   48000,
		Layout:       panning.LayoutStereo,
		SampleType:   SampleFloat32,
		UpdateSize:   1024,
		Resampler:    resample.Linear,
		SpeedOfSound: 343.3,
		ConeScale:    1,
		ZScale:       1,
		ReverbBoost:  1,
		MaxVoices:    256,
		MaxSends:     2,
		FadeSamples:  64,
		Limiter:      true,
		Dither:       false,
	}
}

// Option adjusts a Config before a device is created.
type Option func(*Config) error

func finite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

// WithSampleRate sets the output rate in Hz.
func WithSampleRate(rate int) Option {
	return func(c *Config) error {
		if rate < 8000 || rate > 192000 {
			return fmt.Errorf("%w: sample rate %d", ErrInvalidValue, rate)
		}
		c.SampleRate = rate
		return nil
	}
}

// WithLayout sets the output channel layout.
func WithLayout(l panning.Layout) Option {
	return func(c *Config) error {
		if !l.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidLayout, l)
		}
		c.Layout = l
		return nil
	}
}

// WithSampleType sets the output sample format.
func WithSampleType(t SampleType) Option {
	return func(c *Config) error {
		if t < SampleFloat32 || t > SampleUint8 {
			return fmt.Errorf("%w: sample type %d", ErrInvalidValue, t)
		}
		c.SampleType = t
		return nil
	}
}

// WithUpdateSize sets the largest block mixed in one pass.
func WithUpdateSize(frames int) Option {
	return func(c *Config) error {
		if frames < 64 || frames > 8192 {
			return fmt.Errorf("%w: update size %d", ErrInvalidValue, frames)
		}
		c.UpdateSize = frames
		return nil
	}
}

// WithResampler sets the default resampler for new sources.
func WithResampler(k resample.Kind) Option {
	return func(c *Config) error {
		if k < resample.Point || k > resample.BSinc {
			return fmt.Errorf("%w: resampler %d", ErrInvalidValue, k)
		}
		c.Resampler = k
		return nil
	}
}

// WithHRTF toggles binaural rendering.
func WithHRTF(enabled bool) Option {
	return func(c *Config) error {
		c.HRTF = enabled
		return nil
	}
}

// WithSpeakerDistances sets the average speaker distance used for
// near-field compensation and the optional per-channel distances used for
// delay compensation.
func WithSpeakerDistances(avg float32, perChannel ...float32) Option {
	return func(c *Config) error {
		if avg < 0 || !finite(avg) {
			return fmt.Errorf("%w: speaker distance %v", ErrInvalidValue, avg)
		}
		for _, d := range perChannel {
			if d < 0 || !finite(d) {
				return fmt.Errorf("%w: channel distance %v", ErrInvalidValue, d)
			}
		}
		c.AvgSpeakerDist = avg
		c.ChannelDistances = append([]float32(nil), perChannel...)
		return nil
	}
}

// WithConeScale sets the cone angle multiplier.
func WithConeScale(scale float32) Option {
	return func(c *Config) error {
		if scale <= 0 || !finite(scale) {
			return fmt.Errorf("%w: cone scale %v", ErrInvalidValue, scale)
		}
		c.ConeScale = scale
		return nil
	}
}

// WithZScale sets the front-back panning scale.
func WithZScale(scale float32) Option {
	return func(c *Config) error {
		if !finite(scale) {
			return fmt.Errorf("%w: z scale %v", ErrInvalidValue, scale)
		}
		c.ZScale = scale
		return nil
	}
}

// WithReverbBoost scales reverb output.
func WithReverbBoost(boost float32) Option {
	return func(c *Config) error {
		if boost < 0 || !finite(boost) {
			return fmt.Errorf("%w: reverb boost %v", ErrInvalidValue, boost)
		}
		c.ReverbBoost = boost
		return nil
	}
}

// WithMaxVoices bounds each context's voice pool.
func WithMaxVoices(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("%w: max voices %d", ErrInvalidValue, n)
		}
		c.MaxVoices = n
		return nil
	}
}

// WithMaxSends sets the number of auxiliary sends per source.
func WithMaxSends(n int) Option {
	return func(c *Config) error {
		if n < 0 || n > MaxSendsLimit {
			return fmt.Errorf("%w: max sends %d", ErrInvalidValue, n)
		}
		c.MaxSends = n
		return nil
	}
}

// WithFadeSamples sets the gain ramp length.
func WithFadeSamples(n int) Option {
	return func(c *Config) error {
		if n < 1 || n > 4096 {
			return fmt.Errorf("%w: fade samples %d", ErrInvalidValue, n)
		}
		c.FadeSamples = n
		return nil
	}
}

// WithLazyUpdates makes the mixer apply pending changes instead of the
// setters.
func WithLazyUpdates(enabled bool) Option {
	return func(c *Config) error {
		c.LazyUpdates = enabled
		return nil
	}
}

// WithLimiter toggles the output limiter.
func WithLimiter(enabled bool) Option {
	return func(c *Config) error {
		c.Limiter = enabled
		return nil
	}
}

// WithDither toggles TPDF dither on integer output.
func WithDither(enabled bool) Option {
	return func(c *Config) error {
		c.Dither = enabled
		return nil
	}
}

// WithLoggerFactory sets where device and context loggers come from.
func WithLoggerFactory(f logging.LoggerFactory) Option {
	return func(c *Config) error {
		if f == nil {
			return fmt.Errorf("%w: nil logger factory", ErrInvalidValue)
		}
		c.LoggerFactory = f
		return nil
	}
}

func (c *Config) validate() error {
	if c.HRTF && c.Layout != panning.LayoutStereo {
		return fmt.Errorf("%w: HRTF needs stereo output, have %v", ErrInvalidLayout, c.Layout)
	}
	if n := len(c.ChannelDistances); n != 0 && n != c.Layout.Channels() {
		return fmt.Errorf("%w: %d channel distances for %d channels", ErrInvalidValue, n, c.Layout.Channels())
	}
	if c.Layout.Channels() > maxOutputChannels {
		return fmt.Errorf("%w: %v", ErrInvalidLayout, c.Layout)
	}

	return nil
}
