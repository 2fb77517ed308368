// SPDX-License-Identifier: EPL-2.0

//go:build !headless

package backend

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/pion/logging"

	"github.com/ik5/spatmix/engine"
)

// Oto plays a device through the platform audio output. A process can
// hold only one oto context, so create one Oto per process.
type Oto struct {
	dev *engine.Device
	log logging.LeveledLogger

	mu      sync.Mutex
	ctx     *oto.Context
	player  *oto.Player
	started bool
}

func otoFormat(t engine.SampleType) (oto.Format, error) {
	switch t {
	case engine.SampleFloat32:
		return oto.FormatFloat32LE, nil
	case engine.SampleInt16:
		return oto.FormatSignedInt16LE, nil
	case engine.SampleUint8:
		return oto.FormatUnsignedInt8, nil
	}

	return 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, t)
}

// NewOto opens the platform output with the device rate, channel count
// and sample type. bufferSize is the output latency; zero picks the
// platform default.
func NewOto(dev *engine.Device, bufferSize time.Duration) (*Oto, error) {
	cfg := dev.Config()
	format, err := otoFormat(cfg.SampleType)
	if err != nil {
		return nil, err
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: dev.Channels(),
		Format:       format,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("oto context: %w", err)
	}
	<-ready

	o := &Oto{
		dev: dev,
		log: newLogger(dev),
		ctx: ctx,
	}
	o.player = ctx.NewPlayer(NewReader(dev))
	o.log.Infof("oto output: %d Hz, %d channels, %v", cfg.SampleRate, dev.Channels(), cfg.SampleType)

	return o, nil
}

// Start begins pulling frames from the device. Starting twice is a no-op.
func (o *Oto) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return ErrClosed
	}
	if !o.started {
		o.player.Play()
		o.started = true
	}

	return nil
}

// Stop pauses output; Start resumes it.
func (o *Oto) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started && o.player != nil {
		o.player.Pause()
		o.started = false
	}
}

// Err reports why playback stopped, ErrDisconnected after a device loss.
func (o *Oto) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		if err := o.player.Err(); err != nil {
			return err
		}
	}

	return o.ctx.Err()
}

// Close releases the player. The oto context lives until the process exits.
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return nil
	}
	err := o.player.Close()
	o.player = nil
	o.started = false
	if err != nil {
		return fmt.Errorf("oto player: %w", err)
	}

	return nil
}
