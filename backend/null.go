// SPDX-License-Identifier: EPL-2.0

package backend

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pion/logging"

	"github.com/ik5/spatmix/engine"
)

// Null renders one update block per period of device time. Output goes
// to Sink, or nowhere when Sink is nil.
type Null struct {
	Sink io.Writer

	dev *engine.Device
	log logging.LeveledLogger
}

// NewNull creates a driver for dev writing to sink, which may be nil.
func NewNull(dev *engine.Device, sink io.Writer) *Null {
	return &Null{
		Sink: sink,
		dev:  dev,
		log:  newLogger(dev),
	}
}

// Period is the wall time one update block lasts.
func (n *Null) Period() time.Duration {
	cfg := n.dev.Config()
	return time.Duration(cfg.UpdateSize) * time.Second / time.Duration(cfg.SampleRate)
}

// Run renders until ctx is done or the device disconnects. It returns
// ctx.Err(), ErrDisconnected or the first Sink write error.
func (n *Null) Run(ctx context.Context) error {
	cfg := n.dev.Config()
	buf := make([]byte, cfg.UpdateSize*n.dev.FrameSize())
	r := NewReader(n.dev)

	ticker := time.NewTicker(n.Period())
	defer ticker.Stop()

	n.log.Debugf("null backend running, period %v", n.Period())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		k, err := r.Read(buf)
		if err != nil {
			return err
		}
		if n.Sink == nil {
			continue
		}
		if _, err := n.Sink.Write(buf[:k]); err != nil {
			n.log.Errorf("sink write: %v", err)
			return fmt.Errorf("null backend: %w", err)
		}
	}
}
