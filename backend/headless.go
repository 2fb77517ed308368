// SPDX-License-Identifier: EPL-2.0

//go:build headless

package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ik5/spatmix/engine"
)

// Oto renders on a Null driver in headless builds.
type Oto struct {
	null *Null

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
	closed bool
}

// NewOto checks the sample type like the audio build does. The latency
// argument is ignored.
func NewOto(dev *engine.Device, _ time.Duration) (*Oto, error) {
	switch t := dev.Config().SampleType; t {
	case engine.SampleFloat32, engine.SampleInt16, engine.SampleUint8:
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, t)
	}

	return &Oto{null: NewNull(dev, nil)}, nil
}

// Start runs the Null driver in its own goroutine.
func (o *Oto) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrClosed
	}
	if o.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		err := o.null.Run(ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		o.mu.Lock()
		o.err = err
		o.mu.Unlock()
	}(o.done)

	return nil
}

// Stop cancels the driver and waits for it to return.
func (o *Oto) Stop() {
	o.mu.Lock()
	cancel, done := o.cancel, o.done
	o.cancel, o.done = nil, nil
	o.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Err is the error the driver stopped with, if any.
func (o *Oto) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.err
}

// Close stops the driver; Start fails afterwards.
func (o *Oto) Close() error {
	o.Stop()
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	return nil
}
