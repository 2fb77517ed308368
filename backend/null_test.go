// SPDX-License-Identifier: EPL-2.0

package backend

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.b.Write(p)
}

func (s *syncBuffer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.b.Len()
}

type failWriter struct{}

var errSink = errors.New("sink full")

func (failWriter) Write([]byte) (int, error) { return 0, errSink }

func TestNull_Period(t *testing.T) {
	t.Parallel()

	n := NewNull(newPlayingDevice(t), nil)
	if got, want := n.Period(), 256*time.Second/48000; got != want {
		t.Errorf("Period = %v, want %v", got, want)
	}
}

func TestNull_RunUntilCancelled(t *testing.T) {
	t.Parallel()

	dev := newPlayingDevice(t)
	sink := &syncBuffer{}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := NewNull(dev, sink).Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run = %v", err)
	}
	if sink.Len() == 0 {
		t.Fatal("nothing written")
	}
	if sink.Len()%dev.FrameSize() != 0 {
		t.Errorf("partial frame written: %d bytes", sink.Len())
	}
	if frames, _ := dev.Clock(); frames == 0 {
		t.Error("device clock did not advance")
	}
}

func TestNull_StopsOnDisconnect(t *testing.T) {
	t.Parallel()

	dev := newPlayingDevice(t)
	done := make(chan error, 1)
	go func() { done <- NewNull(dev, nil).Run(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	dev.Disconnect()

	select {
	case err := <-done:
		if !errors.Is(err, ErrDisconnected) {
			t.Errorf("Run = %v, want ErrDisconnected", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after disconnect")
	}
}

func TestNull_SinkError(t *testing.T) {
	t.Parallel()

	err := NewNull(newPlayingDevice(t), failWriter{}).Run(context.Background())
	if !errors.Is(err, errSink) {
		t.Errorf("Run = %v, want sink error", err)
	}
}
