// SPDX-License-Identifier: EPL-2.0

//go:build headless

package backend

import (
	"errors"
	"testing"
	"time"

	"github.com/ik5/spatmix/engine"
)

func TestHeadlessOto_Lifecycle(t *testing.T) {
	t.Parallel()

	dev := newPlayingDevice(t)
	o, err := NewOto(dev, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	o.Stop()
	if frames, _ := dev.Clock(); frames == 0 {
		t.Error("headless output did not render")
	}
	if err := o.Err(); err != nil {
		t.Errorf("Err = %v", err)
	}
	if err := o.Close(); err != nil {
		t.Fatal(err)
	}
	if err := o.Start(); !errors.Is(err, ErrClosed) {
		t.Errorf("Start after Close = %v", err)
	}
}

func TestHeadlessOto_RejectsInt32(t *testing.T) {
	t.Parallel()

	dev := newPlayingDevice(t, engine.WithSampleType(engine.SampleInt32))
	if _, err := NewOto(dev, 0); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v", err)
	}
}
