// SPDX-License-Identifier: EPL-2.0

package backend

import (
	"errors"
	"testing"

	"github.com/ik5/spatmix/engine"
)

func TestReader_WholeFrames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		typ   engine.SampleType
		bytes int
		want  int
	}{
		{"float32", engine.SampleFloat32, 1000, 1000},
		{"float32 partial frame", engine.SampleFloat32, 1003, 1000},
		{"int16", engine.SampleInt16, 402, 400},
		{"uint8", engine.SampleUint8, 7, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dev := newPlayingDevice(t, engine.WithSampleType(tt.typ))
			n, err := NewReader(dev).Read(make([]byte, tt.bytes))
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if n != tt.want {
				t.Errorf("read %d bytes, want %d", n, tt.want)
			}
		})
	}
}

func TestReader_Disconnected(t *testing.T) {
	t.Parallel()

	dev := newPlayingDevice(t)
	r := NewReader(dev)
	dev.Disconnect()

	if _, err := r.Read(make([]byte, 64)); !errors.Is(err, ErrDisconnected) {
		t.Errorf("err = %v, want ErrDisconnected", err)
	}
}
