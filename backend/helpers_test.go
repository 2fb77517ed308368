// SPDX-License-Identifier: EPL-2.0

package backend

import (
	"io"
	"testing"

	"github.com/pion/logging"

	"github.com/ik5/spatmix/engine"
	"github.com/ik5/spatmix/internal/vecmath"
)

// newPlayingDevice returns a device with one constant mono source in
// front of the listener.
func newPlayingDevice(t *testing.T, opts ...engine.Option) *engine.Device {
	t.Helper()

	quiet := &logging.DefaultLoggerFactory{Writer: io.Discard, DefaultLogLevel: logging.LogLevelDisabled}
	base := []engine.Option{engine.WithLoggerFactory(quiet), engine.WithLimiter(false), engine.WithUpdateSize(256)}
	dev, err := engine.NewDevice(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	t.Cleanup(func() { _ = dev.Close() })

	data := make([]float32, 48000)
	for i := range data {
		data[i] = 0.25
	}
	buf, err := engine.NewBufferFloat32(engine.ChannelsMono, 48000, data)
	if err != nil {
		t.Fatal(err)
	}
	src := dev.NewContext().NewSource()
	if err := src.SetPosition(vecmath.Vec3{0, 0, -1}); err != nil {
		t.Fatal(err)
	}
	if err := src.Queue(buf); err != nil {
		t.Fatal(err)
	}
	if err := src.Play(); err != nil {
		t.Fatal(err)
	}

	return dev
}
