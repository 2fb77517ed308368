// SPDX-License-Identifier: EPL-2.0

package backend

import (
	"github.com/pion/logging"

	"github.com/ik5/spatmix/engine"
)

// Reader is an io.Reader of interleaved device frames in the configured
// sample type.
type Reader struct {
	dev *engine.Device
	log logging.LeveledLogger
}

// NewReader wraps dev. The caller's Read calls drive the mixer.
func NewReader(dev *engine.Device) *Reader {
	return &Reader{
		dev: dev,
		log: newLogger(dev),
	}
}

// Read renders as many whole frames as fit in p. It returns
// ErrDisconnected once the device is lost.
func (r *Reader) Read(p []byte) (int, error) {
	if !r.dev.Connected() {
		r.log.Debug("read from a disconnected device")
		return 0, ErrDisconnected
	}
	fs := r.dev.FrameSize()
	n := r.dev.Render(p, len(p)/fs)

	return n * fs, nil
}

func newLogger(dev *engine.Device) logging.LeveledLogger {
	f := dev.Config().LoggerFactory
	if f == nil {
		f = logging.NewDefaultLoggerFactory()
	}

	return f.NewLogger("spatmix-backend")
}
