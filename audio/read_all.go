// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
)

const defaultReadSize = 4096

// ReadAll drains src and returns its interleaved samples. maxFrames caps
// the result; zero or less means no cap. The source is not closed.
func ReadAll(src Source, maxFrames int) ([]float32, error) {
	chans := src.Channels()
	if chans <= 0 {
		return nil, ErrNoChannels
	}
	size := src.BufSize()
	if size <= 0 {
		size = defaultReadSize
	}
	size = max(size-size%chans, chans)

	var out []float32
	buf := make([]float32, size)
	for {
		n, err := src.ReadSamples(buf)
		if n%chans != 0 {
			return nil, fmt.Errorf("%w: %d samples for %d channels", ErrPartialFrame, n, chans)
		}
		out = append(out, buf[:n]...)
		if maxFrames > 0 && len(out)/chans > maxFrames {
			return nil, fmt.Errorf("%w: more than %d frames", ErrTooLong, maxFrames)
		}
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read samples: %w", err)
		}
		if n == 0 {
			// A source that makes no progress without EOF is treated as done.
			return out, nil
		}
	}
}
