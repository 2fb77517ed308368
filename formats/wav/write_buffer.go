// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"errors"
	"io"
)

// WriteBuffer is an in-memory io.WriteSeeker for encoding WAV data that
// is not headed for a file.
type WriteBuffer struct {
	buf []byte
	pos int
}

var errNegativeSeek = errors.New("seek before start of buffer")

func (b *WriteBuffer) Write(p []byte) (int, error) {
	if end := b.pos + len(p); end > len(b.buf) {
		b.buf = append(b.buf, make([]byte, end-len(b.buf))...)
	}
	n := copy(b.buf[b.pos:], p)
	b.pos += n

	return n, nil
}

func (b *WriteBuffer) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(b.pos)
	case io.SeekEnd:
		base = int64(len(b.buf))
	default:
		return 0, errors.New("invalid whence")
	}
	p := base + offset
	if p < 0 {
		return 0, errNegativeSeek
	}
	b.pos = int(p)

	return p, nil
}

// Bytes returns the written data.
func (b *WriteBuffer) Bytes() []byte {
	return b.buf
}
