// SPDX-License-Identifier: EPL-2.0

package flac

import "errors"

var (
	// ErrNotFlacFile indicates the stream has no valid FLAC header
	ErrNotFlacFile = errors.New("not a FLAC file")

	// ErrUnsupportedChannels indicates a layout beep cannot stream
	ErrUnsupportedChannels = errors.New("unsupported FLAC channel count")
)
