// SPDX-License-Identifier: EPL-2.0

package spatmix

import "errors"

var (
	// ErrUnsupportedChannels indicates a decoded channel count with no buffer layout
	ErrUnsupportedChannels = errors.New("no buffer layout for channel count")

	// ErrNoFormat indicates a file name with no extension to pick a decoder by
	ErrNoFormat = errors.New("cannot tell format from file name")
)
