// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrUnknownFormat = errors.New("no decoder registered for format")
	ErrNoChannels    = errors.New("source has no channels")
	ErrPartialFrame  = errors.New("source returned a partial frame")
	ErrTooLong       = errors.New("source exceeds frame limit")
)
