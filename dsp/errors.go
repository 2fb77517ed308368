// SPDX-License-Identifier: EPL-2.0

package dsp

import "errors"

var (
	ErrLineLength = errors.New("delay line length must be a power of two")
	ErrArenaSize  = errors.New("delay line arena too small")
)
