// SPDX-License-Identifier: EPL-2.0

package effect

import "errors"

var (
	ErrUnknownEffect = errors.New("unknown effect type")
	ErrInvalidProps  = errors.New("effect property out of range")
	ErrSampleRate    = errors.New("invalid sample rate")
)
