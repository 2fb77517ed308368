// SPDX-License-Identifier: EPL-2.0

package hrtf

import "errors"

var (
	ErrSampleRate = errors.New("unsupported HRTF sample rate")
)
