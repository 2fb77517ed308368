// SPDX-License-Identifier: EPL-2.0

package resample

import "errors"

var (
	ErrUnknownKind = errors.New("unknown resampler")
)
