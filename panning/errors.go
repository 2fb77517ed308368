// SPDX-License-Identifier: EPL-2.0

package panning

import "errors"

var (
	ErrInvalidLayout = errors.New("invalid output layout")
)
