// SPDX-License-Identifier: EPL-2.0

package engine

import "errors"

var (
	ErrInvalidValue     = errors.New("invalid value")
	ErrInvalidLayout    = errors.New("invalid channel layout")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrOutOfMemory      = errors.New("voice limit reached")
	ErrDisconnected     = errors.New("device disconnected")
)
