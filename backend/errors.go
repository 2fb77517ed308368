// SPDX-License-Identifier: EPL-2.0

package backend

import "errors"

var (
	ErrUnsupportedFormat = errors.New("sample type not supported by backend")
	ErrUnsupportedLayout = errors.New("channel layout not supported by backend")
	ErrDisconnected      = errors.New("device disconnected")
	ErrClosed            = errors.New("backend closed")
)
