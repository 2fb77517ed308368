// SPDX-License-Identifier: EPL-2.0

package vorbis

import "errors"

// ErrNotVorbis indicates the Ogg headers could not be read as a Vorbis stream
var ErrNotVorbis = errors.New("not an Ogg Vorbis stream")
