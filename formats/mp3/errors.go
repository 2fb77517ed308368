// SPDX-License-Identifier: EPL-2.0

package mp3

import "errors"

// ErrNotMP3 indicates no MPEG audio frame could be decoded from the input
var ErrNotMP3 = errors.New("not an MP3 stream")
