// SPDX-License-Identifier: EPL-2.0

// Package flac decodes FLAC files through github.com/gopxl/beep/v2/flac.
//
// beep streams every file as stereo float64 frames. The source folds them
// back to the channel count in the FLAC header, so mono files stay mono and
// can be played as positional sources without a downmix.
package flac
