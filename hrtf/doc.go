// SPDX-License-Identifier: EPL-2.0

// Package hrtf renders mono signals to binaural stereo.
//
// A DataSet holds head-related impulse responses measured on a grid of
// elevations and azimuths, each with a per-ear onset delay. The built-in set
// is generated from a spherical-head model: a one-pole/one-zero head shadow
// per ear, converted to an impulse response with an inverse FFT, and a
// Woodworth interaural time difference.
//
// A Mixer filters one voice channel through the response for its current
// direction and cross-fades over BlendSamples whenever the direction changes.
package hrtf
