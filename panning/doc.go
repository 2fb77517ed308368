// SPDX-License-Identifier: EPL-2.0

// Package panning maps directions onto output channels.
//
// Directions are first encoded as first-order ambisonic coefficients in
// ACN channel order with N3D normalisation (W, Y, Z, X), then decoded onto
// the speakers of an output Layout by a Panner. An ambisonic output layout
// keeps the coefficients as they are.
//
// Positions use the listener convention: +X right, +Y up, -Z front.
package panning
