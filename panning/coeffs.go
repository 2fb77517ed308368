// SPDX-License-Identifier: EPL-2.0

package panning

import (
	"github.com/chewxy/math32"

	"github.com/ik5/spatmix/internal/vecmath"
)

// NumCoeffs is the number of first-order ambisonic channels.
const NumCoeffs = 4

// Coeffs holds ambisonic coefficients in ACN order: W, Y, Z, X.
type Coeffs [NumCoeffs]float32

const sqrt3 = 1.7320508075688772

// FuMaToACN maps FuMa channel order (W, X, Y, Z) onto ACN indices.
var FuMaToACN = [NumCoeffs]int{0, 3, 1, 2}

// FuMaToN3D scales each FuMa channel, in FuMa order, to N3D.
var FuMaToN3D = [NumCoeffs]float32{1.4142135623730951, sqrt3, sqrt3, sqrt3}

// CalcDirectionCoeffs encodes a unit direction in listener coordinates.
// spread is the angle in radians the source subtends; zero is a point
// source and 2π fills the whole sphere.
func CalcDirectionCoeffs(dir vecmath.Vec3, spread float32) Coeffs {
	// Listener space to ambisonic space: front is -Z, left is -X, up is +Y.
	x, y, z := -dir[2], -dir[0], dir[1]

	c := Coeffs{1, sqrt3 * y, sqrt3 * z, sqrt3 * x}
	if spread > 0 {
		// A spherical cap of the given angle, loudness compensated so a
		// full spread is at most +3dB.
		ca := math32.Cos(spread * 0.5)
		scale := math32.Sqrt(1 + spread/(2*math32.Pi))
		zh1 := 0.5 * (ca + 1) * scale
		c[0] *= scale
		c[1] *= zh1
		c[2] *= zh1
		c[3] *= zh1
	}

	return c
}

// CalcAngleCoeffs encodes an azimuth/elevation pair in radians.
func CalcAngleCoeffs(azimuth, elevation, spread float32) Coeffs {
	sa, ca := math32.Sincos(azimuth)
	se, ce := math32.Sincos(elevation)
	dir := vecmath.Vec3{sa * ce, se, -ca * ce}

	return CalcDirectionCoeffs(dir, spread)
}

// Transform maps first-order ambisonic channels onto each other in ACN
// order: output channel i receives Transform[i][c] of input channel c.
type Transform [NumCoeffs][NumCoeffs]float32

// IdentityTransform leaves every channel unchanged.
func IdentityTransform() Transform {
	var t Transform
	for i := range NumCoeffs {
		t[i][i] = 1
	}

	return t
}

// ambiAxes are the listener-space directions of the Y, Z and X channels.
var ambiAxes = [NumCoeffs]vecmath.Vec3{{}, {-1, 0, 0}, {0, 1, 0}, {0, 0, -1}}

// RotationTransform converts a listener-space rotation into the transform
// that rotates a first-order sound field the same way.
func RotationTransform(m vecmath.Mat3) Transform {
	var t Transform
	t[0][0] = 1
	for c := 1; c < NumCoeffs; c++ {
		r := m.MulVec(ambiAxes[c])
		t[1][c] = -r[0]
		t[2][c] = r[1]
		t[3][c] = -r[2]
	}

	return t
}

// Column returns the ambisonic vector that input channel c is mapped to.
func (t *Transform) Column(c int) [NumCoeffs]float32 {
	return [NumCoeffs]float32{t[0][c], t[1][c], t[2][c], t[3][c]}
}
