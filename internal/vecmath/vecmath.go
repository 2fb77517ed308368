// SPDX-License-Identifier: EPL-2.0

// Package vecmath holds the small amount of 3-D vector math the engine
// needs. Coordinates follow the right-handed convention where +X is right,
// +Y is up and -Z is forward.
package vecmath

import "github.com/chewxy/math32"

// Vec3 is a 3-component float32 vector.
type Vec3 [3]float32

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func (a Vec3) Scale(s float32) Vec3 {
	return Vec3{a[0] * s, a[1] * s, a[2] * s}
}

func (a Vec3) Dot(b Vec3) float32 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func (a Vec3) Len() float32 { return math32.Sqrt(a.Dot(a)) }

// Normalize returns the unit vector and the original length. A zero vector
// stays zero.
func (a Vec3) Normalize() (Vec3, float32) {
	l := a.Len()
	if l <= 0 {
		return Vec3{}, 0
	}
	return a.Scale(1 / l), l
}

// Basis is an orthonormal listener frame.
type Basis struct {
	Right Vec3
	Up    Vec3
	Front Vec3
}

// NewBasis builds an orthonormal frame from an at/up pair. The up vector is
// re-orthogonalised against at.
func NewBasis(at, up Vec3) Basis {
	n, _ := at.Normalize()
	v, _ := up.Normalize()
	u, _ := n.Cross(v).Normalize()
	v, _ = u.Cross(n).Normalize()

	return Basis{Right: u, Up: v, Front: n}
}

// Transform maps a world-space direction into the frame, with the frame's
// forward axis landing on -Z.
func (b Basis) Transform(p Vec3) Vec3 {
	return Vec3{b.Right.Dot(p), b.Up.Dot(p), -b.Front.Dot(p)}
}

// Mat3 is a row-major 3x3 matrix.
type Mat3 [3][3]float32

func Identity3() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// MulVec returns m*v.
func (m Mat3) MulVec(v Vec3) Vec3 {
	return Vec3{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

// Mul returns m*o.
func (m Mat3) Mul(o Mat3) Mat3 {
	var r Mat3
	for i := range 3 {
		for j := range 3 {
			r[i][j] = m[i][0]*o[0][j] + m[i][1]*o[1][j] + m[i][2]*o[2][j]
		}
	}
	return r
}

// RotationFromVector returns the rotation that maps the forward direction
// (-Z) onto vec. A zero-length vector gives the identity. Reverb uses this to
// steer its early and late reflections.
func RotationFromVector(vec Vec3) Mat3 {
	norm, mag := vec.Normalize()
	if mag <= 0 {
		return Identity3()
	}

	// Rodrigues' rotation between -Z and norm.
	from := Vec3{0, 0, -1}
	c := from.Dot(norm)
	axis := from.Cross(norm)
	s := axis.Len()
	if s < 1e-6 {
		if c > 0 {
			return Identity3()
		}
		// Opposite direction: half turn around Y.
		return Mat3{{-1, 0, 0}, {0, 1, 0}, {0, 0, -1}}
	}
	axis = axis.Scale(1 / s)
	k := Mat3{
		{0, -axis[2], axis[1]},
		{axis[2], 0, -axis[0]},
		{-axis[1], axis[0], 0},
	}
	kk := k.Mul(k)
	r := Identity3()
	for i := range 3 {
		for j := range 3 {
			r[i][j] += s*k[i][j] + (1-c)*kk[i][j]
		}
	}
	return r
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
