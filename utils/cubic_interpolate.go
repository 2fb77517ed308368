// SPDX-License-Identifier: EPL-2.0

package utils

// CubicInterpolate evaluates a Catmull-Rom spline through four consecutive
// samples at fraction x in [0,1] between y1 and y2. Used for fractional reads
// from modulated delay lines.
func CubicInterpolate(y0, y1, y2, y3, x float32) float32 {
	a0 := 0.5*(y3-y0) + 1.5*(y1-y2)
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := 0.5 * (y2 - y0)

	return ((a0*x+a1)*x+a2)*x + y1
}

// Lerp interpolates linearly from a to b.
func Lerp(a, b, x float32) float32 {
	return a + (b-a)*x
}
