// SPDX-License-Identifier: EPL-2.0

package resample

import "math"

const (
	cubicPhaseBits = 8
	cubicPhases    = 1 << cubicPhaseBits
	cubicPhaseDiff = FracBits - cubicPhaseBits
)

// cubicTable holds 4-tap Lanczos-windowed sinc weights for taps at -1, 0,
// +1 and +2 around each phase, normalised to unit DC gain.
var cubicTable = func() [cubicPhases][4]float32 {
	var tab [cubicPhases][4]float32
	for p := range cubicPhases {
		mu := float64(p) / cubicPhases
		var w [4]float64
		var sum float64
		for k := range 4 {
			x := float64(k-1) - mu
			w[k] = sinc(x) * sinc(x/2)
			sum += w[k]
		}
		for k := range 4 {
			tab[p][k] = float32(w[k] / sum)
		}
	}

	return tab
}()

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-9 {
		return 1
	}

	return math.Sin(math.Pi*x) / (math.Pi * x)
}
