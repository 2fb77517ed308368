// SPDX-License-Identifier: EPL-2.0

package resample

import (
	"math"

	"github.com/chewxy/math32"
)

const (
	// BsincScaleCount is the number of band-limit buckets.
	BsincScaleCount = 16
	// BsincPhaseCount is the number of fractional phases per bucket.
	BsincPhaseCount = 16
	bsincPhaseBits  = 4
	bsincPhaseDiff  = FracBits - bsincPhaseBits

	// bsincMinScale is the lowest band-limit the tables cover, as a fraction
	// of the source Nyquist frequency.
	bsincMinScale = 0.25
	bsincBaseTaps = 12
	bsincMaxTaps  = 2 * MaxPadding
	kaiserBeta    = 5.65
)

// BsincState is the kernel configuration for one increment.
type BsincState struct {
	// Sf interpolates between the selected bucket and the next.
	Sf float32
	// M is the number of taps and L the offset of the first tap before the
	// current sample.
	M, L int
	// Cut is set when the increment needs a band-limit below the table
	// floor; the filter is then the floor bucket without interpolation.
	Cut bool

	filter []float32
}

type bsincTable struct {
	m      [BsincScaleCount]int
	offset [BsincScaleCount]int
	tab    []float32
}

var bsinc = newBsincTable()

func bucketScale(i int) float64 {
	return bsincMinScale + float64(i)*(1-bsincMinScale)/(BsincScaleCount-1)
}

func bucketTaps(i int) int {
	m := int(math.Ceil(bsincBaseTaps / bucketScale(i)))
	m += m & 1

	return min(m, bsincMaxTaps)
}

func besselI0(x float64) float64 {
	sum, term := 1.0, 1.0
	for k := 1; k < 32; k++ {
		term *= (x / (2 * float64(k))) * (x / (2 * float64(k)))
		sum += term
	}

	return sum
}

// kernel is the windowed sinc of bucket i at distance t from the centre.
func kernel(i int, t float64) float64 {
	half := float64(bucketTaps(i)) / 2
	if math.Abs(t) >= half {
		return 0
	}
	s := bucketScale(i)
	r := t / half
	win := besselI0(kaiserBeta*math.Sqrt(1-r*r)) / besselI0(kaiserBeta)

	return s * sinc(s*t) * win
}

// phaseTaps evaluates bucket i with m taps at phase p, normalised to unit
// DC gain.
func phaseTaps(i, m int, p float64) []float64 {
	l := m/2 - 1
	out := make([]float64, m)
	var sum float64
	for j := range m {
		out[j] = kernel(i, float64(j-l)-p)
		sum += out[j]
	}
	if sum != 0 {
		for j := range out {
			out[j] /= sum
		}
	}

	return out
}

// newBsincTable lays each bucket out as BsincPhaseCount blocks of
// [filter, scale delta, phase delta, scale-phase delta], each m taps long.
func newBsincTable() *bsincTable {
	t := &bsincTable{}
	total := 0
	for i := range BsincScaleCount {
		t.m[i] = bucketTaps(i)
		t.offset[i] = total
		total += t.m[i] * 4 * BsincPhaseCount
	}
	t.tab = make([]float32, total)

	for i := range BsincScaleCount {
		m := t.m[i]
		next := min(i+1, BsincScaleCount-1)
		for p := range BsincPhaseCount {
			p0 := float64(p) / BsincPhaseCount
			p1 := float64(p+1) / BsincPhaseCount
			f0 := phaseTaps(i, m, p0)
			f1 := phaseTaps(i, m, p1)
			var g0, g1 []float64
			if next != i {
				g0 = phaseTaps(next, m, p0)
				g1 = phaseTaps(next, m, p1)
			} else {
				g0, g1 = f0, f1
			}

			block := t.tab[t.offset[i]+p*4*m:]
			for j := range m {
				block[j] = float32(f0[j])
				block[m+j] = float32(g0[j] - f0[j])
				block[2*m+j] = float32(f1[j] - f0[j])
				block[3*m+j] = float32((g1[j] - g0[j]) - (f1[j] - f0[j]))
			}
		}
	}

	return t
}

// BsincPrepare picks the bucket and interpolation factor for increment.
// Upsampling and unit steps use the widest band-limit.
func BsincPrepare(increment int) BsincState {
	si := BsincScaleCount - 1
	var sf float32
	var cut bool

	if increment > FracOne {
		scale := float32(FracOne) / float32(increment)
		pos := (BsincScaleCount - 1) * (scale - bsincMinScale) / (1 - bsincMinScale)
		if pos < 0 {
			si, sf, cut = 0, 0, true
		} else {
			si = int(pos)
			// Fit the blend to a curve that hides the ripple of mixing
			// two different band-limits.
			sf = 1 - math32.Cos(math32.Asin(pos-float32(si)))
		}
	}

	m := bsinc.m[si]
	return BsincState{
		Sf:     sf,
		M:      m,
		L:      m/2 - 1,
		Cut:    cut,
		filter: bsinc.tab[bsinc.offset[si] : bsinc.offset[si]+m*4*BsincPhaseCount],
	}
}

func resampleBsinc(st *State, src []float32, frac, increment int, dst []float32) {
	bs := &st.Bsinc
	if bs.filter == nil {
		*bs = BsincPrepare(increment)
	}
	m := bs.M
	sf := bs.Sf
	const pscale = 1.0 / (1 << bsincPhaseDiff)

	pos := MaxPadding - bs.L
	for i := range dst {
		pi := frac >> bsincPhaseDiff
		pf := float32(frac&((1<<bsincPhaseDiff)-1)) * pscale

		block := bs.filter[pi*4*m : (pi+1)*4*m]
		fil := block[:m]
		scd := block[m : 2*m]
		phd := block[2*m : 3*m]
		spd := block[3*m : 4*m]
		in := src[pos : pos+m]

		var r float32
		for j := range m {
			r += (fil[j] + sf*scd[j] + pf*(phd[j]+sf*spd[j])) * in[j]
		}
		dst[i] = r

		frac += increment
		pos += frac >> FracBits
		frac &= FracMask
	}
}
