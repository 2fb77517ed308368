// SPDX-License-Identifier: EPL-2.0

package resample

import (
	"fmt"
	"strings"
)

const (
	FracBits = 12
	FracOne  = 1 << FracBits
	FracMask = FracOne - 1

	// MaxPadding is the number of samples a kernel may read on either side
	// of the current position.
	MaxPadding = 24
)

// Kind selects a resampling kernel.
type Kind int

const (
	Point Kind = iota
	Linear
	Cubic
	BSinc
)

func (k Kind) String() string {
	switch k {
	case Point:
		return "point"
	case Linear:
		return "linear"
	case Cubic:
		return "cubic"
	case BSinc:
		return "bsinc"
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a name as returned by Kind.String back to a Kind.
func ParseKind(name string) (Kind, error) {
	for k := Point; k <= BSinc; k++ {
		if strings.EqualFold(name, k.String()) {
			return k, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// State carries per-voice kernel parameters prepared from the increment.
type State struct {
	Bsinc BsincState
}

// Prepare updates the state for a new increment. Only bsinc needs it.
func (s *State) Prepare(kind Kind, increment int) {
	if kind == BSinc {
		s.Bsinc = BsincPrepare(increment)
	}
}

// Func resamples len(dst) samples from src, which begins MaxPadding samples
// before the current position. frac is the starting fraction and increment
// the fixed-point step per output sample.
type Func func(st *State, src []float32, frac, increment int, dst []float32)

// Select returns the kernel for kind, wrapped so that a unit step with no
// fraction is a plain copy. Unknown kinds fall back to linear.
func Select(kind Kind) Func {
	var fn Func
	switch kind {
	case Point:
		fn = resamplePoint
	case Cubic:
		fn = resampleCubic
	case BSinc:
		fn = resampleBsinc
	default:
		fn = resampleLinear
	}

	return func(st *State, src []float32, frac, increment int, dst []float32) {
		if increment == FracOne && frac == 0 {
			copy(dst, src[MaxPadding:MaxPadding+len(dst)])
			return
		}
		fn(st, src, frac, increment, dst)
	}
}

// BufferSize is the length of the padded source slice needed to produce n
// samples.
func BufferSize(frac, increment, n int) int {
	if n <= 0 {
		return 2 * MaxPadding
	}

	return ((frac+(n-1)*increment)>>FracBits) + 1 + 2*MaxPadding
}

// Advance returns how many whole source samples n output samples consume
// and the fraction left over.
func Advance(frac, increment, n int) (int, int) {
	pos := frac + n*increment

	return pos >> FracBits, pos & FracMask
}

func resamplePoint(_ *State, src []float32, frac, increment int, dst []float32) {
	pos := MaxPadding
	for i := range dst {
		dst[i] = src[pos]
		frac += increment
		pos += frac >> FracBits
		frac &= FracMask
	}
}

func resampleLinear(_ *State, src []float32, frac, increment int, dst []float32) {
	const scale = 1.0 / FracOne
	pos := MaxPadding
	for i := range dst {
		mu := float32(frac) * scale
		a := src[pos]
		dst[i] = a + (src[pos+1]-a)*mu
		frac += increment
		pos += frac >> FracBits
		frac &= FracMask
	}
}

func resampleCubic(_ *State, src []float32, frac, increment int, dst []float32) {
	pos := MaxPadding
	for i := range dst {
		c := &cubicTable[frac>>cubicPhaseDiff]
		dst[i] = c[0]*src[pos-1] + c[1]*src[pos] + c[2]*src[pos+1] + c[3]*src[pos+2]
		frac += increment
		pos += frac >> FracBits
		frac &= FracMask
	}
}
