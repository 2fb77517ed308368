// SPDX-License-Identifier: EPL-2.0

package dsp

import "fmt"

// NextPow2 rounds n up to a power of two. Zero maps to one.
func NextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}

// DelayLine is a view over a shared sample arena of four interleaved lines.
// Its length is a power of two so every read and write index is reduced with
// a bitmask instead of a modulo.
type DelayLine struct {
	Mask int
	Line [][4]float32
}

// LineForSeconds returns the power-of-two length needed to hold at least
// maxDelay seconds plus extra samples at sampleRate.
func LineForSeconds(maxDelay float32, extra, sampleRate int) int {
	return NextPow2(int(maxDelay*float32(sampleRate)+0.5) + extra)
}

// Carve splits a single arena into lines of the given lengths, in order.
// Each length must already be a power of two.
func Carve(arena [][4]float32, lengths ...int) ([]DelayLine, error) {
	lines := make([]DelayLine, len(lengths))
	offset := 0
	for i, n := range lengths {
		if n <= 0 || n&(n-1) != 0 {
			return nil, fmt.Errorf("%w: %d", ErrLineLength, n)
		}
		if offset+n > len(arena) {
			return nil, fmt.Errorf("%w: need %d have %d", ErrArenaSize, offset+n, len(arena))
		}
		lines[i] = DelayLine{Mask: n - 1, Line: arena[offset : offset+n : offset+n]}
		offset += n
	}

	return lines, nil
}

// Len is the number of frames the line holds.
func (d DelayLine) Len() int {
	return d.Mask + 1
}

// Get returns channel ch at position pos.
func (d DelayLine) Get(pos, ch int) float32 {
	return d.Line[pos&d.Mask][ch]
}

// Set stores v into channel ch at position pos.
func (d DelayLine) Set(pos, ch int, v float32) {
	d.Line[pos&d.Mask][ch] = v
}

// Frame returns all four channels at position pos.
func (d DelayLine) Frame(pos int) [4]float32 {
	return d.Line[pos&d.Mask]
}

// SetFrame stores all four channels at position pos.
func (d DelayLine) SetFrame(pos int, v [4]float32) {
	d.Line[pos&d.Mask] = v
}

// Clear zeroes the line.
func (d DelayLine) Clear() {
	clear(d.Line)
}
