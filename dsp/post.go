// SPDX-License-Identifier: EPL-2.0

package dsp

import "github.com/chewxy/math32"

// ChannelDelay delays and attenuates one output channel so speakers closer
// to the listener than the farthest one line up in time and level.
type ChannelDelay struct {
	Gain   float32
	Length int

	line []float32
	mask int
	pos  int
}

// NewChannelDelay builds a delay of length samples with the given gain.
func NewChannelDelay(length int, gain float32) *ChannelDelay {
	size := NextPow2(length + 1)

	return &ChannelDelay{
		Gain:   gain,
		Length: length,
		line:   make([]float32, size),
		mask:   size - 1,
	}
}

// Process delays buf in place.
func (d *ChannelDelay) Process(buf []float32) {
	if d.Length == 0 {
		if d.Gain != 1 {
			ApplyGain(buf, d.Gain)
		}
		return
	}
	for i, s := range buf {
		d.line[d.pos&d.mask] = s
		buf[i] = d.line[(d.pos-d.Length)&d.mask] * d.Gain
		d.pos++
	}
	d.pos &= d.mask
}

// Limiter is a linked-channel peak limiter. Gain drops instantly to keep the
// loudest channel under the threshold and recovers at a fixed rate.
type Limiter struct {
	threshold float32
	release   float32
	gain      float32
}

// NewLimiter returns a limiter with threshold as linear amplitude and a
// release time in seconds.
func NewLimiter(threshold, releaseSec float32, sampleRate int) *Limiter {
	rel := float32(1)
	if releaseSec > 0 && sampleRate > 0 {
		rel = 1 - math32.Exp(-1/(releaseSec*float32(sampleRate)))
	}

	return &Limiter{threshold: threshold, release: rel, gain: 1}
}

// limiterSnap is how close a recovering gain must get before it lands on
// its target. Float32 steps toward 1 otherwise stall one ulp short.
const limiterSnap = 1e-6

// Gain is the gain applied to the last processed frame.
func (l *Limiter) Gain() float32 {
	return l.gain
}

// Process limits the first n frames of bufs in place.
func (l *Limiter) Process(bufs [][]float32, n int) {
	gain := l.gain
	for i := range n {
		var peak float32
		for _, b := range bufs {
			peak = max(peak, abs32(b[i]))
		}
		want := float32(1)
		if peak > l.threshold {
			want = l.threshold / peak
		}
		if want < gain {
			gain = want
		} else {
			gain += (want - gain) * l.release
			if want-gain < limiterSnap {
				gain = want
			}
		}
		if gain == 1 {
			continue
		}
		for _, b := range bufs {
			b[i] *= gain
		}
	}
	l.gain = gain
}

// Dither adds triangular-PDF noise of one quantisation step to the first n
// samples of each channel, then rounds to that step. quantScale is the
// number of steps per unit amplitude, e.g. 32768 for 16-bit output.
// seed carries the generator state between calls.
func Dither(bufs [][]float32, n int, quantScale float32, seed *uint32) {
	if quantScale <= 0 {
		return
	}
	invScale := 1 / quantScale
	const invRange = 1.0 / 4294967296.0
	s := *seed
	for _, b := range bufs {
		for i := range b[:n] {
			s = s*1664525 + 1013904223
			r0 := float32(s) * invRange
			s = s*1664525 + 1013904223
			r1 := float32(s) * invRange
			v := b[i]*quantScale + (r0 - r1)
			b[i] = math32.Round(v) * invScale
		}
	}
	*seed = s
}
