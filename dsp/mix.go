// SPDX-License-Identifier: EPL-2.0

package dsp

// SilenceThreshold is the level below which a gain counts as silent.
const SilenceThreshold = 0.00001

// GainEpsilon is the difference below which two gains are treated as equal.
const GainEpsilon = 0.0001

// MixSamples accumulates data into out[c][outPos:], one channel per gain.
// Each channel's gain moves linearly from current[c] to target[c] over the
// first counter samples and reaches the target exactly at the end of that
// window. current is updated to the gain reached when data runs out.
func MixSamples(data []float32, out [][]float32, current, target []float32, counter, outPos int) {
	n := len(data)
	var delta float32
	if counter > 0 {
		delta = 1 / float32(counter)
	}
	minSize := min(n, counter)

	for c, buf := range out {
		if c >= len(target) {
			break
		}
		dst := buf[outPos : outPos+n]
		gain := current[c]
		step := (target[c] - gain) * delta

		pos := 0
		if abs32(step) > SilenceThreshold/float32(max(counter, 1)) {
			for ; pos < minSize; pos++ {
				dst[pos] += data[pos] * gain
				gain += step
			}
			if pos == counter {
				gain = target[c]
			}
			current[c] = gain
		} else {
			gain = target[c]
			current[c] = gain
		}

		if abs32(gain) <= SilenceThreshold {
			continue
		}
		for ; pos < n; pos++ {
			dst[pos] += data[pos] * gain
		}
	}
}

// MixRow accumulates the dot product of gains and each input channel into
// out[outPos:]. It is the matrix step used to decode ambisonic channels into
// speaker feeds.
func MixRow(out []float32, gains []float32, in [][]float32, inPos, n int) {
	for c, gain := range gains {
		if c >= len(in) {
			break
		}
		if abs32(gain) <= SilenceThreshold {
			continue
		}
		src := in[c][inPos : inPos+n]
		for i, s := range src {
			out[i] += s * gain
		}
	}
}

// ApplyGain scales buf in place.
func ApplyGain(buf []float32, gain float32) {
	for i := range buf {
		buf[i] *= gain
	}
}

// ClearBuffers zeroes the first n samples of every channel.
func ClearBuffers(bufs [][]float32, n int) {
	for _, b := range bufs {
		clear(b[:n])
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}

	return v
}
