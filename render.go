// SPDX-License-Identifier: EPL-2.0

package spatmix

import (
	"fmt"
	"io"
	"time"

	"github.com/ik5/spatmix/engine"
	"github.com/ik5/spatmix/formats/wav"
	"github.com/ik5/spatmix/utils"
)

// Frames converts a duration to a frame count at the device rate.
func Frames(dev *engine.Device, d time.Duration) int {
	return int(d * time.Duration(dev.Config().SampleRate) / time.Second)
}

// Render mixes frames frames offline and returns them interleaved.
func Render(dev *engine.Device, frames int) []float32 {
	out := make([]float32, frames*dev.Channels())
	n := dev.RenderFloat32(out, frames)

	return out[:n*dev.Channels()]
}

// RenderPCM16 mixes frames frames offline as interleaved 16-bit PCM.
func RenderPCM16(dev *engine.Device, frames int) []int16 {
	mix := Render(dev, frames)
	pcm := make([]int16, len(mix))
	for i, s := range mix {
		pcm[i] = utils.Float32ToInt16(s)
	}

	return pcm
}

// RenderWAV mixes frames frames offline and writes them to w as a PCM WAV
// with one channel per device output channel.
func RenderWAV(w io.WriteSeeker, dev *engine.Device, frames, bitDepth int) error {
	mix := Render(dev, frames)
	if err := wav.Encode(w, dev.Config().SampleRate, dev.Channels(), bitDepth, mix); err != nil {
		return fmt.Errorf("render wav: %w", err)
	}

	return nil
}
