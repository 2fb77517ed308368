// SPDX-License-Identifier: EPL-2.0

package effect

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/ik5/spatmix/dsp"
	"github.com/ik5/spatmix/panning"
	"github.com/ik5/spatmix/utils"
)

const chorusUpdateSize = 256

type tapGains struct {
	current [MaxOutputChannels]float32
	target  [MaxOutputChannels]float32
}

// chorusState serves both chorus and flanger; they differ only in the
// longest delay they accept and their defaults.
type chorusState struct {
	maxDelay   float32
	sampleRate int
	ready      bool

	line   []float32
	mask   int
	offset int

	waveform  Waveform
	lfoRange  int
	lfoScale  float32
	lfoOffset int
	lfoIndex  int
	delay     float32
	depth     float32
	feedback  float32

	outChans  int
	gains     [2]tapGains
	gainFade  int
	firstPass bool

	tmp [2][chorusUpdateSize]float32
}

func newChorus(maxDelay float32) *chorusState {
	return &chorusState{maxDelay: maxDelay, firstPass: true, lfoRange: 1}
}

func (c *chorusState) DeviceUpdate(sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: %d", ErrSampleRate, sampleRate)
	}
	size := dsp.NextPow2(int(c.maxDelay*2*float32(sampleRate)) + 4)
	c.line = make([]float32, size)
	c.mask = size - 1
	c.offset = 0
	c.lfoIndex = 0
	c.sampleRate = sampleRate
	c.firstPass = true
	c.ready = true

	return nil
}

func (c *chorusState) Update(_ int, out *panning.Panner, slotGain float32, props *Props) {
	if !c.ready {
		return
	}
	p := props.Chorus
	fs := float32(c.sampleRate)

	c.waveform = p.Waveform
	c.delay = min(max(p.Delay, 0), c.maxDelay) * fs
	c.depth = min(max(p.Depth, 0), 1) * c.delay
	c.feedback = min(max(p.Feedback, -1), 1)

	if p.Rate <= 0 {
		c.lfoRange = 1
		c.lfoScale = 0
		c.lfoOffset = 0
	} else {
		c.lfoRange = max(1, int(fs/p.Rate+0.5))
		switch c.waveform {
		case WaveformTriangle:
			c.lfoScale = 4 / float32(c.lfoRange)
		default:
			c.lfoScale = 2 * math32.Pi / float32(c.lfoRange)
		}
		phase := ((p.Phase % 360) + 360) % 360
		c.lfoOffset = int(float32(c.lfoRange)*float32(phase)/360+0.5) % c.lfoRange
	}
	c.lfoIndex %= c.lfoRange

	c.outChans = min(out.Channels(), MaxOutputChannels)
	left := panning.CalcAngleCoeffs(-math32.Pi/2, 0, 0)
	right := panning.CalcAngleCoeffs(math32.Pi/2, 0, 0)
	out.ComputePanGains(left, slotGain, c.gains[0].target[:c.outChans])
	out.ComputePanGains(right, slotGain, c.gains[1].target[:c.outChans])

	if c.firstPass {
		c.gains[0].current = c.gains[0].target
		c.gains[1].current = c.gains[1].target
		c.gainFade = 0
		c.firstPass = false
	} else {
		c.gainFade = FadeSamples
	}
}

// lfo returns the modulator in [-1, 1] at index.
func (c *chorusState) lfo(index int) float32 {
	if c.lfoScale == 0 {
		return 0
	}
	if c.waveform == WaveformTriangle {
		return 1 - math32.Abs(2-c.lfoScale*float32(index))
	}

	return math32.Sin(c.lfoScale * float32(index))
}

func (c *chorusState) read(delay float32) float32 {
	d := max(delay, 1)
	di := int(d)
	mu := d - float32(di)
	pos := c.offset - di

	return utils.CubicInterpolate(
		c.line[(pos+1)&c.mask],
		c.line[pos&c.mask],
		c.line[(pos-1)&c.mask],
		c.line[(pos-2)&c.mask],
		mu,
	)
}

func (c *chorusState) Process(samplesToDo int, in [][]float32, out [][]float32) {
	if !c.ready || c.outChans == 0 || len(in) == 0 {
		return
	}
	dry := out[:min(len(out), c.outChans)]
	avgDelay := int(c.delay + 0.5)

	for base := 0; base < samplesToDo; {
		todo := min(samplesToDo-base, chorusUpdateSize)
		src := in[0][base : base+todo]

		for i, s := range src {
			c.line[c.offset&c.mask] = s

			right := (c.lfoIndex + c.lfoOffset) % c.lfoRange
			c.tmp[0][i] = c.read(c.delay + c.lfo(c.lfoIndex)*c.depth)
			c.tmp[1][i] = c.read(c.delay + c.lfo(right)*c.depth)

			c.line[c.offset&c.mask] += c.line[(c.offset-avgDelay)&c.mask] * c.feedback

			c.offset++
			c.lfoIndex++
			if c.lfoIndex >= c.lfoRange {
				c.lfoIndex = 0
			}
		}

		for ch := range 2 {
			g := &c.gains[ch]
			dsp.MixSamples(c.tmp[ch][:todo], dry, g.current[:c.outChans], g.target[:c.outChans], c.gainFade, base)
		}
		c.gainFade = max(c.gainFade-todo, 0)
		base += todo
	}
	c.offset &= c.mask
}
