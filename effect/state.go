// SPDX-License-Identifier: EPL-2.0

package effect

import (
	"fmt"

	"github.com/ik5/spatmix/panning"
)

// MaxOutputChannels bounds the device channel count a state can feed.
const MaxOutputChannels = 8

// State is an effect processor instance.
type State interface {
	// DeviceUpdate (re)allocates internal buffers for sampleRate.
	DeviceUpdate(sampleRate int) error
	// Update recomputes coefficients and output gains from props. out is
	// the device panner that maps the effect's output onto the dry buffer.
	Update(sampleRate int, out *panning.Panner, slotGain float32, props *Props)
	// Process reads samplesToDo frames of the slot's 4-channel wet buffer
	// and adds the result to out.
	Process(samplesToDo int, in [][]float32, out [][]float32)
}

// NewState creates the processor for t. The state still needs DeviceUpdate
// before use.
func NewState(t Type) (State, error) {
	switch t {
	case TypeNull:
		return &nullState{}, nil
	case TypeReverb:
		return newReverb(false), nil
	case TypeEAXReverb:
		return newReverb(true), nil
	case TypeChorus:
		return newChorus(ChorusMaxDelay), nil
	case TypeFlanger:
		return newChorus(FlangerMaxDelay), nil
	}

	return nil, fmt.Errorf("%w: %d", ErrUnknownEffect, t)
}

type nullState struct{}

func (*nullState) DeviceUpdate(int) error                       { return nil }
func (*nullState) Update(int, *panning.Panner, float32, *Props) {}
func (*nullState) Process(int, [][]float32, [][]float32)        {}
