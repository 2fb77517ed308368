// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/ik5/spatmix/utils"
)

// SampleFormat is the storage format of buffer data handed to NewBuffer.
type SampleFormat int

const (
	FormatUint8 SampleFormat = iota
	FormatInt16
	FormatFloat32
)

// Bytes is the size of one sample.
func (f SampleFormat) Bytes() int {
	switch f {
	case FormatUint8:
		return 1
	case FormatInt16:
		return 2
	}

	return 4
}

func (f SampleFormat) valid() bool {
	return f >= FormatUint8 && f <= FormatFloat32
}

// ChannelLayout is the channel arrangement of a buffer.
type ChannelLayout int

const (
	ChannelsMono ChannelLayout = iota
	ChannelsStereo
	ChannelsRear
	ChannelsQuad
	Channels51
	Channels61
	Channels71
	// ChannelsBFormat2D is first-order horizontal ambisonics, FuMa W X Y.
	ChannelsBFormat2D
	// ChannelsBFormat3D is first-order ambisonics, FuMa W X Y Z.
	ChannelsBFormat3D
)

var layoutChannels = [...]int{1, 2, 2, 4, 6, 7, 8, 3, 4}

// Channels is the number of interleaved channels in the layout.
func (l ChannelLayout) Channels() int {
	if l < ChannelsMono || l > ChannelsBFormat3D {
		return 0
	}

	return layoutChannels[l]
}

// BFormat reports whether the layout carries ambisonic components.
func (l ChannelLayout) BFormat() bool {
	return l == ChannelsBFormat2D || l == ChannelsBFormat3D
}

func (l ChannelLayout) String() string {
	switch l {
	case ChannelsMono:
		return "mono"
	case ChannelsStereo:
		return "stereo"
	case ChannelsRear:
		return "rear"
	case ChannelsQuad:
		return "quad"
	case Channels51:
		return "5.1"
	case Channels61:
		return "6.1"
	case Channels71:
		return "7.1"
	case ChannelsBFormat2D:
		return "bformat2d"
	case ChannelsBFormat3D:
		return "bformat3d"
	}

	return fmt.Sprintf("ChannelLayout(%d)", int(l))
}

// Buffer is immutable decoded PCM shared by any number of sources. Samples
// are held as planar float32.
type Buffer struct {
	format     SampleFormat
	layout     ChannelLayout
	sampleRate int
	frames     int
	samples    [][]float32

	loopStart atomic.Int64
	loopEnd   atomic.Int64
	refs      atomic.Int32
}

func newBuffer(format SampleFormat, layout ChannelLayout, rate, frames int) (*Buffer, error) {
	chans := layout.Channels()
	if chans == 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, layout)
	}
	if rate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidValue, rate)
	}
	if frames <= 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrInvalidValue)
	}

	b := &Buffer{
		format:     format,
		layout:     layout,
		sampleRate: rate,
		frames:     frames,
		samples:    make([][]float32, chans),
	}
	for c := range b.samples {
		b.samples[c] = make([]float32, frames)
	}
	b.loopEnd.Store(int64(frames))

	return b, nil
}

// NewBuffer converts interleaved little-endian PCM in data to a buffer.
// A trailing partial frame is ignored.
func NewBuffer(format SampleFormat, layout ChannelLayout, rate int, data []byte) (*Buffer, error) {
	if !format.valid() {
		return nil, fmt.Errorf("%w: sample format %d", ErrInvalidValue, format)
	}
	chans := layout.Channels()
	if chans == 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, layout)
	}
	frameSize := chans * format.Bytes()

	b, err := newBuffer(format, layout, rate, len(data)/frameSize)
	if err != nil {
		return nil, err
	}

	for i := range b.frames {
		frame := data[i*frameSize:]
		for c := range chans {
			var v float32
			switch format {
			case FormatUint8:
				v = utils.Uint8ToFloat32(frame[c])
			case FormatInt16:
				v = utils.Int16ToFloat32(int16(binary.LittleEndian.Uint16(frame[c*2:])))
			case FormatFloat32:
				v = math.Float32frombits(binary.LittleEndian.Uint32(frame[c*4:]))
			}
			b.samples[c][i] = v
		}
	}

	return b, nil
}

// NewBufferFloat32 builds a buffer from interleaved float samples.
func NewBufferFloat32(layout ChannelLayout, rate int, interleaved []float32) (*Buffer, error) {
	chans := layout.Channels()
	if chans == 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, layout)
	}

	b, err := newBuffer(FormatFloat32, layout, rate, len(interleaved)/chans)
	if err != nil {
		return nil, err
	}
	for i := range b.frames {
		for c := range chans {
			b.samples[c][i] = interleaved[i*chans+c]
		}
	}

	return b, nil
}

// Format is the sample format the data was supplied in.
func (b *Buffer) Format() SampleFormat { return b.format }

// Layout is the channel layout of the data.
func (b *Buffer) Layout() ChannelLayout { return b.layout }

// SampleRate is the rate the data was recorded at.
func (b *Buffer) SampleRate() int { return b.sampleRate }

// Frames is the length in sample frames.
func (b *Buffer) Frames() int { return b.frames }

// Channels is the number of deinterleaved channels.
func (b *Buffer) Channels() int { return len(b.samples) }

// Samples returns channel ch as float32. The slice is shared and must not
// be modified.
func (b *Buffer) Samples(ch int) []float32 { return b.samples[ch] }

// Duration is the playback length at unit pitch.
func (b *Buffer) Duration() time.Duration {
	return time.Duration(b.frames) * time.Second / time.Duration(b.sampleRate)
}

// SetLoopPoints sets the frame range a looping source repeats when this is
// the only buffer in its queue. It fails while the buffer is queued.
func (b *Buffer) SetLoopPoints(start, end int) error {
	if b.refs.Load() != 0 {
		return fmt.Errorf("%w: buffer is queued", ErrInvalidOperation)
	}
	if start < 0 || start >= end || end > b.frames {
		return fmt.Errorf("%w: loop points %d..%d of %d", ErrInvalidValue, start, end, b.frames)
	}
	b.loopStart.Store(int64(start))
	b.loopEnd.Store(int64(end))

	return nil
}

// LoopPoints returns the loop range in frames.
func (b *Buffer) LoopPoints() (int, int) {
	return int(b.loopStart.Load()), int(b.loopEnd.Load())
}

// InUse reports whether any source queue references the buffer.
func (b *Buffer) InUse() bool {
	return b.refs.Load() != 0
}

func (b *Buffer) sameFormat(o *Buffer) bool {
	return b.format == o.format && b.layout == o.layout && b.sampleRate == o.sampleRate
}
