// SPDX-License-Identifier: EPL-2.0

package panning

import "github.com/chewxy/math32"

// Layout is an output channel configuration.
type Layout int

const (
	LayoutMono Layout = iota
	LayoutStereo
	LayoutQuad
	Layout51
	Layout61
	Layout71
	// LayoutAmbi3D outputs first-order ambisonics (ACN/N3D) instead of
	// speaker feeds.
	LayoutAmbi3D
)

func (l Layout) String() string {
	switch l {
	case LayoutMono:
		return "mono"
	case LayoutStereo:
		return "stereo"
	case LayoutQuad:
		return "quad"
	case Layout51:
		return "5.1"
	case Layout61:
		return "6.1"
	case Layout71:
		return "7.1"
	case LayoutAmbi3D:
		return "ambi3d"
	}

	return "unknown"
}

// Valid reports whether l is a known layout.
func (l Layout) Valid() bool {
	return l >= LayoutMono && l <= LayoutAmbi3D
}

// Channels is the number of output channels.
func (l Layout) Channels() int {
	return len(speakerTables[l])
}

// Ambisonic reports whether the layout carries ambisonic channels.
func (l Layout) Ambisonic() bool {
	return l == LayoutAmbi3D
}

// Channel names an output or source channel.
type Channel int

const (
	FrontLeft Channel = iota
	FrontRight
	FrontCenter
	LFE
	BackLeft
	BackRight
	BackCenter
	SideLeft
	SideRight
	Aux0
	Aux1
	Aux2
	Aux3
	InvalidChannel Channel = -1
)

// Speaker places one output channel. Angles are in radians; positive
// azimuth is to the right, positive elevation is up.
type Speaker struct {
	Channel   Channel
	Azimuth   float32
	Elevation float32
}

func deg(d float32) float32 {
	return d * math32.Pi / 180
}

var speakerTables = map[Layout][]Speaker{
	LayoutMono: {
		{Channel: FrontCenter},
	},
	LayoutStereo: {
		{Channel: FrontLeft, Azimuth: deg(-30)},
		{Channel: FrontRight, Azimuth: deg(30)},
	},
	LayoutQuad: {
		{Channel: FrontLeft, Azimuth: deg(-45)},
		{Channel: FrontRight, Azimuth: deg(45)},
		{Channel: BackLeft, Azimuth: deg(-135)},
		{Channel: BackRight, Azimuth: deg(135)},
	},
	Layout51: {
		{Channel: FrontLeft, Azimuth: deg(-30)},
		{Channel: FrontRight, Azimuth: deg(30)},
		{Channel: FrontCenter},
		{Channel: LFE},
		{Channel: SideLeft, Azimuth: deg(-110)},
		{Channel: SideRight, Azimuth: deg(110)},
	},
	Layout61: {
		{Channel: FrontLeft, Azimuth: deg(-30)},
		{Channel: FrontRight, Azimuth: deg(30)},
		{Channel: FrontCenter},
		{Channel: LFE},
		{Channel: BackCenter, Azimuth: deg(180)},
		{Channel: SideLeft, Azimuth: deg(-90)},
		{Channel: SideRight, Azimuth: deg(90)},
	},
	Layout71: {
		{Channel: FrontLeft, Azimuth: deg(-30)},
		{Channel: FrontRight, Azimuth: deg(30)},
		{Channel: FrontCenter},
		{Channel: LFE},
		{Channel: BackLeft, Azimuth: deg(-150)},
		{Channel: BackRight, Azimuth: deg(150)},
		{Channel: SideLeft, Azimuth: deg(-90)},
		{Channel: SideRight, Azimuth: deg(90)},
	},
	LayoutAmbi3D: {
		{Channel: Aux0},
		{Channel: Aux1},
		{Channel: Aux2},
		{Channel: Aux3},
	},
}

// Speakers returns the speaker table of a layout, one entry per output
// channel in output order. The slice must not be modified.
func Speakers(l Layout) []Speaker {
	return speakerTables[l]
}

// ChannelIndex returns the output index carrying ch, or -1.
func ChannelIndex(l Layout, ch Channel) int {
	for i, s := range speakerTables[l] {
		if s.Channel == ch {
			return i
		}
	}

	return -1
}
