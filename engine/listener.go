// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ik5/spatmix/internal/vecmath"
)

// DistanceModel selects the attenuation curve.
type DistanceModel int

const (
	DistanceNone DistanceModel = iota
	DistanceInverse
	DistanceInverseClamped
	DistanceLinear
	DistanceLinearClamped
	DistanceExponent
	DistanceExponentClamped
)

func (m DistanceModel) String() string {
	switch m {
	case DistanceNone:
		return "none"
	case DistanceInverse:
		return "inverse"
	case DistanceInverseClamped:
		return "inverse-clamped"
	case DistanceLinear:
		return "linear"
	case DistanceLinearClamped:
		return "linear-clamped"
	case DistanceExponent:
		return "exponent"
	case DistanceExponentClamped:
		return "exponent-clamped"
	}

	return fmt.Sprintf("DistanceModel(%d)", int(m))
}

func (m DistanceModel) valid() bool {
	return m >= DistanceNone && m <= DistanceExponentClamped
}

// ListenerProps is the listener state plus the context-wide parameters the
// source calculations read.
type ListenerProps struct {
	Position      vecmath.Vec3
	Velocity      vecmath.Vec3
	At            vecmath.Vec3
	Up            vecmath.Vec3
	Gain          float32
	MetersPerUnit float32

	DopplerFactor       float32
	DopplerVelocity     float32
	SpeedOfSound        float32
	DistanceModel       DistanceModel
	SourceDistanceModel bool
}

func defaultListenerProps(speedOfSound float32) ListenerProps {
	return ListenerProps{
		At:              vecmath.Vec3{0, 0, -1},
		Up:              vecmath.Vec3{0, 1, 0},
		Gain:            1,
		MetersPerUnit:   1,
		DopplerFactor:   1,
		DopplerVelocity: 1,
		SpeedOfSound:    speedOfSound,
		DistanceModel:   DistanceInverseClamped,
	}
}

// listenerParams is what the mixer derives from an applied snapshot.
type listenerParams struct {
	basis    vecmath.Basis
	position vecmath.Vec3
	velocity vecmath.Vec3

	gain          float32
	metersPerUnit float32
	dopplerFactor float32
	speedOfSound  float32
	distanceModel DistanceModel
	sourceModel   bool
}

func (lp *listenerParams) set(p *ListenerProps) {
	lp.basis = vecmath.NewBasis(p.At, p.Up)
	lp.position = p.Position
	lp.velocity = lp.basis.Transform(p.Velocity)
	lp.gain = p.Gain
	lp.metersPerUnit = p.MetersPerUnit
	lp.dopplerFactor = p.DopplerFactor
	lp.speedOfSound = p.SpeedOfSound * p.DopplerVelocity
	lp.distanceModel = p.DistanceModel
	lp.sourceModel = p.SourceDistanceModel
}

// Listener is the single point of audition of a context.
type Listener struct {
	ctx *Context

	mu     sync.Mutex
	props  ListenerProps
	dirty  atomic.Bool
	update *exchange[ListenerProps]

	params listenerParams
}

func newListener(ctx *Context, speedOfSound float32) *Listener {
	l := &Listener{
		ctx:    ctx,
		props:  defaultListenerProps(speedOfSound),
		update: newExchange[ListenerProps](2, nil),
	}
	l.params.set(&l.props)

	return l
}

// Props returns a copy of the live listener state.
func (l *Listener) Props() ListenerProps {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.props
}

func (l *Listener) set(fn func(p *ListenerProps)) {
	l.mu.Lock()
	fn(&l.props)
	l.dirty.Store(true)
	if l.ctx.immediate() {
		l.applyLocked(true)
	}
	l.mu.Unlock()
}

func (l *Listener) applyLocked(allocate bool) {
	if l.update.publish(func(p *ListenerProps) { *p = l.props }, allocate) {
		l.dirty.Store(false)
	}
}

// apply publishes pending changes. With allocate unset it never blocks and
// never allocates, and leaves the listener dirty on failure.
func (l *Listener) apply(allocate bool) {
	if !l.dirty.Load() {
		return
	}
	if allocate {
		l.mu.Lock()
	} else if !l.mu.TryLock() {
		return
	}
	l.applyLocked(allocate)
	l.mu.Unlock()
}

// consume installs a pending snapshot. Mixer only.
func (l *Listener) consume() bool {
	n := l.update.take()
	if n == nil {
		return false
	}
	l.params.set(&n.props)
	l.update.release(n)

	return true
}

// SetPosition moves the listener in world units.
func (l *Listener) SetPosition(p vecmath.Vec3) error {
	if !finiteVec(p) {
		return fmt.Errorf("%w: position %v", ErrInvalidValue, p)
	}
	l.set(func(lp *ListenerProps) { lp.Position = p })
	return nil
}

// SetVelocity is used only for Doppler shift.
func (l *Listener) SetVelocity(v vecmath.Vec3) error {
	if !finiteVec(v) {
		return fmt.Errorf("%w: velocity %v", ErrInvalidValue, v)
	}
	l.set(func(lp *ListenerProps) { lp.Velocity = v })
	return nil
}

// SetOrientation sets the facing and up vectors. They must not be parallel.
func (l *Listener) SetOrientation(at, up vecmath.Vec3) error {
	if !finiteVec(at) || !finiteVec(up) || at.Cross(up).Len() == 0 {
		return fmt.Errorf("%w: orientation %v %v", ErrInvalidValue, at, up)
	}
	l.set(func(lp *ListenerProps) {
		lp.At = at
		lp.Up = up
	})
	return nil
}

// SetGain scales everything the context renders.
func (l *Listener) SetGain(g float32) error {
	if g < 0 || !finite(g) {
		return fmt.Errorf("%w: gain %v", ErrInvalidValue, g)
	}
	l.set(func(lp *ListenerProps) { lp.Gain = g })
	return nil
}

// SetMetersPerUnit sets the world scale used by air absorption and
// near-field compensation.
func (l *Listener) SetMetersPerUnit(m float32) error {
	if m <= 0 || !finite(m) {
		return fmt.Errorf("%w: meters per unit %v", ErrInvalidValue, m)
	}
	l.set(func(lp *ListenerProps) { lp.MetersPerUnit = m })
	return nil
}

func finiteVec(v vecmath.Vec3) bool {
	return finite(v[0]) && finite(v[1]) && finite(v[2])
}
