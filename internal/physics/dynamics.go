// Package physics implements the free-flight laws ("Liouvilleans") that
// stream particles between events, and the kinematic half of every event
// response.
//
// The set of strategies is closed: Newtonian, Gravity, Sheared and
// Compression. Exactly one is active per run and the rest of the engine
// only sees the Dynamics interface.
//
// # Lazy streaming
//
// Each strategy owns the shared clock. Particles record the time their
// state is valid at and are streamed up to the clock only when something
// reads or mutates them (Update). Stream must compose exactly:
//
//	Stream(Stream(p, dt1), dt2) == Stream(p, dt1+dt2)
package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/poly"
)

// Kind names a dynamics strategy.
type Kind string

const (
	KindNewtonian   Kind = "newtonian"
	KindGravity     Kind = "gravity"
	KindSheared     Kind = "sheared"
	KindCompression Kind = "compression"
)

// Capability is an optional feature a strategy may lack. Missing
// capabilities are reported as configuration errors before a run starts.
type Capability uint8

const (
	// CapLocals allows walls and other single-particle geometry.
	CapLocals Capability = 1 << iota
	// CapRotation allows orientational data and rough collisions.
	CapRotation
	// CapThermostat allows stochastic velocity reassignment.
	CapThermostat
	// CapStatic allows immovable, infinitely massive particles.
	CapStatic
)

var capabilityNames = map[Capability]string{
	CapLocals:     "locals",
	CapRotation:   "rotation",
	CapThermostat: "thermostat",
	CapStatic:     "static particles",
}

func (c Capability) String() string {
	if n, ok := capabilityNames[c]; ok {
		return n
	}
	return fmt.Sprintf("capability(%d)", uint8(c))
}

// Dynamics is the active free-flight law.
type Dynamics interface {
	Kind() Kind

	// Time returns the shared clock.
	Time() float64

	// Advance moves the shared clock forward by dt.
	Advance(dt float64)

	// SetTime resets the shared clock, used when loading a snapshot.
	SetTime(t float64)

	// Stream moves p along its free flight for dt.
	Stream(p *model.Particle, dt float64)

	// Trajectory returns the position of an up-to-date p as a polynomial
	// in the time elapsed from now.
	Trajectory(p *model.Particle) poly.Vec

	// PairPath returns the separation of up-to-date p1 and p2 as a
	// polynomial in the time elapsed from now, starting from the minimum
	// image separation rij.
	PairPath(p1, p2 *model.Particle, rij model.Vector) poly.Vec

	// Growth returns the current length scale factor s and its rate r, so
	// that a length l0 measures l0*(s + r*dt) after dt.
	Growth() (scale, rate float64)

	// Supports reports whether the strategy implements c.
	Supports(c Capability) bool
}

// Params carries the strategy specific settings.
type Params struct {
	Gravity   model.Vector
	ShearRate float64
	// GrowthRate is the compression rate: lengths scale as 1 + rate*t.
	GrowthRate float64
}

// New builds the strategy named by kind.
func New(kind Kind, params Params) (Dynamics, error) {
	switch kind {
	case KindNewtonian, "":
		return &Newtonian{}, nil
	case KindGravity:
		return &Gravity{G: params.Gravity}, nil
	case KindSheared:
		return &Sheared{Rate: params.ShearRate}, nil
	case KindCompression:
		if params.GrowthRate < 0 {
			return nil, fmt.Errorf("compression rate must be non-negative, got %g", params.GrowthRate)
		}
		return &Compression{Rate: params.GrowthRate}, nil
	default:
		return nil, fmt.Errorf("unknown dynamics %q", kind)
	}
}

// Update streams p up to the shared clock.
func Update(d Dynamics, p *model.Particle) {
	now := d.Time()
	if dt := now - p.Time; dt != 0 {
		d.Stream(p, dt)
	}
	p.Time = now
}

type clock struct {
	t float64
}

func (c *clock) Time() float64      { return c.t }
func (c *clock) Advance(dt float64) { c.t += dt }
func (c *clock) SetTime(t float64)  { c.t = t }

// rotate advances the orientation of p by its angular velocity over dt.
func rotate(p *model.Particle, dt float64) {
	w := p.AngularVelocity.Len()
	if w == 0 || p.Inertia == 0 {
		return
	}
	q := mgl64.QuatRotate(w*dt, p.AngularVelocity.Mul(1/w))
	p.Orientation = q.Mul(p.Orientation).Normalize()
}
