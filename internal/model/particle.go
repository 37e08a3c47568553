package model

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vector is the 3D vector type used throughout the engine.
type Vector = mgl64.Vec3

// State is the per-particle flag bitset.
type State uint8

const (
	// StateDynamic marks particles that respond to forces and impulses.
	// Non-dynamic particles are immovable obstacles with infinite mass.
	StateDynamic State = 1 << iota

	// StateAlive marks particles taking part in the run. Particles are never
	// removed mid-run; they are flagged inactive instead.
	StateAlive
)

// DefaultState is the flag set given to freshly loaded particles.
const DefaultState = StateDynamic | StateAlive

// Particle is one simulated body.
//
// Position and Orientation are valid at Time, the system time of the last
// update. The dynamics strategy streams a particle lazily up to the current
// system time before it is read or mutated.
type Particle struct {
	ID              int
	Position        Vector
	Velocity        Vector
	Orientation     mgl64.Quat
	AngularVelocity Vector
	Mass            float64

	// Inertia is the dimensionless moment of inertia factor I/(m r^2);
	// zero for point particles without orientational data.
	Inertia float64
	State   State
	Time    float64
}

// NewParticle returns a dynamic, alive particle of unit mass with identity
// orientation.
func NewParticle(id int, pos, vel Vector) Particle {
	return Particle{
		ID:          id,
		Position:    pos,
		Velocity:    vel,
		Orientation: mgl64.QuatIdent(),
		Mass:        1,
		State:       DefaultState,
	}
}

// Dynamic reports whether the particle moves.
func (p *Particle) Dynamic() bool { return p.State&StateDynamic != 0 }

// Alive reports whether the particle takes part in the run.
func (p *Particle) Alive() bool { return p.State&StateAlive != 0 }

// EffectiveMass is the mass used when exchanging impulses. Static particles
// behave as infinitely heavy.
func (p *Particle) EffectiveMass() float64 {
	if !p.Dynamic() {
		return math.Inf(1)
	}
	return p.Mass
}

// KineticEnergy returns the translational plus rotational kinetic energy.
// Rotational energy uses a unit diameter length scale.
func (p *Particle) KineticEnergy() float64 {
	if !p.Dynamic() {
		return 0
	}
	ke := 0.5 * p.Mass * p.Velocity.Dot(p.Velocity)
	if p.Inertia > 0 {
		ke += 0.5 * p.Inertia * p.Mass * 0.25 * p.AngularVelocity.Dot(p.AngularVelocity)
	}
	return ke
}

// Momentum returns m v, or zero for static particles.
func (p *Particle) Momentum() Vector {
	if !p.Dynamic() {
		return Vector{}
	}
	return p.Velocity.Mul(p.Mass)
}

// Finite reports whether every kinematic component is a finite number.
func (p *Particle) Finite() bool {
	for i := 0; i < 3; i++ {
		if !finite(p.Position[i]) || !finite(p.Velocity[i]) || !finite(p.AngularVelocity[i]) {
			return false
		}
	}
	return true
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
