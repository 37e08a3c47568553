package physics

import (
	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/poly"
)

// Sheared streams peculiar velocities on top of the planar Couette flow
// v_x = Rate * y. Particle velocities are stored relative to the flow, so
// an event impulse changes them directly.
type Sheared struct {
	clock
	Rate float64
}

func (*Sheared) Kind() Kind { return KindSheared }

func (s *Sheared) Stream(p *model.Particle, dt float64) {
	u := p.Velocity
	p.Position[0] += (u[0]+s.Rate*p.Position[1])*dt + 0.5*s.Rate*u[1]*dt*dt
	p.Position[1] += u[1] * dt
	p.Position[2] += u[2] * dt
	rotate(p, dt)
	p.Time += dt
}

func (s *Sheared) Trajectory(p *model.Particle) poly.Vec {
	v := p.Velocity
	v[0] += s.Rate * p.Position[1]
	return poly.VecOf(p.Position, v, model.Vector{s.Rate * p.Velocity[1], 0, 0})
}

func (s *Sheared) PairPath(p1, p2 *model.Particle, rij model.Vector) poly.Vec {
	u := p1.Velocity.Sub(p2.Velocity)
	v := u
	v[0] += s.Rate * rij[1]
	return poly.VecOf(rij, v, model.Vector{s.Rate * u[1], 0, 0})
}

func (*Sheared) Growth() (float64, float64) { return 1, 0 }

// Supports excludes walls, thermostats and static particles. None of them
// are defined consistently against an imposed flow profile.
func (*Sheared) Supports(c Capability) bool {
	return c == CapRotation
}
