package physics

import (
	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/poly"
)

// Newtonian is plain inertial motion.
type Newtonian struct {
	clock
}

func (*Newtonian) Kind() Kind { return KindNewtonian }

func (*Newtonian) Stream(p *model.Particle, dt float64) {
	p.Position = p.Position.Add(p.Velocity.Mul(dt))
	rotate(p, dt)
	p.Time += dt
}

func (*Newtonian) Trajectory(p *model.Particle) poly.Vec {
	return poly.VecOf(p.Position, p.Velocity, model.Vector{})
}

func (*Newtonian) PairPath(p1, p2 *model.Particle, rij model.Vector) poly.Vec {
	return poly.VecOf(rij, p1.Velocity.Sub(p2.Velocity), model.Vector{})
}

func (*Newtonian) Growth() (float64, float64) { return 1, 0 }

func (*Newtonian) Supports(Capability) bool { return true }
