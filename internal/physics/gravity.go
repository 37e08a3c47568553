package physics

import (
	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/poly"
)

// Gravity accelerates every dynamic particle by G. Static particles stay
// fixed and act as infinitely massive obstacles, which makes the overlap
// function against them quartic.
type Gravity struct {
	clock
	G model.Vector
}

func (*Gravity) Kind() Kind { return KindGravity }

func (g *Gravity) accel(p *model.Particle) model.Vector {
	if !p.Dynamic() {
		return model.Vector{}
	}
	return g.G
}

func (g *Gravity) Stream(p *model.Particle, dt float64) {
	a := g.accel(p)
	p.Position = p.Position.Add(p.Velocity.Mul(dt)).Add(a.Mul(0.5 * dt * dt))
	p.Velocity = p.Velocity.Add(a.Mul(dt))
	rotate(p, dt)
	p.Time += dt
}

func (g *Gravity) Trajectory(p *model.Particle) poly.Vec {
	return poly.VecOf(p.Position, p.Velocity, g.accel(p))
}

func (g *Gravity) PairPath(p1, p2 *model.Particle, rij model.Vector) poly.Vec {
	return poly.VecOf(rij, p1.Velocity.Sub(p2.Velocity), g.accel(p1).Sub(g.accel(p2)))
}

func (*Gravity) Growth() (float64, float64) { return 1, 0 }

func (*Gravity) Supports(Capability) bool { return true }
