package physics

import (
	"github.com/roach88/edmd/internal/boundary"
	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/poly"
)

// Env bundles the collaborators every predictor and resolver needs: the
// active dynamics and the boundary conditions.
type Env struct {
	Dynamics Dynamics
	Boundary boundary.Boundary
}

// NewEnv returns an Env for d and bc.
func NewEnv(d Dynamics, bc boundary.Boundary) *Env {
	return &Env{Dynamics: d, Boundary: bc}
}

// Now returns the current system time.
func (e *Env) Now() float64 { return e.Dynamics.Time() }

// Update streams every particle up to the current time.
func (e *Env) Update(ps ...*model.Particle) {
	for _, p := range ps {
		Update(e.Dynamics, p)
	}
}

// Separation returns the minimum image of p1 - p2.
func (e *Env) Separation(p1, p2 *model.Particle) model.Vector {
	return e.Boundary.Apply(p1.Position.Sub(p2.Position), e.Now())
}

// PairPath returns the minimum image separation as a function of time.
func (e *Env) PairPath(p1, p2 *model.Particle) poly.Vec {
	return e.Dynamics.PairPath(p1, p2, e.Separation(p1, p2))
}

// PairState returns the minimum image separation and the relative velocity
// in the lab frame.
func (e *Env) PairState(p1, p2 *model.Particle) (rij, vij model.Vector) {
	path := e.PairPath(p1, p2)
	for i := 0; i < 3; i++ {
		rij[i] = path[i].Coeff(0)
		vij[i] = path[i].Coeff(1)
	}
	return rij, vij
}

// Contact returns the length l0 as a function of time under the active
// growth law.
func (e *Env) Contact(l0 float64) poly.Poly {
	s, r := e.Dynamics.Growth()
	return poly.Linear(l0*s, l0*r).Trim()
}

// Length returns the current value of a length that measures l0 at t=0.
func (e *Env) Length(l0 float64) float64 {
	s, _ := e.Dynamics.Growth()
	return l0 * s
}

// SphereOverlap returns |r12(t)|^2 - d(t)^2, the overlap function of two
// spheres with contact distance d.
func (e *Env) SphereOverlap(p1, p2 *model.Particle, d float64) poly.Poly {
	c := e.Contact(d)
	return e.PairPath(p1, p2).Norm2().Sub(c.Mul(c)).Trim()
}

// SphereEscape returns d(t)^2 - |r12(t)|^2, the overlap function of a pair
// held inside a shell of diameter d.
func (e *Env) SphereEscape(p1, p2 *model.Particle, d float64) poly.Poly {
	return e.SphereOverlap(p1, p2, d).Scale(-1)
}

// Offset returns the path of p relative to the fixed point o, using the
// boundary image of p nearest to o.
func (e *Env) Offset(p *model.Particle, o model.Vector) poly.Vec {
	rel := e.Boundary.Apply(p.Position.Sub(o), e.Now())
	path := e.Dynamics.Trajectory(p)
	for i := range path {
		path[i] = path[i].Add(poly.Constant(rel[i] - p.Position[i])).Trim()
	}
	return path
}
