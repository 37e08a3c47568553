package physics

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/roach88/edmd/internal/model"
)

// pairMasses returns the masses used in an impulse exchange. When both
// bodies are immovable they are treated as unit masses and the reported
// impulse is discarded.
func pairMasses(p1, p2 *model.Particle) (m1, m2, mu float64, infinite bool) {
	m1, m2 = p1.EffectiveMass(), p2.EffectiveMass()
	if math.IsInf(m1, 1) && math.IsInf(m2, 1) {
		return 1, 1, 0.5, true
	}
	return m1, m2, 1 / (1/m1 + 1/m2), false
}

func applyImpulse(p1, p2 *model.Particle, impulse model.Vector, m1, m2 float64) {
	if p1.Dynamic() {
		p1.Velocity = p1.Velocity.Sub(impulse.Mul(1 / m1))
	}
	if p2.Dynamic() {
		p2.Velocity = p2.Velocity.Add(impulse.Mul(1 / m2))
	}
}

func beginPair(e *Env, p1, p2 *model.Particle, typ model.EventType) model.PairEventData {
	e.Update(p1, p2)
	rij, vij := e.PairState(p1, p2)
	return model.PairEventData{
		Type:      typ,
		Particle1: model.BeginParticleEvent(p1, typ),
		Particle2: model.BeginParticleEvent(p2, typ),
		Rij:       rij,
		Vij:       vij,
		RVDot:     rij.Dot(vij),
	}
}

// approach returns rij.vij corrected for the rate at which growing bodies
// close the gap.
func (e *Env) approach(d model.PairEventData) float64 {
	s, r := e.Dynamics.Growth()
	return d.RVDot - d.Rij.Dot(d.Rij)*r/s
}

// SmoothSpheres resolves a hard-core collision between two smooth spheres
// with normal restitution coefficient elasticity.
func SmoothSpheres(e *Env, p1, p2 *model.Particle, elasticity float64, typ model.EventType) model.PairEventData {
	d := beginPair(e, p1, p2, typ)
	m1, m2, mu, infinite := pairMasses(p1, p2)

	r2 := d.Rij.Dot(d.Rij)
	impulse := d.Rij.Mul((1 + elasticity) * mu * e.approach(d) / r2)
	applyImpulse(p1, p2, impulse, m1, m2)
	if !infinite {
		d.Impulse = impulse
	}
	d.Finish(p1, p2)
	return d
}

// SphereWell resolves a step of height deltaKE in a spherically symmetric
// potential. deltaKE is the kinetic energy the pair gains crossing the step.
// When the pair cannot pay for the step it is reflected and the returned
// record is typed Bounce.
func SphereWell(e *Env, p1, p2 *model.Particle, deltaKE float64, typ model.EventType) model.PairEventData {
	d := beginPair(e, p1, p2, typ)
	m1, m2, mu, infinite := pairMasses(p1, p2)

	r2 := d.Rij.Dot(d.Rij)
	rvdot := e.approach(d)
	arg := rvdot*rvdot + 2*r2*deltaKE/mu

	var impulse model.Vector
	switch {
	case deltaKE < 0 && arg < 0:
		d.Type = model.Bounce
		d.Particle1.Type, d.Particle2.Type = model.Bounce, model.Bounce
		impulse = d.Rij.Mul(2 * mu * rvdot / r2)
	case deltaKE == 0:
	default:
		d.Particle1.DeltaU = -0.5 * deltaKE
		d.Particle2.DeltaU = -0.5 * deltaKE
		if rvdot < 0 {
			impulse = d.Rij.Mul(-2 * deltaKE / (rvdot - math.Sqrt(arg)))
		} else {
			impulse = d.Rij.Mul(-2 * deltaKE / (rvdot + math.Sqrt(arg)))
		}
	}

	applyImpulse(p1, p2, impulse, m1, m2)
	if !infinite {
		d.Impulse = impulse
	}
	d.Finish(p1, p2)
	return d
}

// RoughSpheres resolves a collision with normal restitution elasticity and
// tangential restitution tangential, exchanging angular momentum. d1 and d2
// are the current diameters.
func RoughSpheres(e *Env, p1, p2 *model.Particle, elasticity, tangential, d1, d2 float64, typ model.EventType) model.PairEventData {
	d := beginPair(e, p1, p2, typ)
	m1, m2, mu, infinite := pairMasses(p1, p2)

	inertia := 0.5 * (p1.Inertia + p2.Inertia)
	rhat := d.Rij.Normalize()
	spin := p1.AngularVelocity.Mul(0.5 * d1).Add(p2.AngularVelocity.Mul(0.5 * d2))
	g := d.Vij.Sub(spin.Cross(rhat))
	rxg := rhat.Cross(g)

	impulse := rhat.Mul((1 + elasticity) * rhat.Dot(g)).
		Add(rhat.Cross(rxg).Mul((tangential - 1) / (1 + 1/inertia))).
		Mul(mu)
	applyImpulse(p1, p2, impulse, m1, m2)

	dw := rxg.Mul(mu * (1 - tangential) / (1 + inertia))
	if p1.Dynamic() {
		p1.AngularVelocity = p1.AngularVelocity.Add(dw.Mul(1 / (m1 * d1 * 0.5)))
	}
	if p2.Dynamic() {
		p2.AngularVelocity = p2.AngularVelocity.Add(dw.Mul(1 / (m2 * d2 * 0.5)))
	}

	if !infinite {
		d.Impulse = impulse
	}
	d.Finish(p1, p2)
	return d
}

// Plane reflects p off a surface with unit normal n pointing towards the
// particle. radius is the unscaled contact distance from the particle
// centre to the surface.
func Plane(e *Env, p *model.Particle, n model.Vector, elasticity, radius float64) model.ParticleEventData {
	e.Update(p)
	d := model.BeginParticleEvent(p, model.Wall)
	_, rate := e.Dynamics.Growth()
	vn := n.Dot(p.Velocity) - radius*rate
	p.Velocity = p.Velocity.Sub(n.Mul((1 + elasticity) * vn))
	d.Finish(p)
	return d
}

// ThermalPlane reflects p off a wall at temperature T. The normal velocity
// component is redrawn from the wall's flux distribution; the tangential
// components are kept with probability weight slip and otherwise redrawn.
func ThermalPlane(e *Env, p *model.Particle, n model.Vector, sqrtT, slip float64, rng *rand.Rand) model.ParticleEventData {
	e.Update(p)
	d := model.BeginParticleEvent(p, model.Wall)
	if slip != 1 {
		for i := 0; i < 3; i++ {
			p.Velocity[i] = (1-slip)*rng.NormFloat64()*sqrtT/math.Sqrt(p.Mass) + slip*p.Velocity[i]
		}
	}
	vn := sqrtT * math.Sqrt(-2*math.Log(1-rng.Float64())/p.Mass)
	p.Velocity = p.Velocity.Add(n.Mul(vn - p.Velocity.Dot(n)))
	d.Finish(p)
	return d
}

// RandomGaussian redraws the velocity of p from the Maxwell-Boltzmann
// distribution at temperature sqrtT^2.
func RandomGaussian(e *Env, p *model.Particle, sqrtT float64, rng *rand.Rand) model.ParticleEventData {
	e.Update(p)
	d := model.BeginParticleEvent(p, model.Gaussian)
	f := sqrtT / math.Sqrt(p.Mass)
	for i := 0; i < 3; i++ {
		p.Velocity[i] = rng.NormFloat64() * f
	}
	d.Finish(p)
	return d
}
