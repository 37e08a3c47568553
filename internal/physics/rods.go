package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/roach88/edmd/internal/model"
)

// Director is the body-frame axis of a rod. A particle's orientation
// rotates it into the lab frame.
var Director = model.Vector{0, 0, 1}

const (
	// RodTolerance is the distance between the rod lines, relative to the
	// rod length, at which they are taken to touch.
	RodTolerance = 1e-10

	// maxRodSteps bounds one contact search. A search that runs out ends
	// in a VIRTUAL event at the time reached.
	maxRodSteps = 10000
)

// RodPair is the relative motion of two thin rods of length Length
// centred on their particles.
//
// The contact function f(t) = (u1 x u2) . r12 is the signed distance
// between the rod lines times |u1 x u2|. Rotation makes it trigonometric,
// so it is searched with steps that its curvature bound makes safe
// rather than as a polynomial.
type RodPair struct {
	Length float64

	r12, v12 model.Vector
	u1, u2   model.Vector
	w1, w2   model.Vector
}

// NewRodPair captures the state of up-to-date p1 and p2.
func NewRodPair(e *Env, p1, p2 *model.Particle, length float64) RodPair {
	rij, vij := e.PairState(p1, p2)
	return RodPair{
		Length: length,
		r12:    rij,
		v12:    vij,
		u1:     p1.Orientation.Rotate(Director),
		u2:     p2.Orientation.Rotate(Director),
		w1:     spin(p1),
		w2:     spin(p2),
	}
}

// spin is the angular velocity the dynamics actually streams.
func spin(p *model.Particle) model.Vector {
	if p.Inertia == 0 || !p.Dynamic() {
		return model.Vector{}
	}
	return p.AngularVelocity
}

func turn(u, w model.Vector, dt float64) model.Vector {
	n := w.Len()
	if n == 0 || dt == 0 {
		return u
	}
	return mgl64.QuatRotate(n*dt, w.Mul(1/n)).Rotate(u)
}

// at returns the separation and directors after dt.
func (r RodPair) at(dt float64) (r12, u1, u2 model.Vector) {
	return r.r12.Add(r.v12.Mul(dt)), turn(r.u1, r.w1, dt), turn(r.u2, r.w2, dt)
}

// eval returns f and df/dt after dt.
func (r RodPair) eval(dt float64) (f, df float64) {
	r12, u1, u2 := r.at(dt)
	n := u1.Cross(u2)
	dn := r.w1.Cross(u1).Cross(u2).Add(u1.Cross(r.w2.Cross(u2)))
	return n.Dot(r12), dn.Dot(r12) + n.Dot(r.v12)
}

// curvature bounds |f''| while |r12| <= Length. With W = |w1| + |w2|,
// |n'| <= W and |n''| <= W^2, so |f''| <= W^2 |r12| + 2 W |v12|.
func (r RodPair) curvature() float64 {
	w := r.w1.Len() + r.w2.Len()
	return w*w*r.Length + 2*w*r.v12.Len()
}

// ContactPoints returns the signed distances along each rod from its
// centre to the closest points of the two lines, and false for parallel
// rods.
func (r RodPair) ContactPoints(dt float64) (s1, s2 float64, ok bool) {
	r12, u1, u2 := r.at(dt)
	c := u1.Dot(u2)
	det := 1 - c*c
	if det <= 1e-14 {
		return 0, 0, false
	}
	a, b := r12.Dot(u1), r12.Dot(u2)
	return -(a - b*c) / det, (b - a*c) / det, true
}

// touches reports whether the closest points lie on both rods.
func (r RodPair) touches(dt float64) bool {
	s1, s2, ok := r.ContactPoints(dt)
	half := 0.5 * r.Length
	return ok && math.Abs(s1) < half && math.Abs(s2) < half
}

// RodContact is the outcome of a contact search.
type RodContact struct {
	// T is the time of the contact, or of the point the search stopped.
	T float64
	// Found is false when no contact happens before the search window
	// closes.
	Found bool
	// Hit is true for a real contact. A found result without a hit asks
	// for the pair to be searched again from T.
	Hit bool
}

// Contact searches [0, window] for the first time the rods touch.
//
// From a point where |f| exceeds the tolerance the search steps to the
// earliest time the curvature bound allows f to reach it. Where the lines
// cross outside the rods, f cannot return to zero before 2|f'|/M, which is
// skipped. A pair touching now but separating, as after a collision, is
// skipped the same way.
func (r RodPair) Contact(window float64) RodContact {
	tol := RodTolerance * r.Length
	m := r.curvature()
	skip := func(df float64) float64 {
		if m == 0 {
			return math.Inf(1)
		}
		return math.Max(2*math.Abs(df)/m, math.Sqrt(2*tol/m))
	}

	t := 0.0
	if f, df := r.eval(0); math.Abs(f) <= tol && f*df >= 0 {
		t = skip(df)
	}
	for i := 0; i < maxRodSteps; i++ {
		if t > window || math.IsInf(t, 1) {
			return RodContact{}
		}
		f, df := r.eval(t)
		h := math.Abs(f) - tol
		if h <= 0 {
			if r.touches(t) {
				return RodContact{T: t, Found: true, Hit: true}
			}
			t += skip(df)
			continue
		}
		a := math.Copysign(df, f) // positive while |f| grows
		t += 2 * h / (math.Sqrt(a*a+2*m*h) - a)
	}
	if t > window {
		return RodContact{}
	}
	return RodContact{T: t, Found: true}
}

// Rods resolves a collision between two thin rods of the given length at
// their closest points, with normal restitution elasticity.
//
// The impulse acts along u1 x u2. Each rod's moment of inertia is
// Inertia*Mass/4, the same convention KineticEnergy uses.
func Rods(e *Env, p1, p2 *model.Particle, elasticity, length float64) model.PairEventData {
	d := beginPair(e, p1, p2, model.Core)
	rp := NewRodPair(e, p1, p2, length)
	s1, s2, _ := rp.ContactPoints(0)

	n := rp.u1.Cross(rp.u2)
	if l := n.Len(); l > 0 {
		n = n.Mul(1 / l)
	}
	vr := rp.v12.Add(rp.w1.Cross(rp.u1).Mul(s1)).Sub(rp.w2.Cross(rp.u2).Mul(s2))

	im1, ii1 := inverseInertia(p1)
	im2, ii2 := inverseInertia(p2)
	denom := im1 + im2 + s1*s1*ii1 + s2*s2*ii2
	if denom == 0 {
		d.Finish(p1, p2)
		return d
	}
	impulse := n.Mul((1 + elasticity) * vr.Dot(n) / denom)

	if p1.Dynamic() {
		p1.Velocity = p1.Velocity.Sub(impulse.Mul(im1))
		p1.AngularVelocity = p1.AngularVelocity.Sub(rp.u1.Cross(impulse).Mul(s1 * ii1))
	}
	if p2.Dynamic() {
		p2.Velocity = p2.Velocity.Add(impulse.Mul(im2))
		p2.AngularVelocity = p2.AngularVelocity.Add(rp.u2.Cross(impulse).Mul(s2 * ii2))
	}
	if p1.Dynamic() || p2.Dynamic() {
		d.Impulse = impulse
	}
	d.Finish(p1, p2)
	return d
}

// inverseInertia returns 1/m and 1/I, zero for bodies that do not respond.
func inverseInertia(p *model.Particle) (float64, float64) {
	if !p.Dynamic() {
		return 0, 0
	}
	if p.Inertia == 0 {
		return 1 / p.Mass, 0
	}
	return 1 / p.Mass, 4 / (p.Inertia * p.Mass)
}

// Touch records a pair event that changes no velocity, such as a pair
// entering or leaving a neighbourhood.
func Touch(e *Env, p1, p2 *model.Particle, typ model.EventType) model.PairEventData {
	d := beginPair(e, p1, p2, typ)
	d.Finish(p1, p2)
	return d
}
