package local

import (
	"math"

	"github.com/roach88/edmd/internal/interaction"
	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/physics"
	"github.com/roach88/edmd/internal/poly"
)

// Cylinder is an infinite cylinder of Radius around the line through
// Origin along Axis. Particles of the given Diameter are confined inside
// it, or kept outside when Solid is set.
type Cylinder struct {
	name       string
	members    interaction.Range
	Origin     model.Vector
	Axis       model.Vector
	Radius     float64
	Diameter   float64
	Elasticity float64
	Solid      bool
}

// NewCylinder returns a cylinder. The axis is normalised.
func NewCylinder(name string, r interaction.Range, origin, axis model.Vector, radius, diameter, elasticity float64, solid bool) (*Cylinder, error) {
	a, err := unitNormal(name, axis)
	if err != nil {
		return nil, err
	}
	if radius <= 0 {
		return nil, model.NewConfigurationError("%s: cylinder radius must be positive", name)
	}
	if !solid && diameter >= 2*radius {
		return nil, model.NewConfigurationError("%s: particles of diameter %g do not fit in radius %g", name, diameter, radius)
	}
	return &Cylinder{
		name:       name,
		members:    r,
		Origin:     origin,
		Axis:       a,
		Radius:     radius,
		Diameter:   diameter,
		Elasticity: elasticity,
		Solid:      solid,
	}, nil
}

func (c *Cylinder) Name() string             { return c.name }
func (c *Cylinder) Range() interaction.Range { return c.members }

func (c *Cylinder) Check(e *physics.Env, ps []model.Particle) error {
	if _, rate := e.Dynamics.Growth(); rate != 0 {
		return model.NewConfigurationError("%s: cylinders do not support %s dynamics", c.name, e.Dynamics.Kind())
	}
	return nil
}

// radial returns the component of v perpendicular to the axis.
func (c *Cylinder) radial(v model.Vector) model.Vector {
	return v.Sub(c.Axis.Mul(v.Dot(c.Axis)))
}

func (c *Cylinder) contact() float64 {
	if c.Solid {
		return c.Radius + 0.5*c.Diameter
	}
	return c.Radius - 0.5*c.Diameter
}

func (c *Cylinder) Intersects(origin, size model.Vector) bool {
	centre, half := boxCentre(origin, size)
	r := c.radial(centre.Sub(c.Origin)).Len()
	reach := half.Len()
	if c.Solid {
		return r-reach <= c.contact()
	}
	return r+reach >= c.contact()
}

// overlap is negative once the particle touches the cylinder wall.
func (c *Cylinder) overlap(e *physics.Env, p *model.Particle) poly.Poly {
	path := e.Offset(p, c.Origin)
	along := path.DotVec(c.Axis)
	perp2 := path.Norm2().Sub(along.Mul(along)).Trim()
	r2 := c.contact() * c.contact()
	if c.Solid {
		return perp2.Sub(poly.Constant(r2)).Trim()
	}
	return poly.Constant(r2).Sub(perp2).Trim()
}

func (c *Cylinder) Predict(e *physics.Env, p *model.Particle) model.Prediction {
	if !p.Dynamic() {
		return model.Never()
	}
	return localEvent(model.Wall, poly.Next(c.overlap(e, p), c.Radius), p)
}

func (c *Cylinder) Resolve(e *physics.Env, p *model.Particle, ev model.Event) (model.ParticleEventData, error) {
	if ev.Type != model.Wall {
		return model.ParticleEventData{}, model.NewModelInconsistency(c.name+" cannot resolve a "+ev.Type.String()+" event", p)
	}
	e.Update(p)
	n := c.radial(e.Boundary.Apply(p.Position.Sub(c.Origin), e.Now()))
	if n.Len() == 0 {
		return model.ParticleEventData{}, model.NewModelInconsistency(c.name+": particle is on the cylinder axis", p)
	}
	n = n.Normalize()
	if !c.Solid {
		n = n.Mul(-1)
	}
	return physics.Plane(e, p, n, c.Elasticity, 0), nil
}

func (c *Cylinder) Validate(e *physics.Env, p *model.Particle) error {
	r := c.radial(e.Boundary.Apply(p.Position.Sub(c.Origin), e.Now())).Len()
	depth := r - c.contact()
	if c.Solid {
		depth = -depth
	}
	return penetration(c.name, e, p, depth, math.Max(c.Diameter, c.Radius))
}
