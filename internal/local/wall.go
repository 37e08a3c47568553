package local

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/roach88/edmd/internal/interaction"
	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/physics"
	"github.com/roach88/edmd/internal/poly"
)

// Wall is an infinite plane through Origin with unit Normal pointing into
// the region the particles occupy. Particles touch it when their centre is
// Diameter/2 away.
//
// A wall with positive Temperature is an Andersen wall: instead of a
// specular reflection it redraws the particle's velocity from the thermal
// flux distribution, keeping a Slip fraction of the tangential velocity.
type Wall struct {
	name        string
	members     interaction.Range
	Origin      model.Vector
	Normal      model.Vector
	Diameter    float64
	Elasticity  float64
	Temperature float64
	Slip        float64
	rng         *rand.Rand
}

// WallOption configures a Wall.
type WallOption func(*Wall)

// WithTemperature makes the wall thermal at temperature t, drawing from rng.
func WithTemperature(t, slip float64, rng *rand.Rand) WallOption {
	return func(w *Wall) {
		w.Temperature = t
		w.Slip = slip
		w.rng = rng
	}
}

// NewWall returns a wall. The normal is normalised.
func NewWall(name string, r interaction.Range, origin, normal model.Vector, diameter, elasticity float64, opts ...WallOption) (*Wall, error) {
	n, err := unitNormal(name, normal)
	if err != nil {
		return nil, err
	}
	if diameter <= 0 {
		return nil, model.NewConfigurationError("%s: wall diameter must be positive", name)
	}
	w := &Wall{name: name, members: r, Origin: origin, Normal: n, Diameter: diameter, Elasticity: elasticity}
	for _, opt := range opts {
		opt(w)
	}
	if w.Temperature < 0 {
		return nil, model.NewConfigurationError("%s: negative wall temperature", name)
	}
	if w.Temperature > 0 && w.rng == nil {
		w.rng = rand.New(rand.NewSource(1))
	}
	return w, nil
}

func (w *Wall) Name() string             { return w.name }
func (w *Wall) Range() interaction.Range { return w.members }

func (w *Wall) Check(e *physics.Env, ps []model.Particle) error {
	if w.Temperature > 0 && !e.Dynamics.Supports(physics.CapThermostat) {
		return model.NewConfigurationError("%s: thermal walls need %s, which %s dynamics does not support", w.name, physics.CapThermostat, e.Dynamics.Kind())
	}
	return nil
}

func (w *Wall) Intersects(origin, size model.Vector) bool {
	c, half := boxCentre(origin, size)
	reach := 0.5 * w.Diameter
	for i := 0; i < 3; i++ {
		reach += math.Abs(w.Normal[i]) * half[i]
	}
	return math.Abs(w.Normal.Dot(c.Sub(w.Origin))) <= reach
}

// gap returns n.r(t) - d(t)/2, negative once the particle is in contact.
func (w *Wall) gap(e *physics.Env, p *model.Particle) poly.Poly {
	return e.Offset(p, w.Origin).DotVec(w.Normal).Sub(e.Contact(0.5 * w.Diameter)).Trim()
}

func (w *Wall) Predict(e *physics.Env, p *model.Particle) model.Prediction {
	if !p.Dynamic() {
		return model.Never()
	}
	return localEvent(model.Wall, poly.Next(w.gap(e, p), w.Diameter), p)
}

func (w *Wall) Resolve(e *physics.Env, p *model.Particle, ev model.Event) (model.ParticleEventData, error) {
	if ev.Type != model.Wall {
		return model.ParticleEventData{}, model.NewModelInconsistency(w.name+" cannot resolve a "+ev.Type.String()+" event", p)
	}
	if w.Temperature > 0 {
		return physics.ThermalPlane(e, p, w.Normal, math.Sqrt(w.Temperature), w.Slip, w.rng), nil
	}
	return physics.Plane(e, p, w.Normal, w.Elasticity, 0.5*w.Diameter), nil
}

func (w *Wall) Validate(e *physics.Env, p *model.Particle) error {
	depth := -w.gap(e, p).Eval(0)
	return penetration(w.name, e, p, depth, w.Diameter)
}
