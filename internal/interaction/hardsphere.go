package interaction

import (
	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/physics"
	"github.com/roach88/edmd/internal/poly"
)

// HardSphere is an impenetrable sphere of the given diameter with normal
// restitution coefficient Elasticity.
type HardSphere struct {
	name       string
	pairs      Range
	Diameter   float64
	Elasticity float64
}

// NewHardSphere returns a hard-sphere interaction over r.
func NewHardSphere(name string, r Range, diameter, elasticity float64) *HardSphere {
	return &HardSphere{name: name, pairs: r, Diameter: diameter, Elasticity: elasticity}
}

func (h *HardSphere) Name() string         { return h.name }
func (h *HardSphere) Range() Range         { return h.pairs }
func (h *HardSphere) MaxDistance() float64 { return h.Diameter }

func (h *HardSphere) Check(e *physics.Env, ps []model.Particle) error {
	return checkStatic(e, h.name, h.pairs, ps)
}

func (h *HardSphere) Predict(e *physics.Env, p1, p2 *model.Particle) model.Prediction {
	if frozen(p1, p2) {
		return model.Never()
	}
	f := e.SphereOverlap(p1, p2, h.Diameter)
	return pairEvent(model.Core, poly.Next(f, h.Diameter), p1, p2)
}

func (h *HardSphere) Resolve(e *physics.Env, p1, p2 *model.Particle, ev model.Event) (model.PairEventData, error) {
	if ev.Type != model.Core {
		return model.PairEventData{}, unexpected(h.name, ev)
	}
	return physics.SmoothSpheres(e, p1, p2, h.Elasticity, model.Core), nil
}

func (h *HardSphere) Validate(e *physics.Env, p1, p2 *model.Particle) error {
	return validateCore(h.name, e, p1, p2, h.Diameter)
}

func (h *HardSphere) InternalEnergy() float64 { return 0 }

// RoughHardSphere is a hard sphere whose surface also exchanges tangential
// momentum, coupling translation to rotation. Tangential is the tangential
// restitution coefficient: 1 is perfectly smooth, -1 perfectly rough.
type RoughHardSphere struct {
	HardSphere
	Tangential float64
}

// NewRoughHardSphere returns a rough hard-sphere interaction over r.
func NewRoughHardSphere(name string, r Range, diameter, elasticity, tangential float64) *RoughHardSphere {
	return &RoughHardSphere{
		HardSphere: HardSphere{name: name, pairs: r, Diameter: diameter, Elasticity: elasticity},
		Tangential: tangential,
	}
}

func (h *RoughHardSphere) Check(e *physics.Env, ps []model.Particle) error {
	if err := requireCapability(e, h.name, physics.CapRotation); err != nil {
		return err
	}
	for i := range ps {
		if h.pairs.Includes(ps[i].ID) && ps[i].Inertia <= 0 {
			return model.NewConfigurationError("%s: particle %d has no orientational data (inertia must be positive)", h.name, ps[i].ID)
		}
	}
	return h.HardSphere.Check(e, ps)
}

func (h *RoughHardSphere) Resolve(e *physics.Env, p1, p2 *model.Particle, ev model.Event) (model.PairEventData, error) {
	if ev.Type != model.Core {
		return model.PairEventData{}, unexpected(h.name, ev)
	}
	d := e.Length(h.Diameter)
	return physics.RoughSpheres(e, p1, p2, h.Elasticity, h.Tangential, d, d, model.Core), nil
}
