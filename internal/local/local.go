// Package local implements single-particle predictors for fixed external
// geometry such as walls and cylinders.
package local

import (
	"fmt"
	"math"

	"github.com/roach88/edmd/internal/interaction"
	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/physics"
	"github.com/roach88/edmd/internal/poly"
)

// Local is a predictor/resolver for one particle against fixed geometry.
type Local interface {
	Name() string

	// Range selects the particles that feel this local.
	Range() interaction.Range

	Check(e *physics.Env, ps []model.Particle) error

	// Intersects reports whether the geometry can touch a particle whose
	// centre lies in the axis-aligned box at origin with the given size.
	// False positives are allowed; false negatives are not.
	Intersects(origin, size model.Vector) bool

	Predict(e *physics.Env, p *model.Particle) model.Prediction
	Resolve(e *physics.Env, p *model.Particle, ev model.Event) (model.ParticleEventData, error)
	Validate(e *physics.Env, p *model.Particle) error
}

func localEvent(typ model.EventType, r poly.Result, p *model.Particle) model.Prediction {
	if !r.Found {
		if r.Tangent {
			return model.Degenerate()
		}
		return model.Never()
	}
	return model.At(model.Event{
		Dt:        r.T,
		Particle1: p.ID,
		Particle2: model.NoPartner,
		Source:    model.SourceLocal,
		Type:      typ,
	})
}

func penetration(name string, e *physics.Env, p *model.Particle, depth, scale float64) error {
	if !p.Dynamic() || depth <= scale*interaction.OverlapTolerance {
		return nil
	}
	err := model.NewOverlapViolation(name, depth, p, nil).WithTime(e.Now())
	err.Message = fmt.Sprintf("%s: particle is %g inside the wall", name, depth)
	return err
}

func unitNormal(name string, n model.Vector) (model.Vector, error) {
	l := n.Len()
	if l == 0 || math.IsNaN(l) {
		return model.Vector{}, model.NewConfigurationError("%s: normal has zero length", name)
	}
	return n.Mul(1 / l), nil
}

// boxCentre returns the centre and half extent of an axis-aligned box.
func boxCentre(origin, size model.Vector) (model.Vector, model.Vector) {
	half := size.Mul(0.5)
	return origin.Add(half), half
}
