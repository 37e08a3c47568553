package interaction

import (
	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/physics"
	"github.com/roach88/edmd/internal/poly"
)

// SquareBond holds bonded pairs between a hard core at Diameter and a hard
// outer wall at Lambda*Diameter. The bonds are the pairs of its range.
type SquareBond struct {
	name       string
	pairs      Range
	Diameter   float64
	Lambda     float64
	Elasticity float64
}

// NewSquareBond returns a square-bond interaction over the bonded pairs r.
func NewSquareBond(name string, r Range, diameter, lambda, elasticity float64) *SquareBond {
	return &SquareBond{name: name, pairs: r, Diameter: diameter, Lambda: lambda, Elasticity: elasticity}
}

func (b *SquareBond) Name() string            { return b.name }
func (b *SquareBond) Range() Range            { return b.pairs }
func (b *SquareBond) MaxDistance() float64    { return b.Lambda * b.Diameter }
func (b *SquareBond) InternalEnergy() float64 { return 0 }

func (b *SquareBond) Check(e *physics.Env, ps []model.Particle) error {
	if b.Lambda <= 1 {
		return model.NewConfigurationError("%s: lambda must exceed 1, got %g", b.name, b.Lambda)
	}
	return checkStatic(e, b.name, b.pairs, ps)
}

func (b *SquareBond) Predict(e *physics.Env, p1, p2 *model.Particle) model.Prediction {
	if frozen(p1, p2) {
		return model.Never()
	}
	core := pairEvent(model.Core, poly.Next(e.SphereOverlap(p1, p2, b.Diameter), b.Diameter), p1, p2)
	wall := pairEvent(model.Bounce, poly.Next(e.SphereEscape(p1, p2, b.Lambda*b.Diameter), b.Diameter), p1, p2)
	return model.Earliest(core, wall)
}

func (b *SquareBond) Resolve(e *physics.Env, p1, p2 *model.Particle, ev model.Event) (model.PairEventData, error) {
	switch ev.Type {
	case model.Core, model.Bounce:
		return physics.SmoothSpheres(e, p1, p2, b.Elasticity, ev.Type), nil
	default:
		return model.PairEventData{}, unexpected(b.name, ev)
	}
}

func (b *SquareBond) Validate(e *physics.Env, p1, p2 *model.Particle) error {
	if err := validateCore(b.name, e, p1, p2, b.Diameter); err != nil {
		return err
	}
	outer := e.Length(b.Lambda * b.Diameter)
	if r := e.Separation(p1, p2).Len(); r > outer*(1+OverlapTolerance) {
		return captureMismatch(b.name, e, p1, p2, r-outer, "bonded pair is stretched past the bond length")
	}
	return nil
}

// ValidateAll checks every bond, however far apart its particles are.
func (b *SquareBond) ValidateAll(e *physics.Env, ps []model.Particle, governs func(i, j int) bool) []error {
	return validatePairs(b, e, ps, pairsOf(b.pairs, len(ps)), governs)
}
