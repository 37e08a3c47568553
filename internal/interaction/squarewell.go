package interaction

import (
	"fmt"

	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/physics"
	"github.com/roach88/edmd/internal/poly"
)

// SquareWell is a hard core of diameter Diameter surrounded by an
// attractive well of depth WellDepth out to Lambda*Diameter.
//
// Pairs inside the well are tracked in the capture map. A captured pair
// predicts CORE at the core or STEP_OUT at the well edge; a free pair
// predicts STEP_IN. A STEP_OUT without enough kinetic energy to climb out
// resolves as a BOUNCE and the pair stays captured.
type SquareWell struct {
	name       string
	pairs      Range
	Diameter   float64
	Lambda     float64
	WellDepth  float64
	Elasticity float64
	captures   *CaptureMap
}

// NewSquareWell returns a square-well interaction over r.
func NewSquareWell(name string, r Range, diameter, lambda, depth, elasticity float64) *SquareWell {
	return &SquareWell{
		name:       name,
		pairs:      r,
		Diameter:   diameter,
		Lambda:     lambda,
		WellDepth:  depth,
		Elasticity: elasticity,
		captures:   NewCaptureMap(),
	}
}

func (w *SquareWell) Name() string            { return w.name }
func (w *SquareWell) Range() Range            { return w.pairs }
func (w *SquareWell) MaxDistance() float64    { return w.Lambda * w.Diameter }
func (w *SquareWell) Captures() *CaptureMap   { return w.captures }
func (w *SquareWell) InternalEnergy() float64 { return -w.WellDepth * float64(w.captures.Len()) }

func (w *SquareWell) Check(e *physics.Env, ps []model.Particle) error {
	if w.Lambda <= 1 {
		return model.NewConfigurationError("%s: lambda must exceed 1, got %g", w.name, w.Lambda)
	}
	return checkStatic(e, w.name, w.pairs, ps)
}

// CaptureTest reports whether the pair currently sits inside the well.
func (w *SquareWell) CaptureTest(e *physics.Env, p1, p2 *model.Particle) bool {
	r := e.Separation(p1, p2).Len()
	return r < e.Length(w.Lambda*w.Diameter)
}

func (w *SquareWell) Predict(e *physics.Env, p1, p2 *model.Particle) model.Prediction {
	if frozen(p1, p2) {
		return model.Never()
	}
	if w.captures.Captured(p1.ID, p2.ID) {
		core := pairEvent(model.Core, poly.Next(e.SphereOverlap(p1, p2, w.Diameter), w.Diameter), p1, p2)
		out := pairEvent(model.StepOut, poly.Next(e.SphereEscape(p1, p2, w.Lambda*w.Diameter), w.Diameter), p1, p2)
		return model.Earliest(core, out)
	}
	return pairEvent(model.StepIn, poly.Next(e.SphereOverlap(p1, p2, w.Lambda*w.Diameter), w.Diameter), p1, p2)
}

func (w *SquareWell) Resolve(e *physics.Env, p1, p2 *model.Particle, ev model.Event) (model.PairEventData, error) {
	switch ev.Type {
	case model.Core:
		return physics.SmoothSpheres(e, p1, p2, w.Elasticity, model.Core), nil
	case model.StepIn:
		d := physics.SphereWell(e, p1, p2, w.WellDepth, model.StepIn)
		if d.Type != model.Bounce {
			w.captures.Add(p1.ID, p2.ID)
		}
		return d, nil
	case model.StepOut:
		d := physics.SphereWell(e, p1, p2, -w.WellDepth, model.StepOut)
		if d.Type != model.Bounce {
			w.captures.Remove(p1.ID, p2.ID)
		}
		return d, nil
	default:
		return model.PairEventData{}, unexpected(w.name, ev)
	}
}

// Validate checks the hard core and that the capture map agrees with the
// geometry.
func (w *SquareWell) Validate(e *physics.Env, p1, p2 *model.Particle) error {
	if err := validateCore(w.name, e, p1, p2, w.Diameter); err != nil {
		return err
	}
	outer := e.Length(w.Lambda * w.Diameter)
	r := e.Separation(p1, p2).Len()
	captured := w.captures.Captured(p1.ID, p2.ID)
	switch {
	case captured && r > outer*(1+OverlapTolerance):
		return captureMismatch(w.name, e, p1, p2, r-outer, "captured pair is outside the well")
	case !captured && r < outer*(1-OverlapTolerance):
		return captureMismatch(w.name, e, p1, p2, outer-r, "free pair is inside the well")
	}
	return nil
}

// ValidateAll checks every captured pair, so a pair that left the well
// unnoticed is reported even once it is out of the index's reach.
func (w *SquareWell) ValidateAll(e *physics.Env, ps []model.Particle, governs func(a, b int) bool) []error {
	return validatePairs(w, e, ps, w.captures.Pairs(), governs)
}

func captureMismatch(name string, e *physics.Env, p1, p2 *model.Particle, by float64, what string) error {
	err := model.NewOverlapViolation(name, by, p1, p2).WithTime(e.Now())
	err.Message = fmt.Sprintf("%s: %s", name, what)
	return err
}
