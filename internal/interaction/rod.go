package interaction

import (
	"math"

	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/physics"
	"github.com/roach88/edmd/internal/poly"
)

// Rod is a thin hard rod of length Length centred on each particle and
// lying along its director.
//
// Two rods can only touch while their centres are closer than Length, so
// those pairs are tracked in the capture map: a free pair predicts STEP_IN
// when the centres come within reach, and a captured pair searches for a
// CORE contact until STEP_OUT. A search that gives up early predicts a
// VIRTUAL event, which changes nothing and searches again.
type Rod struct {
	name       string
	pairs      Range
	Length     float64
	Elasticity float64
	captures   *CaptureMap
}

// NewRod returns a rod interaction over r.
func NewRod(name string, r Range, length, elasticity float64) *Rod {
	return &Rod{name: name, pairs: r, Length: length, Elasticity: elasticity, captures: NewCaptureMap()}
}

func (r *Rod) Name() string            { return r.name }
func (r *Rod) Range() Range            { return r.pairs }
func (r *Rod) MaxDistance() float64    { return r.Length }
func (r *Rod) Captures() *CaptureMap   { return r.captures }
func (r *Rod) InternalEnergy() float64 { return 0 }

func (r *Rod) Check(e *physics.Env, ps []model.Particle) error {
	if err := requireCapability(e, r.name, physics.CapRotation); err != nil {
		return err
	}
	if k := e.Dynamics.Kind(); k != physics.KindNewtonian {
		return model.NewConfigurationError("%s: rods need newtonian dynamics, got %s", r.name, k)
	}
	if !(r.Length > 0) {
		return model.NewConfigurationError("%s: length must be positive, got %g", r.name, r.Length)
	}
	return checkStatic(e, r.name, r.pairs, ps)
}

// CaptureTest reports whether the rod centres are within reach.
func (r *Rod) CaptureTest(e *physics.Env, p1, p2 *model.Particle) bool {
	return e.Separation(p1, p2).Len() < r.Length
}

func (r *Rod) Predict(e *physics.Env, p1, p2 *model.Particle) model.Prediction {
	if frozen(p1, p2) {
		return model.Never()
	}
	if !r.captures.Captured(p1.ID, p2.ID) {
		return pairEvent(model.StepIn, poly.Next(e.SphereOverlap(p1, p2, r.Length), r.Length), p1, p2)
	}

	out := poly.Next(e.SphereEscape(p1, p2, r.Length), r.Length)
	window := math.Inf(1)
	if out.Found {
		window = out.T
	}
	c := physics.NewRodPair(e, p1, p2, r.Length).Contact(window)
	switch {
	case c.Hit:
		return r.event(model.Core, c.T, p1, p2)
	case c.Found:
		return r.event(model.Virtual, c.T, p1, p2)
	}
	return pairEvent(model.StepOut, out, p1, p2)
}

func (r *Rod) event(typ model.EventType, dt float64, p1, p2 *model.Particle) model.Prediction {
	return model.At(model.Event{
		Dt:        dt,
		Particle1: p1.ID,
		Particle2: p2.ID,
		Source:    model.SourceInteraction,
		Type:      typ,
	})
}

func (r *Rod) Resolve(e *physics.Env, p1, p2 *model.Particle, ev model.Event) (model.PairEventData, error) {
	switch ev.Type {
	case model.Core:
		return physics.Rods(e, p1, p2, r.Elasticity, r.Length), nil
	case model.StepIn:
		r.captures.Add(p1.ID, p2.ID)
		return physics.Touch(e, p1, p2, model.StepIn), nil
	case model.StepOut:
		r.captures.Remove(p1.ID, p2.ID)
		return physics.Touch(e, p1, p2, model.StepOut), nil
	case model.Virtual:
		return physics.Touch(e, p1, p2, model.Virtual), nil
	default:
		return model.PairEventData{}, unexpected(r.name, ev)
	}
}

// Validate checks that the capture map agrees with the centre distance.
func (r *Rod) Validate(e *physics.Env, p1, p2 *model.Particle) error {
	d := e.Separation(p1, p2).Len()
	captured := r.captures.Captured(p1.ID, p2.ID)
	switch {
	case captured && d > r.Length*(1+OverlapTolerance):
		return captureMismatch(r.name, e, p1, p2, d-r.Length, "captured rods are out of reach")
	case !captured && d < r.Length*(1-OverlapTolerance):
		return captureMismatch(r.name, e, p1, p2, r.Length-d, "free rods are within reach")
	}
	return nil
}

// ValidateAll checks every captured pair.
func (r *Rod) ValidateAll(e *physics.Env, ps []model.Particle, governs func(a, b int) bool) []error {
	return validatePairs(r, e, ps, r.captures.Pairs(), governs)
}
