// Package interaction implements pairwise interactions: the predicates that
// predict when two particles next change their interaction state, and the
// resolvers that apply the change.
//
// Interactions are registered with the engine in order; the first one
// whose Range contains a pair governs that pair.
package interaction

import (
	"fmt"

	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/physics"
	"github.com/roach88/edmd/internal/poly"
)

// OverlapTolerance is the relative overlap of a hard core tolerated by
// Validate before it reports an OverlapViolation.
const OverlapTolerance = 1e-9

// Interaction is one pairwise physical law.
type Interaction interface {
	Name() string

	// Range selects the pairs governed by this interaction.
	Range() Range

	// MaxDistance is the largest unscaled separation at which the
	// interaction can produce an event.
	MaxDistance() float64

	// Check verifies, before a run, that the dynamics and particles support
	// this interaction.
	Check(e *physics.Env, ps []model.Particle) error

	// Predict returns the next event for an up-to-date pair.
	Predict(e *physics.Env, p1, p2 *model.Particle) model.Prediction

	// Resolve applies ev, which Predict produced, at the current time.
	Resolve(e *physics.Env, p1, p2 *model.Particle, ev model.Event) (model.PairEventData, error)

	// Validate reports an OverlapViolation or capture mismatch for the
	// pair, or nil.
	Validate(e *physics.Env, p1, p2 *model.Particle) error

	// InternalEnergy is the potential energy stored by the interaction.
	InternalEnergy() float64
}

// Capturing is implemented by interactions with a capture map. The engine
// rebuilds the map from geometry when a run is initialised.
type Capturing interface {
	Interaction
	Captures() *CaptureMap
	CaptureTest(e *physics.Env, p1, p2 *model.Particle) bool
}

// Auditor is implemented by interactions whose pairs can drift beyond the
// reach of the spatial index: captured pairs and bonds. ValidateAll checks
// each such pair for which governs reports true, whatever its separation.
type Auditor interface {
	ValidateAll(e *physics.Env, ps []model.Particle, governs func(a, b int) bool) []error
}

func validatePairs(in Interaction, e *physics.Env, ps []model.Particle, pairs []PairKey, governs func(a, b int) bool) []error {
	var errs []error
	for _, k := range pairs {
		if k.Hi >= len(ps) || !governs(k.Lo, k.Hi) {
			continue
		}
		p1, p2 := &ps[k.Lo], &ps[k.Hi]
		e.Update(p1)
		e.Update(p2)
		if err := in.Validate(e, p1, p2); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func pairEvent(typ model.EventType, r poly.Result, p1, p2 *model.Particle) model.Prediction {
	if !r.Found {
		if r.Tangent {
			return model.Degenerate()
		}
		return model.Never()
	}
	return model.At(model.Event{
		Dt:        r.T,
		Particle1: p1.ID,
		Particle2: p2.ID,
		Source:    model.SourceInteraction,
		Type:      typ,
	})
}

// frozen reports whether neither particle can ever move.
func frozen(p1, p2 *model.Particle) bool {
	return !p1.Dynamic() && !p2.Dynamic()
}

// coreOverlap returns how far a pair penetrates a sphere of unscaled
// diameter d, or zero.
func coreOverlap(e *physics.Env, p1, p2 *model.Particle, d float64) float64 {
	dc := e.Length(d)
	r := e.Separation(p1, p2).Len()
	if over := dc - r; over > dc*OverlapTolerance {
		return over
	}
	return 0
}

func validateCore(name string, e *physics.Env, p1, p2 *model.Particle, d float64) error {
	if !p1.Dynamic() && !p2.Dynamic() {
		return nil
	}
	if over := coreOverlap(e, p1, p2, d); over > 0 {
		return model.NewOverlapViolation(name, over, p1, p2).WithTime(e.Now())
	}
	return nil
}

func unexpected(name string, ev model.Event) error {
	return model.NewModelInconsistency(fmt.Sprintf("%s cannot resolve a %s event", name, ev.Type))
}

func requireCapability(e *physics.Env, name string, c physics.Capability) error {
	if !e.Dynamics.Supports(c) {
		return model.NewConfigurationError("%s requires %s, which %s dynamics does not support", name, c, e.Dynamics.Kind())
	}
	return nil
}

func checkStatic(e *physics.Env, name string, r Range, ps []model.Particle) error {
	if e.Dynamics.Supports(physics.CapStatic) {
		return nil
	}
	for i := range ps {
		if !ps[i].Dynamic() && r.Includes(ps[i].ID) {
			return model.NewConfigurationError("%s: particle %d is static, which %s dynamics does not support", name, ps[i].ID, e.Dynamics.Kind())
		}
	}
	return nil
}
