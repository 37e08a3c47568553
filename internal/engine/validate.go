package engine

import (
	"fmt"

	"github.com/roach88/edmd/internal/interaction"
	"github.com/roach88/edmd/internal/model"
)

// maxReported caps the violations ValidateState logs.
const maxReported = 100

// ValidateState checks every pair, local and index entry against the
// current positions and returns the violations found. Captured and bonded
// pairs are checked whatever their separation, and an index that no longer
// reaches the interaction range is itself a violation. It does not change
// the simulation; particles are streamed to now, which moves no event.
func (e *Engine) ValidateState() []error {
	if e.Status() == StatusUninitialised {
		return []error{newStateError("validate", StatusUninitialised)}
	}
	e.SyncParticles()

	var errs []error
	report := func(err error) {
		if err == nil {
			return
		}
		if len(errs) < maxReported {
			e.logger.Warn("state violation", "run", e.runID, "error", err, "time", e.env.Now())
		}
		errs = append(errs, err)
	}

	if reach := e.env.Length(e.MaxRange()); e.index.MaxSupported() < reach*(1-interaction.OverlapTolerance) {
		report(model.NewModelInconsistency(fmt.Sprintf("%s index supports range %g but interactions reach %g",
			e.index.Name(), e.index.MaxSupported(), reach)).WithTime(e.env.Now()))
	}

	// Captured and bonded pairs first: they may sit beyond the index.
	checked := make(map[interaction.PairKey]struct{})
	for k, in := range e.interactions {
		a, ok := in.(interaction.Auditor)
		if !ok {
			continue
		}
		governs := func(i, j int) bool {
			if e.interactionFor(i, j) != k {
				return false
			}
			checked[interaction.MakePairKey(i, j)] = struct{}{}
			return true
		}
		for _, err := range a.ValidateAll(e.env, e.particles, governs) {
			report(err)
		}
	}

	for i := range e.particles {
		p := &e.particles[i]
		e.index.Neighbours(p, func(j int) {
			if j <= i {
				return
			}
			if _, ok := checked[interaction.MakePairKey(i, j)]; ok {
				return
			}
			if k := e.interactionFor(i, j); k >= 0 {
				report(e.interactions[k].Validate(e.env, p, &e.particles[j]))
			}
		})
		e.index.Locals(p, func(id int) {
			if l := e.locals[id]; l.Range().Includes(i) {
				report(l.Validate(e.env, p))
			}
		})
	}
	report(e.index.Validate(e.env, e.particles))
	return errs
}

// Overlaps filters the overlap violations out of errs.
func Overlaps(errs []error) []error {
	var out []error
	for _, err := range errs {
		if model.IsOverlapViolation(err) {
			out = append(out, err)
		}
	}
	return out
}
