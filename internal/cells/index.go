// Package cells implements the spatial index that bounds the candidate
// partners of a particle, together with the global event sources tied to
// it.
//
// The overlapping cell list is itself a global: it predicts CELL events
// when a particle leaves its (expanded) cell, and resolving one reports the
// particles and locals that became reachable.
package cells

import (
	"github.com/roach88/edmd/internal/local"
	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/physics"
)

// Transition is what resolving a global event changed for one particle.
type Transition struct {
	// Neighbours are particles that became candidate partners.
	Neighbours []int

	// Locals are indices of locals that became reachable.
	Locals []int

	// Full requests a complete re-prediction of the particle.
	Full bool
}

// Global is a single-particle event source that does not change particle
// velocities.
type Global interface {
	Name() string
	Predict(e *physics.Env, p *model.Particle) model.Prediction
	Resolve(e *physics.Env, p *model.Particle, ev model.Event) (Transition, error)
}

// Index enumerates candidate neighbours without false negatives.
//
// Particle IDs must equal their index in the slice given to Build.
type Index interface {
	Global

	// Build sizes the index for interactions reaching cutoff and inserts
	// every particle and local.
	Build(e *physics.Env, ps []model.Particle, cutoff float64, locals []local.Local) error

	// Neighbours calls visit once for every candidate partner of p.
	Neighbours(p *model.Particle, visit func(id int))

	// Locals calls visit once for every local that can reach p.
	Locals(p *model.Particle, visit func(local int))

	// MaxSupported is the largest interaction distance the current layout
	// finds every pair for.
	MaxSupported() float64

	// Validate checks the index bookkeeping against particle positions.
	Validate(e *physics.Env, ps []model.Particle) error
}

// Brute is the all-pairs index. It is exact for any range and never
// produces events; use it with the PBC sentinel in small periodic systems.
type Brute struct {
	n      int
	locals int
}

func (*Brute) Name() string { return "brute" }

func (b *Brute) Build(_ *physics.Env, ps []model.Particle, _ float64, locals []local.Local) error {
	if err := checkIDs(ps); err != nil {
		return err
	}
	b.n, b.locals = len(ps), len(locals)
	return nil
}

func (b *Brute) Neighbours(p *model.Particle, visit func(int)) {
	for id := 0; id < b.n; id++ {
		if id != p.ID {
			visit(id)
		}
	}
}

func (b *Brute) Locals(_ *model.Particle, visit func(int)) {
	for i := 0; i < b.locals; i++ {
		visit(i)
	}
}

func (*Brute) MaxSupported() float64 { return posInf }

func (*Brute) Predict(*physics.Env, *model.Particle) model.Prediction { return model.Never() }

func (*Brute) Resolve(_ *physics.Env, p *model.Particle, ev model.Event) (Transition, error) {
	return Transition{}, model.NewModelInconsistency("brute index produced a "+ev.Type.String()+" event", p)
}

func (*Brute) Validate(*physics.Env, []model.Particle) error { return nil }

func checkIDs(ps []model.Particle) error {
	for i := range ps {
		if ps[i].ID != i {
			return model.NewConfigurationError("particle at index %d has ID %d; IDs must be dense and ordered", i, ps[i].ID)
		}
	}
	return nil
}
