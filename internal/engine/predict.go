package engine

import (
	"math"

	"github.com/roach88/edmd/internal/model"
)

// MaxAnomalies caps the anomalies kept by the audit. Counters keep
// counting past it.
const MaxAnomalies = 100

// roundoff is the relative size of a negative event time that is treated
// as zero without being audited.
const roundoff = 1e-12

// Audit counts the numeric anomalies the engine recovered from.
type Audit struct {
	// Clamped counts negative predicted times moved to zero.
	Clamped uint64

	// Dropped counts NaN predicted times discarded.
	Dropped uint64

	// Degenerate counts root searches that touched zero without crossing.
	Degenerate uint64

	// Rejections counts recalculated events sent back to the list.
	Rejections uint64

	// Anomalies holds the first MaxAnomalies clamp and drop reports.
	Anomalies []*model.SimError
}

func (a *Audit) record(err *model.SimError) {
	if len(a.Anomalies) < MaxAnomalies {
		a.Anomalies = append(a.Anomalies, err)
	}
}

// addEvents predicts every event of an up-to-date particle p against the
// globals, the locals that reach it and its candidate neighbours.
func (e *Engine) addEvents(p *model.Particle) error {
	e.env.Update(p)
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	for id, g := range e.globals {
		keep(e.accept(g.Predict(e.env, p), id, p, nil))
	}
	e.index.Locals(p, func(id int) {
		l := e.locals[id]
		if !l.Range().Includes(p.ID) {
			return
		}
		keep(e.accept(l.Predict(e.env, p), id, p, nil))
	})
	e.index.Neighbours(p, func(j int) {
		if j == p.ID {
			return
		}
		k := e.interactionFor(p.ID, j)
		if k < 0 {
			return
		}
		q := &e.particles[j]
		e.env.Update(q)
		keep(e.accept(e.interactions[k].Predict(e.env, p, q), k, p, q))
	})
	return first
}

// accept stamps a prediction with its source and pushes it. NaN and
// negative times are fatal in strict mode; otherwise they are dropped or
// clamped and audited.
func (e *Engine) accept(pred model.Prediction, sourceID int, p1, p2 *model.Particle) error {
	pred, err := e.sanitize(pred, p1, p2)
	if err != nil || !pred.Found {
		return err
	}
	ev := pred.Event
	ev.SourceID = sourceID
	e.fel.Push(ev)
	return nil
}

// sanitize applies the NaN, negative and degenerate time policy to a
// prediction. The result is either a usable event or no event.
func (e *Engine) sanitize(pred model.Prediction, p1, p2 *model.Particle) (model.Prediction, error) {
	if !pred.Found {
		if pred.Degenerate {
			e.audit.Degenerate++
			e.logger.Warn("degenerate root search", "particle", p1.ID, "partner", partnerID(p2), "time", e.env.Now())
		}
		return pred, nil
	}
	dt := pred.Event.Dt
	switch {
	case math.IsNaN(dt):
		err := model.NewModelInconsistency("predicted event time is NaN", p1, p2).WithTime(e.env.Now())
		if e.strict {
			return model.Never(), err
		}
		e.audit.Dropped++
		e.audit.record(err)
		e.logger.Warn("dropped NaN event time", "event", pred.Event.String(), "time", e.env.Now())
		return model.Never(), nil
	case dt < 0:
		err := model.NewModelInconsistency("predicted event time is negative", p1, p2).WithTime(e.env.Now())
		err.Magnitude = dt
		if e.strict {
			return model.Never(), err
		}
		e.audit.Clamped++
		e.audit.record(err)
		e.logger.Warn("clamped negative event time", "event", pred.Event.String(), "dt", dt, "time", e.env.Now())
		pred.Event.Dt = 0
	}
	return pred, nil
}

func partnerID(p *model.Particle) int {
	if p == nil {
		return model.NoPartner
	}
	return p.ID
}

// fullUpdate drops every event of the given particles and predicts them
// again. All particles are invalidated before any is re-predicted, so a
// pair inside the set is predicted from both sides with fresh counters.
func (e *Engine) fullUpdate(ids ...int) error {
	for _, id := range ids {
		e.fel.Invalidate(id)
	}
	for _, id := range ids {
		if err := e.addEvents(&e.particles[id]); err != nil {
			return err
		}
	}
	return nil
}

// rebuildEvents empties the event list and predicts everything again.
func (e *Engine) rebuildEvents() error {
	e.fel.Clear()
	for i := range e.particles {
		if err := e.addEvents(&e.particles[i]); err != nil {
			return err
		}
	}
	for id := range e.systems {
		e.pushSystem(id)
	}
	return nil
}

func (e *Engine) pushSystem(id int) {
	s := e.systems[id]
	e.fel.Push(model.Event{
		Dt:        s.Next(e),
		Particle1: model.NoPartner,
		Particle2: model.NoPartner,
		Source:    model.SourceSystem,
		Type:      s.Type(),
		SourceID:  id,
	})
}

// Reindex rebuilds the spatial index for interactions reaching cutoff and
// predicts every event again. Systems call it when the length scale has
// outgrown the cells.
func (e *Engine) Reindex(cutoff float64) error {
	if err := e.rebuildIndex(cutoff); err != nil {
		return err
	}
	return e.rebuildEvents()
}

// rebuildIndex rebuilds the spatial index for cutoff without predicting.
func (e *Engine) rebuildIndex(cutoff float64) error {
	e.SyncParticles()
	e.cutoff = cutoff
	return e.index.Build(e.env, e.particles, cutoff, e.locals)
}
