package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/roach88/edmd/internal/model"
)

// execute runs the event at the top of the list. ev is the value Top
// returned; the runners pop it themselves.
func (e *Engine) execute(ev model.Event) error {
	switch ev.Source {
	case model.SourceInteraction:
		return e.runInteraction(ev)
	case model.SourceLocal:
		return e.runLocal(ev)
	case model.SourceGlobal:
		return e.runGlobal(ev)
	case model.SourceSystem:
		return e.runSystem(ev)
	default:
		return model.NewModelInconsistency(fmt.Sprintf("event from unknown source %s: %s", ev.Source, ev))
	}
}

// runInteraction predicts the pair again from its current state. A fresh
// prediction later than the next queued event is rejected and the pair
// re-predicted instead, unless the watchdog says otherwise.
func (e *Engine) runInteraction(ev model.Event) error {
	if _, err := e.fel.Pop(); err != nil {
		return err
	}
	p1, p2 := &e.particles[ev.Particle1], &e.particles[ev.Particle2]
	in := e.interactions[ev.SourceID]
	e.env.Update(p1, p2)

	pred, err := e.sanitize(in.Predict(e.env, p1, p2), p1, p2)
	if err != nil {
		return err
	}
	if !pred.Found {
		return e.fullUpdate(p1.ID, p2.ID)
	}
	fresh := pred.Event
	fresh.SourceID = ev.SourceID
	if e.later(fresh) && e.watchdog.Reject(model.SourceInteraction) {
		return e.fullUpdate(p1.ID, p2.ID)
	}
	e.watchdog.Accept(model.SourceInteraction)

	e.advance(fresh.Dt)
	e.env.Update(p1, p2)
	data, err := in.Resolve(e.env, p1, p2, fresh)
	if err != nil {
		return err
	}
	return e.complete(fresh, model.Pair(data))
}

func (e *Engine) runLocal(ev model.Event) error {
	if _, err := e.fel.Pop(); err != nil {
		return err
	}
	p := &e.particles[ev.Particle1]
	l := e.locals[ev.SourceID]
	e.env.Update(p)

	pred, err := e.sanitize(l.Predict(e.env, p), p, nil)
	if err != nil {
		return err
	}
	if !pred.Found {
		return e.fullUpdate(p.ID)
	}
	fresh := pred.Event
	fresh.SourceID = ev.SourceID
	if e.later(fresh) && e.watchdog.Reject(model.SourceLocal) {
		return e.fullUpdate(p.ID)
	}
	e.watchdog.Accept(model.SourceLocal)

	e.advance(fresh.Dt)
	e.env.Update(p)
	data, err := l.Resolve(e.env, p, fresh)
	if err != nil {
		return err
	}
	return e.complete(fresh, model.Single(data))
}

// runGlobal resolves a cell transition or sentinel event. Velocities do
// not change, so the particle keeps its queued events unless the global
// asks for a full update. Globals are bookkeeping: they are counted as
// transitions, not executed events, and observers never see them.
func (e *Engine) runGlobal(ev model.Event) error {
	if _, err := e.fel.Pop(); err != nil {
		return err
	}
	dt, err := e.eventDt(ev)
	if err != nil {
		return err
	}
	e.advance(dt)

	p := &e.particles[ev.Particle1]
	g := e.globals[ev.SourceID]
	e.env.Update(p)
	tr, err := g.Resolve(e.env, p, ev)
	if err != nil {
		return err
	}
	e.transitions++
	if tr.Full {
		return e.fullUpdate(p.ID)
	}

	for _, j := range tr.Neighbours {
		k := e.interactionFor(p.ID, j)
		if k < 0 {
			continue
		}
		q := &e.particles[j]
		e.env.Update(q)
		if err := e.accept(e.interactions[k].Predict(e.env, p, q), k, p, q); err != nil {
			return err
		}
	}
	for _, id := range tr.Locals {
		l := e.locals[id]
		if !l.Range().Includes(p.ID) {
			continue
		}
		if err := e.accept(l.Predict(e.env, p), id, p, nil); err != nil {
			return err
		}
	}
	return e.accept(g.Predict(e.env, p), ev.SourceID, p, nil)
}

// runSystem fires a system event. Every system is asked for its next time
// afterwards, since a system may have rebuilt the whole event list.
func (e *Engine) runSystem(ev model.Event) error {
	if _, err := e.fel.Pop(); err != nil {
		return err
	}
	dt, err := e.eventDt(ev)
	if err != nil {
		return err
	}
	e.advance(dt)

	s := e.systems[ev.SourceID]
	data, err := s.Run(e)
	if err != nil {
		return err
	}
	e.fel.ClearSystem()
	for id := range e.systems {
		e.pushSystem(id)
	}
	ev.Dt = dt
	return e.complete(ev, data)
}

// later reports whether a recalculated event falls after the next queued
// one.
func (e *Engine) later(fresh model.Event) bool {
	next, ok := e.fel.Top()
	return ok && fresh.Dt > next.Dt
}

// eventDt returns the time until a queued event. Events of particles whose
// recalculated predecessor ran late can surface slightly in the past;
// rounding-sized overshoots are zeroed silently, larger ones follow the
// negative time policy.
func (e *Engine) eventDt(ev model.Event) (float64, error) {
	if ev.Dt >= 0 {
		return ev.Dt, nil
	}
	if -ev.Dt <= roundoff*math.Max(1, math.Abs(e.env.Now())) {
		return 0, nil
	}
	var p *model.Particle
	if ev.Particle1 >= 0 {
		p = &e.particles[ev.Particle1]
	}
	pred, err := e.sanitize(model.At(ev), p, nil)
	if err != nil {
		return 0, err
	}
	return pred.Event.Dt, nil
}

// advance moves the shared clock and the event list forward together.
func (e *Engine) advance(dt float64) {
	if dt == 0 {
		return
	}
	e.env.Dynamics.Advance(dt)
	e.fel.Stream(dt)
}

// complete finishes an executed event: it rejects non-finite results,
// re-predicts every touched particle, stamps the record and notifies
// observers.
func (e *Engine) complete(ev model.Event, data model.NEventData) error {
	touched := data.Touched()
	for _, id := range touched {
		if p := &e.particles[id]; !p.Finite() {
			return model.NewModelInconsistency(fmt.Sprintf("%s event left a non-finite velocity", ev.Type), p).WithTime(e.env.Now())
		}
	}
	if err := e.fullUpdate(touched...); err != nil {
		return err
	}

	now := e.env.Now()
	r := Record{
		Seq:   uint64(e.clock.Next()),
		Time:  now,
		Dt:    now - e.lastEvent,
		Event: ev,
		Data:  data,
	}
	e.lastEvent = now
	if e.logger.Enabled(context.Background(), slog.LevelDebug) {
		e.logger.Debug("event executed",
			"seq", r.Seq,
			"type", ev.Type,
			"source", ev.Source,
			"p1", ev.Particle1,
			"p2", ev.Particle2,
			"time", now,
			"dke", data.DeltaKE(),
		)
	}
	e.notify(r)
	return nil
}
