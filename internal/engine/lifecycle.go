package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/roach88/edmd/internal/boundary"
	"github.com/roach88/edmd/internal/cells"
	"github.com/roach88/edmd/internal/interaction"
	"github.com/roach88/edmd/internal/local"
	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/physics"
	"github.com/roach88/edmd/internal/scheduler"
	"github.com/roach88/edmd/internal/system"
)

// Status is the engine lifecycle status.
type Status int32

const (
	StatusUninitialised Status = iota
	StatusInitialised
	StatusRunning
	StatusHalted
	StatusCompleted
	StatusFaulted
)

var statusNames = [...]string{"uninitialised", "initialised", "running", "halted", "completed", "faulted"}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// Terminal reports whether Step will not execute further events.
func (s Status) Terminal() bool {
	return s == StatusHalted || s == StatusCompleted || s == StatusFaulted
}

// Status returns the lifecycle status.
// Thread-safe: may be called from any goroutine.
func (e *Engine) Status() Status { return Status(e.status.Load()) }

func (e *Engine) setStatus(s Status) { e.status.Store(int32(s)) }

// Initialise checks the configuration, builds the spatial index and the
// capture maps, and predicts every event. Configuration problems are
// reported as model.ConfigurationError and fault the engine.
func (e *Engine) Initialise() error {
	if s := e.Status(); s != StatusUninitialised {
		return newStateError("initialise", s)
	}
	if e.runID == "" {
		e.runID = e.runIDs.Generate()
	}
	if err := e.setup(); err != nil {
		e.fault(err)
		return err
	}
	e.setStatus(StatusInitialised)
	e.logger.Info("engine initialised",
		"run", e.runID,
		"particles", len(e.particles),
		"interactions", len(e.interactions),
		"locals", len(e.locals),
		"globals", len(e.globals),
		"systems", len(e.systems),
		"index", e.index.Name(),
		"cutoff", e.cutoff,
		"dynamics", e.env.Dynamics.Kind(),
		"boundary", e.env.Boundary.Kind(),
		"time", e.env.Now(),
	)
	e.notifyStart()
	return nil
}

func (e *Engine) setup() error {
	if err := e.checkParticles(); err != nil {
		return err
	}
	if err := e.checkEnv(); err != nil {
		return err
	}
	for _, in := range e.interactions {
		if err := in.Check(e.env, e.particles); err != nil {
			return err
		}
	}
	for _, l := range e.locals {
		if err := e.checkLocal(l); err != nil {
			return err
		}
	}
	for _, g := range e.globals {
		if err := e.checkGlobal(g); err != nil {
			return err
		}
	}
	for _, s := range e.systems {
		if err := s.Check(e); err != nil {
			return err
		}
	}

	e.SyncParticles()
	e.cutoff = e.initialCutoff()
	if err := e.index.Build(e.env, e.particles, e.cutoff, e.locals); err != nil {
		return err
	}
	for _, in := range e.interactions {
		e.rebuildCaptures(in)
	}
	e.pendingCaptures = nil
	e.addRegrid()

	e.fel = scheduler.New(len(e.particles))
	e.fel.SetFlushInterval(e.flushInterval)
	for _, s := range e.systems {
		if err := s.Initialise(e); err != nil {
			return err
		}
	}
	e.lastEvent = e.env.Now()
	return e.rebuildEvents()
}

// addRegrid registers a Regrid system when lengths grow and the index has a
// finite reach, unless one is registered already.
func (e *Engine) addRegrid() {
	if e.env.Dynamics.Kind() != physics.KindCompression || math.IsInf(e.index.MaxSupported(), 1) {
		return
	}
	for _, s := range e.systems {
		if _, ok := s.(*system.Regrid); ok {
			return
		}
	}
	e.systems = append(e.systems, system.NewRegrid("regrid"))
	e.logger.Debug("regrid registered", "run", e.runID, "supported", e.index.MaxSupported())
}

func (e *Engine) initialCutoff() float64 {
	if r := e.env.Length(e.MaxRange()); r > 0 {
		return r
	}
	// Without interactions the cells only serve locals; any width works.
	box := e.env.Boundary.Box()
	return min(box[0], box[1], box[2]) / float64(cells.MaxCoord+1)
}

func (e *Engine) checkParticles() error {
	for i := range e.particles {
		p := &e.particles[i]
		switch {
		case p.ID != i:
			return model.NewConfigurationError("particle at index %d has ID %d", i, p.ID)
		case !p.Finite():
			return model.NewConfigurationError("particle %d has a non-finite position or velocity", i)
		case p.Dynamic() && !(p.Mass > 0):
			return model.NewConfigurationError("particle %d has non-positive mass %g", i, p.Mass)
		}
	}
	return nil
}

func (e *Engine) checkEnv() error {
	d, bc := e.env.Dynamics, e.env.Boundary
	sheared, isSheared := d.(*physics.Sheared)
	lees, isLees := bc.(boundary.LeesEdwards)
	switch {
	case isSheared && bc.Kind() == boundary.KindPeriodic:
		return model.NewConfigurationError("sheared dynamics needs lees-edwards or no boundary, got %s", bc.Kind())
	case isLees && !isSheared && lees.ShearRate != 0:
		return model.NewConfigurationError("lees-edwards boundary with shear rate %g needs sheared dynamics", lees.ShearRate)
	case isLees && isSheared && lees.ShearRate != sheared.Rate:
		return model.NewConfigurationError("lees-edwards shear rate %g differs from the dynamics rate %g", lees.ShearRate, sheared.Rate)
	}
	return nil
}

func (e *Engine) checkLocal(l local.Local) error {
	if !e.env.Dynamics.Supports(physics.CapLocals) {
		return model.NewConfigurationError("local %q: %s dynamics does not support locals", l.Name(), e.env.Dynamics.Kind())
	}
	return l.Check(e.env, e.particles)
}

// envChecker is implemented by globals with setup requirements.
type envChecker interface {
	Check(e *physics.Env) error
}

func (e *Engine) checkGlobal(g cells.Global) error {
	if c, ok := g.(envChecker); ok {
		return c.Check(e.env)
	}
	return nil
}

// rebuildCaptures recomputes the capture map of in from geometry, unless a
// loaded snapshot supplied one.
func (e *Engine) rebuildCaptures(in interaction.Interaction) {
	c, ok := in.(interaction.Capturing)
	if !ok {
		return
	}
	m := c.Captures()
	m.Clear()
	if pairs, ok := e.pendingCaptures[in.Name()]; ok {
		for _, k := range pairs {
			m.Add(k.Lo, k.Hi)
		}
		return
	}
	for i := range e.particles {
		p := &e.particles[i]
		e.index.Neighbours(p, func(j int) {
			if j <= i {
				return
			}
			if k := e.interactionFor(i, j); k < 0 || e.interactions[k] != in {
				return
			}
			q := &e.particles[j]
			e.env.Update(q)
			if c.CaptureTest(e.env, p, q) {
				m.Add(i, j)
			}
		})
	}
}

// Run initialises the engine if needed and steps until a budget is
// reached, Halt is called, ctx is cancelled, no events remain or a fatal
// error occurs. Cancelling ctx halts the engine between events.
func (e *Engine) Run(ctx context.Context) error {
	if e.Status() == StatusUninitialised {
		if err := e.Initialise(); err != nil {
			return err
		}
	}
	e.logger.Info("run starting", "run", e.runID, "budget", e.budget.String(), "events", e.EventCount(), "time", e.env.Now())

	for {
		select {
		case <-ctx.Done():
			e.Halt()
		default:
		}
		ok, err := e.Step()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	if s := e.Status(); s == StatusFaulted {
		return newStateError("run", s)
	}
	return nil
}

// Halt asks the loop to stop before the next event.
// Thread-safe: may be called from any goroutine.
func (e *Engine) Halt() {
	e.halt.Store(true)
}

// Continue resumes a halted or completed run under a new budget. Budgets
// are absolute: pass the total event count and end time.
func (e *Engine) Continue(b Budget) error {
	s := e.Status()
	if s != StatusHalted && s != StatusCompleted {
		return newStateError("continue", s)
	}
	e.budget = b
	e.halt.Store(false)
	e.setStatus(StatusInitialised)
	e.logger.Debug("run continuing", "run", e.runID, "budget", b.String())
	return nil
}

// Step executes the next event. It returns false once the run has halted,
// completed or faulted; the error is non-nil only when this step faulted.
func (e *Engine) Step() (bool, error) {
	switch s := e.Status(); {
	case s == StatusUninitialised:
		return false, newStateError("step", s)
	case s.Terminal():
		return false, nil
	}
	if e.halt.Load() {
		e.finish(StatusHalted, "halt requested")
		return false, nil
	}
	e.setStatus(StatusRunning)

	ev, ok := e.fel.Top()
	if !ok {
		e.finish(StatusCompleted, "no events remain")
		return false, nil
	}
	if reason, done := e.budget.Exhausted(e.EventCount(), e.env.Now()+ev.Dt); done {
		e.finish(StatusCompleted, reason)
		return false, nil
	}
	if err := e.execute(ev); err != nil {
		if se, ok := err.(*model.SimError); ok && se.Time == 0 {
			se.WithTime(e.env.Now())
		}
		e.fault(err)
		return false, err
	}
	return true, nil
}

func (e *Engine) finish(s Status, reason string) {
	e.setStatus(s)
	e.logger.Info("run stopped",
		"run", e.runID,
		"status", s,
		"reason", reason,
		"events", e.EventCount(),
		"transitions", e.transitions,
		"time", e.env.Now(),
	)
	e.notifyFinish()
}

func (e *Engine) fault(err error) {
	e.setStatus(StatusFaulted)
	e.logger.Error("run faulted", "run", e.runID, "error", err, "events", e.EventCount(), "time", e.env.Now())
	e.notifyFinish()
}
