package engine

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/roach88/edmd/internal/cells"
	"github.com/roach88/edmd/internal/interaction"
	"github.com/roach88/edmd/internal/local"
	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/physics"
	"github.com/roach88/edmd/internal/scheduler"
	"github.com/roach88/edmd/internal/system"
)

// Engine is the simulation context: particles, predictors, spatial index,
// future event list and the loop that drives them.
//
// CRITICAL: All mutations happen on the goroutine calling Initialise, Step
// and Run. Predictors and observers are invoked on that goroutine.
//
// Thread-safety model:
//   - Halt(), Status(), EventCount(): safe from any goroutine
//   - everything else: the loop goroutine only
//
// INVARIANTS:
//   - particles[i].ID == i
//   - predictors keep their registration index; the index is the SourceID
//     of every event they produce
//   - global 0 is the spatial index
type Engine struct {
	logger *slog.Logger
	env    *physics.Env

	particles    []model.Particle
	interactions []interaction.Interaction
	locals       []local.Local
	globals      []cells.Global
	systems      []system.System

	index cells.Index
	fel   *scheduler.FEL
	clock *Clock

	observers  []observerEntry
	nextHandle Handle

	budget         Budget
	watchdog       *Watchdog
	rejectionLimit int
	flushInterval  int
	strict         bool

	runID  string
	runIDs RunIDGenerator

	status atomic.Int32
	halt   atomic.Bool

	// cutoff is the current (scaled) interaction distance the index was
	// built for.
	cutoff      float64
	transitions uint64
	lastEvent   float64
	audit       Audit

	// pendingCaptures holds capture maps loaded from a snapshot until
	// Initialise.
	pendingCaptures map[string][]interaction.PairKey
}

var _ system.Sim = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithEventBudget completes the run after n executed events in total.
func WithEventBudget(n uint64) Option {
	return func(e *Engine) { e.budget.Events = n }
}

// WithTimeBudget completes the run before the first event later than
// system time t.
func WithTimeBudget(t float64) Option {
	return func(e *Engine) { e.budget.Time = t }
}

// WithStrict makes NaN and negative predicted times fatal
// ModelInconsistency errors. Otherwise they are clamped, audited and
// logged at Warn.
func WithStrict(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

// WithRunID fixes the run ID.
func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

// WithRunIDGenerator sets the generator used when no run ID is fixed.
// Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) { e.runIDs = g }
}

// WithRejectionLimit sets the number of consecutive recalculation
// rejections tolerated. Default: DefaultRejectionLimit.
func WithRejectionLimit(n int) Option {
	return func(e *Engine) { e.rejectionLimit = n }
}

// WithIndex replaces the default overlapping cell list.
func WithIndex(idx cells.Index) Option {
	return func(e *Engine) { e.index = idx }
}

// WithFlushInterval sets how often the event list folds its stream
// offset into stored times. Default: scheduler.DefaultFlushInterval.
func WithFlushInterval(n int) Option {
	return func(e *Engine) { e.flushInterval = n }
}

// New creates an engine over a copy of particles.
//
// Particle IDs must equal their index. The engine is Uninitialised: register
// predictors, then call Initialise or Run.
func New(env *physics.Env, particles []model.Particle, opts ...Option) *Engine {
	e := &Engine{
		logger:         slog.Default(),
		env:            env,
		particles:      append([]model.Particle(nil), particles...),
		clock:          NewClock(),
		rejectionLimit: DefaultRejectionLimit,
		flushInterval:  scheduler.DefaultFlushInterval,
		runIDs:         UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.index == nil {
		e.index = cells.New(e.logger)
	}
	e.globals = []cells.Global{e.index}
	e.watchdog = NewWatchdog(e.rejectionLimit)
	e.status.Store(int32(StatusUninitialised))
	return e
}

// AddInteraction registers an interaction and returns its ID. Registering
// on a running engine rebuilds the index, the interaction's capture map and
// every prediction.
func (e *Engine) AddInteraction(i interaction.Interaction) (int, error) {
	if err := e.registrable("add interaction"); err != nil {
		return 0, err
	}
	e.interactions = append(e.interactions, i)
	id := len(e.interactions) - 1
	if e.live() {
		if err := i.Check(e.env, e.particles); err != nil {
			e.interactions = e.interactions[:id]
			return 0, err
		}
		// Captures are found through the index, so it must already reach
		// the new range.
		if err := e.rebuildIndex(math.Max(e.cutoff, e.env.Length(e.MaxRange()))); err != nil {
			return 0, err
		}
		e.rebuildCaptures(i)
		if err := e.rebuildEvents(); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// AddLocal registers a local and returns its ID.
func (e *Engine) AddLocal(l local.Local) (int, error) {
	if err := e.registrable("add local"); err != nil {
		return 0, err
	}
	e.locals = append(e.locals, l)
	id := len(e.locals) - 1
	if e.live() {
		if err := e.checkLocal(l); err != nil {
			e.locals = e.locals[:id]
			return 0, err
		}
		if err := e.Reindex(e.cutoff); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// AddGlobal registers a global and returns its ID. ID 0 is the spatial
// index.
func (e *Engine) AddGlobal(g cells.Global) (int, error) {
	if err := e.registrable("add global"); err != nil {
		return 0, err
	}
	e.globals = append(e.globals, g)
	id := len(e.globals) - 1
	if e.live() {
		if err := e.checkGlobal(g); err != nil {
			e.globals = e.globals[:id]
			return 0, err
		}
		for i := range e.particles {
			p := &e.particles[i]
			e.env.Update(p)
			if err := e.accept(g.Predict(e.env, p), id, p, nil); err != nil {
				return 0, err
			}
		}
	}
	return id, nil
}

// AddSystem registers a system and returns its ID.
func (e *Engine) AddSystem(s system.System) (int, error) {
	if err := e.registrable("add system"); err != nil {
		return 0, err
	}
	e.systems = append(e.systems, s)
	id := len(e.systems) - 1
	if e.live() {
		if err := s.Check(e); err != nil {
			e.systems = e.systems[:id]
			return 0, err
		}
		if err := s.Initialise(e); err != nil {
			return 0, err
		}
		e.pushSystem(id)
	}
	return id, nil
}

func (e *Engine) registrable(op string) error {
	switch s := e.Status(); s {
	case StatusFaulted, StatusCompleted, StatusHalted:
		return newStateError(op, s)
	}
	return nil
}

func (e *Engine) live() bool {
	s := e.Status()
	return s == StatusInitialised || s == StatusRunning
}

// Env returns the dynamics and boundary bundle.
func (e *Engine) Env() *physics.Env { return e.env }

// Particles returns the particle array. Positions are valid at each
// particle's Time; call SyncParticles first to bring them all to now.
func (e *Engine) Particles() []model.Particle { return e.particles }

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// EventCount returns the number of executed events.
func (e *Engine) EventCount() uint64 { return uint64(e.clock.Current()) }

// Transitions returns the number of global (cell, sentinel) events.
func (e *Engine) Transitions() uint64 { return e.transitions }

// RunID returns the run identifier, assigned by Initialise.
func (e *Engine) RunID() string { return e.runID }

// Now returns the system time.
func (e *Engine) Now() float64 { return e.env.Now() }

// Interactions returns the registered interactions in order.
func (e *Engine) Interactions() []interaction.Interaction { return e.interactions }

// Systems returns the registered systems in order.
func (e *Engine) Systems() []system.System { return e.systems }

// Index returns the spatial index.
func (e *Engine) Index() cells.Index { return e.index }

// Budget returns the active budget.
func (e *Engine) Budget() Budget { return e.budget }

// Audit returns a copy of the anomaly counters.
func (e *Engine) Audit() Audit {
	a := e.audit
	a.Rejections = e.watchdog.Total()
	a.Anomalies = append([]*model.SimError(nil), e.audit.Anomalies...)
	return a
}

// MaxRange returns the largest unscaled interaction distance.
func (e *Engine) MaxRange() float64 {
	var r float64
	for _, i := range e.interactions {
		r = math.Max(r, i.MaxDistance())
	}
	return r
}

// MaxSupported returns the largest distance the index finds every pair for.
func (e *Engine) MaxSupported() float64 { return e.index.MaxSupported() }

// SyncParticles streams every particle up to the current time.
func (e *Engine) SyncParticles() {
	for i := range e.particles {
		e.env.Update(&e.particles[i])
	}
}

// KineticEnergy returns the total kinetic energy at the current time.
func (e *Engine) KineticEnergy() float64 {
	e.SyncParticles()
	var ke float64
	for i := range e.particles {
		ke += e.particles[i].KineticEnergy()
	}
	return ke
}

// InternalEnergy returns the potential energy held by the interactions.
func (e *Engine) InternalEnergy() float64 {
	var u float64
	for _, i := range e.interactions {
		u += i.InternalEnergy()
	}
	return u
}

// Summary returns the current totals.
func (e *Engine) Summary() Summary {
	return Summary{
		RunID:          e.runID,
		Status:         e.Status(),
		N:              len(e.particles),
		Time:           e.env.Now(),
		Events:         e.EventCount(),
		KineticEnergy:  e.KineticEnergy(),
		InternalEnergy: e.InternalEnergy(),
	}
}

// interactionFor returns the first interaction whose range contains the
// pair, or -1.
func (e *Engine) interactionFor(a, b int) int {
	for i, in := range e.interactions {
		if in.Range().Contains(a, b) {
			return i
		}
	}
	return -1
}

func (e *Engine) String() string {
	return fmt.Sprintf("engine(run=%s, status=%s, n=%d, t=%g, events=%d)",
		e.runID, e.Status(), len(e.particles), e.env.Now(), e.EventCount())
}
