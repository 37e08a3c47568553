// Package replex runs replica exchange: several copies of a system at
// different temperatures advance independently for a fixed interval of
// simulation time, then meet at a rendezvous where neighbouring
// temperatures may swap configurations.
//
// Replicas advance concurrently on a bounded worker pool. Each engine is
// only touched by one worker at a time; swaps happen on the calling
// goroutine once every worker is done.
package replex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"

	"github.com/roach88/edmd/internal/engine"
	"github.com/roach88/edmd/internal/system"
)

// Factory builds replica i. The options set the budget, run ID and logger
// and must be applied last.
type Factory func(i int, opts ...engine.Option) (*engine.Engine, error)

// Replica is one copy of the system.
type Replica struct {
	// ID is the replica's build index; it never changes.
	ID     int
	Engine *engine.Engine
}

// Exchange drives a set of replicas through exchange rounds.
type Exchange struct {
	temps    []float64
	interval float64
	workers  int
	rng      *rand.Rand
	logger   *slog.Logger
	runID    string

	// slots[k] is the replica currently at temps[k].
	slots []*Replica

	attempts []uint64
	accepts  []uint64
	energies [][]float64
	rounds   int
}

// Option configures an Exchange.
type Option func(*Exchange)

// WithWorkers bounds the number of replicas advancing at once. Default:
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(x *Exchange) {
		if n > 0 {
			x.workers = n
		}
	}
}

// WithSeed seeds the acceptance draws.
func WithSeed(seed uint64) Option {
	return func(x *Exchange) { x.rng = rand.New(rand.NewSource(seed)) }
}

// WithLogger sets the logger handed to every replica.
func WithLogger(l *slog.Logger) Option {
	return func(x *Exchange) {
		if l != nil {
			x.logger = l
		}
	}
}

// WithRunID sets the prefix of the replica run IDs.
func WithRunID(id string) Option {
	return func(x *Exchange) { x.runID = id }
}

// New builds one replica per temperature, sorted ascending, and rescales
// each to its temperature. Every round advances each replica by interval.
func New(temps []float64, interval float64, build Factory, opts ...Option) (*Exchange, error) {
	if len(temps) < 2 {
		return nil, fmt.Errorf("replica exchange needs at least two temperatures, got %d", len(temps))
	}
	if !(interval > 0) {
		return nil, fmt.Errorf("exchange interval must be positive, got %g", interval)
	}
	for _, t := range temps {
		if !(t > 0) {
			return nil, fmt.Errorf("temperatures must be positive, got %g", t)
		}
	}

	x := &Exchange{
		temps:    slices.Sorted(slices.Values(temps)),
		interval: interval,
		workers:  runtime.GOMAXPROCS(0),
		rng:      rand.New(rand.NewSource(1)),
		logger:   slog.Default(),
		runID:    "replex",
	}
	for _, opt := range opts {
		opt(x)
	}

	m := len(x.temps)
	x.slots = make([]*Replica, m)
	x.attempts = make([]uint64, m-1)
	x.accepts = make([]uint64, m-1)
	x.energies = make([][]float64, m)
	for i, t := range x.temps {
		e, err := build(i,
			engine.WithLogger(x.logger),
			engine.WithRunID(fmt.Sprintf("%s-%d", x.runID, i)),
			engine.WithEventBudget(0),
			engine.WithTimeBudget(interval),
		)
		if err != nil {
			return nil, fmt.Errorf("build replica %d: %w", i, err)
		}
		ps := e.Particles()
		if cur := system.Temperature(ps); cur > 0 {
			system.ScaleVelocities(ps, math.Sqrt(t/cur))
		}
		x.slots[i] = &Replica{ID: i, Engine: e}
	}
	return x, nil
}

// Replicas returns the replicas in temperature order.
func (x *Exchange) Replicas() []*Replica { return x.slots }

// Temperatures returns the ladder, ascending.
func (x *Exchange) Temperatures() []float64 { return x.temps }

// Run performs rounds exchange rounds. It stops early when ctx is
// cancelled or a replica fails.
func (x *Exchange) Run(ctx context.Context, rounds int) error {
	for r := 0; r < rounds; r++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := x.advance(ctx); err != nil {
			return fmt.Errorf("round %d: %w", x.rounds, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		accepted, err := x.exchange()
		if err != nil {
			return fmt.Errorf("round %d: %w", x.rounds, err)
		}
		x.logger.Info("exchange round",
			"round", x.rounds,
			"accepted", accepted,
			"order", x.order(),
		)
		x.rounds++
	}
	return nil
}

// advance runs every replica for one interval on the worker pool.
func (x *Exchange) advance(ctx context.Context) error {
	m := len(x.slots)
	jobs := make(chan int, m)
	errs := make([]error, m)
	var wg sync.WaitGroup

	for w := 0; w < min(x.workers, m); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range jobs {
				errs[k] = step(ctx, x.slots[k], x.interval)
			}
		}()
	}
	for k := range x.slots {
		jobs <- k
	}
	close(jobs)
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return err
	}
	for k, r := range x.slots {
		x.energies[k] = append(x.energies[k], r.Engine.InternalEnergy())
	}
	return nil
}

// step advances one replica by interval.
func step(ctx context.Context, r *Replica, interval float64) error {
	e := r.Engine
	if e.Status() != engine.StatusUninitialised {
		if err := e.Continue(engine.Budget{Time: e.Budget().Time + interval}); err != nil {
			return fmt.Errorf("replica %d: %w", r.ID, err)
		}
	}
	if err := e.Run(ctx); err != nil {
		return fmt.Errorf("replica %d: %w", r.ID, err)
	}
	return nil
}

// exchange attempts swaps between neighbouring temperatures, alternating
// between even and odd pairs from round to round.
func (x *Exchange) exchange() (int, error) {
	accepted := 0
	for k := x.rounds % 2; k+1 < len(x.slots); k += 2 {
		a, b := x.slots[k], x.slots[k+1]
		x.attempts[k]++
		ok := Accept(1/x.temps[k], 1/x.temps[k+1], a.Engine.InternalEnergy(), b.Engine.InternalEnergy(), x.rng.Float64())
		if !ok {
			continue
		}
		x.accepts[k]++
		accepted++
		if err := retemper(b, x.temps[k+1], x.temps[k]); err != nil {
			return accepted, err
		}
		if err := retemper(a, x.temps[k], x.temps[k+1]); err != nil {
			return accepted, err
		}
		x.slots[k], x.slots[k+1] = b, a
	}
	return accepted, nil
}

// Accept applies the Metropolis criterion for swapping configurations with
// energies ui and uj between inverse temperatures bi and bj, given a
// uniform draw u in [0, 1).
func Accept(bi, bj, ui, uj, u float64) bool {
	delta := (bi - bj) * (ui - uj)
	return delta >= 0 || u < math.Exp(delta)
}

// retemper moves a replica from temperature from to to by scaling its
// velocities, then predicts all of its events again.
func retemper(r *Replica, from, to float64) error {
	e := r.Engine
	e.SyncParticles()
	system.ScaleVelocities(e.Particles(), math.Sqrt(to/from))
	if err := e.Reindex(e.Env().Length(e.MaxRange())); err != nil {
		return fmt.Errorf("replica %d: %w", r.ID, err)
	}
	return nil
}

func (x *Exchange) order() []int {
	ids := make([]int, len(x.slots))
	for k, r := range x.slots {
		ids[k] = r.ID
	}
	return ids
}

// Slot summarises one temperature of the ladder.
type Slot struct {
	Temperature float64
	Replica     int
	Events      uint64
	EnergyMean  float64
	EnergyStd   float64
}

// Report summarises the exchange so far.
type Report struct {
	Rounds int
	Slots  []Slot

	// Attempts, Accepts and Acceptance are per neighbouring pair (k, k+1).
	Attempts   []uint64
	Accepts    []uint64
	Acceptance []float64
}

// Report returns the current statistics.
func (x *Exchange) Report() Report {
	r := Report{
		Rounds:     x.rounds,
		Attempts:   slices.Clone(x.attempts),
		Accepts:    slices.Clone(x.accepts),
		Acceptance: make([]float64, len(x.attempts)),
	}
	for k := range x.attempts {
		if x.attempts[k] > 0 {
			r.Acceptance[k] = float64(x.accepts[k]) / float64(x.attempts[k])
		}
	}
	for k, rep := range x.slots {
		s := Slot{Temperature: x.temps[k], Replica: rep.ID, Events: rep.Engine.EventCount()}
		if len(x.energies[k]) > 0 {
			s.EnergyMean, s.EnergyStd = stat.MeanStdDev(x.energies[k], nil)
			if len(x.energies[k]) == 1 {
				s.EnergyStd = 0
			}
		}
		r.Slots = append(r.Slots, s)
	}
	return r
}
