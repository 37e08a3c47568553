package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/edmd/internal/config"
	"github.com/roach88/edmd/internal/engine"
	"github.com/roach88/edmd/internal/observer"
	"github.com/roach88/edmd/internal/store"
	"github.com/roach88/edmd/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs scenarios against a fresh in-memory store with a fixed run ID.
type Harness struct {
	store  *store.Store
	runIDs *testutil.FixedRunID
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Load and build the configuration
// 2. Record the run and attach the event log
// 3. Initialise and run the engine under the scenario budget
// 4. Read the trace back from the store
// 5. Evaluate assertions
//
// The returned error covers setup problems only. A run that faults is
// reported in Result.RunError and fails the scenario unless an assertion
// expects status faulted.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		runIDs: testutil.NewFixedRunID(scenario.RunID),
		logger: testutil.QuietLogger(),
	}
	return h.run(ctx, scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	cfg, err := config.Load(scenario.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	opts := append([]engine.Option{
		engine.WithLogger(h.logger),
		engine.WithRunIDGenerator(h.runIDs),
	}, scenario.Budget.options()...)
	eng, err := config.Build(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}

	runID := h.runIDs.Generate()
	if err := h.store.WriteRun(ctx, store.Run{
		ID:         runID,
		Config:     string(cfg.Source()),
		ConfigHash: cfg.Hash(),
		Format:     string(cfg.Format()),
		Particles:  len(eng.Particles()),
	}); err != nil {
		return nil, err
	}
	log := observer.NewEventLog(ctx, h.store, runID, observer.WithEventLogLogger(h.logger))
	eng.AddObserver(log)

	result := NewResult()
	runErr := eng.Initialise()
	if runErr == nil {
		result.Initial = eng.Summary()
		runErr = eng.Run(ctx)
	}
	if runErr != nil {
		result.RunError = runErr.Error()
		if !scenario.expectsStatus(engine.StatusFaulted.String()) {
			result.AddError(fmt.Sprintf("run failed: %v", runErr))
		}
	}
	if err := log.Err(); err != nil {
		return nil, err
	}

	result.Final = eng.Summary()
	if eng.Status() != engine.StatusFaulted {
		result.Violations = eng.ValidateState()
	}
	result.Particles = eng.Particles()

	events, err := h.store.ReadEvents(ctx, runID, store.EventFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	for _, ev := range events {
		result.AddTrace(TraceEvent{
			Seq:       ev.Seq,
			Time:      ev.Time,
			Dt:        ev.Dt,
			Type:      ev.Type,
			Source:    ev.Source,
			Particle1: ev.Particle1,
			Particle2: ev.Particle2,
			DeltaKE:   ev.DeltaKE,
		})
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"run", runID,
		"status", result.Final.Status,
		"events", len(result.Trace),
	)

	actx := &AssertionContext{Store: h.store, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}
