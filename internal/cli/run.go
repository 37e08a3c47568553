package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/edmd/internal/config"
	"github.com/roach88/edmd/internal/engine"
	"github.com/roach88/edmd/internal/observer"
	"github.com/roach88/edmd/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database      string
	Events        uint64
	Time          float64
	Strict        bool
	SnapshotEvery uint64
	Resume        string

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// RunResult is the outcome of a run.
type RunResult struct {
	RunID          string            `json:"run_id"`
	Status         string            `json:"status"`
	Particles      int               `json:"particles"`
	Events         uint64            `json:"events"`
	Transitions    uint64            `json:"transitions"`
	Time           float64           `json:"time"`
	KineticEnergy  float64           `json:"kinetic_energy"`
	InternalEnergy float64           `json:"internal_energy"`
	Temperature    float64           `json:"temperature"`
	MeanFreeTime   float64           `json:"mean_free_time"`
	Counts         map[string]uint64 `json:"counts"`
	Snapshots      int               `json:"snapshots,omitempty"`
	Samples        []observer.Sample `json:"samples,omitempty"`
	Audit          AuditResult       `json:"audit"`
	Error          string            `json:"error,omitempty"`
}

// AuditResult holds the anomaly counters of a run.
type AuditResult struct {
	Clamped    uint64 `json:"clamped"`
	Dropped    uint64 `json:"dropped"`
	Degenerate uint64 `json:"degenerate"`
	Rejections uint64 `json:"rejections"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <config>",
		Short: "Run a simulation",
		Long: `Build a simulation from a YAML or CUE configuration and run it until its
budget is reached, no events remain or it is interrupted.

With --db every executed event is written to a SQLite event log (created
if it doesn't exist) that trace and replay read. --snapshot-every stores a
canonical snapshot every N events; --resume continues a stored run from
its latest snapshot. Events the run logged after that snapshot are
executed again and must not be logged twice.

Exit codes:
  0 - Run completed or was halted
  1 - Run faulted
  2 - Command error (invalid config, database error, etc.)

Examples:
  edmd run gas.yaml --events 100000
  edmd run gas.cue --db ./edmd.db --snapshot-every 10000
  edmd run gas.yaml --db ./edmd.db --resume 01923c4e-... --time 500`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite event log")
	cmd.Flags().Uint64Var(&opts.Events, "events", 0, "event budget (overrides the config)")
	cmd.Flags().Float64Var(&opts.Time, "time", 0, "time budget (overrides the config)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "treat NaN and negative event times as fatal")
	cmd.Flags().Uint64Var(&opts.SnapshotEvery, "snapshot-every", 0, "store a snapshot every N events (needs --db)")
	cmd.Flags().StringVar(&opts.Resume, "resume", "", "resume the stored run with this ID (needs --db)")

	return cmd
}

func runSimulation(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := formatter.Logger()

	if opts.Database == "" && (opts.SnapshotEvery > 0 || opts.Resume != "") {
		return NewExitError(ExitCommandError, "--snapshot-every and --resume need --db")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	engOpts := []engine.Option{engine.WithLogger(logger)}
	if cmd.Flags().Changed("events") {
		engOpts = append(engOpts, engine.WithEventBudget(opts.Events))
	}
	if cmd.Flags().Changed("time") {
		engOpts = append(engOpts, engine.WithTimeBudget(opts.Time))
	}
	if opts.Strict {
		engOpts = append(engOpts, engine.WithStrict(true))
	}
	runID := opts.Resume
	if runID == "" {
		gen := opts.RunIDs
		if gen == nil {
			gen = engine.UUIDv7Generator{}
		}
		runID = gen.Generate()
	}
	engOpts = append(engOpts, engine.WithRunID(runID))

	eng, err := config.Build(cfg, engOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build simulation", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	var (
		log  *observer.EventLog
		snap *observer.Snapshotter
	)
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		if opts.Resume != "" {
			if err := resume(ctx, st, eng, cfg, opts.Resume); err != nil {
				return err
			}
		} else if err := st.WriteRun(ctx, store.Run{
			ID:         runID,
			Config:     string(cfg.Source()),
			ConfigHash: cfg.Hash(),
			Format:     string(cfg.Format()),
			Particles:  len(eng.Particles()),
		}); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}

		log = observer.NewEventLog(ctx, st, runID, observer.WithEventLogLogger(logger))
		eng.AddObserver(log)
		if opts.SnapshotEvery > 0 {
			snap = observer.NewSnapshotter(ctx, eng, st, observer.Every(opts.SnapshotEvery))
			eng.AddObserver(snap)
		}
	}
	misc := observer.NewMisc()
	eng.AddObserver(misc)
	sampler := &observer.Sampler{}
	eng.AddObserver(sampler)

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, halting", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Info("simulation starting", "config", path, "run", runID, "db", opts.Database)
	runErr := eng.Run(ctx)

	if log != nil && log.Err() != nil {
		return WrapExitError(ExitCommandError, "event log failed", log.Err())
	}
	if snap != nil && snap.Err() != nil {
		return WrapExitError(ExitCommandError, "snapshot failed", snap.Err())
	}

	result := buildRunResult(eng, misc)
	result.Samples = sampler.Samples
	if snap != nil {
		result.Snapshots = len(snap.Hashes)
	}
	if runErr != nil {
		result.Error = runErr.Error()
	}

	var exit *ExitError
	if runErr != nil {
		exit = WrapExitError(ExitFailure, "run faulted", runErr)
	}
	switch {
	case formatter.JSON() && exit != nil:
		return formatter.Fail("E_FAULTED", result, result.RunID, exit)
	case formatter.JSON():
		return formatter.Respond(result, result.RunID)
	}
	outputRunText(formatter.Writer, result)
	if exit != nil {
		return exit
	}
	return nil
}

// resume loads the latest stored snapshot of runID into eng. The stored
// configuration must hash like the given one.
func resume(ctx context.Context, st *store.Store, eng *engine.Engine, cfg *config.Config, runID string) error {
	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	if run.ConfigHash != cfg.Hash() {
		return NewExitError(ExitCommandError, fmt.Sprintf("config hash %s differs from run %s (%s)", cfg.Hash(), runID, run.ConfigHash))
	}
	latest, err := st.LatestSnapshot(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read snapshot", err)
	}
	state, err := latest.State()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to decode snapshot", err)
	}
	if err := eng.LoadState(state); err != nil {
		return WrapExitError(ExitCommandError, "failed to load snapshot", err)
	}
	return nil
}

func buildRunResult(eng *engine.Engine, misc *observer.Misc) RunResult {
	sum := eng.Summary()
	report := misc.Report()
	audit := eng.Audit()
	return RunResult{
		RunID:          sum.RunID,
		Status:         sum.Status.String(),
		Particles:      sum.N,
		Events:         sum.Events,
		Transitions:    eng.Transitions(),
		Time:           sum.Time,
		KineticEnergy:  sum.KineticEnergy,
		InternalEnergy: sum.InternalEnergy,
		Temperature:    report.Temperature,
		MeanFreeTime:   report.MeanFreeTime,
		Counts:         report.Counts,
		Audit: AuditResult{
			Clamped:    audit.Clamped,
			Dropped:    audit.Dropped,
			Degenerate: audit.Degenerate,
			Rejections: audit.Rejections,
		},
	}
}

// outputRunText outputs the run result as text.
func outputRunText(w io.Writer, r RunResult) {
	fmt.Fprintf(w, "Run: %s\n", r.RunID)
	fmt.Fprintf(w, "Status: %s\n", r.Status)
	if r.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", r.Error)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Totals ===")
	fmt.Fprintf(w, "  Particles:       %d\n", r.Particles)
	fmt.Fprintf(w, "  Events:          %d\n", r.Events)
	fmt.Fprintf(w, "  Transitions:     %d\n", r.Transitions)
	fmt.Fprintf(w, "  Time:            %g\n", r.Time)
	fmt.Fprintf(w, "  Kinetic energy:  %g\n", r.KineticEnergy)
	fmt.Fprintf(w, "  Internal energy: %g\n", r.InternalEnergy)
	fmt.Fprintf(w, "  Temperature:     %g\n", r.Temperature)
	fmt.Fprintf(w, "  Mean free time:  %g\n", r.MeanFreeTime)
	if r.Snapshots > 0 {
		fmt.Fprintf(w, "  Snapshots:       %d\n", r.Snapshots)
	}
	if len(r.Samples) > 0 {
		s := observer.Sampler{Samples: r.Samples}
		mean, std := s.Stats()
		fmt.Fprintf(w, "  Ticks:           %d (kinetic energy %g ± %g)\n", len(r.Samples), mean, std)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Events ===")
	if len(r.Counts) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	types := make([]string, 0, len(r.Counts))
	for t := range r.Counts {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(w, "  %-12s %d\n", t, r.Counts[t])
	}

	if a := r.Audit; a != (AuditResult{}) {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Audit ===")
		fmt.Fprintf(w, "  Clamped:    %d\n", a.Clamped)
		fmt.Fprintf(w, "  Dropped:    %d\n", a.Dropped)
		fmt.Fprintf(w, "  Degenerate: %d\n", a.Degenerate)
		fmt.Fprintf(w, "  Rejections: %d\n", a.Rejections)
	}
}

// discardLogger is the logger of commands that run engines only to compare
// them.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
