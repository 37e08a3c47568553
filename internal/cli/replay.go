package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/edmd/internal/config"
	"github.com/roach88/edmd/internal/engine"
	"github.com/roach88/edmd/internal/observer"
	"github.com/roach88/edmd/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string `json:"run_id"`
	Stored        int    `json:"stored"`
	Replayed      int    `json:"replayed"`
	Snapshots     int    `json:"snapshots"`
	Skipped       bool   `json:"skipped,omitempty"`
	Deterministic bool   `json:"deterministic"`
	Mismatch      string `json:"mismatch,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run stored runs and verify determinism",
		Long: `Rebuild each stored run from the configuration it recorded, execute
as many events as its log holds and compare every event and snapshot hash
with the stored ones. Floats are compared bit for bit.

Exit codes:
  0 - All runs reproduced exactly
  1 - A replay diverged from its log
  2 - Command error (database not found, config no longer loads, etc.)

Examples:
  edmd replay --db ./edmd.db
  edmd replay --db ./edmd.db --run 01923c4e-...
  edmd replay --db ./edmd.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Open database
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var runs []store.Run
	if opts.RunID != "" {
		run, err := st.ReadRun(ctx, opts.RunID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		runs = []store.Run{run}
	} else {
		runs, err = st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
	}

	if len(runs) == 0 {
		if opts.Format == "json" {
			result := ReplayResult{
				Runs:             []ReplayRunResult{},
				TotalRuns:        0,
				AllDeterministic: true,
			}
			return outputReplayJSON(newFormatter(opts.RootOptions, cmd), result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found in database.")
		return nil
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:        len(runs),
		AllDeterministic: true,
	}

	for _, run := range runs {
		runResult, err := replayRun(ctx, st, run)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", run.ID), err)
		}

		result.Runs = append(result.Runs, runResult)
		if !runResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	// Output results
	if opts.Format == "json" {
		return outputReplayJSON(newFormatter(opts.RootOptions, cmd), result)
	}

	return outputReplayText(cmd.OutOrStdout(), result, opts.Verbose)
}

// replayRun rebuilds run from its stored configuration and compares the
// replayed events and snapshot hashes with the stored ones.
//
// The replay executes exactly as many events as the log holds, with no
// time budget, so a run that ended on its time budget or was halted is
// reproduced up to the same point. Snapshots are taken at the same events
// as in the original run, since taking one changes later rounding.
func replayRun(ctx context.Context, st *store.Store, run store.Run) (ReplayRunResult, error) {
	result := ReplayRunResult{RunID: run.ID, Deterministic: true}

	stored, err := st.ReadEvents(ctx, run.ID, store.EventFilter{})
	if err != nil {
		return result, err
	}
	result.Stored = len(stored)
	if len(stored) == 0 {
		result.Skipped = true
		return result, nil
	}

	cfg, err := config.Parse([]byte(run.Config), config.Format(run.Format), run.ID)
	if err != nil {
		return result, fmt.Errorf("stored config: %w", err)
	}
	if cfg.Hash() != run.ConfigHash {
		result.Deterministic = false
		result.Mismatch = fmt.Sprintf("config hash %s differs from stored %s", cfg.Hash(), run.ConfigHash)
		return result, nil
	}

	eng, err := config.Build(cfg,
		engine.WithLogger(discardLogger()),
		engine.WithRunID(run.ID),
		engine.WithEventBudget(uint64(len(stored))),
		engine.WithTimeBudget(0),
	)
	if err != nil {
		return result, fmt.Errorf("build: %w", err)
	}

	seqs, err := st.SnapshotSeqs(ctx, run.ID)
	if err != nil {
		return result, err
	}
	rec := &engine.Recorder{}
	eng.AddObserver(rec)
	snap := observer.NewSnapshotter(ctx, eng, nil, observer.At(seqs...))
	eng.AddObserver(snap)

	if err := eng.Run(ctx); err != nil {
		result.Deterministic = false
		result.Mismatch = fmt.Sprintf("replay faulted: %v", err)
	}
	if err := snap.Err(); err != nil {
		return result, err
	}

	replayed := make([]store.Event, len(rec.Records))
	for i, r := range rec.Records {
		replayed[i] = store.EventFromRecord(run.ID, r)
	}
	result.Replayed = len(replayed)
	if m := store.CompareEvents(stored, replayed); m != nil {
		result.Deterministic = false
		if result.Mismatch == "" {
			result.Mismatch = m.Error()
		}
		return result, nil
	}

	for _, seq := range seqs {
		want, err := st.ReadSnapshot(ctx, run.ID, seq)
		if err != nil {
			return result, err
		}
		got, ok := snap.Hashes[seq]
		if !ok || got != want.Hash {
			result.Deterministic = false
			result.Mismatch = fmt.Sprintf("snapshot %d: hash %s differs from stored %s", seq, got, want.Hash)
			return result, nil
		}
		result.Snapshots++
	}
	return result, nil
}

// outputReplayJSON writes the replay result. Any divergent run fails the
// command with exit code 1.
func outputReplayJSON(f *OutputFormatter, result ReplayResult) error {
	if !result.AllDeterministic {
		return f.Fail("E_DETERMINISM", result, "", NewExitError(ExitFailure, "determinism verification failed"))
	}
	return f.Respond(result, "")
}

// outputReplayText outputs the replay result as text.
func outputReplayText(w io.Writer, result ReplayResult, verbose bool) error {
	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Run: %s\n", status, run.RunID)

		switch {
		case run.Skipped:
			fmt.Fprintln(w, "  Skipped: no stored events")
		case verbose:
			fmt.Fprintf(w, "  Stored events:   %d\n", run.Stored)
			fmt.Fprintf(w, "  Replayed events: %d\n", run.Replayed)
			fmt.Fprintf(w, "  Snapshots:       %d\n", run.Snapshots)
		default:
			fmt.Fprintf(w, "  Events: %d replayed, %d snapshot(s) verified\n", run.Replayed, run.Snapshots)
		}

		if !run.Deterministic {
			fmt.Fprintf(w, "  Divergence: %s\n", run.Mismatch)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
