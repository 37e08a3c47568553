package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - lists runs when empty
	Type     string // optional - filter to one event type
	Limit    int
	After    uint64
}

// TraceEvent represents a single event in the trace timeline.
type TraceEvent struct {
	Seq       uint64  `json:"seq"`
	Time      float64 `json:"time"`
	Dt        float64 `json:"dt"`
	Type      string  `json:"type"`
	Source    string  `json:"source"`
	SourceID  int     `json:"source_id"`
	Particle1 int     `json:"p1"`
	Particle2 int     `json:"p2"`
	DeltaKE   float64 `json:"delta_ke"`
	DeltaU    float64 `json:"delta_u"`
}

// TraceRun summarises a stored run.
type TraceRun struct {
	ID             string  `json:"id"`
	Status         string  `json:"status"`
	Format         string  `json:"format"`
	ConfigHash     string  `json:"config_hash"`
	Particles      int     `json:"particles"`
	Events         uint64  `json:"events"`
	EndTime        float64 `json:"end_time"`
	KineticEnergy  float64 `json:"kinetic_energy"`
	InternalEnergy float64 `json:"internal_energy"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run       TraceRun     `json:"run"`
	Timeline  []TraceEvent `json:"timeline"`
	Snapshots []uint64     `json:"snapshots"`
	Stats     TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Shown      int     `json:"shown"`
	Stored     int     `json:"stored"`
	DeltaKE    float64 `json:"delta_ke"`
	IsComplete bool    `json:"is_complete"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Query the event log of a run",
		Long: `Query the events a run recorded in a SQLite event log.

Without --run, lists the runs stored in the database. With --run, shows
the run summary, its executed events in order and the events at which
snapshots were stored.

Examples:
  edmd trace --db ./edmd.db
  edmd trace --db ./edmd.db --run 01923c4e-...
  edmd trace --db ./edmd.db --run 01923c4e-... --type CORE --limit 20
  edmd trace --db ./edmd.db --run 01923c4e-... --after 1000 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to trace")
	cmd.Flags().StringVar(&opts.Type, "type", "", "filter to one event type (e.g. CORE, WALL)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of events to show")
	cmd.Flags().Uint64Var(&opts.After, "after", 0, "show only events after this seq")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	filter := store.EventFilter{AfterSeq: opts.After, Limit: opts.Limit}
	if opts.Type != "" {
		typ, err := model.ParseEventType(strings.ToUpper(opts.Type))
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --type", err)
		}
		filter.Type = typ.String()
	}
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "--limit must be non-negative")
	}

	// Open database
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		return outputRuns(cmd, opts, runs)
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrNotFound) {
		return WrapExitError(ExitCommandError, "run not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	events, err := st.ReadEvents(ctx, run.ID, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}
	stored, err := st.CountEvents(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count events", err)
	}
	seqs, err := st.SnapshotSeqs(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read snapshots", err)
	}

	result := TraceResult{
		Run:       traceRun(run),
		Timeline:  buildTimeline(events),
		Snapshots: seqs,
		Stats: TraceStats{
			Shown:      len(events),
			Stored:     stored,
			IsComplete: run.Status == "completed",
		},
	}
	for _, ev := range events {
		result.Stats.DeltaKE += ev.DeltaKE
	}

	// Output results
	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd).Respond(result, run.ID)
	}

	return outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
}

func traceRun(run store.Run) TraceRun {
	return TraceRun{
		ID:             run.ID,
		Status:         run.Status,
		Format:         run.Format,
		ConfigHash:     run.ConfigHash,
		Particles:      run.Particles,
		Events:         run.Events,
		EndTime:        run.EndTime,
		KineticEnergy:  run.KineticEnergy,
		InternalEnergy: run.InternalEnergy,
	}
}

// buildTimeline converts stored events to trace timeline events.
func buildTimeline(events []store.Event) []TraceEvent {
	timeline := make([]TraceEvent, 0, len(events))
	for _, ev := range events {
		timeline = append(timeline, TraceEvent{
			Seq:       ev.Seq,
			Time:      ev.Time,
			Dt:        ev.Dt,
			Type:      ev.Type,
			Source:    ev.Source,
			SourceID:  ev.SourceID,
			Particle1: ev.Particle1,
			Particle2: ev.Particle2,
			DeltaKE:   ev.DeltaKE,
			DeltaU:    ev.DeltaU,
		})
	}
	return timeline
}

func outputRuns(cmd *cobra.Command, opts *TraceOptions, runs []store.Run) error {
	out := make([]TraceRun, len(runs))
	for i, run := range runs {
		out[i] = traceRun(run)
	}
	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd).Respond(out, "")
	}

	w := cmd.OutOrStdout()
	if len(out) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return nil
	}
	fmt.Fprintln(w, "=== Runs ===")
	for _, r := range out {
		fmt.Fprintf(w, "  %s  %-10s n=%d events=%d t=%g\n", r.ID, r.Status, r.Particles, r.Events, r.EndTime)
	}
	return nil
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	run := result.Run
	fmt.Fprintf(w, "Trace for Run: %s\n", run.ID)
	fmt.Fprintf(w, "Status: %s\n", run.Status)
	fmt.Fprintf(w, "Config: %s %s\n", run.Format, truncateID(run.ConfigHash))
	fmt.Fprintln(w)

	// Timeline section
	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	} else {
		for _, event := range result.Timeline {
			formatTimelineEvent(w, event, verbose)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Snapshots ===")
	if len(result.Snapshots) == 0 {
		fmt.Fprintln(w, "  (no snapshots)")
	} else {
		parts := make([]string, len(result.Snapshots))
		for i, seq := range result.Snapshots {
			parts[i] = fmt.Sprintf("#%d", seq)
		}
		fmt.Fprintf(w, "  %s\n", strings.Join(parts, " "))
	}
	fmt.Fprintln(w)

	// Stats section
	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Events shown:    %d of %d\n", result.Stats.Shown, result.Stats.Stored)
	fmt.Fprintf(w, "  Particles:       %d\n", run.Particles)
	fmt.Fprintf(w, "  End time:        %g\n", run.EndTime)
	fmt.Fprintf(w, "  Kinetic energy:  %g\n", run.KineticEnergy)
	fmt.Fprintf(w, "  Internal energy: %g\n", run.InternalEnergy)
	fmt.Fprintf(w, "  Shown delta KE:  %g\n", result.Stats.DeltaKE)

	return nil
}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w io.Writer, event TraceEvent, verbose bool) {
	if event.Particle2 != model.NoPartner {
		fmt.Fprintf(w, "  [%d] t=%-12g %-11s p%d-p%d\n", event.Seq, event.Time, event.Type, event.Particle1, event.Particle2)
	} else if event.Particle1 != model.NoPartner {
		fmt.Fprintf(w, "  [%d] t=%-12g %-11s p%d\n", event.Seq, event.Time, event.Type, event.Particle1)
	} else {
		fmt.Fprintf(w, "  [%d] t=%-12g %s\n", event.Seq, event.Time, event.Type)
	}
	if verbose {
		fmt.Fprintf(w, "       source=%s#%d dt=%g dKE=%g dU=%g\n", event.Source, event.SourceID, event.Dt, event.DeltaKE, event.DeltaU)
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
