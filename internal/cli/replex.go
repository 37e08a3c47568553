package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/edmd/internal/config"
	"github.com/roach88/edmd/internal/engine"
	"github.com/roach88/edmd/internal/replex"
)

// ReplexOptions holds flags for the replex command.
type ReplexOptions struct {
	*RootOptions
	Temperatures []float64
	Rounds       int
	Interval     float64
	Workers      int
	Seed         uint64
}

// ReplexResult is the outcome of a replica exchange run.
type ReplexResult struct {
	Rounds int          `json:"rounds"`
	Slots  []ReplexSlot `json:"slots"`
	Pairs  []ReplexPair `json:"pairs"`
	Error  string       `json:"error,omitempty"`
}

// ReplexSlot summarises one temperature of the ladder.
type ReplexSlot struct {
	Temperature float64 `json:"temperature"`
	Replica     int     `json:"replica"`
	Events      uint64  `json:"events"`
	EnergyMean  float64 `json:"energy_mean"`
	EnergyStd   float64 `json:"energy_std"`
}

// ReplexPair holds the exchange statistics of neighbouring temperatures.
type ReplexPair struct {
	Low        float64 `json:"low"`
	High       float64 `json:"high"`
	Attempts   uint64  `json:"attempts"`
	Accepts    uint64  `json:"accepts"`
	Acceptance float64 `json:"acceptance"`
}

// NewReplexCommand creates the replex command.
func NewReplexCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplexOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replex <config>",
		Short: "Run replica exchange over a temperature ladder",
		Long: `Build one replica of the configuration per temperature, advance them
concurrently for --interval time units per round and attempt Metropolis
swaps between neighbouring temperatures after every round. Replica i is
built with seed+i.

Exit codes:
  0 - All rounds completed
  1 - A replica faulted
  2 - Command error (invalid config or flags)

Examples:
  edmd replex wells.yaml --temps 1,1.5,2 --rounds 50 --interval 5
  edmd replex wells.yaml --temps 0.8,1,1.25,1.6 --workers 2 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplex(opts, args[0], cmd)
		},
	}

	cmd.Flags().Float64SliceVar(&opts.Temperatures, "temps", nil, "temperature ladder (required)")
	_ = cmd.MarkFlagRequired("temps")
	cmd.Flags().IntVar(&opts.Rounds, "rounds", 10, "number of exchange rounds")
	cmd.Flags().Float64Var(&opts.Interval, "interval", 1, "simulation time between exchanges")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "replicas advancing at once (default GOMAXPROCS)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 1, "seed of the acceptance draws")

	return cmd
}

func runReplex(opts *ReplexOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := formatter.Logger()

	if opts.Rounds < 0 {
		return NewExitError(ExitCommandError, "--rounds must be non-negative")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	factory := func(i int, engOpts ...engine.Option) (*engine.Engine, error) {
		c := *cfg
		c.Seed += uint64(i)
		return config.Build(&c, engOpts...)
	}
	xopts := []replex.Option{
		replex.WithSeed(opts.Seed),
		replex.WithLogger(logger),
		replex.WithRunID(engine.UUIDv7Generator{}.Generate()),
	}
	if opts.Workers > 0 {
		xopts = append(xopts, replex.WithWorkers(opts.Workers))
	}
	x, err := replex.New(opts.Temperatures, opts.Interval, factory, xopts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build replicas", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping exchange", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := x.Run(ctx, opts.Rounds)
	if runErr != nil && ctx.Err() != nil {
		// Interrupted: report the rounds done.
		runErr = nil
	}
	result := buildReplexResult(x.Report())
	if runErr != nil {
		result.Error = runErr.Error()
	}

	var exit *ExitError
	if runErr != nil {
		exit = WrapExitError(ExitFailure, "replica exchange failed", runErr)
	}
	switch {
	case formatter.JSON() && exit != nil:
		return formatter.Fail("E_FAULTED", result, "", exit)
	case formatter.JSON():
		return formatter.Respond(result, "")
	}
	outputReplexText(formatter.Writer, result)
	if exit != nil {
		return exit
	}
	return nil
}

func buildReplexResult(r replex.Report) ReplexResult {
	result := ReplexResult{Rounds: r.Rounds}
	for _, s := range r.Slots {
		result.Slots = append(result.Slots, ReplexSlot{
			Temperature: s.Temperature,
			Replica:     s.Replica,
			Events:      s.Events,
			EnergyMean:  s.EnergyMean,
			EnergyStd:   s.EnergyStd,
		})
	}
	for k := range r.Attempts {
		result.Pairs = append(result.Pairs, ReplexPair{
			Low:        r.Slots[k].Temperature,
			High:       r.Slots[k+1].Temperature,
			Attempts:   r.Attempts[k],
			Accepts:    r.Accepts[k],
			Acceptance: r.Acceptance[k],
		})
	}
	return result
}

func outputReplexText(w io.Writer, r ReplexResult) {
	fmt.Fprintf(w, "Replica exchange: %d round(s)\n", r.Rounds)
	if r.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", r.Error)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Ladder ===")
	for _, s := range r.Slots {
		fmt.Fprintf(w, "  T=%-8g replica %-3d events=%-10d E=%g ± %g\n", s.Temperature, s.Replica, s.Events, s.EnergyMean, s.EnergyStd)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Exchanges ===")
	for _, p := range r.Pairs {
		fmt.Fprintf(w, "  %g <-> %g: %d/%d accepted (%.2f)\n", p.Low, p.High, p.Accepts, p.Attempts, p.Acceptance)
	}
}
