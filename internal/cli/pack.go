package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/edmd/internal/config"
)

// PackOptions holds flags for the pack command.
type PackOptions struct {
	*RootOptions
	Lattice     string
	Cells       int
	Density     float64
	Temperature float64
	Seed        uint64
	Mass        float64
	Diameter    float64
	Output      string
}

// NewPackCommand creates the pack command.
func NewPackCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PackOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Generate a lattice configuration",
		Long: `Place particles on a simple cubic or face-centred cubic lattice in a
periodic box sized for the requested density, draw velocities at the
requested temperature and write the result as a YAML configuration with
a hard-sphere interaction.

Examples:
  edmd pack --lattice fcc --cells 4 --density 0.5 -o gas.yaml
  edmd pack --lattice sc --cells 8 --density 0.3 --temperature 2 --seed 7`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPack(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Lattice, "lattice", config.LatticeFCC, "lattice type (fcc|sc)")
	cmd.Flags().IntVar(&opts.Cells, "cells", 4, "unit cells per box edge")
	cmd.Flags().Float64Var(&opts.Density, "density", 0.5, "number density")
	cmd.Flags().Float64Var(&opts.Temperature, "temperature", 1, "kinetic temperature")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 1, "random seed")
	cmd.Flags().Float64Var(&opts.Mass, "mass", 1, "particle mass")
	cmd.Flags().Float64Var(&opts.Diameter, "diameter", 1, "hard-sphere diameter")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func runPack(opts *PackOptions, cmd *cobra.Command) error {
	temp := opts.Temperature
	c := &config.Config{
		Name:     fmt.Sprintf("%s-%d", opts.Lattice, opts.Cells),
		Seed:     opts.Seed,
		Boundary: "periodic",
		Species:  []config.Species{{Name: "bulk", Mass: opts.Mass}},
		Lattice: &config.Lattice{
			Type:        opts.Lattice,
			Cells:       opts.Cells,
			Density:     opts.Density,
			Temperature: &temp,
			Species:     "bulk",
		},
		Interactions: []config.Interaction{
			{Type: config.HardSphere, Name: "bulk", Diameter: opts.Diameter},
		},
	}

	// Validate the lattice request through the schema before packing.
	data, err := config.Marshal(c)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode config", err)
	}
	if _, err := config.Parse(data, config.FormatYAML, "pack"); err != nil {
		return WrapExitError(ExitCommandError, "invalid lattice", err)
	}

	expanded, err := config.Expand(c)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to pack lattice", err)
	}
	data, err = config.Marshal(expanded)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode config", err)
	}

	if opts.Output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(opts.Output, data, 0644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write config", err)
	}
	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd).Respond(map[string]any{
			"output":    opts.Output,
			"particles": len(expanded.Particles),
			"box":       expanded.Box,
		}, "")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Packed %d particles into %s\n", len(expanded.Particles), opts.Output)
	return nil
}
