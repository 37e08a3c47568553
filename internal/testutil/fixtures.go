// Package testutil provides fixtures shared by the package tests: quiet
// loggers, environments, particle arrangements and ready engines.
package testutil

import (
	"io"
	"log/slog"

	"golang.org/x/exp/rand"

	"github.com/roach88/edmd/internal/boundary"
	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/physics"
)

// QuietLogger discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OpenEnv is Newtonian dynamics in an open box of side l.
func OpenEnv(l float64) *physics.Env {
	return physics.NewEnv(&physics.Newtonian{}, boundary.None{Size: model.Vector{l, l, l}})
}

// PeriodicEnv is Newtonian dynamics in a periodic cube of side l.
func PeriodicEnv(l float64) *physics.Env {
	return physics.NewEnv(&physics.Newtonian{}, boundary.Periodic{Size: model.Vector{l, l, l}})
}

// HeadOn returns two unit spheres 4 apart on the x axis closing at unit
// speed each. With diameter 1 they touch at t = 1.5.
func HeadOn() []model.Particle {
	return []model.Particle{
		model.NewParticle(0, model.Vector{0, 0, 0}, model.Vector{1, 0, 0}),
		model.NewParticle(1, model.Vector{4, 0, 0}, model.Vector{-1, 0, 0}),
	}
}

// Lattice places side^3 particles on a simple cubic lattice of the given
// spacing centred on the origin, with Gaussian velocities drawn from seed.
func Lattice(side int, spacing float64, seed uint64) []model.Particle {
	rng := rand.New(rand.NewSource(seed))
	ps := make([]model.Particle, 0, side*side*side)
	off := 0.5 * spacing * float64(side-1)
	for z := 0; z < side; z++ {
		for y := 0; y < side; y++ {
			for x := 0; x < side; x++ {
				pos := model.Vector{float64(x)*spacing - off, float64(y)*spacing - off, float64(z)*spacing - off}
				vel := model.Vector{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
				ps = append(ps, model.NewParticle(len(ps), pos, vel))
			}
		}
	}
	return ps
}
