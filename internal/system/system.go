// Package system implements events that belong to the whole simulation
// rather than to a particle: periodic ticks, thermostats, velocity
// rescaling and the cell regrid needed under compression.
//
// A system schedules itself by absolute time. After any system event the
// engine asks every system for its next event again, so a system only has
// to keep its own next firing time current.
package system

import (
	"log/slog"
	"math"

	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/physics"
)

// Sim is the part of the engine a system acts through.
type Sim interface {
	Env() *physics.Env
	Particles() []model.Particle
	Logger() *slog.Logger

	// EventCount is the number of events executed so far.
	EventCount() uint64

	// MaxRange is the largest unscaled interaction distance.
	MaxRange() float64

	// MaxSupported is the largest interaction distance the spatial index
	// currently finds every pair for.
	MaxSupported() float64

	// Reindex rebuilds the spatial index for interactions reaching cutoff
	// and re-predicts every event.
	Reindex(cutoff float64) error
}

// System is one simulation-wide event source.
type System interface {
	Name() string

	// Type is the event type the system produces.
	Type() model.EventType

	// Check verifies the system can run under the configured dynamics.
	Check(s Sim) error

	// Initialise schedules the first event.
	Initialise(s Sim) error

	// Next returns the time from now until the next event, or +Inf.
	Next(s Sim) float64

	// Run executes the event due now and schedules the following one.
	// Particles in the returned record get a full update.
	Run(s Sim) (model.NEventData, error)
}

var never = math.Inf(1)

// until converts an absolute firing time into a time from now.
func until(s Sim, at float64) float64 {
	if math.IsInf(at, 1) {
		return never
	}
	return math.Max(at-s.Env().Now(), 0)
}
