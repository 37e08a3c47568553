package engine

import (
	"maps"
	"slices"

	"github.com/roach88/edmd/internal/interaction"
	"github.com/roach88/edmd/internal/snapshot"
)

// Snapshot captures the particles, capture maps and clock at the current
// time. Event lists are not stored; LoadState predicts them again.
func (e *Engine) Snapshot() *snapshot.Snapshot {
	e.SyncParticles()
	s := &snapshot.Snapshot{
		Version:   snapshot.Version,
		RunID:     e.runID,
		Time:      e.env.Now(),
		Events:    e.EventCount(),
		Particles: make([]snapshot.Particle, len(e.particles)),
	}
	for i := range e.particles {
		s.Particles[i] = snapshot.FromParticle(&e.particles[i])
	}

	captures := make(map[string][]interaction.PairKey)
	for _, in := range e.interactions {
		if c, ok := in.(interaction.Capturing); ok {
			captures[in.Name()] = c.Captures().Pairs()
		}
	}
	if e.Status() == StatusUninitialised && e.pendingCaptures != nil {
		captures = e.pendingCaptures
	}
	for _, name := range slices.Sorted(maps.Keys(captures)) {
		c := snapshot.Capture{Interaction: name, Pairs: [][2]int{}}
		for _, k := range captures[name] {
			c.Pairs = append(c.Pairs, [2]int{k.Lo, k.Hi})
		}
		s.Captures = append(s.Captures, c)
	}
	return s
}

// LoadState replaces the particles, clock and capture maps with those of s.
// The engine must be Uninitialised and configured for the same number of
// particles; Initialise then rebuilds the index and the event list.
func (e *Engine) LoadState(s *snapshot.Snapshot) error {
	if st := e.Status(); st != StatusUninitialised {
		return newStateError("load state", st)
	}
	if s.Version != snapshot.Version {
		return newSnapshotMismatch(e.Status(), "snapshot version %d, want %d", s.Version, snapshot.Version)
	}
	if len(s.Particles) != len(e.particles) {
		return newSnapshotMismatch(e.Status(), "snapshot holds %d particles, engine has %d", len(s.Particles), len(e.particles))
	}

	e.particles = s.Models()
	e.env.Dynamics.SetTime(s.Time)
	e.clock = NewClockAt(int64(s.Events))
	if e.runID == "" {
		e.runID = s.RunID
	}
	e.pendingCaptures = make(map[string][]interaction.PairKey, len(s.Captures))
	for _, c := range s.Captures {
		keys := make([]interaction.PairKey, len(c.Pairs))
		for i, pr := range c.Pairs {
			keys[i] = interaction.MakePairKey(pr[0], pr[1])
		}
		e.pendingCaptures[c.Interaction] = keys
	}
	e.logger.Info("state loaded", "run", s.RunID, "particles", len(s.Particles), "time", s.Time, "events", s.Events)
	return nil
}
