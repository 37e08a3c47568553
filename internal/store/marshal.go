package store

import (
	"fmt"

	"github.com/roach88/edmd/internal/engine"
	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/snapshot"
)

// Run is one simulation run.
type Run struct {
	ID string

	// Config is the configuration text the run was built from, and
	// ConfigHash its content hash. Replay rebuilds the run from Config.
	Config     string
	ConfigHash string
	// Format is "yaml" or "cue".
	Format string

	Particles      int
	Status         string
	Events         uint64
	EndTime        float64
	KineticEnergy  float64
	InternalEnergy float64
}

// Event is one stored executed event.
type Event struct {
	RunID     string
	Seq       uint64
	Time      float64
	Dt        float64
	Type      string
	Source    string
	SourceID  int
	Particle1 int
	Particle2 int
	DeltaKE   float64
	DeltaU    float64
}

func (e Event) String() string {
	if e.Particle2 >= 0 {
		return fmt.Sprintf("#%d t=%g %s p%d-p%d", e.Seq, e.Time, e.Type, e.Particle1, e.Particle2)
	}
	return fmt.Sprintf("#%d t=%g %s p%d", e.Seq, e.Time, e.Type, e.Particle1)
}

// Snapshot is one stored canonical snapshot.
type Snapshot struct {
	RunID string
	Seq   uint64
	Time  float64
	Hash  string
	Data  []byte
}

// EventFromRecord converts an engine record for storage.
func EventFromRecord(runID string, r engine.Record) Event {
	return Event{
		RunID:     runID,
		Seq:       r.Seq,
		Time:      r.Time,
		Dt:        r.Dt,
		Type:      r.Event.Type.String(),
		Source:    r.Event.Source.String(),
		SourceID:  r.Event.SourceID,
		Particle1: r.Event.Particle1,
		Particle2: r.Event.Particle2,
		DeltaKE:   r.Data.DeltaKE(),
		DeltaU:    r.Data.DeltaU(),
	}
}

// SnapshotFromState encodes s canonically and hashes it.
func SnapshotFromState(s *snapshot.Snapshot) (Snapshot, error) {
	data, err := s.Encode()
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode snapshot: %w", err)
	}
	hash, err := s.Hash()
	if err != nil {
		return Snapshot{}, fmt.Errorf("hash snapshot: %w", err)
	}
	return Snapshot{RunID: s.RunID, Seq: s.Events, Time: s.Time, Hash: hash, Data: data}, nil
}

// State decodes the stored snapshot.
func (s Snapshot) State() (*snapshot.Snapshot, error) {
	st, err := snapshot.Decode(s.Data)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s@%d: %w", s.RunID, s.Seq, err)
	}
	return st, nil
}

// EventType parses the stored type name.
func (e Event) EventType() (model.EventType, error) {
	return model.ParseEventType(e.Type)
}
