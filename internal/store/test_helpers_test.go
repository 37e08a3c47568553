package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temporary directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun writes a run with minimal required fields.
func createTestRun(t *testing.T, s *Store, id string) Run {
	t.Helper()
	run := Run{
		ID:         id,
		Config:     "particles: []\n",
		ConfigHash: "test-hash",
		Particles:  2,
	}
	if err := s.WriteRun(context.Background(), run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	return run
}

// createTestEvents returns n pair events of run with increasing times.
func createTestEvents(runID string, n int) []Event {
	events := make([]Event, n)
	for i := range events {
		typ := "CORE"
		if i%3 == 2 {
			typ = "WALL"
		}
		events[i] = Event{
			RunID:     runID,
			Seq:       uint64(i + 1),
			Time:      0.1 * float64(i+1),
			Dt:        0.1,
			Type:      typ,
			Source:    "interaction",
			Particle1: i % 4,
			Particle2: (i + 1) % 4,
			DeltaKE:   0,
		}
	}
	return events
}
