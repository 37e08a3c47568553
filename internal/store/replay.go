package store

import (
	"fmt"
)

// Mismatch describes the first difference between two event logs.
type Mismatch struct {
	// Index is the position of the first differing event.
	Index int

	// Field names what differs: an event field, or "length".
	Field string

	Want, Got string
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("event %d: %s differs: want %s, got %s", m.Index, m.Field, m.Want, m.Got)
}

// CompareEvents checks that got reproduces want exactly, ignoring run IDs.
// It returns nil when the logs are identical.
//
// Floats are compared bit for bit: a deterministic replay produces the
// same doubles, so any difference is a real divergence.
func CompareEvents(want, got []Event) *Mismatch {
	for i := range min(len(want), len(got)) {
		w, g := want[i], got[i]
		fields := []struct {
			name string
			w, g any
		}{
			{"seq", w.Seq, g.Seq},
			{"time", w.Time, g.Time},
			{"dt", w.Dt, g.Dt},
			{"type", w.Type, g.Type},
			{"source", w.Source, g.Source},
			{"source_id", w.SourceID, g.SourceID},
			{"particle1", w.Particle1, g.Particle1},
			{"particle2", w.Particle2, g.Particle2},
			{"delta_ke", w.DeltaKE, g.DeltaKE},
			{"delta_u", w.DeltaU, g.DeltaU},
		}
		for _, f := range fields {
			if f.w != f.g {
				return &Mismatch{Index: i, Field: f.name, Want: fmt.Sprint(f.w), Got: fmt.Sprint(f.g)}
			}
		}
	}
	if len(want) != len(got) {
		return &Mismatch{Index: min(len(want), len(got)), Field: "length", Want: fmt.Sprint(len(want)), Got: fmt.Sprint(len(got))}
	}
	return nil
}
