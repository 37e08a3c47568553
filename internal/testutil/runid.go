package testutil

// FixedRunID generates the same run ID every time.
//
// This enables deterministic test execution and golden trace comparison.
// The same scenario with the same FixedRunID produces byte-identical event
// logs.
//
// Unlike engine.FixedGenerator which returns IDs in sequence, this
// generator always returns the same ID, so a scenario may be run any
// number of times.
//
// Thread-safety: FixedRunID is stateless and safe for concurrent use.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a new fixed run ID generator.
//
// If id is empty, Generate() returns "test-run-default".
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed run ID.
//
// Implements engine.RunIDGenerator interface.
func (g *FixedRunID) Generate() string {
	return g.id
}
