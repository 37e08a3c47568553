package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edmd/internal/engine"
	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/store"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, Time: 0.5, Dt: 0.5, Type: "WALL", Source: "local", Particle1: 2, Particle2: model.NoPartner},
		{Seq: 2, Time: 1.5, Dt: 1.0, Type: "CORE", Source: "interaction", Particle1: 0, Particle2: 1},
		{Seq: 3, Time: 2.0, Dt: 0.5, Type: "TICK", Source: "system", Particle1: model.NoPartner, Particle2: model.NoPartner},
		{Seq: 4, Time: 2.5, Dt: 0.5, Type: "CORE", Source: "interaction", Particle1: 1, Particle2: 2},
	}
}

func ptr[T any](v T) *T { return &v }

func TestAssertTraceContains(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		found     bool
	}{
		{"type only", Assertion{Event: "CORE"}, true},
		{"pair in order", Assertion{Event: "CORE", Particles: []int{0, 1}}, true},
		{"pair reversed", Assertion{Event: "CORE", Particles: []int{2, 1}}, true},
		{"pair absent", Assertion{Event: "CORE", Particles: []int{0, 2}}, false},
		{"single particle", Assertion{Event: "WALL", Particles: []int{2}}, true},
		{"single does not match pair", Assertion{Event: "CORE", Particles: []int{0}}, false},
		{"time within tolerance", Assertion{Event: "CORE", Time: ptr(1.5 + 1e-12)}, true},
		{"time outside tolerance", Assertion{Event: "CORE", Time: ptr(1.6)}, false},
		{"time with wide tolerance", Assertion{Event: "CORE", Time: ptr(1.6), Tolerance: 0.2}, true},
		{"missing type", Assertion{Event: "BOUNCE"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.assertion.Type = AssertTraceContains
			err := assertTraceContains(sampleTrace(), tt.assertion)
			if tt.found {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var assertErr *AssertionError
			require.ErrorAs(t, err, &assertErr)
			assert.Equal(t, AssertTraceContains, assertErr.Type)
			assert.Equal(t, "not found in trace", assertErr.Actual)
		})
	}
}

func TestAssertTraceOrder(t *testing.T) {
	assert.NoError(t, assertTraceOrder(sampleTrace(), Assertion{Events: []string{"WALL", "CORE", "TICK"}}))

	err := assertTraceOrder(sampleTrace(), Assertion{Events: []string{"TICK", "CORE"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TICK (pos 3) should be before CORE (pos 2)")

	err = assertTraceOrder(sampleTrace(), Assertion{Events: []string{"CORE", "STEP_IN"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing event: STEP_IN")
}

func TestAssertTraceCount(t *testing.T) {
	assert.NoError(t, assertTraceCount(sampleTrace(), Assertion{Event: "CORE", Count: 2}))
	assert.NoError(t, assertTraceCount(sampleTrace(), Assertion{Event: "CORE", Particles: []int{1, 2}, Count: 1}))
	assert.NoError(t, assertTraceCount(sampleTrace(), Assertion{Event: "BOUNCE", Count: 0}))

	err := assertTraceCount(sampleTrace(), Assertion{Event: "WALL", Count: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 occurrences of WALL")
	assert.Contains(t, err.Error(), "Actual: 1 occurrences")
}

func TestAssertionError_TruncatesTrace(t *testing.T) {
	trace := make([]TraceEvent, maxTraceShown+5)
	for i := range trace {
		trace[i] = TraceEvent{Seq: uint64(i + 1), Type: "CORE", Particle1: 0, Particle2: 1}
	}
	msg := (&AssertionError{Type: AssertTraceCount, Expected: "x", Actual: "y", Trace: trace}).Error()
	assert.Contains(t, msg, "p0-p1")
	assert.Contains(t, msg, "... 5 more")
}

func TestAssertParticleState(t *testing.T) {
	result := NewResult()
	result.Particles = []model.Particle{
		model.NewParticle(0, model.Vector{1, 2, 3}, model.Vector{0, 0, -1}),
	}

	assert.NoError(t, assertParticleState(result, Assertion{Particle: ptr(0), Position: []float64{1, 2, 3}}))
	assert.NoError(t, assertParticleState(result, Assertion{Particle: ptr(0), Velocity: []float64{0, 0, -1}}))

	err := assertParticleState(result, Assertion{Particle: ptr(0), Velocity: []float64{0, 0, 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "velocity")

	err = assertParticleState(result, Assertion{Particle: ptr(3), Position: []float64{0, 0, 0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run has 1 particles")
}

func TestAssertEnergyConserved(t *testing.T) {
	result := NewResult()
	result.Initial = engine.Summary{KineticEnergy: 1.5, InternalEnergy: -1}
	result.Final = engine.Summary{KineticEnergy: 2.5, InternalEnergy: -2}
	assert.NoError(t, assertEnergyConserved(result, Assertion{}))

	result.Final.KineticEnergy = 2.6
	err := assertEnergyConserved(result, Assertion{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drift")
	assert.NoError(t, assertEnergyConserved(result, Assertion{Tolerance: 0.2}))
}

func TestAssertStatus(t *testing.T) {
	result := NewResult()
	result.Final.Status = engine.StatusFaulted
	result.RunError = "boom"

	assert.NoError(t, assertStatus(result, Assertion{Status: "faulted"}))
	err := assertStatus(result, Assertion{Status: "completed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "faulted: boom")
}

func TestAssertNoOverlaps(t *testing.T) {
	result := NewResult()
	assert.NoError(t, assertNoOverlaps(result))

	p0 := model.NewParticle(0, model.Vector{0, 0, 0}, model.Vector{})
	p1 := model.NewParticle(1, model.Vector{0.8, 0, 0}, model.Vector{})
	result.Violations = []error{model.NewOverlapViolation("core", 0.2, &p0, &p1)}
	err := assertNoOverlaps(result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 overlaps")
}

func TestBuildWhereClause(t *testing.T) {
	sql, args, err := buildWhereClause(map[string]interface{}{"seq": 1, "run_id": "r"})
	require.NoError(t, err)
	assert.Equal(t, "run_id = ? AND seq = ?", sql)
	assert.Equal(t, []interface{}{"r", int64(1)}, args)

	_, _, err = buildWhereClause(map[string]interface{}{"id; DROP TABLE runs": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid column name")

	sql, args, err = buildWhereClause(nil)
	require.NoError(t, err)
	assert.Empty(t, sql)
	assert.Nil(t, args)
}

func TestStateValuesEqual(t *testing.T) {
	tests := []struct {
		name     string
		expected interface{}
		actual   interface{}
		equal    bool
	}{
		{"strings", "completed", "completed", true},
		{"string and bytes", "completed", []byte("completed"), true},
		{"different strings", "completed", "halted", false},
		{"int and int64", 3, int64(3), true},
		{"int and real", 3, 3.0, true},
		{"float within tolerance", 1.0, 1.0 + 1e-12, true},
		{"float outside tolerance", 1.0, 1.1, false},
		{"float and integer column", 2.0, int64(2), true},
		{"bool stored as integer", true, int64(1), true},
		{"bool mismatch", false, int64(1), false},
		{"nil and nil", nil, nil, true},
		{"nil and value", nil, "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, stateValuesEqual(tt.expected, tt.actual, DefaultTolerance))
		})
	}
}

func TestAssertFinalState(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.WriteRun(ctx, store.Run{ID: "r1", Config: "name: x", ConfigHash: "h", Particles: 4}))
	require.NoError(t, st.WriteRun(ctx, store.Run{ID: "r2", Config: "name: y", ConfigHash: "h", Particles: 4}))

	err = assertFinalState(ctx, st, Assertion{Table: "runs", Where: map[string]interface{}{"id": "r1"}, Expect: map[string]interface{}{"particles": 4, "status": "initialised"}})
	assert.NoError(t, err)

	err = assertFinalState(ctx, st, Assertion{Table: "runs", Where: map[string]interface{}{"id": "r1"}, Expect: map[string]interface{}{"particles": 5}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "particles" = 5`)

	err = assertFinalState(ctx, st, Assertion{Table: "runs", Where: map[string]interface{}{"config_hash": "h"}, Expect: map[string]interface{}{"particles": 4}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple rows matched")

	err = assertFinalState(ctx, st, Assertion{Table: "runs", Where: map[string]interface{}{"id": "r3"}, Expect: map[string]interface{}{"particles": 4}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row not found")

	err = assertFinalState(ctx, st, Assertion{Table: "runs", Where: map[string]interface{}{"id": "r1"}, Expect: map[string]interface{}{"colour": "red"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "colour" not present`)

	err = assertFinalState(ctx, st, Assertion{Table: "runs; DROP TABLE runs", Expect: map[string]interface{}{"id": "r1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")
}

func TestEvaluateAssertions_FinalStateNeedsStore(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertFinalState, Table: "runs", Expect: map[string]interface{}{"id": "x"}}}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "requires database context")
}
