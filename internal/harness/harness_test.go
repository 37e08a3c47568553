package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edmd/internal/engine"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
	require.NoError(t, err)
	return scenario
}

func TestRun_Scenarios(t *testing.T) {
	for _, name := range []string{"head_on", "wall_bounce"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(context.Background(), loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
			assert.Empty(t, result.RunError)
			assert.Equal(t, engine.StatusCompleted, result.Final.Status)
			require.Len(t, result.Trace, 1)
		})
	}
}

func TestRun_HeadOnTrace(t *testing.T) {
	result, err := Run(context.Background(), loadTestScenario(t, "head_on"))
	require.NoError(t, err)

	ev := result.Trace[0]
	assert.Equal(t, uint64(1), ev.Seq)
	assert.Equal(t, "CORE", ev.Type)
	assert.Equal(t, "interaction", ev.Source)
	assert.InDelta(t, 1.5, ev.Time, 1e-12)
	assert.InDelta(t, 1.5, ev.Dt, 1e-12)
	assert.True(t, ev.Pair())
	assert.InDelta(t, 0, ev.DeltaKE, 1e-12)
	assert.Equal(t, "test-run-default", result.Final.RunID)
	assert.InDelta(t, 5, result.Final.Time, 1e-12)
}

func TestRun_BudgetOverride(t *testing.T) {
	scenario := loadTestScenario(t, "head_on")
	scenario.Budget = Budget{Time: 1}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.Empty(t, result.Trace)
	assert.False(t, result.Pass)
	assert.NotEmpty(t, result.Errors)
	require.Len(t, result.Particles, 2)
	assert.InDelta(t, 1, result.Particles[0].Position[0], 1e-12)
}

func TestRun_FailingAssertion(t *testing.T) {
	scenario := loadTestScenario(t, "wall_bounce")
	scenario.Assertions = []Assertion{
		{Type: AssertTraceCount, Event: "WALL", Count: 2},
		{Type: AssertStatus, Status: "completed"},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "2 occurrences of WALL")
}

func TestRun_MissingConfig(t *testing.T) {
	scenario := &Scenario{
		Name:        "missing",
		Description: "config file does not exist",
		Config:      "testdata/configs/missing.yaml",
		Assertions:  []Assertion{{Type: AssertEnergyConserved}},
	}

	_, err := Run(context.Background(), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRun_Deterministic(t *testing.T) {
	scenario := loadTestScenario(t, "wall_bounce")

	first, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	second, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.Final, second.Final)
}
