package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes a config placeholder and a scenario into a temp dir
// and returns the scenario path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sim.yaml"), []byte("name: placeholder\n"), 0644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
config: sim.yaml
budget:
  events: 10
assertions:
  - type: trace_contains
    event: CORE
    particles: [0, 1]
    time: 1.5
    tolerance: 1e-6
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "sim.yaml"), scenario.Config)
	assert.Equal(t, uint64(10), scenario.Budget.Events)
	require.Len(t, scenario.Assertions, 1)
	a := scenario.Assertions[0]
	assert.Equal(t, "CORE", a.Event)
	assert.Equal(t, []int{0, 1}, a.Particles)
	require.NotNil(t, a.Time)
	assert.Equal(t, 1.5, *a.Time)
	assert.Equal(t, 1e-6, a.tolerance())
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	path := writeScenario(t, `
name: based
description: "Config resolved against the base path"
config: sim.yaml
assertions:
  - type: energy_conserved
`)

	scenario, err := LoadScenarioWithBasePath(path, filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, DefaultTolerance, scenario.Assertions[0].tolerance())

	_, err = LoadScenarioWithBasePath(path, t.TempDir())
	require.Error(t, err)
	var notFound *ConfigNotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.Equal(t, "based", notFound.Scenario)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "Misspelled assertions key"
config: sim.yaml
assertion:
  - type: energy_conserved
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: "x"
config: sim.yaml
assertions:
  - type: energy_conserved
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: x
config: sim.yaml
assertions:
  - type: energy_conserved
`,
			wantErr: "description is required",
		},
		{
			name: "missing config",
			content: `
name: x
description: "x"
assertions:
  - type: energy_conserved
`,
			wantErr: "config is required",
		},
		{
			name: "no assertions",
			content: `
name: x
description: "x"
config: sim.yaml
`,
			wantErr: "assertions list is required",
		},
		{
			name: "unknown assertion",
			content: `
name: x
description: "x"
config: sim.yaml
assertions:
  - type: trace_exists
`,
			wantErr: `unknown assertion type "trace_exists"`,
		},
		{
			name: "trace_contains without event",
			content: `
name: x
description: "x"
config: sim.yaml
assertions:
  - type: trace_contains
`,
			wantErr: "event is required for trace_contains",
		},
		{
			name: "trace_contains with three particles",
			content: `
name: x
description: "x"
config: sim.yaml
assertions:
  - type: trace_contains
    event: CORE
    particles: [0, 1, 2]
`,
			wantErr: "at most two particles",
		},
		{
			name: "trace_order without events",
			content: `
name: x
description: "x"
config: sim.yaml
assertions:
  - type: trace_order
`,
			wantErr: "events list is required",
		},
		{
			name: "negative count",
			content: `
name: x
description: "x"
config: sim.yaml
assertions:
  - type: trace_count
    event: CORE
    count: -1
`,
			wantErr: "count must be non-negative",
		},
		{
			name: "final_state without expect",
			content: `
name: x
description: "x"
config: sim.yaml
assertions:
  - type: final_state
    table: runs
`,
			wantErr: "expect is required for final_state",
		},
		{
			name: "particle_state without particle",
			content: `
name: x
description: "x"
config: sim.yaml
assertions:
  - type: particle_state
    position: [0, 0, 0]
`,
			wantErr: "particle is required",
		},
		{
			name: "particle_state with short vector",
			content: `
name: x
description: "x"
config: sim.yaml
assertions:
  - type: particle_state
    particle: 0
    velocity: [1, 0]
`,
			wantErr: "three components",
		},
		{
			name: "status without value",
			content: `
name: x
description: "x"
config: sim.yaml
assertions:
  - type: status
`,
			wantErr: "status is required",
		},
		{
			name: "negative tolerance",
			content: `
name: x
description: "x"
config: sim.yaml
assertions:
  - type: energy_conserved
    tolerance: -1
`,
			wantErr: "tolerance must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestScenario_ExpectsStatus(t *testing.T) {
	s := &Scenario{Assertions: []Assertion{
		{Type: AssertEnergyConserved},
		{Type: AssertStatus, Status: "faulted"},
	}}
	assert.True(t, s.expectsStatus("faulted"))
	assert.False(t, s.expectsStatus("completed"))
}

func TestBudget_Options(t *testing.T) {
	assert.Empty(t, Budget{}.options())
	assert.Len(t, Budget{Events: 5}.options(), 1)
	assert.Len(t, Budget{Events: 5, Time: 2}.options(), 2)
}
