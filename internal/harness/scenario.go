package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/edmd/internal/engine"
)

// Scenario defines a simulation test scenario: a configuration, an
// optional budget override and assertions over the executed events and
// the final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is the path of the simulation configuration, YAML or CUE.
	// Relative paths are resolved against the scenario's base path.
	Config string `yaml:"config"`

	// Budget overrides the configuration's budget when non-zero.
	Budget Budget `yaml:"budget,omitempty"`

	// Assertions validate the trace and final state.
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed run ID.
	// If empty, defaults to "test-run-default" for deterministic golden file comparison.
	RunID string `yaml:"run_id,omitempty"`
}

// Budget bounds a scenario run. Zero fields keep the configured value.
type Budget struct {
	Events uint64  `yaml:"events,omitempty"`
	Time   float64 `yaml:"time,omitempty"`
}

func (b Budget) options() []engine.Option {
	var opts []engine.Option
	if b.Events > 0 {
		opts = append(opts, engine.WithEventBudget(b.Events))
	}
	if b.Time > 0 {
		opts = append(opts, engine.WithTimeBudget(b.Time))
	}
	return opts
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an event of Event type, optionally between
	//   Particles and at Time, appears in the trace
	// - "trace_order": first occurrences of Events appear in order
	// - "trace_count": Event appears exactly Count times
	// - "final_state": query a store table and verify expected values
	// - "particle_state": Particle ends at Position with Velocity
	// - "energy_conserved": total energy changed by at most Tolerance
	// - "status": the run ended with Status
	// - "no_overlaps": no pair or wall overlap at the end
	Type string `yaml:"type"`

	// Event is the event type name, e.g. CORE or WALL.
	Event string `yaml:"event,omitempty"`

	// Events is the expected event type order (used by trace_order).
	Events []string `yaml:"events,omitempty"`

	// Particles restricts trace_contains to events of these particles, in
	// any order.
	Particles []int `yaml:"particles,omitempty"`

	// Time is the expected event time (used by trace_contains).
	Time *float64 `yaml:"time,omitempty"`

	// Tolerance is the absolute tolerance of time, position, velocity and
	// energy comparisons. Default: DefaultTolerance.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Table is the store table name (used by final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (used by final_state).
	// All fields must match exactly.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected field values (used by final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Particle, Position and Velocity are used by particle_state.
	Particle *int      `yaml:"particle,omitempty"`
	Position []float64 `yaml:"position,omitempty"`
	Velocity []float64 `yaml:"velocity,omitempty"`

	// Status is the expected final engine status (used by status).
	Status string `yaml:"status,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains   = "trace_contains"
	AssertTraceOrder      = "trace_order"
	AssertTraceCount      = "trace_count"
	AssertFinalState      = "final_state"
	AssertParticleState   = "particle_state"
	AssertEnergyConserved = "energy_conserved"
	AssertStatus          = "status"
	AssertNoOverlaps      = "no_overlaps"
)

// DefaultTolerance is the comparison tolerance when an assertion names none.
const DefaultTolerance = 1e-9

func (a *Assertion) tolerance() float64 {
	if a.Tolerance > 0 {
		return a.Tolerance
	}
	return DefaultTolerance
}

// LoadScenario reads and parses a scenario YAML file. The configuration
// path is resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the configuration path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the config path BEFORE validation
	if scenario.Config != "" && !filepath.IsAbs(scenario.Config) && basePath != "" {
		scenario.Config = filepath.Join(basePath, scenario.Config)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Config == "" {
		return fmt.Errorf("config is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Budget.Time < 0 {
		return fmt.Errorf("budget.time must be non-negative")
	}

	if _, err := os.Stat(s.Config); os.IsNotExist(err) {
		return &ConfigNotFoundError{Scenario: s.Name, Path: s.Config}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Tolerance < 0 {
		return fmt.Errorf("assertions[%d]: tolerance must be non-negative", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
		if len(a.Particles) > 2 {
			return fmt.Errorf("assertions[%d]: at most two particles for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertParticleState:
		if a.Particle == nil {
			return fmt.Errorf("assertions[%d]: particle is required for particle_state", index)
		}
		if a.Position == nil && a.Velocity == nil {
			return fmt.Errorf("assertions[%d]: position or velocity is required for particle_state", index)
		}
		if (a.Position != nil && len(a.Position) != 3) || (a.Velocity != nil && len(a.Velocity) != 3) {
			return fmt.Errorf("assertions[%d]: position and velocity need three components", index)
		}
	case AssertStatus:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for status", index)
		}
	case AssertEnergyConserved, AssertNoOverlaps:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// ConfigNotFoundError is returned when a scenario's configuration file
// doesn't exist.
type ConfigNotFoundError struct {
	Scenario string
	Path     string
}

// Error implements the error interface.
func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("scenario %q references config file which does not exist (resolved to: %s)", e.Scenario, e.Path)
}

// expectsStatus reports whether an assertion expects the run to end with
// status.
func (s *Scenario) expectsStatus(status string) bool {
	for _, a := range s.Assertions {
		if a.Type == AssertStatus && a.Status == status {
			return true
		}
	}
	return false
}
