package harness

import (
	"context"
	"math"
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/edmd/internal/snapshot"
)

// TraceSnapshot captures the complete trace for a scenario execution.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	RunID        string       `json:"run_id,omitempty"`
	Trace        []TraceEvent `json:"trace"`
}

// goldenDigits is the number of significant digits golden files keep.
// Last-bit differences between platforms stay below it.
const goldenDigits = 10

// decimal formats x for a golden file. Values within rounding of zero,
// including negative zero, are written as "0".
func decimal(x float64) snapshot.String {
	if math.Abs(x) < 1e-12 {
		return "0"
	}
	return snapshot.String(strconv.FormatFloat(x, 'g', goldenDigits, 64))
}

// toCanonical converts a TraceSnapshot to a canonical value. Floats are
// rounded decimal strings rather than the exact hexadecimal encoding.
func (s *TraceSnapshot) toCanonical() snapshot.Value {
	trace := make(snapshot.Array, len(s.Trace))
	for i, ev := range s.Trace {
		trace[i] = snapshot.Object{
			"seq":      snapshot.Int(ev.Seq),
			"time":     decimal(ev.Time),
			"dt":       decimal(ev.Dt),
			"type":     snapshot.String(ev.Type),
			"source":   snapshot.String(ev.Source),
			"p1":       snapshot.Int(ev.Particle1),
			"p2":       snapshot.Int(ev.Particle2),
			"delta_ke": decimal(ev.DeltaKE),
		}
	}

	obj := snapshot.Object{
		"scenario_name": snapshot.String(s.ScenarioName),
		"trace":         trace,
	}
	if s.RunID != "" {
		obj["run_id"] = snapshot.String(s.RunID)
	}
	return obj
}

// MarshalTrace returns the canonical golden encoding of a result's trace.
func MarshalTrace(scenarioName, runID string, result *Result) ([]byte, error) {
	s := TraceSnapshot{
		ScenarioName: scenarioName,
		RunID:        runID,
		Trace:        result.Trace,
	}
	return snapshot.MarshalCanonical(s.toCanonical())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}

	data, err := MarshalTrace(scenario.Name, result.Final.RunID, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalTrace(scenarioName, result.Final.RunID, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
