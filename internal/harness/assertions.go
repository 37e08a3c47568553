package harness

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/edmd/internal/engine"
	"github.com/roach88/edmd/internal/store"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// maxTraceShown caps the trace lines an AssertionError prints.
const maxTraceShown = 20

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTrace:\n")
		for i, ev := range e.Trace {
			if i == maxTraceShown {
				fmt.Fprintf(&buf, "  ... %d more\n", len(e.Trace)-i)
				break
			}
			fmt.Fprintf(&buf, "  [%d] t=%g %s %s\n", ev.Seq, ev.Time, ev.Type, particlesOf(ev))
		}
	}

	return buf.String()
}

func particlesOf(ev TraceEvent) string {
	if ev.Pair() {
		return fmt.Sprintf("p%d-p%d", ev.Particle1, ev.Particle2)
	}
	if ev.Particle1 >= 0 {
		return fmt.Sprintf("p%d", ev.Particle1)
	}
	return "-"
}

// matchParticles checks if ev involves exactly the given particles, in any
// order. An empty list matches every event.
func matchParticles(ev TraceEvent, want []int) bool {
	switch len(want) {
	case 0:
		return true
	case 1:
		return ev.Particle1 == want[0] && !ev.Pair()
	default:
		return (ev.Particle1 == want[0] && ev.Particle2 == want[1]) ||
			(ev.Particle1 == want[1] && ev.Particle2 == want[0])
	}
}

// assertTraceContains checks if the trace contains an event of the given
// type, particles and time.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	tol := assertion.tolerance()
	for _, ev := range trace {
		if ev.Type != assertion.Event || !matchParticles(ev, assertion.Particles) {
			continue
		}
		if assertion.Time != nil && math.Abs(ev.Time-*assertion.Time) > tol {
			continue
		}
		return nil
	}

	expected := fmt.Sprintf("event %s", assertion.Event)
	if len(assertion.Particles) > 0 {
		expected += fmt.Sprintf(" of particles %v", assertion.Particles)
	}
	if assertion.Time != nil {
		expected += fmt.Sprintf(" at t=%g (±%g)", *assertion.Time, tol)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if the first occurrences of the event types
// appear in the specified order. Other events may come between them.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// Step 1: Find first position of each expected event type
	positions := make(map[string]int)
	for i, ev := range trace {
		if positions[ev.Type] == 0 {
			positions[ev.Type] = i + 1 // 1-indexed for readability
		}
	}

	// Step 2: Verify all types found
	for _, typ := range assertion.Events {
		if positions[typ] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all events present: %v", assertion.Events),
				Actual:   fmt.Sprintf("missing event: %s", typ),
				Trace:    trace,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(assertion.Events); i++ {
		prev := assertion.Events[i-1]
		curr := assertion.Events[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", assertion.Events),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks if the event type appears exactly the specified
// number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Type == assertion.Event && matchParticles(ev, assertion.Particles) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertParticleState checks the final position and velocity of one
// particle.
func assertParticleState(result *Result, assertion Assertion) error {
	id := *assertion.Particle
	if id < 0 || id >= len(result.Particles) {
		return &AssertionError{
			Type:     AssertParticleState,
			Expected: fmt.Sprintf("particle %d", id),
			Actual:   fmt.Sprintf("run has %d particles", len(result.Particles)),
		}
	}
	p := result.Particles[id]
	tol := assertion.tolerance()
	check := func(name string, want []float64, got [3]float64) error {
		if want == nil {
			return nil
		}
		for k := range got {
			if math.Abs(got[k]-want[k]) > tol {
				return &AssertionError{
					Type:     AssertParticleState,
					Expected: fmt.Sprintf("particle %d %s %v (±%g)", id, name, want, tol),
					Actual:   fmt.Sprintf("%s %v", name, got),
				}
			}
		}
		return nil
	}
	if err := check("position", assertion.Position, p.Position); err != nil {
		return err
	}
	return check("velocity", assertion.Velocity, p.Velocity)
}

// assertEnergyConserved checks that kinetic plus internal energy at the end
// matches the value after initialisation.
func assertEnergyConserved(result *Result, assertion Assertion) error {
	before := result.Initial.KineticEnergy + result.Initial.InternalEnergy
	after := result.Final.KineticEnergy + result.Final.InternalEnergy
	if drift := math.Abs(after - before); drift > assertion.tolerance() {
		return &AssertionError{
			Type:     AssertEnergyConserved,
			Expected: fmt.Sprintf("total energy %g (±%g)", before, assertion.tolerance()),
			Actual:   fmt.Sprintf("total energy %g (drift %g)", after, drift),
		}
	}
	return nil
}

func assertStatus(result *Result, assertion Assertion) error {
	if got := result.Final.Status.String(); got != assertion.Status {
		actual := got
		if result.RunError != "" {
			actual += ": " + result.RunError
		}
		return &AssertionError{
			Type:     AssertStatus,
			Expected: assertion.Status,
			Actual:   actual,
		}
	}
	return nil
}

func assertNoOverlaps(result *Result) error {
	overlaps := engine.Overlaps(result.Violations)
	if len(overlaps) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertNoOverlaps,
		Expected: "no overlapping pairs",
		Actual:   fmt.Sprintf("%d overlaps, first: %v", len(overlaps), overlaps[0]),
	}
}

// assertFinalState checks if a store table contains expected values.
// Queries the table with parameterized SQL and validates expected values
// using subset semantics.
//
// Security: Table and column names are validated against a whitelist pattern
// to prevent SQL injection via identifier interpolation.
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	if assertion.Table == "" {
		return fmt.Errorf("final_state assertion requires table name")
	}

	// Validate table name to prevent SQL injection (identifiers can't be parameterized)
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	// Build WHERE clause with parameterized SQL (never interpolate values)
	whereSQL, whereArgs, err := buildWhereClause(assertion.Where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s", assertion.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := st.Query(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		whereDesc := formatWhereClause(assertion.Where)
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, whereDesc),
			Actual:   "row not found",
		}
	}

	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	// Check for multiple matching rows (would indicate ambiguous assertion)
	if rows.Next() {
		whereDesc := formatWhereClause(assertion.Where)
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, whereDesc),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]interface{})
	for i, col := range columns {
		actualRow[col] = values[i]
	}

	// Subset semantics: only check fields in Expect, in sorted order so
	// the first reported mismatch is stable.
	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}

		if !stateValuesEqual(expectedValue, actualValue, assertion.tolerance()) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}

	return nil
}

// buildWhereClause constructs parameterized WHERE clause from assertion.Where.
// Returns SQL fragment, arguments slice, and error. Keys are sorted for determinism.
//
// Security: Column names are validated against a whitelist pattern to prevent
// SQL injection via identifier interpolation.
func buildWhereClause(where map[string]interface{}) (string, []interface{}, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys))

	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, toSQLValue(where[key]))
	}

	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue converts a YAML-decoded value to a SQL-compatible value.
func toSQLValue(v interface{}) interface{} {
	switch val := v.(type) {
	case int:
		return int64(val)
	case string, int64, float64, bool:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]interface{}) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares expected and actual values from store tables.
// Handles type coercion for SQLite values which may be returned as different
// types. Floats compare within tol.
func stateValuesEqual(expected, actual interface{}, tol float64) bool {
	if expected == nil && actual == nil {
		return true
	}
	if expected == nil || actual == nil {
		return false
	}

	switch exp := expected.(type) {
	case string:
		switch act := actual.(type) {
		case string:
			return exp == act
		case []byte:
			return exp == string(act)
		}
		return false
	case int:
		return stateValuesEqual(int64(exp), actual, tol)
	case int64:
		switch act := actual.(type) {
		case int64:
			return exp == act
		case float64:
			return math.Abs(float64(exp)-act) <= tol
		}
		return false
	case float64:
		switch act := actual.(type) {
		case float64:
			return math.Abs(exp-act) <= tol
		case int64:
			return math.Abs(exp-float64(act)) <= tol
		}
		return false
	case bool:
		if act, ok := actual.(bool); ok {
			return exp == act
		}
		// SQLite stores booleans as integers
		if act, ok := actual.(int64); ok {
			return exp == (act != 0)
		}
		return false
	}

	return reflect.DeepEqual(expected, actual)
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertParticleState:
			err = assertParticleState(result, assertion)
		case AssertEnergyConserved:
			err = assertEnergyConserved(result, assertion)
		case AssertStatus:
			err = assertStatus(result, assertion)
		case AssertNoOverlaps:
			err = assertNoOverlaps(result)
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires database context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
