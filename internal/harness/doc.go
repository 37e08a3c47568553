// Package harness runs simulation scenarios and checks their outcome.
//
// A scenario names a configuration file, optionally overrides its budget,
// and lists assertions over the executed events and the final state. The
// harness builds the engine from the configuration, records every event
// in a fresh in-memory store and reads the trace back from it, so the
// scenarios exercise the same path as a stored run.
//
// # Scenario Format
//
//	name: head_on
//	description: "Two spheres meet head on"
//	config: ../configs/head_on.yaml
//	run_id: head-on          # optional, default test-run-default
//	budget: { time: 5 }      # optional override
//	assertions:
//	  - type: trace_contains
//	    event: CORE
//	    particles: [0, 1]
//	    time: 1.5
//	  - type: particle_state
//	    particle: 0
//	    velocity: [-1, 0, 0]
//	  - type: final_state
//	    table: runs
//	    where: { id: head-on }
//	    expect: { status: completed }
//
// # Assertion Types
//
//   - trace_contains: an event of the type, particles and time occurred
//   - trace_order: event types first occur in the given order
//   - trace_count: an event type occurred exactly N times
//   - final_state: a row of the runs, events or snapshots table matches
//   - particle_state: a particle's final position and velocity
//   - energy_conserved: total energy drifted by at most the tolerance
//   - status: the final engine status
//   - no_overlaps: no hard cores overlap at the end
//
// # Deterministic Testing
//
// Runs use a fixed run ID (testutil.FixedRunID) and the configuration's
// seed, so the same scenario produces the same trace. Golden files store
// the trace in canonical JSON with times rounded to ten significant
// digits.
package harness
