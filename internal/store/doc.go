// Package store provides SQLite-backed durable storage for simulation runs.
//
// The store is an append-only log with:
//   - Runs: one row per run, keyed by run ID, holding the configuration
//     the run was built from and its final totals
//   - Events: every executed event of a run, keyed by (run_id, seq)
//   - Snapshots: canonical snapshots taken during a run, keyed by
//     (run_id, seq) and carrying their content hash
//
// # Critical Patterns
//
// Idempotent Writes:
//   - every insert uses ON CONFLICT DO NOTHING on its natural key
//   - writing the same event or snapshot twice is a no-op, so a resumed
//     run may replay its tail without duplicating rows
//
// Logical Order:
//   - all ordering uses seq, the engine's event counter, NEVER wall time
//   - all queries over events and snapshots include ORDER BY seq ASC
//
// Exact Floats:
//   - times and energies are stored as REAL, which holds an IEEE-754
//     double bit for bit, so a replayed log compares exactly
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
