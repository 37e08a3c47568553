package store

import (
	"context"
	"fmt"
)

// WriteRun inserts a run record into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - a run resumed from a
// snapshot keeps its original configuration row.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	format := run.Format
	if format == "" {
		format = "yaml"
	}
	status := run.Status
	if status == "" {
		status = "initialised"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, config, config_hash, format, particles, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Config,
		run.ConfigHash,
		format,
		run.Particles,
		status,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// FinishRun records the final totals of a run.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, events = ?, end_time = ?, kinetic_energy = ?, internal_energy = ?
		WHERE id = ?
	`,
		run.Status,
		int64(run.Events),
		run.EndTime,
		run.KineticEnergy,
		run.InternalEnergy,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %q: %w", run.ID, ErrNotFound)
	}
	return nil
}

// WriteEvents inserts a batch of events in one transaction.
// Uses ON CONFLICT(run_id, seq) DO NOTHING for idempotency.
//
// Note: The run referenced by each event must exist (foreign key constraint).
func (s *Store) WriteEvents(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write events: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events
		(run_id, seq, time, dt, type, source, source_id, particle1, particle2, delta_ke, delta_u)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write events: prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx,
			ev.RunID,
			int64(ev.Seq),
			ev.Time,
			ev.Dt,
			ev.Type,
			ev.Source,
			ev.SourceID,
			ev.Particle1,
			ev.Particle2,
			ev.DeltaKE,
			ev.DeltaU,
		); err != nil {
			return fmt.Errorf("write event %d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write events: commit: %w", err)
	}
	return nil
}

// WriteSnapshot inserts a snapshot. It returns inserted=false when a
// snapshot for the same (run, seq) already exists; the stored hash is
// then compared and a mismatch reported as an error.
func (s *Store) WriteSnapshot(ctx context.Context, snap Snapshot) (inserted bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots
		(run_id, seq, time, hash, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		snap.RunID,
		int64(snap.Seq),
		snap.Time,
		snap.Hash,
		snap.Data,
	)
	if err != nil {
		return false, fmt.Errorf("write snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write snapshot: %w", err)
	}

	if n == 0 {
		var existing string
		if err := tx.QueryRowContext(ctx,
			`SELECT hash FROM snapshots WHERE run_id = ? AND seq = ?`,
			snap.RunID, int64(snap.Seq),
		).Scan(&existing); err != nil {
			return false, fmt.Errorf("write snapshot: read existing: %w", err)
		}
		if existing != snap.Hash {
			return false, fmt.Errorf("write snapshot %s@%d: hash %s differs from stored %s", snap.RunID, snap.Seq, snap.Hash, existing)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write snapshot: commit: %w", err)
	}
	return n > 0, nil
}
