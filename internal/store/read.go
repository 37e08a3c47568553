package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a run or snapshot does not exist.
var ErrNotFound = errors.New("not found")

// EventFilter narrows ReadEvents. Zero values mean no filter.
type EventFilter struct {
	// Type keeps only events of this type name, e.g. "CORE".
	Type string

	// AfterSeq keeps only events with seq > AfterSeq.
	AfterSeq uint64

	// Limit caps the number of events returned.
	Limit int
}

// ReadRun returns the run with the given ID.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, config, config_hash, format, particles, status, events, end_time, kinetic_energy, internal_energy
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %q: %w", id, err)
	}
	return run, nil
}

// ListRuns returns every run ordered by ID. UUIDv7 IDs sort by creation.
//
// Returns an empty slice (not nil) if the store holds no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, config, config_hash, format, particles, status, events, end_time, kinetic_energy, internal_energy
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadEvents returns the stored events of a run in seq order.
//
// Returns an empty slice (not nil) if no events match.
func (s *Store) ReadEvents(ctx context.Context, runID string, f EventFilter) ([]Event, error) {
	var (
		where = []string{"run_id = ?"}
		args  = []any{runID}
	)
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if f.AfterSeq > 0 {
		where = append(where, "seq > ?")
		args = append(args, int64(f.AfterSeq))
	}
	query := `
		SELECT run_id, seq, time, dt, type, source, source_id, particle1, particle2, delta_ke, delta_u
		FROM events
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY seq ASC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var (
			ev  Event
			seq int64
		)
		if err := rows.Scan(&ev.RunID, &seq, &ev.Time, &ev.Dt, &ev.Type, &ev.Source, &ev.SourceID,
			&ev.Particle1, &ev.Particle2, &ev.DeltaKE, &ev.DeltaU); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Seq = uint64(seq)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// CountEvents returns the number of stored events of a run.
func (s *Store) CountEvents(ctx context.Context, runID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE run_id = ?`, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// ReadSnapshot returns the snapshot of a run taken after seq events.
func (s *Store) ReadSnapshot(ctx context.Context, runID string, seq uint64) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, seq, time, hash, data
		FROM snapshots
		WHERE run_id = ? AND seq = ?
	`, runID, int64(seq))
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("read snapshot %s@%d: %w", runID, seq, ErrNotFound)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot %s@%d: %w", runID, seq, err)
	}
	return snap, nil
}

// LatestSnapshot returns the snapshot of a run with the highest seq.
func (s *Store) LatestSnapshot(ctx context.Context, runID string) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, seq, time, hash, data
		FROM snapshots
		WHERE run_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, runID)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("latest snapshot of %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("latest snapshot of %s: %w", runID, err)
	}
	return snap, nil
}

// SnapshotSeqs returns the seqs at which a run was snapshotted, ascending.
func (s *Store) SnapshotSeqs(ctx context.Context, runID string) ([]uint64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq FROM snapshots WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("snapshot seqs of %s: %w", runID, err)
	}
	defer rows.Close()

	seqs := []uint64{}
	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, fmt.Errorf("scan snapshot seq: %w", err)
		}
		seqs = append(seqs, uint64(seq))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot seqs of %s: %w", runID, err)
	}
	return seqs, nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run    Run
		events int64
	)
	if err := row.Scan(&run.ID, &run.Config, &run.ConfigHash, &run.Format, &run.Particles, &run.Status,
		&events, &run.EndTime, &run.KineticEnergy, &run.InternalEnergy); err != nil {
		return Run{}, err
	}
	run.Events = uint64(events)
	return run, nil
}

func scanSnapshot(row scanner) (Snapshot, error) {
	var (
		snap Snapshot
		seq  int64
	)
	if err := row.Scan(&snap.RunID, &seq, &snap.Time, &snap.Hash, &snap.Data); err != nil {
		return Snapshot{}, err
	}
	snap.Seq = uint64(seq)
	return snap, nil
}
