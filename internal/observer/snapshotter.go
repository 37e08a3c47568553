package observer

import (
	"context"
	"fmt"

	"github.com/roach88/edmd/internal/engine"
	"github.com/roach88/edmd/internal/snapshot"
	"github.com/roach88/edmd/internal/store"
)

// Source produces the current state; *engine.Engine implements it.
type Source interface {
	Snapshot() *snapshot.Snapshot
}

// Snapshotter stores a snapshot whenever Due reports true for the record
// just executed.
//
// Taking a snapshot streams every particle to the current time, which
// changes the rounding of later positions. A replay must therefore
// snapshot at the same events as the run it reproduces.
type Snapshotter struct {
	ctx   context.Context
	src   Source
	store *store.Store
	due   func(seq uint64) bool

	// Hashes maps each snapshot's seq to its hash, for comparison.
	Hashes map[uint64]string

	err error
}

// Every returns a Due predicate firing every n events.
func Every(n uint64) func(uint64) bool {
	return func(seq uint64) bool { return n > 0 && seq%n == 0 }
}

// At returns a Due predicate firing at the listed seqs.
func At(seqs ...uint64) func(uint64) bool {
	set := make(map[uint64]struct{}, len(seqs))
	for _, s := range seqs {
		set[s] = struct{}{}
	}
	return func(seq uint64) bool {
		_, ok := set[seq]
		return ok
	}
}

// NewSnapshotter returns a snapshotter. st may be nil to only collect
// hashes.
func NewSnapshotter(ctx context.Context, src Source, st *store.Store, due func(uint64) bool) *Snapshotter {
	return &Snapshotter{ctx: ctx, src: src, store: st, due: due, Hashes: make(map[uint64]string)}
}

func (s *Snapshotter) OnEvent(r engine.Record) {
	if s.err != nil || !s.due(r.Seq) {
		return
	}
	stored, err := store.SnapshotFromState(s.src.Snapshot())
	if err != nil {
		s.err = err
		return
	}
	s.Hashes[r.Seq] = stored.Hash
	if s.store == nil {
		return
	}
	if _, err := s.store.WriteSnapshot(s.ctx, stored); err != nil {
		s.err = fmt.Errorf("snapshot at event %d: %w", r.Seq, err)
	}
}

// Err returns the first failure.
func (s *Snapshotter) Err() error { return s.err }
