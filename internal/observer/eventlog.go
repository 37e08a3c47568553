package observer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/edmd/internal/engine"
	"github.com/roach88/edmd/internal/store"
)

// DefaultBatchSize is the number of events EventLog buffers per write.
const DefaultBatchSize = 1024

// EventLog writes every executed event to the store in batches and the
// final totals to the run row.
//
// Observers cannot fail the run, so the first write error is kept, logged,
// and all further writes are skipped. Check Err after the run.
type EventLog struct {
	ctx    context.Context
	store  *store.Store
	runID  string
	batch  int
	logger *slog.Logger

	buf []store.Event
	err error
}

// EventLogOption configures an EventLog.
type EventLogOption func(*EventLog)

// WithBatchSize sets the number of events per transaction.
func WithBatchSize(n int) EventLogOption {
	return func(l *EventLog) {
		if n > 0 {
			l.batch = n
		}
	}
}

// WithEventLogLogger sets the logger for write failures.
func WithEventLogLogger(logger *slog.Logger) EventLogOption {
	return func(l *EventLog) { l.logger = logger }
}

// NewEventLog returns a log writing the events of run runID. The run row
// must already exist.
func NewEventLog(ctx context.Context, st *store.Store, runID string, opts ...EventLogOption) *EventLog {
	l := &EventLog{
		ctx:    ctx,
		store:  st,
		runID:  runID,
		batch:  DefaultBatchSize,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.buf = make([]store.Event, 0, l.batch)
	return l
}

func (l *EventLog) OnEvent(r engine.Record) {
	if l.err != nil {
		return
	}
	l.buf = append(l.buf, store.EventFromRecord(l.runID, r))
	if len(l.buf) >= l.batch {
		l.Flush()
	}
}

// OnFinish flushes the tail and records the final totals.
func (l *EventLog) OnFinish(s engine.Summary) {
	if err := l.Flush(); err != nil {
		return
	}
	err := l.store.FinishRun(l.ctx, store.Run{
		ID:             l.runID,
		Status:         s.Status.String(),
		Events:         s.Events,
		EndTime:        s.Time,
		KineticEnergy:  s.KineticEnergy,
		InternalEnergy: s.InternalEnergy,
	})
	l.fail(err)
}

// Flush writes the buffered events.
func (l *EventLog) Flush() error {
	if l.err != nil || len(l.buf) == 0 {
		return l.err
	}
	err := l.store.WriteEvents(l.ctx, l.buf)
	l.buf = l.buf[:0]
	l.fail(err)
	return l.err
}

func (l *EventLog) fail(err error) {
	if err == nil || l.err != nil {
		return
	}
	l.err = fmt.Errorf("event log of run %s: %w", l.runID, err)
	l.logger.Error("event log write failed", "run", l.runID, "error", err)
}

// Err returns the first write error.
func (l *EventLog) Err() error { return l.err }
