package engine

import (
	"sync"

	"github.com/roach88/edmd/internal/model"
)

// DefaultRejectionLimit is the number of consecutive rejections after which
// a recalculated event is executed anyway.
const DefaultRejectionLimit = 10

// Watchdog breaks recalculation loops.
//
// Interaction and local events are predicted again when they reach the top
// of the list. If the fresh prediction is later than the next queued event,
// the event is rejected and the particles re-predicted. Two events that
// are almost simultaneous can then swap places forever because of rounding:
// each re-prediction lands just after the other event. The watchdog counts
// consecutive rejections per source and, once the limit is reached, lets
// the next one through. Event order stays correct to machine precision.
//
// Thread-safety: Watchdog is safe for concurrent use; the counters are
// read by diagnostics while the loop runs.
type Watchdog struct {
	mu     sync.Mutex
	limit  int
	counts map[model.Source]int
	total  uint64
}

// NewWatchdog creates a watchdog allowing limit consecutive rejections.
func NewWatchdog(limit int) *Watchdog {
	if limit < 1 {
		limit = 1
	}
	return &Watchdog{limit: limit, counts: make(map[model.Source]int)}
}

// Reject records a rejection from src. It returns false when the limit is
// reached, meaning the event must be executed instead.
func (w *Watchdog) Reject(src model.Source) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.counts[src]++
	if w.counts[src] >= w.limit {
		return false
	}
	w.total++
	return true
}

// Accept resets the consecutive count of src after an event executes.
func (w *Watchdog) Accept(src model.Source) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.counts[src] = 0
}

// Total returns the number of rejections so far.
func (w *Watchdog) Total() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.total
}

// Limit returns the configured limit.
func (w *Watchdog) Limit() int { return w.limit }
