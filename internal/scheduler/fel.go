// Package scheduler implements the future event list: a complete binary
// tree selecting the earliest of one event list per particle, plus one
// list for system events.
//
// Pair events are invalidated lazily. Each particle carries a counter that
// Invalidate increments; a pair event records its partner's counter when it
// is pushed and is discarded at the top of the list once the two differ.
// The owner's events are cleared eagerly by Invalidate.
package scheduler

import (
	"fmt"
	"math"

	"github.com/roach88/edmd/internal/model"
)

// DefaultFlushInterval is the number of Stream calls between folding the
// stream offset back into the stored times.
const DefaultFlushInterval = 10000

// State is the scheduler lifecycle state.
type State int

const (
	StateEmpty State = iota
	StateInitialised
	StateDrained
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateInitialised:
		return "initialised"
	case StateDrained:
		return "drained"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FEL is the future event list.
type FEL struct {
	n        int
	pels     []pel
	counters []uint64
	tree     *cbt
	seq      uint64
	state    State

	// offset is the time streamed since the last flush.
	offset  float64
	streams int
	flush   int
}

// New returns an FEL for n particles.
func New(n int) *FEL {
	f := &FEL{flush: DefaultFlushInterval}
	f.Init(n)
	return f
}

// SetFlushInterval changes how many Stream calls pass between flushes.
func (f *FEL) SetFlushInterval(n int) {
	if n > 0 {
		f.flush = n
	}
}

// Init discards every event and sizes the list for n particles. Counters
// restart at zero.
func (f *FEL) Init(n int) {
	f.n = n
	f.pels = make([]pel, n+1)
	f.counters = make([]uint64, n)
	f.tree = newCBT(n + 1)
	f.offset, f.streams = 0, 0
	f.state = StateInitialised
}

// Clear discards every event but keeps the counters.
func (f *FEL) Clear() {
	for i := range f.pels {
		f.pels[i].clear()
		f.refresh(i)
	}
	f.state = StateInitialised
}

// Len returns the number of particles.
func (f *FEL) Len() int { return f.n }

// State returns the lifecycle state.
func (f *FEL) State() State { return f.state }

// Counter returns the invalidation counter of particle id.
func (f *FEL) Counter(id int) uint64 { return f.counters[id] }

func (f *FEL) slot(ev model.Event) int {
	if ev.Source == model.SourceSystem {
		return f.n
	}
	return ev.Particle1
}

// Push stores ev, whose Dt is relative to now. Pair events are stamped with
// the partner's current counter. Events with no finite time are dropped.
func (f *FEL) Push(ev model.Event) {
	if math.IsInf(ev.Dt, 1) || math.IsNaN(ev.Dt) {
		return
	}
	if ev.Pair() {
		ev.Counter2 = f.counters[ev.Particle2]
	}
	i := f.slot(ev)
	f.seq++
	f.pels[i].push(entry{ev: ev, key: ev.Dt + f.offset, seq: f.seq})
	f.refresh(i)
	f.state = StateInitialised
}

// Invalidate marks particle id as touched: its own events are cleared and
// every pair event naming it as partner becomes stale.
func (f *FEL) Invalidate(id int) {
	f.counters[id]++
	f.pels[id].clear()
	f.refresh(id)
}

// ClearSystem discards every queued system event.
func (f *FEL) ClearSystem() {
	f.pels[f.n].clear()
	f.refresh(f.n)
}

func (f *FEL) refresh(i int) {
	if e, ok := f.pels[i].top(); ok {
		f.tree.set(i, e.key, e.seq)
		return
	}
	f.tree.set(i, math.Inf(1), 0)
}

func (f *FEL) stale(e entry) bool {
	return e.ev.Pair() && e.ev.Counter2 != f.counters[e.ev.Particle2]
}

// Top returns the earliest valid event with Dt relative to now, discarding
// stale events on the way. It reports false when no valid event remains.
func (f *FEL) Top() (model.Event, bool) {
	for {
		i := f.tree.min()
		e, ok := f.pels[i].top()
		if !ok {
			f.state = StateDrained
			return model.Event{}, false
		}
		if f.stale(e) {
			f.pels[i].pop()
			f.refresh(i)
			continue
		}
		ev := e.ev
		ev.Dt = e.key - f.offset
		return ev, true
	}
}

// Pop removes and returns the earliest valid event. Popping a drained list
// is a ModelInconsistency.
func (f *FEL) Pop() (model.Event, error) {
	ev, ok := f.Top()
	if !ok {
		return model.Event{}, model.NewModelInconsistency("pop from an empty future event list")
	}
	i := f.tree.min()
	f.pels[i].pop()
	f.refresh(i)
	return ev, nil
}

// Stream advances the offset by dt, so that every stored event moves dt
// closer to now.
func (f *FEL) Stream(dt float64) {
	f.offset += dt
	f.streams++
	if f.streams >= f.flush {
		f.Flush()
	}
}

// Flush folds the offset into the stored times.
func (f *FEL) Flush() {
	for i := range f.pels {
		f.pels[i].shift(f.offset)
	}
	f.tree.shift(f.offset)
	f.offset, f.streams = 0, 0
}

// Events returns every stored event, valid or stale, with Dt relative to
// now, in slot order. It is meant for audits and tests.
func (f *FEL) Events() []model.Event {
	var out []model.Event
	for i := range f.pels {
		for _, e := range f.pels[i] {
			ev := e.ev
			ev.Dt = e.key - f.offset
			out = append(out, ev)
		}
	}
	return out
}

// Valid reports whether a stored event is still current.
func (f *FEL) Valid(ev model.Event) bool {
	return !ev.Pair() || ev.Counter2 == f.counters[ev.Particle2]
}
