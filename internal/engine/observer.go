package engine

import (
	"fmt"

	"github.com/roach88/edmd/internal/model"
)

// Handle identifies a registered observer.
type Handle int

// Record is what observers receive for every executed event.
type Record struct {
	// Seq is the event's logical clock stamp, starting at 1.
	Seq uint64

	// Time is the system time the event happened at.
	Time float64

	// Dt is the time since the previous executed event, or since the
	// start of the run.
	Dt float64

	Event model.Event
	Data  model.NEventData
}

// Observer is notified once per executed event, in order.
type Observer interface {
	OnEvent(r Record)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Record)

func (f ObserverFunc) OnEvent(r Record) { f(r) }

// Starter is implemented by observers that want the initial totals.
type Starter interface {
	OnStart(s Summary)
}

// Finisher is implemented by observers that want the final totals when
// the run halts, completes or faults.
type Finisher interface {
	OnFinish(s Summary)
}

// Summary holds run totals at one instant.
type Summary struct {
	RunID          string
	Status         Status
	N              int
	Time           float64
	Events         uint64
	KineticEnergy  float64
	InternalEnergy float64
}

type observerEntry struct {
	handle Handle
	obs    Observer
}

// AddObserver registers o and returns its handle. Observers are called in
// registration order. The engine holds a reference only; it never closes or
// frees an observer.
func (e *Engine) AddObserver(o Observer) Handle {
	e.nextHandle++
	e.observers = append(e.observers, observerEntry{handle: e.nextHandle, obs: o})
	if st, ok := o.(Starter); ok && e.live() {
		st.OnStart(e.Summary())
	}
	return e.nextHandle
}

// RemoveObserver unregisters the observer behind h.
func (e *Engine) RemoveObserver(h Handle) error {
	for i, entry := range e.observers {
		if entry.handle == h {
			e.observers = append(e.observers[:i], e.observers[i+1:]...)
			return nil
		}
	}
	return &EngineError{
		Code:    ErrCodeUnknownHandle,
		Message: fmt.Sprintf("no observer with handle %d", h),
		Status:  e.Status(),
	}
}

func (e *Engine) notify(r Record) {
	for _, entry := range e.observers {
		entry.obs.OnEvent(r)
	}
}

func (e *Engine) notifyStart() {
	if len(e.observers) == 0 {
		return
	}
	s := e.Summary()
	for _, entry := range e.observers {
		if st, ok := entry.obs.(Starter); ok {
			st.OnStart(s)
		}
	}
}

func (e *Engine) notifyFinish() {
	if len(e.observers) == 0 {
		return
	}
	s := e.Summary()
	for _, entry := range e.observers {
		if f, ok := entry.obs.(Finisher); ok {
			f.OnFinish(s)
		}
	}
}
