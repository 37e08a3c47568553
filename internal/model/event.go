package model

import (
	"fmt"
	"math"
)

// Source identifies which category of predictor produced an event.
type Source uint8

const (
	SourceNone Source = iota
	SourceInteraction
	SourceLocal
	SourceGlobal
	SourceSystem
	// SourceScheduler marks bookkeeping entries pushed by the scheduler
	// itself, such as a deferred recalculation.
	SourceScheduler
)

var sourceNames = [...]string{"none", "interaction", "local", "global", "system", "scheduler"}

func (s Source) String() string {
	if int(s) < len(sourceNames) {
		return sourceNames[s]
	}
	return fmt.Sprintf("source(%d)", uint8(s))
}

// EventType is the physical kind of transition.
type EventType uint8

const (
	None EventType = iota
	Cell
	Core
	StepIn
	StepOut
	Bounce
	Wall
	Gaussian
	Rescale
	Recalculate
	Virtual
	Tick
	Compress
)

var eventTypeNames = [...]string{
	"NONE", "CELL", "CORE", "STEP_IN", "STEP_OUT", "BOUNCE", "WALL",
	"GAUSSIAN", "RESCALE", "RECALCULATE", "VIRTUAL", "TICK", "COMPRESS",
}

func (t EventType) String() string {
	if int(t) < len(eventTypeNames) {
		return eventTypeNames[t]
	}
	return fmt.Sprintf("EVENT(%d)", uint8(t))
}

// ParseEventType maps a name produced by String back to its EventType.
func ParseEventType(name string) (EventType, error) {
	for i, n := range eventTypeNames {
		if n == name {
			return EventType(i), nil
		}
	}
	return None, fmt.Errorf("unknown event type %q", name)
}

// NoPartner is the Particle2 value of single-particle events.
const NoPartner = -1

// Event is one predicted future transition.
//
// Dt is relative to the scheduler's stream offset at the time the event was
// pushed. For pair events Counter2 is the partner's invalidation counter at
// push time; the event is stale once the counters differ.
type Event struct {
	Dt        float64
	Particle1 int
	Particle2 int
	Source    Source
	Type      EventType
	SourceID  int
	Counter2  uint64
}

// Less orders events by time only. Equal times keep insertion order inside
// a PEL and fall back to the tree's left-first rule across particles.
func (e Event) Less(o Event) bool { return e.Dt < o.Dt }

// Pair reports whether the event involves two particles.
func (e Event) Pair() bool { return e.Source == SourceInteraction }

// Valid reports whether Dt is a usable, non-negative finite time.
func (e Event) Valid() bool {
	return !math.IsNaN(e.Dt) && !math.IsInf(e.Dt, 0) && e.Dt >= 0
}

func (e Event) String() string {
	if e.Particle2 >= 0 {
		return fmt.Sprintf("%s[%s#%d] p%d-p%d dt=%g", e.Type, e.Source, e.SourceID, e.Particle1, e.Particle2, e.Dt)
	}
	return fmt.Sprintf("%s[%s#%d] p%d dt=%g", e.Type, e.Source, e.SourceID, e.Particle1, e.Dt)
}
