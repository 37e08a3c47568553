package engine

import "fmt"

// Budget bounds a run. A zero field means no limit.
//
// Budgets are checked between events only. The event budget counts
// executed events (interaction, local and system events); cell transitions
// and rejected predictions do not count. The time budget is an absolute
// system time: the run completes instead of executing an event scheduled
// later than it.
type Budget struct {
	Events uint64
	Time   float64
}

// Unlimited reports whether neither limit is set.
func (b Budget) Unlimited() bool { return b.Events == 0 && b.Time == 0 }

// Exhausted reports whether a run that has executed events events may not
// execute one more at system time next, and why.
func (b Budget) Exhausted(events uint64, next float64) (string, bool) {
	if b.Events > 0 && events >= b.Events {
		return fmt.Sprintf("event budget of %d reached", b.Events), true
	}
	if b.Time > 0 && next > b.Time {
		return fmt.Sprintf("time budget of %g reached", b.Time), true
	}
	return "", false
}

// String renders the budget for logs.
func (b Budget) String() string {
	switch {
	case b.Unlimited():
		return "unlimited"
	case b.Time == 0:
		return fmt.Sprintf("%d events", b.Events)
	case b.Events == 0:
		return fmt.Sprintf("t<=%g", b.Time)
	default:
		return fmt.Sprintf("%d events, t<=%g", b.Events, b.Time)
	}
}
