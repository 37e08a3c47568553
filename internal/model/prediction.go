package model

// Prediction is the answer of a predictor: either an event, or no event.
// A "no event" answer may be flagged Degenerate when it came from a root
// search that touched zero without crossing it; the engine audits those.
type Prediction struct {
	Event      Event
	Found      bool
	Degenerate bool
}

// Never reports that no transition is geometrically possible.
func Never() Prediction { return Prediction{} }

// Degenerate reports no event after a failed or tangent root search.
func Degenerate() Prediction { return Prediction{Degenerate: true} }

// At reports ev.
func At(ev Event) Prediction { return Prediction{Event: ev, Found: true} }

// Earliest returns the earlier of two predictions, preferring a.
func Earliest(a, b Prediction) Prediction {
	switch {
	case !b.Found:
		if !a.Found && b.Degenerate {
			return b
		}
		return a
	case !a.Found:
		return b
	case b.Event.Dt < a.Event.Dt:
		return b
	default:
		return a
	}
}
