package harness

import (
	"github.com/roach88/edmd/internal/engine"
	"github.com/roach88/edmd/internal/model"
)

// TraceEvent is one executed event as read back from the event log.
type TraceEvent struct {
	Seq       uint64  `json:"seq"`
	Time      float64 `json:"time"`
	Dt        float64 `json:"dt"`
	Type      string  `json:"type"`
	Source    string  `json:"source"`
	Particle1 int     `json:"p1"`
	Particle2 int     `json:"p2"`
	DeltaKE   float64 `json:"delta_ke"`
}

// Pair reports whether the event involved two particles.
func (e TraceEvent) Pair() bool { return e.Particle2 != model.NoPartner }

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if the run did not fault unexpectedly and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace holds the executed events in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	Errors []string `json:"errors,omitempty"`

	// RunError is the error the run stopped with, if any.
	RunError string `json:"run_error,omitempty"`

	// Initial and Final are the engine totals after Initialise and at the
	// end of the run.
	Initial engine.Summary `json:"-"`
	Final   engine.Summary `json:"-"`

	// Particles is the final particle state, streamed to the end time.
	Particles []model.Particle `json:"-"`

	// Violations are the state checks that failed at the end of the run.
	Violations []error `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an executed event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
