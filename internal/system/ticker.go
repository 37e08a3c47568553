package system

import (
	"fmt"

	"github.com/roach88/edmd/internal/model"
)

// Ticker fires a TICK event every Period units of simulation time. It
// changes nothing; observers use the tick to sample the system state.
type Ticker struct {
	name   string
	Period float64
	next   float64
}

// NewTicker returns a ticker firing every period.
func NewTicker(name string, period float64) (*Ticker, error) {
	if !(period > 0) {
		return nil, fmt.Errorf("ticker %q: period must be positive, got %g", name, period)
	}
	return &Ticker{name: name, Period: period}, nil
}

func (t *Ticker) Name() string          { return t.name }
func (t *Ticker) Type() model.EventType { return model.Tick }
func (t *Ticker) Check(Sim) error       { return nil }
func (t *Ticker) Next(s Sim) float64    { return until(s, t.next) }

func (t *Ticker) Initialise(s Sim) error {
	t.next = s.Env().Now() + t.Period
	return nil
}

func (t *Ticker) Run(s Sim) (model.NEventData, error) {
	t.next += t.Period
	return model.NEventData{}, nil
}
