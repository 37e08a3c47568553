package system

import (
	"math"

	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/physics"
)

// Regrid rebuilds the spatial index while lengths grow. It fires when the
// grown interaction range reaches the largest distance the index supports.
type Regrid struct {
	name string
	next float64
}

// NewRegrid returns a regrid system.
func NewRegrid(name string) *Regrid { return &Regrid{name: name} }

func (r *Regrid) Name() string          { return r.name }
func (r *Regrid) Type() model.EventType { return model.Compress }
func (r *Regrid) Next(s Sim) float64    { return until(s, r.next) }

func (r *Regrid) Check(s Sim) error {
	if s.Env().Dynamics.Kind() != physics.KindCompression {
		return model.NewConfigurationError("regrid %q only runs under compression dynamics", r.name)
	}
	return nil
}

func (r *Regrid) Initialise(s Sim) error {
	return r.schedule(s)
}

func (r *Regrid) schedule(s Sim) error {
	r.next = math.Inf(1)
	scale, rate := s.Env().Dynamics.Growth()
	reach := s.MaxRange()
	supported := s.MaxSupported()
	if rate <= 0 || reach <= 0 || math.IsInf(supported, 1) {
		return nil
	}
	if supported <= reach*scale*(1+1e-12) {
		return model.NewConfigurationError("regrid %q: the cell lattice cannot grow past interaction range %g", r.name, reach*scale)
	}
	r.next = s.Env().Now() + (supported/reach-scale)/rate
	return nil
}

func (r *Regrid) Run(s Sim) (model.NEventData, error) {
	cutoff := s.Env().Length(s.MaxRange())
	s.Logger().Info("rebuilding cells for grown interaction range", "system", r.name, "cutoff", cutoff, "time", s.Env().Now())
	if err := s.Reindex(cutoff); err != nil {
		return model.NEventData{}, err
	}
	return model.NEventData{}, r.schedule(s)
}
