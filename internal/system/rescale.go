package system

import (
	"fmt"
	"math"

	"github.com/roach88/edmd/internal/model"
)

// Rescale fires every Period and scales all velocities so that the kinetic
// temperature equals KT, after removing any centre of mass drift.
type Rescale struct {
	name   string
	KT     float64
	Period float64
	next   float64
}

// NewRescale returns a rescaler towards kT every period.
func NewRescale(name string, kT, period float64) (*Rescale, error) {
	if !(kT > 0) {
		return nil, fmt.Errorf("rescale %q: temperature must be positive, got %g", name, kT)
	}
	if !(period > 0) {
		return nil, fmt.Errorf("rescale %q: period must be positive, got %g", name, period)
	}
	return &Rescale{name: name, KT: kT, Period: period}, nil
}

func (r *Rescale) Name() string          { return r.name }
func (r *Rescale) Type() model.EventType { return model.Rescale }
func (r *Rescale) Check(Sim) error       { return nil }
func (r *Rescale) Next(s Sim) float64    { return until(s, r.next) }

func (r *Rescale) Initialise(s Sim) error {
	r.next = s.Env().Now() + r.Period
	return nil
}

func (r *Rescale) Run(s Sim) (model.NEventData, error) {
	r.next += r.Period
	ps := s.Particles()
	var data model.NEventData
	for i := range ps {
		if ps[i].Dynamic() {
			s.Env().Update(&ps[i])
			data.Singles = append(data.Singles, model.BeginParticleEvent(&ps[i], model.Rescale))
		}
	}
	RemoveDrift(ps)
	current := Temperature(ps)
	if current == 0 {
		return model.NEventData{}, model.NewModelInconsistency("rescale of a system at zero temperature")
	}
	ScaleVelocities(ps, math.Sqrt(r.KT/current))
	for i := range data.Singles {
		data.Singles[i].Finish(&ps[data.Singles[i].ParticleID])
	}
	s.Logger().Debug("velocities rescaled", "system", r.name, "from", current, "to", r.KT)
	return data, nil
}

// Temperature returns the translational kinetic temperature kT of the
// dynamic particles.
func Temperature(ps []model.Particle) float64 {
	var sum float64
	n := 0
	for i := range ps {
		if !ps[i].Dynamic() {
			continue
		}
		sum += ps[i].Mass * ps[i].Velocity.Dot(ps[i].Velocity)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(3*n)
}

// ScaleVelocities multiplies every dynamic velocity by f.
func ScaleVelocities(ps []model.Particle, f float64) {
	for i := range ps {
		if ps[i].Dynamic() {
			ps[i].Velocity = ps[i].Velocity.Mul(f)
		}
	}
}

// RemoveDrift subtracts the centre of mass velocity of the dynamic
// particles.
func RemoveDrift(ps []model.Particle) {
	var p model.Vector
	var m float64
	for i := range ps {
		if ps[i].Dynamic() {
			p = p.Add(ps[i].Momentum())
			m += ps[i].Mass
		}
	}
	if m == 0 {
		return
	}
	v := p.Mul(1 / m)
	for i := range ps {
		if ps[i].Dynamic() {
			ps[i].Velocity = ps[i].Velocity.Sub(v)
		}
	}
}
