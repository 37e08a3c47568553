package system

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"github.com/roach88/edmd/internal/interaction"
	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/physics"
)

// Andersen is the Andersen thermostat. Events arrive as a Poisson process
// with mean spacing MeanFreeTime/N; each one redraws the velocity of a
// random particle in range from the Maxwell-Boltzmann distribution.
//
// With SetPoint > 0 the mean free time is retuned every SetFrequency
// thermostat events so that the thermostat makes up SetPoint of all
// events.
type Andersen struct {
	name         string
	members      interaction.Range
	MeanFreeTime float64
	Temperature  float64
	SetPoint     float64
	SetFrequency uint64

	rng       *rand.Rand
	ids       []int
	mft       float64
	next      float64
	count     uint64
	lastCount uint64
}

// NewAndersen returns a thermostat at temperature t acting on the particles
// in r. mft is the mean free time of one particle between thermostat
// events.
func NewAndersen(name string, r interaction.Range, mft, t float64, rng *rand.Rand) (*Andersen, error) {
	if !(mft > 0) {
		return nil, fmt.Errorf("andersen %q: mean free time must be positive, got %g", name, mft)
	}
	if !(t > 0) {
		return nil, fmt.Errorf("andersen %q: temperature must be positive, got %g", name, t)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Andersen{name: name, members: r, MeanFreeTime: mft, Temperature: t, rng: rng}, nil
}

// WithTuning retunes the mean free time towards setPoint every frequency
// thermostat events.
func (a *Andersen) WithTuning(setPoint float64, frequency uint64) *Andersen {
	a.SetPoint = setPoint
	a.SetFrequency = frequency
	return a
}

func (a *Andersen) Name() string          { return a.name }
func (a *Andersen) Type() model.EventType { return model.Gaussian }
func (a *Andersen) Next(s Sim) float64    { return until(s, a.next) }

// SetTemperature changes the bath temperature for subsequent events.
func (a *Andersen) SetTemperature(t float64) { a.Temperature = t }

func (a *Andersen) Check(s Sim) error {
	if !s.Env().Dynamics.Supports(physics.CapThermostat) {
		return model.NewConfigurationError("andersen %q: %s dynamics has no thermostat support", a.name, s.Env().Dynamics.Kind())
	}
	return nil
}

func (a *Andersen) Initialise(s Sim) error {
	a.ids = a.ids[:0]
	for _, p := range s.Particles() {
		if a.members.Includes(p.ID) && p.Dynamic() {
			a.ids = append(a.ids, p.ID)
		}
	}
	if len(a.ids) == 0 {
		return model.NewConfigurationError("andersen %q: no dynamic particles in range", a.name)
	}
	a.mft = a.MeanFreeTime / float64(len(s.Particles()))
	a.count = 0
	a.lastCount = s.EventCount()
	a.next = s.Env().Now() + a.wait()
	return nil
}

func (a *Andersen) wait() float64 {
	return -a.mft * math.Log(1-a.rng.Float64())
}

func (a *Andersen) Run(s Sim) (model.NEventData, error) {
	a.count++
	if a.SetPoint > 0 && a.SetFrequency > 0 && a.count > a.SetFrequency {
		if events := s.EventCount() - a.lastCount; events > 0 {
			a.mft *= float64(a.count) / (float64(events) * a.SetPoint)
		}
		a.lastCount = s.EventCount()
		a.count = 0
	}
	a.next = s.Env().Now() + a.wait()

	p := &s.Particles()[a.ids[a.rng.Intn(len(a.ids))]]
	d := physics.RandomGaussian(s.Env(), p, math.Sqrt(a.Temperature), a.rng)
	return model.Single(d), nil
}
