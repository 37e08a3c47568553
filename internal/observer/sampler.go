package observer

import (
	"gonum.org/v1/gonum/stat"

	"github.com/roach88/edmd/internal/engine"
	"github.com/roach88/edmd/internal/model"
)

// Sample is the kinetic energy at one tick.
type Sample struct {
	Time          float64 `json:"time"`
	KineticEnergy float64 `json:"kinetic_energy"`
}

// Sampler records the kinetic energy on every TICK event. Pair it with a
// system.Ticker to sample at a fixed period.
type Sampler struct {
	ke      float64
	Samples []Sample
}

func (s *Sampler) OnStart(sum engine.Summary) { s.ke = sum.KineticEnergy }

func (s *Sampler) OnEvent(r engine.Record) {
	s.ke += r.Data.DeltaKE()
	if r.Event.Type == model.Tick {
		s.Samples = append(s.Samples, Sample{Time: r.Time, KineticEnergy: s.ke})
	}
}

// Values returns the sampled energies in order.
func (s *Sampler) Values() []float64 {
	out := make([]float64, len(s.Samples))
	for i, smp := range s.Samples {
		out[i] = smp.KineticEnergy
	}
	return out
}

// Stats returns the mean and sample standard deviation of the sampled
// energies. Both are zero without samples.
func (s *Sampler) Stats() (mean, std float64) {
	switch len(s.Samples) {
	case 0:
		return 0, 0
	case 1:
		return s.Samples[0].KineticEnergy, 0
	}
	return stat.MeanStdDev(s.Values(), nil)
}
