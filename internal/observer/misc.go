package observer

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/roach88/edmd/internal/engine"
	"github.com/roach88/edmd/internal/model"
)

// Misc collects the run-wide statistics: event counts per type, mean free
// time, and time-averaged kinetic energy and temperature.
//
// Kinetic energy is tracked from the per-event deltas starting at the
// OnStart total, so Misc needs to be registered before the run starts.
type Misc struct {
	n      int
	counts map[model.EventType]uint64
	events uint64

	start, now float64
	ke         float64

	// kes and weights hold the kinetic energy between consecutive events
	// and how long it held.
	kes     []float64
	weights []float64

	// lastHit is the time of each particle's last pair event; free holds
	// the intervals between them.
	lastHit []float64
	free    []float64
	hits    uint64
}

// NewMisc returns an empty collector.
func NewMisc() *Misc {
	return &Misc{counts: make(map[model.EventType]uint64)}
}

func (m *Misc) OnStart(s engine.Summary) {
	m.n = s.N
	m.start, m.now = s.Time, s.Time
	m.ke = s.KineticEnergy
	m.lastHit = make([]float64, s.N)
	for i := range m.lastHit {
		m.lastHit[i] = math.NaN()
	}
}

func (m *Misc) OnEvent(r engine.Record) {
	m.events++
	m.counts[r.Event.Type]++
	if r.Dt > 0 {
		m.kes = append(m.kes, m.ke)
		m.weights = append(m.weights, r.Dt)
	}
	m.now = r.Time
	m.ke += r.Data.DeltaKE()

	for _, p := range r.Data.Pairs {
		m.hit(p.Particle1.ParticleID, r.Time)
		m.hit(p.Particle2.ParticleID, r.Time)
	}
}

func (m *Misc) hit(id int, t float64) {
	if id >= len(m.lastHit) {
		return
	}
	m.hits++
	if last := m.lastHit[id]; !math.IsNaN(last) {
		m.free = append(m.free, t-last)
	}
	m.lastHit[id] = t
}

// Report is a summary of the statistics so far.
type Report struct {
	Events   uint64
	Counts   map[string]uint64
	Duration float64

	// EventRate is events per unit simulation time.
	EventRate float64

	// MeanFreeTime is the mean time between pair events of one particle,
	// N * duration / (2 * pair events).
	MeanFreeTime float64

	// FreeTimeMean and FreeTimeStd are measured from the observed
	// intervals between pair events of each particle.
	FreeTimeMean float64
	FreeTimeStd  float64

	KineticEnergy    float64
	KineticEnergyStd float64

	// Temperature is 2<KE>/(3N), with kB = 1.
	Temperature float64
}

// Report computes the statistics. Fields with no data are zero.
func (m *Misc) Report() Report {
	r := Report{
		Events:        m.events,
		Counts:        make(map[string]uint64, len(m.counts)),
		Duration:      m.now - m.start,
		KineticEnergy: m.ke,
	}
	for t, c := range m.counts {
		r.Counts[t.String()] = c
	}
	if r.Duration > 0 {
		r.EventRate = float64(m.events) / r.Duration
		if m.hits > 0 {
			r.MeanFreeTime = float64(m.n) * r.Duration / float64(m.hits)
		}
	}
	if len(m.free) > 0 {
		mean, variance := stat.PopMeanVariance(m.free, nil)
		r.FreeTimeMean, r.FreeTimeStd = mean, math.Sqrt(variance)
	}
	if len(m.kes) > 0 {
		mean, variance := stat.PopMeanVariance(m.kes, m.weights)
		r.KineticEnergy, r.KineticEnergyStd = mean, math.Sqrt(variance)
	}
	if m.n > 0 {
		r.Temperature = 2 * r.KineticEnergy / (3 * float64(m.n))
	}
	return r
}

// Types returns the event types seen, sorted by name.
func (r Report) Types() []string {
	names := make([]string, 0, len(r.Counts))
	for name := range r.Counts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
