package config

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/system"
)

var bases = map[string][]model.Vector{
	LatticeSC:  {{0, 0, 0}},
	LatticeFCC: {{0, 0, 0}, {0.5, 0.5, 0}, {0.5, 0, 0.5}, {0, 0.5, 0.5}},
}

// Count returns the number of particles the lattice holds.
func (l *Lattice) Count() int {
	return len(bases[l.Type]) * l.Cells * l.Cells * l.Cells
}

// Side returns the edge of the cubic box holding Count particles at
// Density.
func (l *Lattice) Side() float64 {
	return math.Cbrt(float64(l.Count()) / l.Density)
}

// TargetTemperature returns the velocity temperature, 1 when unset.
func (l *Lattice) TargetTemperature() float64 {
	if l.Temperature == nil {
		return 1
	}
	return *l.Temperature
}

// Packing is the result of the lattice packer.
type Packing struct {
	Box       model.Vector
	Particles []model.Particle
}

// Pack places the lattice sites in a cubic box centred on the origin and
// draws Maxwell-Boltzmann velocities from rng. The total momentum is zero
// and the kinetic temperature is exactly the target.
func Pack(l *Lattice, mass float64, rng *rand.Rand) Packing {
	side := l.Side()
	a := side / float64(l.Cells)
	basis := bases[l.Type]
	ps := make([]model.Particle, 0, l.Count())

	// Sites are offset by a quarter cell so none sits on a box face.
	for x := 0; x < l.Cells; x++ {
		for y := 0; y < l.Cells; y++ {
			for z := 0; z < l.Cells; z++ {
				cell := model.Vector{float64(x), float64(y), float64(z)}
				for _, b := range basis {
					pos := cell.Add(b).Add(model.Vector{0.25, 0.25, 0.25}).Mul(a).Sub(model.Vector{side / 2, side / 2, side / 2})
					p := model.NewParticle(len(ps), pos, model.Vector{})
					p.Mass = mass
					ps = append(ps, p)
				}
			}
		}
	}

	t := l.TargetTemperature()
	sd := math.Sqrt(t / mass)
	for i := range ps {
		ps[i].Velocity = model.Vector{rng.NormFloat64() * sd, rng.NormFloat64() * sd, rng.NormFloat64() * sd}
	}
	system.RemoveDrift(ps)
	if cur := system.Temperature(ps); t > 0 && cur > 0 {
		system.ScaleVelocities(ps, math.Sqrt(t/cur))
	} else {
		system.ScaleVelocities(ps, 0)
	}
	return Packing{Box: model.Vector{side, side, side}, Particles: ps}
}

// Expand returns a copy of c with the lattice replaced by explicitly
// placed particles and an explicit box. The particles come from the same
// random stream Build draws them from, so both configurations build the
// same engine.
func Expand(c *Config) (*Config, error) {
	if c.Lattice == nil {
		out := *c
		return &out, nil
	}
	ps, box, err := c.BuildParticles(newStreams(c.Seed).next())
	if err != nil {
		return nil, err
	}
	packed := c.Lattice.Count()

	out := *c
	out.Lattice = nil
	out.Box = []float64{box[0], box[1], box[2]}
	out.Particles = make([]Particle, len(ps))
	for i := range ps {
		species := c.Lattice.Species
		if i >= packed {
			species = c.Particles[i-packed].Species
		}
		p := &ps[i]
		out.Particles[i] = Particle{
			Species:  species,
			Position: []float64{p.Position[0], p.Position[1], p.Position[2]},
			Velocity: []float64{p.Velocity[0], p.Velocity[1], p.Velocity[2]},
		}
	}
	out.source, out.format, out.hash = nil, "", ""
	return &out, nil
}
