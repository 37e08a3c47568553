package config

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/rand"

	"github.com/roach88/edmd/internal/boundary"
	"github.com/roach88/edmd/internal/cells"
	"github.com/roach88/edmd/internal/engine"
	"github.com/roach88/edmd/internal/interaction"
	"github.com/roach88/edmd/internal/local"
	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/physics"
	"github.com/roach88/edmd/internal/system"
)

// DefaultSetFrequency is the tuning interval of an Andersen thermostat
// with a set point but no frequency.
const DefaultSetFrequency = 100

// streams hands out independent random sources derived from the seed, in
// a fixed order.
type streams struct {
	master *rand.Rand
}

func newStreams(seed uint64) *streams {
	return &streams{master: rand.New(rand.NewSource(seed))}
}

func (s *streams) next() *rand.Rand {
	return rand.New(rand.NewSource(s.master.Uint64()))
}

// Build creates an Uninitialised engine with everything c describes
// registered. opts apply after the options c implies, so callers can
// override the budget, logger or run ID.
func Build(c *Config, opts ...engine.Option) (*engine.Engine, error) {
	rngs := newStreams(c.Seed)
	ps, box, err := c.BuildParticles(rngs.next())
	if err != nil {
		return nil, err
	}
	bc, err := boundary.New(boundary.Kind(c.Boundary), box, c.Dynamics.ShearRate)
	if err != nil {
		return nil, model.NewConfigurationError("%v", err)
	}
	dyn, err := physics.New(physics.Kind(c.Dynamics.Type), physics.Params{
		Gravity:    vec(c.Dynamics.Gravity),
		ShearRate:  c.Dynamics.ShearRate,
		GrowthRate: c.Dynamics.GrowthRate,
	})
	if err != nil {
		return nil, model.NewConfigurationError("%v", err)
	}

	base := []engine.Option{
		engine.WithEventBudget(c.Budget.Events),
		engine.WithTimeBudget(c.Budget.Time),
		engine.WithStrict(c.Strict),
	}
	if c.RejectionLimit > 0 {
		base = append(base, engine.WithRejectionLimit(c.RejectionLimit))
	}
	if c.Index == "brute" {
		base = append(base, engine.WithIndex(&cells.Brute{}))
	}
	e := engine.New(physics.NewEnv(dyn, bc), ps, append(base, opts...)...)

	for _, in := range c.Interactions {
		if _, err := e.AddInteraction(buildInteraction(in)); err != nil {
			return nil, fmt.Errorf("interaction %q: %w", in.Name, err)
		}
	}
	for _, l := range c.Locals {
		loc, err := buildLocal(l, rngs)
		if err != nil {
			return nil, err
		}
		if _, err := e.AddLocal(loc); err != nil {
			return nil, fmt.Errorf("local %q: %w", l.Name, err)
		}
	}
	if c.Sentinel {
		if _, err := e.AddGlobal(&cells.Sentinel{MaxRange: e.MaxRange()}); err != nil {
			return nil, fmt.Errorf("sentinel: %w", err)
		}
	}
	for _, s := range c.Systems {
		sys, err := buildSystem(s, rngs)
		if err != nil {
			return nil, model.NewConfigurationError("%v", err)
		}
		if _, err := e.AddSystem(sys); err != nil {
			return nil, fmt.Errorf("system %q: %w", s.Name, err)
		}
	}
	return e, nil
}

// BuildParticles returns the packed and explicit particles with species
// properties applied, and the box.
func (c *Config) BuildParticles(rng *rand.Rand) ([]model.Particle, model.Vector, error) {
	species := make(map[string]Species, len(c.Species))
	for _, s := range c.Species {
		species[s.Name] = s
	}
	props := func(name string) Species {
		if s, ok := species[name]; ok {
			return s
		}
		return Species{Mass: 1}
	}
	apply := func(p *model.Particle, s Species) {
		p.Mass = s.Mass
		p.Inertia = s.Inertia
		if s.Static {
			p.State &^= model.StateDynamic
			p.Velocity = model.Vector{}
			p.AngularVelocity = model.Vector{}
		}
	}

	var ps []model.Particle
	box := vec(c.Box)
	if c.Lattice != nil {
		s := props(c.Lattice.Species)
		packed := Pack(c.Lattice, s.Mass, rng)
		for i := range packed.Particles {
			apply(&packed.Particles[i], s)
		}
		ps = packed.Particles
		if len(c.Box) == 0 {
			box = packed.Box
		}
	}
	for _, cp := range c.Particles {
		p := model.NewParticle(len(ps), vec(cp.Position), vec(cp.Velocity))
		if d := vec(cp.Director); d.Len() > 0 {
			p.Orientation = mgl64.QuatBetweenVectors(physics.Director, d.Normalize())
		}
		p.AngularVelocity = vec(cp.Spin)
		apply(&p, props(cp.Species))
		ps = append(ps, p)
	}
	if len(ps) == 0 {
		return nil, box, model.NewConfigurationError("no particles")
	}
	return ps, box, nil
}

func buildRange(r *Range) interaction.Range {
	if r == nil {
		return interaction.All{}
	}
	switch r.Type {
	case RangeWithin:
		return interaction.Within{Start: r.Start, End: r.End}
	case RangeChains:
		return interaction.Chains{Start: r.Start, End: r.End, Length: r.Length}
	case RangePairs:
		pairs := make([][2]int, len(r.Pairs))
		for i, p := range r.Pairs {
			pairs[i] = [2]int{p[0], p[1]}
		}
		return interaction.NewPairs(pairs)
	default:
		return interaction.All{}
	}
}

func buildInteraction(in Interaction) interaction.Interaction {
	r, e := buildRange(in.Range), elasticity(in.Elasticity)
	switch in.Type {
	case RoughHardSphere:
		return interaction.NewRoughHardSphere(in.Name, r, in.Diameter, e, in.Tangential)
	case SquareWell:
		return interaction.NewSquareWell(in.Name, r, in.Diameter, in.Lambda, in.Depth, e)
	case SquareBond:
		return interaction.NewSquareBond(in.Name, r, in.Diameter, in.Lambda, e)
	case Rod:
		return interaction.NewRod(in.Name, r, in.Diameter, e)
	default:
		return interaction.NewHardSphere(in.Name, r, in.Diameter, e)
	}
}

func buildLocal(l Local, rngs *streams) (local.Local, error) {
	r, e := buildRange(l.Range), elasticity(l.Elasticity)
	switch l.Type {
	case Cylinder:
		return local.NewCylinder(l.Name, r, vec(l.Origin), vec(l.Axis), l.Radius, l.Diameter, e, l.Solid)
	default:
		var opts []local.WallOption
		if l.Temperature > 0 {
			opts = append(opts, local.WithTemperature(l.Temperature, l.Slip, rngs.next()))
		}
		return local.NewWall(l.Name, r, vec(l.Origin), vec(l.Normal), l.Diameter, e, opts...)
	}
}

func buildSystem(s System, rngs *streams) (system.System, error) {
	switch s.Type {
	case Rescale:
		return system.NewRescale(s.Name, s.Temperature, s.Period)
	case Andersen:
		a, err := system.NewAndersen(s.Name, buildRange(s.Range), s.MeanFreeTime, s.Temperature, rngs.next())
		if err != nil {
			return nil, err
		}
		if s.SetPoint > 0 {
			freq := s.SetFrequency
			if freq == 0 {
				freq = DefaultSetFrequency
			}
			a.WithTuning(s.SetPoint, freq)
		}
		return a, nil
	default:
		return system.NewTicker(s.Name, s.Period)
	}
}

// vec converts a schema-checked triple; nil gives the zero vector.
func vec(xs []float64) model.Vector {
	if len(xs) != 3 {
		return model.Vector{}
	}
	return model.Vector{xs[0], xs[1], xs[2]}
}
