package config

import (
	"errors"
	"fmt"

	"github.com/roach88/edmd/internal/model"
)

// validateConfig checks what the schema cannot: references between
// sections and requirements that depend on a type field. All problems are
// returned, joined.
func validateConfig(c *Config) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, model.NewConfigurationError(format, args...))
	}

	species := make(map[string]bool, len(c.Species))
	for _, s := range c.Species {
		if species[s.Name] {
			fail("species %q defined twice", s.Name)
		}
		species[s.Name] = true
	}
	known := func(name string) bool { return name == "" || species[name] }

	n := len(c.Particles)
	if c.Lattice != nil {
		n += c.Lattice.Count()
		if !known(c.Lattice.Species) {
			fail("lattice: unknown species %q", c.Lattice.Species)
		}
	} else if len(c.Box) == 0 {
		fail("box is required without a lattice")
	}
	if n == 0 {
		fail("no particles: give a lattice or a particle list")
	}
	for i, p := range c.Particles {
		if !known(p.Species) {
			fail("particle %d: unknown species %q", i, p.Species)
		}
	}

	switch c.Dynamics.Type {
	case "gravity":
		if len(c.Dynamics.Gravity) == 0 {
			fail("gravity dynamics needs a gravity vector")
		}
	case "sheared":
		if c.Boundary == "periodic" {
			fail("sheared dynamics needs a lees-edwards or none boundary, got periodic")
		}
	}
	if c.Boundary == "lees-edwards" && c.Dynamics.Type != "sheared" && c.Dynamics.ShearRate != 0 {
		fail("lees-edwards boundary with a shear rate needs sheared dynamics")
	}

	names := make(map[string]bool)
	unique := func(kind, name string) {
		key := kind + "/" + name
		if names[key] {
			fail("%s %q defined twice", kind, name)
		}
		names[key] = true
	}

	for _, in := range c.Interactions {
		unique("interaction", in.Name)
		switch in.Type {
		case SquareWell:
			if in.Lambda == 0 || in.Depth == 0 {
				fail("interaction %q: square-well needs lambda and depth", in.Name)
			}
		case SquareBond:
			if in.Lambda == 0 {
				fail("interaction %q: square-bond needs lambda", in.Name)
			}
		case Rod:
			if c.Dynamics.Type != "" && c.Dynamics.Type != "newtonian" {
				fail("interaction %q: rods need newtonian dynamics", in.Name)
			}
		}
		errs = append(errs, checkRange("interaction "+in.Name, in.Range, n)...)
	}

	for _, l := range c.Locals {
		unique("local", l.Name)
		switch l.Type {
		case Wall:
			if len(l.Normal) == 0 {
				fail("local %q: wall needs a normal", l.Name)
			}
		case Cylinder:
			if len(l.Axis) == 0 || l.Radius == 0 {
				fail("local %q: cylinder needs an axis and a radius", l.Name)
			}
			if l.Temperature > 0 {
				fail("local %q: only walls can be thermal", l.Name)
			}
		}
		errs = append(errs, checkRange("local "+l.Name, l.Range, n)...)
	}

	for _, s := range c.Systems {
		unique("system", s.Name)
		switch s.Type {
		case Ticker:
			if s.Period == 0 {
				fail("system %q: ticker needs a period", s.Name)
			}
		case Rescale:
			if s.Period == 0 || s.Temperature == 0 {
				fail("system %q: rescale needs a period and a temperature", s.Name)
			}
		case Andersen:
			if s.Temperature == 0 || s.MeanFreeTime == 0 {
				fail("system %q: andersen needs a temperature and a mean free time", s.Name)
			}
			if c.Dynamics.Type == "sheared" {
				fail("system %q: the andersen thermostat does not support sheared dynamics", s.Name)
			}
		}
		errs = append(errs, checkRange("system "+s.Name, s.Range, n)...)
	}

	return errors.Join(errs...)
}

// checkRange checks that a range only names particles 0..n-1.
func checkRange(owner string, r *Range, n int) []error {
	if r == nil {
		return nil
	}
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, model.NewConfigurationError("%s: %s", owner, fmt.Sprintf(format, args...)))
	}
	switch r.Type {
	case RangeWithin, RangeChains:
		if r.End <= r.Start {
			fail("range end %d must be after start %d", r.End, r.Start)
		}
		if r.End > n {
			fail("range end %d exceeds the %d particles", r.End, n)
		}
		if r.Type == RangeChains && r.Length < 2 {
			fail("chains need a length of at least 2")
		}
	case RangePairs:
		if len(r.Pairs) == 0 {
			fail("pairs range is empty")
		}
		for _, p := range r.Pairs {
			switch {
			case len(p) != 2:
				fail("pair %v must have two ids", p)
			case p[0] == p[1]:
				fail("pair %v pairs a particle with itself", p)
			case p[0] >= n || p[1] >= n:
				fail("pair %v names a particle beyond the %d particles", p, n)
			}
		}
	}
	return errs
}
