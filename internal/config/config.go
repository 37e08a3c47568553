package config

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config is a complete simulation description.
//
// Fields carry yaml tags for strict YAML decoding and json tags for the
// CUE encoder and decoder. Zero values are omitted before schema
// unification so that schema defaults apply; fields whose zero is
// meaningful and differs from the default are pointers.
type Config struct {
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
	Seed uint64 `yaml:"seed,omitempty" json:"seed,omitempty"`

	// Box is the primary box. Optional with a lattice, which sizes a cubic
	// box from its density.
	Box      []float64 `yaml:"box,omitempty" json:"box,omitempty"`
	Boundary string    `yaml:"boundary,omitempty" json:"boundary,omitempty"`
	Dynamics Dynamics  `yaml:"dynamics,omitempty" json:"dynamics"`

	// Index selects the spatial index: "cells" or "brute".
	Index string `yaml:"index,omitempty" json:"index,omitempty"`

	// Sentinel registers the PBC sentinel global.
	Sentinel       bool   `yaml:"sentinel,omitempty" json:"sentinel,omitempty"`
	Strict         bool   `yaml:"strict,omitempty" json:"strict,omitempty"`
	RejectionLimit int    `yaml:"rejection_limit,omitempty" json:"rejection_limit,omitempty"`
	Budget         Budget `yaml:"budget,omitempty" json:"budget"`

	Species      []Species     `yaml:"species,omitempty" json:"species,omitempty"`
	Lattice      *Lattice      `yaml:"lattice,omitempty" json:"lattice,omitempty"`
	Particles    []Particle    `yaml:"particles,omitempty" json:"particles,omitempty"`
	Interactions []Interaction `yaml:"interactions,omitempty" json:"interactions,omitempty"`
	Locals       []Local       `yaml:"locals,omitempty" json:"locals,omitempty"`
	Systems      []System      `yaml:"systems,omitempty" json:"systems,omitempty"`

	source []byte
	format Format
	hash   string
}

// Dynamics selects the Liouvillean.
type Dynamics struct {
	Type       string    `yaml:"type,omitempty" json:"type,omitempty"`
	Gravity    []float64 `yaml:"gravity,omitempty" json:"gravity,omitempty"`
	ShearRate  float64   `yaml:"shear_rate,omitempty" json:"shear_rate,omitempty"`
	GrowthRate float64   `yaml:"growth_rate,omitempty" json:"growth_rate,omitempty"`
}

// Budget bounds the run. Zero means unlimited.
type Budget struct {
	Events uint64  `yaml:"events,omitempty" json:"events,omitempty"`
	Time   float64 `yaml:"time,omitempty" json:"time,omitempty"`
}

// Species are the per-particle properties shared by a group of particles.
type Species struct {
	Name    string  `yaml:"name" json:"name"`
	Mass    float64 `yaml:"mass,omitempty" json:"mass,omitempty"`
	Inertia float64 `yaml:"inertia,omitempty" json:"inertia,omitempty"`

	// Static species are immovable obstacles.
	Static bool `yaml:"static,omitempty" json:"static,omitempty"`
}

// Lattice asks the packer for particles.
type Lattice struct {
	Type        string   `yaml:"type" json:"type"`
	Cells       int      `yaml:"cells" json:"cells"`
	Density     float64  `yaml:"density" json:"density"`
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	Species     string   `yaml:"species,omitempty" json:"species,omitempty"`
}

// Particle is one explicitly placed particle. Its ID is its position in
// the final particle list.
type Particle struct {
	Species  string    `yaml:"species,omitempty" json:"species,omitempty"`
	Position []float64 `yaml:"position,flow" json:"position"`
	Velocity []float64 `yaml:"velocity,omitempty,flow" json:"velocity,omitempty"`

	// Director points the particle's body axis, and Spin is its angular
	// velocity. Both matter only to rotating species.
	Director []float64 `yaml:"director,omitempty,flow" json:"director,omitempty"`
	Spin     []float64 `yaml:"spin,omitempty,flow" json:"spin,omitempty"`
}

// Range selects the particles or pairs a predictor applies to.
type Range struct {
	Type   string  `yaml:"type,omitempty" json:"type,omitempty"`
	Start  int     `yaml:"start,omitempty" json:"start,omitempty"`
	End    int     `yaml:"end,omitempty" json:"end,omitempty"`
	Length int     `yaml:"length,omitempty" json:"length,omitempty"`
	Pairs  [][]int `yaml:"pairs,omitempty" json:"pairs,omitempty"`
}

// Interaction configures a pair interaction. For rods Diameter is the rod
// length.
type Interaction struct {
	Type       string   `yaml:"type" json:"type"`
	Name       string   `yaml:"name" json:"name"`
	Diameter   float64  `yaml:"diameter" json:"diameter"`
	Elasticity *float64 `yaml:"elasticity,omitempty" json:"elasticity,omitempty"`
	Tangential float64  `yaml:"tangential,omitempty" json:"tangential,omitempty"`
	Lambda     float64  `yaml:"lambda,omitempty" json:"lambda,omitempty"`
	Depth      float64  `yaml:"depth,omitempty" json:"depth,omitempty"`
	Range      *Range   `yaml:"range,omitempty" json:"range,omitempty"`
}

// Local configures a wall or cylinder.
type Local struct {
	Type        string    `yaml:"type" json:"type"`
	Name        string    `yaml:"name" json:"name"`
	Origin      []float64 `yaml:"origin,flow" json:"origin"`
	Normal      []float64 `yaml:"normal,omitempty,flow" json:"normal,omitempty"`
	Axis        []float64 `yaml:"axis,omitempty,flow" json:"axis,omitempty"`
	Radius      float64   `yaml:"radius,omitempty" json:"radius,omitempty"`
	Diameter    float64   `yaml:"diameter,omitempty" json:"diameter,omitempty"`
	Elasticity  *float64  `yaml:"elasticity,omitempty" json:"elasticity,omitempty"`
	Temperature float64   `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	Slip        float64   `yaml:"slip,omitempty" json:"slip,omitempty"`
	Solid       bool      `yaml:"solid,omitempty" json:"solid,omitempty"`
	Range       *Range    `yaml:"range,omitempty" json:"range,omitempty"`
}

// System configures a system event source.
type System struct {
	Type         string  `yaml:"type" json:"type"`
	Name         string  `yaml:"name" json:"name"`
	Period       float64 `yaml:"period,omitempty" json:"period,omitempty"`
	Temperature  float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MeanFreeTime float64 `yaml:"mean_free_time,omitempty" json:"mean_free_time,omitempty"`
	SetPoint     float64 `yaml:"set_point,omitempty" json:"set_point,omitempty"`
	SetFrequency uint64  `yaml:"set_frequency,omitempty" json:"set_frequency,omitempty"`
	Range        *Range  `yaml:"range,omitempty" json:"range,omitempty"`
}

// Type names.
const (
	HardSphere      = "hard-sphere"
	RoughHardSphere = "rough-hard-sphere"
	SquareWell      = "square-well"
	SquareBond      = "square-bond"
	Rod             = "rod"

	Wall     = "wall"
	Cylinder = "cylinder"

	Ticker   = "ticker"
	Andersen = "andersen"
	Rescale  = "rescale"

	RangeAll    = "all"
	RangeWithin = "within"
	RangeChains = "chains"
	RangePairs  = "pairs"

	LatticeFCC = "fcc"
	LatticeSC  = "sc"
)

// Source returns the document the configuration was parsed from.
func (c *Config) Source() []byte { return c.source }

// Format returns the format of Source.
func (c *Config) Format() Format { return c.format }

// Hash returns the content hash of the resolved configuration, with schema
// defaults applied. Equivalent YAML and CUE documents hash the same.
func (c *Config) Hash() string { return c.hash }

// elasticity returns *e, or 1 when unset.
func elasticity(e *float64) float64 {
	if e == nil {
		return 1
	}
	return *e
}

// Marshal renders c as YAML.
func Marshal(c *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf.Bytes(), nil
}
