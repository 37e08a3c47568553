package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edmd/internal/model"
)

func TestLoad_YAML(t *testing.T) {
	cfg, err := Load("testdata/gas.yaml")
	require.NoError(t, err)

	assert.Equal(t, "gas", cfg.Name)
	assert.Equal(t, uint64(7), cfg.Seed)
	assert.Equal(t, FormatYAML, cfg.Format())
	assert.Equal(t, uint64(2000), cfg.Budget.Events)
	require.NotNil(t, cfg.Lattice)
	assert.Equal(t, 108, cfg.Lattice.Count())
	require.Len(t, cfg.Interactions, 1)
	assert.Equal(t, HardSphere, cfg.Interactions[0].Type)
	assert.NotEmpty(t, cfg.Source())
	assert.Len(t, cfg.Hash(), 64)

	// Schema defaults.
	assert.Equal(t, "newtonian", cfg.Dynamics.Type)
	assert.Equal(t, "cells", cfg.Index)
	assert.Equal(t, 1.0, elasticity(cfg.Interactions[0].Elasticity))
}

func TestLoad_CUEMatchesYAML(t *testing.T) {
	y, err := Load("testdata/gas.yaml")
	require.NoError(t, err)
	c, err := Load("testdata/gas.cue")
	require.NoError(t, err)

	assert.Equal(t, FormatCUE, c.Format())
	assert.Equal(t, y.Hash(), c.Hash())
	assert.Equal(t, y.Lattice, c.Lattice)
	assert.Equal(t, y.Systems, c.Systems)
}

func TestParse_CUEBytes(t *testing.T) {
	c, err := Load("testdata/gas.cue")
	require.NoError(t, err)
	again, err := Parse(c.Source(), FormatCUE, "stored.cue")
	require.NoError(t, err)
	assert.Equal(t, c.Hash(), again.Hash())
}

func TestMarshal_RoundTrip(t *testing.T) {
	cfg, err := Load("testdata/box.yaml")
	require.NoError(t, err)

	data, err := Marshal(cfg)
	require.NoError(t, err)
	again, err := Parse(data, FormatYAML, "marshalled.yaml")
	require.NoError(t, err)
	assert.Equal(t, cfg.Hash(), again.Hash())
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		doc    string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "unknown yaml field",
			format: FormatYAML,
			doc:    "box: [5, 5, 5]\ninteraction: []\n",
		},
		{
			name:   "empty document",
			format: FormatYAML,
			doc:    "",
			check: func(t *testing.T, err error) {
				var cfgErr *Error
				assert.True(t, errors.As(err, &cfgErr))
			},
		},
		{
			name:   "elasticity out of range",
			format: FormatYAML,
			doc: `
box: [5, 5, 5]
particles: [{position: [0, 0, 0]}]
interactions: [{type: hard-sphere, name: core, diameter: 1, elasticity: 1.5}]
`,
			check: func(t *testing.T, err error) {
				var cfgErr *Error
				require.True(t, errors.As(err, &cfgErr))
				assert.Contains(t, cfgErr.Field, "interactions")
			},
		},
		{
			name:   "unknown interaction type",
			format: FormatYAML,
			doc: `
box: [5, 5, 5]
particles: [{position: [0, 0, 0]}]
interactions: [{type: soft-sphere, name: core, diameter: 1}]
`,
		},
		{
			name:   "closed cue definition",
			format: FormatCUE,
			doc: `
box: [5, 5, 5]
particles: [{position: [0, 0, 0]}]
colour: "red"
`,
		},
		{
			name:   "square well without depth",
			format: FormatYAML,
			doc: `
box: [5, 5, 5]
particles: [{position: [0, 0, 0]}, {position: [2, 0, 0]}]
interactions: [{type: square-well, name: well, diameter: 1, lambda: 1.5}]
`,
			check: func(t *testing.T, err error) {
				assert.True(t, model.IsConfigurationError(err))
				assert.Contains(t, err.Error(), "lambda and depth")
			},
		},
		{
			name:   "unknown species",
			format: FormatYAML,
			doc: `
box: [5, 5, 5]
particles: [{species: ghost, position: [0, 0, 0]}]
`,
			check: func(t *testing.T, err error) {
				assert.True(t, model.IsConfigurationError(err))
				assert.Contains(t, err.Error(), "ghost")
			},
		},
		{
			name:   "pair beyond particles",
			format: FormatYAML,
			doc: `
box: [5, 5, 5]
particles: [{position: [0, 0, 0]}, {position: [2, 0, 0]}]
interactions:
  - type: square-bond
    name: bond
    diameter: 1
    lambda: 2.5
    range: {type: pairs, pairs: [[0, 1], [1, 5]]}
`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "beyond the 2 particles")
			},
		},
		{
			name:   "rods under gravity",
			format: FormatYAML,
			doc: `
box: [5, 5, 5]
dynamics: {type: gravity, gravity: [0, -1, 0]}
particles: [{position: [0, 0, 0]}]
interactions: [{type: rod, name: sticks, diameter: 1}]
`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "rods need newtonian dynamics")
			},
		},
		{
			name:   "no box and no lattice",
			format: FormatYAML,
			doc:    "particles: [{position: [0, 0, 0]}]\n",
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "box is required")
			},
		},
		{
			name:   "duplicate names",
			format: FormatYAML,
			doc: `
box: [5, 5, 5]
particles: [{position: [0, 0, 0]}]
systems:
  - {type: ticker, name: tick, period: 1}
  - {type: ticker, name: tick, period: 2}
`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), `system "tick" defined twice`)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.doc), tt.format, "inline")
			require.Error(t, err)
			assert.Nil(t, cfg)
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{"a.yaml": FormatYAML, "b.yml": FormatYAML, "c.cue": FormatCUE} {
		got, err := FormatOf(path)
		require.NoError(t, err)
		assert.Equal(t, want, got, path)
	}
	_, err := FormatOf("d.json")
	assert.Error(t, err)
	_, err = FormatOf("noext")
	assert.Error(t, err)
}
