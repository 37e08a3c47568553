package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edmd/internal/engine"
	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/testutil"
)

func TestBuild_Gas(t *testing.T) {
	cfg, err := Load("testdata/gas.yaml")
	require.NoError(t, err)
	e, err := Build(cfg, engine.WithLogger(testutil.QuietLogger()), engine.WithRunID("gas"))
	require.NoError(t, err)

	assert.Len(t, e.Particles(), 108)
	assert.InDelta(t, 6, e.Env().Boundary.Box()[0], 1e-12)
	assert.Len(t, e.Systems(), 1)
	assert.Equal(t, uint64(2000), e.Budget().Events)

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, engine.StatusCompleted, e.Status())
	assert.Equal(t, uint64(2000), e.EventCount())
	assert.Empty(t, e.ValidateState())
}

func TestBuild_SameSeedSameRun(t *testing.T) {
	run := func() []engine.Record {
		cfg, err := Load("testdata/gas.yaml")
		require.NoError(t, err)
		e, err := Build(cfg, engine.WithLogger(testutil.QuietLogger()), engine.WithRunID("gas"), engine.WithEventBudget(300))
		require.NoError(t, err)
		rec := &engine.Recorder{}
		e.AddObserver(rec)
		require.NoError(t, e.Run(context.Background()))
		return rec.Records
	}
	a, b := run(), run()
	assert.Len(t, a, 300)
	assert.Equal(t, -1, engine.Divergence(a, b))
}

func TestBuild_SpeciesAndWalls(t *testing.T) {
	cfg, err := Load("testdata/box.yaml")
	require.NoError(t, err)
	e, err := Build(cfg, engine.WithLogger(testutil.QuietLogger()), engine.WithTimeBudget(10))
	require.NoError(t, err)

	ps := e.Particles()
	require.Len(t, ps, 3)
	assert.Equal(t, 1.0, ps[0].Mass)
	assert.Equal(t, 2.0, ps[1].Mass)
	assert.False(t, ps[2].Dynamic())

	rec := &engine.Recorder{}
	e.AddObserver(rec)
	require.NoError(t, e.Run(context.Background()))

	require.Len(t, rec.Records, 2)
	assert.Equal(t, model.Wall, rec.Records[0].Event.Type)
	assert.Equal(t, 1, rec.Records[0].Event.Particle1)
	assert.InDelta(t, 2.5, rec.Records[0].Time, 1e-12)
	assert.Equal(t, 0, rec.Records[1].Event.Particle1)
	assert.InDelta(t, 4.5, rec.Records[1].Time, 1e-12)

	// The left wall is perfectly inelastic.
	assert.InDelta(t, 0, e.Particles()[1].Velocity.Len(), 1e-12)
}

func TestBuild_Options(t *testing.T) {
	doc := `
box: [6, 6, 6]
index: brute
sentinel: true
rejection_limit: 3
particles:
  - {position: [0, 0, 0], velocity: [1, 0, 0]}
  - {position: [2, 0, 0], velocity: [-1, 0, 0]}
interactions: [{type: hard-sphere, name: core, diameter: 1}]
systems:
  - {type: andersen, name: bath, temperature: 1, mean_free_time: 2, set_point: 0.1}
  - {type: rescale, name: hold, temperature: 1, period: 5}
`
	cfg, err := Parse([]byte(doc), FormatYAML, "inline.yaml")
	require.NoError(t, err)
	e, err := Build(cfg, engine.WithLogger(testutil.QuietLogger()), engine.WithEventBudget(50))
	require.NoError(t, err)

	assert.True(t, cfg.Sentinel)
	assert.Equal(t, 3, cfg.RejectionLimit)
	assert.Equal(t, "brute", e.Index().Name())
	assert.Len(t, e.Systems(), 2)
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(50), e.EventCount())
	assert.Greater(t, e.Transitions(), uint64(0))
}

func TestBuild_CompressionRegridsOnInitialise(t *testing.T) {
	doc := `
dynamics: {type: compression, growth_rate: 0.01}
lattice: {type: sc, cells: 3, density: 0.2}
interactions: [{type: hard-sphere, name: core, diameter: 1}]
`
	cfg, err := Parse([]byte(doc), FormatYAML, "inline.yaml")
	require.NoError(t, err)
	e, err := Build(cfg, engine.WithLogger(testutil.QuietLogger()))
	require.NoError(t, err)
	assert.Empty(t, e.Systems())

	require.NoError(t, e.Initialise())
	require.Len(t, e.Systems(), 1)
	assert.Equal(t, "regrid", e.Systems()[0].Name())
}

func TestBuild_CrossedRods(t *testing.T) {
	doc := `
box: [10, 10, 10]
species: [{name: rod, inertia: 1}]
particles:
  - {species: rod, position: [0, 0, 0], velocity: [0, 1, 0]}
  - {species: rod, position: [0, 1.5, 0], director: [1, 0, 0], spin: [0, 0.5, 0]}
interactions: [{type: rod, name: rods, diameter: 2}]
`
	cfg, err := Parse([]byte(doc), FormatYAML, "inline.yaml")
	require.NoError(t, err)
	e, err := Build(cfg, engine.WithLogger(testutil.QuietLogger()), engine.WithTimeBudget(3))
	require.NoError(t, err)

	ps := e.Particles()
	assert.InDelta(t, 1, ps[1].Orientation.Rotate(model.Vector{0, 0, 1}).X(), 1e-12)
	assert.Equal(t, model.Vector{0, 0.5, 0}, ps[1].AngularVelocity)

	rec := &engine.Recorder{}
	e.AddObserver(rec)
	require.NoError(t, e.Run(context.Background()))

	var core []engine.Record
	for _, r := range rec.Records {
		if r.Event.Type == model.Core {
			core = append(core, r)
		}
	}
	require.Len(t, core, 1)
	assert.InDelta(t, 1.5, core[0].Time, 1e-6)
	assert.InDelta(t, 0, e.Particles()[0].Velocity.Len(), 1e-9)
	assert.Empty(t, e.ValidateState())
}
