package cells

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/roach88/edmd/internal/boundary"
	"github.com/roach88/edmd/internal/local"
	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/physics"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func periodicEnv(l float64) *physics.Env {
	return physics.NewEnv(&physics.Newtonian{}, boundary.Periodic{Size: model.Vector{l, l, l}})
}

func randomParticles(rng *rand.Rand, n int, l float64) []model.Particle {
	ps := make([]model.Particle, n)
	for i := range ps {
		var pos, vel model.Vector
		for k := 0; k < 3; k++ {
			pos[k] = (rng.Float64() - 0.5) * l
			vel[k] = rng.NormFloat64()
		}
		ps[i] = model.NewParticle(i, pos, vel)
	}
	return ps
}

func assertComplete(t *testing.T, e *physics.Env, idx Index, ps []model.Particle, cutoff float64) {
	t.Helper()
	for i := range ps {
		seen := map[int]int{}
		idx.Neighbours(&ps[i], func(id int) { seen[id]++ })
		for j := range ps {
			if i == j {
				continue
			}
			if e.Separation(&ps[i], &ps[j]).Len() < cutoff {
				assert.Contains(t, seen, j, "pair %d-%d within cutoff but not neighbours", i, j)
			}
		}
		for id, n := range seen {
			assert.Equal(t, 1, n, "particle %d visited %d times for %d", id, n, i)
		}
	}
}

func TestDilate_RoundTrip(t *testing.T) {
	for x := uint32(0); x <= MaxCoord; x++ {
		require.Equal(t, x, Undilate(Dilate(x)))
	}
	assert.Equal(t, uint32(0x09249249), Dilate(MaxCoord))
}

func TestMorton_Order(t *testing.T) {
	assert.Equal(t, uint32(1), Morton([3]int{1, 0, 0}))
	assert.Equal(t, uint32(2), Morton([3]int{0, 1, 0}))
	assert.Equal(t, uint32(4), Morton([3]int{0, 0, 1}))
	assert.Equal(t, uint32(8), Morton([3]int{2, 0, 0}))

	c := [3]int{517, 3, 1023}
	assert.Equal(t, c, Coords(Morton(c)))
}

func TestCells_CompleteForAnyOverlap(t *testing.T) {
	for _, overlap := range []float64{0.0001, 0.5, 0.9, 0.999} {
		t.Run(fmt.Sprintf("overlap=%g", overlap), func(t *testing.T) {
			e := periodicEnv(10)
			ps := randomParticles(rand.New(rand.NewSource(42)), 200, 10)
			c := New(quietLogger())
			c.Overlap = overlap

			require.NoError(t, c.Build(e, ps, 1, nil))
			assert.GreaterOrEqual(t, c.MaxSupported(), 1.0)
			require.NoError(t, c.Validate(e, ps))
			assertComplete(t, e, c, ps, 1)
		})
	}
}

func TestCells_CompleteAfterTransitions(t *testing.T) {
	e := periodicEnv(10)
	ps := randomParticles(rand.New(rand.NewSource(3)), 60, 10)
	c := New(quietLogger())
	require.NoError(t, c.Build(e, ps, 1, nil))

	for step := 0; step < 500; step++ {
		first, dt := -1, 0.0
		for i := range ps {
			pred := c.Predict(e, &ps[i])
			require.True(t, pred.Found)
			require.GreaterOrEqual(t, pred.Event.Dt, 0.0)
			if first < 0 || pred.Event.Dt < dt {
				first, dt = i, pred.Event.Dt
			}
		}
		e.Dynamics.Advance(dt)
		_, err := c.Resolve(e, &ps[first], model.Event{Type: model.Cell, Particle1: first})
		require.NoError(t, err)
		for i := range ps {
			e.Update(&ps[i])
		}
	}

	require.NoError(t, c.Validate(e, ps))
	assertComplete(t, e, c, ps, 1)
}

func TestCells_TransitionReportsNewNeighbours(t *testing.T) {
	e := periodicEnv(10)
	ps := []model.Particle{
		model.NewParticle(0, model.Vector{0, 0, 0}, model.Vector{1, 0, 0}),
		model.NewParticle(1, model.Vector{4.5, 0, 0}, model.Vector{}),
	}
	c := New(quietLogger())
	require.NoError(t, c.Build(e, ps, 1, nil))
	assert.Equal(t, [3]int{4, 4, 4}, c.Counts())
	assert.Equal(t, [3]int{2, 2, 2}, c.CellOf(0))
	assert.Equal(t, [3]int{0, 2, 2}, c.CellOf(1))

	var before []int
	c.Neighbours(&ps[0], func(id int) { before = append(before, id) })
	assert.Empty(t, before)

	pred := c.Predict(e, &ps[0])
	require.True(t, pred.Found)
	assert.Equal(t, model.Cell, pred.Event.Type)
	assert.Equal(t, model.SourceGlobal, pred.Event.Source)
	assert.InDelta(t, 3.175, pred.Event.Dt, 1e-12)

	e.Dynamics.Advance(pred.Event.Dt)
	tr, err := c.Resolve(e, &ps[0], pred.Event)
	require.NoError(t, err)
	assert.Equal(t, [3]int{3, 2, 2}, c.CellOf(0))
	assert.Equal(t, []int{1}, tr.Neighbours)
	require.NoError(t, c.Validate(e, ps))
}

func TestCells_ShearedImagesComplete(t *testing.T) {
	sheared := &physics.Sheared{Rate: 0.7}
	sheared.SetTime(3.3)
	e := physics.NewEnv(sheared, boundary.LeesEdwards{Size: model.Vector{10, 10, 10}, ShearRate: 0.7})
	ps := randomParticles(rand.New(rand.NewSource(11)), 200, 10)
	c := New(quietLogger())

	require.NoError(t, c.Build(e, ps, 1, nil))
	require.NoError(t, c.Validate(e, ps))
	assertComplete(t, e, c, ps, 1)
}

func TestCells_TooSmall(t *testing.T) {
	e := periodicEnv(3)
	ps := randomParticles(rand.New(rand.NewSource(1)), 4, 3)
	err := New(quietLogger()).Build(e, ps, 4, nil)
	assert.True(t, model.IsConfigurationError(err))
}

func TestCells_SpanningAxis(t *testing.T) {
	e := periodicEnv(3)
	ps := randomParticles(rand.New(rand.NewSource(1)), 12, 3)
	c := New(quietLogger())

	require.NoError(t, c.Build(e, ps, 1, nil))
	assert.Equal(t, [3]int{3, 3, 3}, c.Counts())
	assert.Equal(t, 3.0, c.MaxSupported())
	require.NoError(t, c.Validate(e, ps))
	assertComplete(t, e, c, ps, 3)
}

func TestCells_CompressionFallsBackToSpanningAxis(t *testing.T) {
	tests := []struct {
		name      string
		cutoff    float64
		counts    [3]int
		supported float64
	}{
		// Four cells of width 5 leave no headroom for a growing range.
		{"below quarter box", 4.9, [3]int{4, 4, 4}, 5 - 0.1*CompressionOverlap},
		{"at quarter box", 5, [3]int{3, 3, 3}, 20},
		{"past quarter box", 6.5, [3]int{3, 3, 3}, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := physics.NewEnv(&physics.Compression{Rate: 1}, boundary.Periodic{Size: model.Vector{20, 20, 20}})
			ps := randomParticles(rand.New(rand.NewSource(9)), 27, 20)
			for i := range ps {
				ps[i].Velocity = model.Vector{}
			}
			c := New(quietLogger())

			require.NoError(t, c.Build(e, ps, tt.cutoff, nil))
			assert.Equal(t, tt.counts, c.Counts())
			assert.InDelta(t, tt.supported, c.MaxSupported(), 1e-9)
			assert.GreaterOrEqual(t, c.MaxSupported(), tt.cutoff)
			require.NoError(t, c.Validate(e, ps))
			assertComplete(t, e, c, ps, tt.cutoff)
		})
	}
}

func TestCells_Locals(t *testing.T) {
	e := periodicEnv(10)
	ps := []model.Particle{
		model.NewParticle(0, model.Vector{0, 0, -4.5}, model.Vector{}),
		model.NewParticle(1, model.Vector{0, 0, 0}, model.Vector{}),
	}
	floor, err := local.NewWall("floor", nil, model.Vector{0, 0, -5}, model.Vector{0, 0, 1}, 1, 1)
	require.NoError(t, err)
	c := New(quietLogger())
	require.NoError(t, c.Build(e, ps, 1, []local.Local{floor}))

	var near, far []int
	c.Locals(&ps[0], func(i int) { near = append(near, i) })
	c.Locals(&ps[1], func(i int) { far = append(far, i) })
	assert.Equal(t, []int{0}, near)
	assert.Empty(t, far)
}

func TestBrute(t *testing.T) {
	e := periodicEnv(10)
	ps := randomParticles(rand.New(rand.NewSource(5)), 5, 10)
	b := &Brute{}
	require.NoError(t, b.Build(e, ps, 1, nil))

	var got []int
	b.Neighbours(&ps[2], func(id int) { got = append(got, id) })
	assert.Equal(t, []int{0, 1, 3, 4}, got)
	assert.False(t, b.Predict(e, &ps[2]).Found)

	ps[3].ID = 7
	assert.True(t, model.IsConfigurationError(b.Build(e, ps, 1, nil)))
}

func TestSentinel(t *testing.T) {
	e := periodicEnv(10)
	s := &Sentinel{MaxRange: 1}
	require.NoError(t, s.Check(e))

	p := model.NewParticle(0, model.Vector{1, 2, 3}, model.Vector{1, -0.5, 0})
	pred := s.Predict(e, &p)
	require.True(t, pred.Found)
	assert.Equal(t, model.Virtual, pred.Event.Type)
	assert.Equal(t, 2.0, pred.Event.Dt)

	tr, err := s.Resolve(e, &p, pred.Event)
	require.NoError(t, err)
	assert.True(t, tr.Full)

	assert.True(t, model.IsConfigurationError(s.Check(periodicEnv(1.5))))
}
