package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edmd/internal/boundary"
	"github.com/roach88/edmd/internal/model"
)

func strategies(t *testing.T) map[string]Dynamics {
	t.Helper()
	out := map[string]Dynamics{}
	for name, tc := range map[string]struct {
		kind   Kind
		params Params
	}{
		"newtonian":   {KindNewtonian, Params{}},
		"gravity":     {KindGravity, Params{Gravity: model.Vector{0, -9.81, 0.5}}},
		"sheared":     {KindSheared, Params{ShearRate: 0.7}},
		"compression": {KindCompression, Params{GrowthRate: 0.1}},
	} {
		d, err := New(tc.kind, tc.params)
		require.NoError(t, err)
		out[name] = d
	}
	return out
}

func spinning() model.Particle {
	p := model.NewParticle(0, model.Vector{0.3, -1.2, 2.5}, model.Vector{1.5, -0.25, 0.75})
	p.Inertia = 0.4
	p.AngularVelocity = model.Vector{0, 0.5, 2}
	return p
}

func assertVecNear(t *testing.T, want, got model.Vector, delta float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want[i], got[i], delta, "component %d", i)
	}
}

func TestStream_Composes(t *testing.T) {
	for name, d := range strategies(t) {
		t.Run(name, func(t *testing.T) {
			a, b := spinning(), spinning()

			d.Stream(&a, 0.4)
			d.Stream(&a, 1.35)
			d.Stream(&b, 1.75)

			assertVecNear(t, b.Position, a.Position, 1e-12)
			assertVecNear(t, b.Velocity, a.Velocity, 1e-12)
			assert.True(t, a.Orientation.ApproxEqualThreshold(b.Orientation, 1e-12))
			assert.InDelta(t, 1.75, a.Time, 1e-15)
		})
	}
}

func TestTrajectory_MatchesStream(t *testing.T) {
	for name, d := range strategies(t) {
		t.Run(name, func(t *testing.T) {
			p := spinning()
			traj := d.Trajectory(&p)
			d.Stream(&p, 2.2)
			assertVecNear(t, p.Position, traj.Eval(2.2), 1e-12)
		})
	}
}

func TestUpdate_StreamsToClock(t *testing.T) {
	d := &Newtonian{}
	p := model.NewParticle(0, model.Vector{}, model.Vector{1, 2, 3})

	d.Advance(2)
	Update(d, &p)
	assert.Equal(t, model.Vector{2, 4, 6}, p.Position)
	assert.Equal(t, 2.0, p.Time)

	Update(d, &p)
	assert.Equal(t, model.Vector{2, 4, 6}, p.Position, "second update is a no-op")
}

func TestNew_Unknown(t *testing.T) {
	_, err := New("brownian", Params{})
	assert.Error(t, err)

	_, err = New(KindCompression, Params{GrowthRate: -1})
	assert.Error(t, err)
}

func TestSupports(t *testing.T) {
	s := &Sheared{}
	assert.False(t, s.Supports(CapLocals))
	assert.False(t, s.Supports(CapThermostat))
	assert.True(t, s.Supports(CapRotation))

	c := &Compression{}
	assert.False(t, c.Supports(CapStatic))
	assert.True(t, c.Supports(CapLocals))

	assert.Equal(t, "thermostat", CapThermostat.String())
}

func TestSheared_PairPathUsesImagedSeparation(t *testing.T) {
	d := &Sheared{Rate: 0.5}
	bc := boundary.LeesEdwards{Size: model.Vector{10, 10, 10}, ShearRate: 0.5}
	e := NewEnv(d, bc)

	p1 := model.NewParticle(0, model.Vector{0, 4.5, 0}, model.Vector{})
	p2 := model.NewParticle(1, model.Vector{0, -4.5, 0}, model.Vector{})

	rij, vij := e.PairState(&p1, &p2)
	assert.InDelta(t, -1, rij[1], 1e-12)
	// Relative flow velocity follows the imaged y separation.
	assert.InDelta(t, -0.5, vij[0], 1e-12)
}

func TestCompression_ContactGrows(t *testing.T) {
	d := &Compression{Rate: 0.5}
	e := NewEnv(d, boundary.None{Size: model.Vector{10, 10, 10}})

	assert.Equal(t, 2.0, e.Length(2))
	d.Advance(2)
	assert.Equal(t, 4.0, e.Length(2))
	assert.InDelta(t, 5.0, e.Contact(2).Eval(1), 1e-15)
}

func TestRotate_IgnoresPointParticles(t *testing.T) {
	d := &Newtonian{}
	p := model.NewParticle(0, model.Vector{}, model.Vector{})
	p.AngularVelocity = model.Vector{1, 0, 0}
	d.Stream(&p, 1)
	assert.Equal(t, mgl64.QuatIdent(), p.Orientation)
}
