package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func nan() float64 { return math.NaN() }
func inf() float64 { return math.Inf(1) }

func TestParticleEventData_Finish(t *testing.T) {
	p := NewParticle(1, Vector{}, Vector{1, 0, 0})
	p.Mass = 2

	d := BeginParticleEvent(&p, Wall)
	p.Velocity = Vector{-1, 0, 0}
	d.Finish(&p)

	assert.Equal(t, Vector{1, 0, 0}, d.OldVelocity)
	assert.Equal(t, Vector{-1, 0, 0}, d.NewVelocity)
	assert.Equal(t, Vector{-4, 0, 0}, d.DeltaP)
	assert.InDelta(t, 0, d.DeltaKE, 1e-15)
}

func TestNEventData_Touched(t *testing.T) {
	p1 := NewParticle(4, Vector{}, Vector{})
	p2 := NewParticle(9, Vector{}, Vector{})
	p3 := NewParticle(2, Vector{}, Vector{})

	n := NEventData{
		Singles: []ParticleEventData{BeginParticleEvent(&p3, Gaussian)},
		Pairs: []PairEventData{{
			Particle1: BeginParticleEvent(&p1, Core),
			Particle2: BeginParticleEvent(&p2, Core),
		}},
	}

	assert.Equal(t, []int{2, 4, 9}, n.Touched())
	assert.False(t, n.Empty())
	assert.True(t, NEventData{}.Empty())
}

func TestParticle_StaticHasInfiniteMass(t *testing.T) {
	p := NewParticle(0, Vector{}, Vector{1, 1, 1})
	assert.Equal(t, 1.0, p.EffectiveMass())

	p.State &^= StateDynamic
	assert.True(t, math.IsInf(p.EffectiveMass(), 1))
	assert.Equal(t, 0.0, p.KineticEnergy())
	assert.Equal(t, Vector{}, p.Momentum())
}

func TestEarliest(t *testing.T) {
	a := At(Event{Dt: 2, Type: Core})
	b := At(Event{Dt: 1, Type: StepOut})

	assert.Equal(t, StepOut, Earliest(a, b).Event.Type)
	assert.Equal(t, Core, Earliest(a, At(Event{Dt: 2, Type: StepOut})).Event.Type, "ties keep the first")
	assert.Equal(t, Core, Earliest(a, Never()).Event.Type)
	assert.Equal(t, StepOut, Earliest(Never(), b).Event.Type)
	assert.True(t, Earliest(Never(), Degenerate()).Degenerate)
	assert.False(t, Earliest(Never(), Never()).Found)
}
