package boundary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edmd/internal/model"
)

func TestNew(t *testing.T) {
	box := model.Vector{10, 10, 10}

	b, err := New(KindPeriodic, box, 0)
	require.NoError(t, err)
	assert.Equal(t, KindPeriodic, b.Kind())

	b, err = New("", box, 0)
	require.NoError(t, err)
	assert.Equal(t, KindNone, b.Kind())

	_, err = New("helical", box, 0)
	assert.Error(t, err)

	_, err = New(KindPeriodic, model.Vector{10, 0, 10}, 0)
	assert.Error(t, err)
}

func TestPeriodic_MinimumImage(t *testing.T) {
	b := Periodic{Size: model.Vector{10, 10, 10}}

	tests := []struct {
		in, want model.Vector
	}{
		{model.Vector{1, 2, 3}, model.Vector{1, 2, 3}},
		{model.Vector{9, 0, 0}, model.Vector{-1, 0, 0}},
		{model.Vector{-6, 14, -21}, model.Vector{4, 4, -1}},
	}
	for _, tt := range tests {
		got := b.Apply(tt.in, 0)
		for i := 0; i < 3; i++ {
			assert.InDelta(t, tt.want[i], got[i], 1e-12)
		}
	}
}

func TestNone_Identity(t *testing.T) {
	b := None{Size: model.Vector{1, 1, 1}}
	r := model.Vector{100, -50, 3}
	assert.Equal(t, r, b.Apply(r, 7))
	assert.Equal(t, r, b.Wrap(r, 7))
}

func TestLeesEdwards_ShiftsAcrossYFaces(t *testing.T) {
	b := LeesEdwards{Size: model.Vector{10, 10, 10}, ShearRate: 0.1}

	// At t=2 the image above is shifted by 0.1*10*2 = 2 in x.
	assert.InDelta(t, 2, b.Shift(2), 1e-12)

	got := b.Apply(model.Vector{1, 9, 0}, 2)
	assert.InDelta(t, -1, got[0], 1e-12)
	assert.InDelta(t, -1, got[1], 1e-12)

	// Without a y crossing it is plain periodic.
	got = b.Apply(model.Vector{9, 1, 0}, 2)
	assert.InDelta(t, -1, got[0], 1e-12)
	assert.InDelta(t, 1, got[1], 1e-12)

	// Zero shear reduces to Periodic.
	zero := LeesEdwards{Size: b.Size}
	p := Periodic{Size: b.Size}
	r := model.Vector{7.5, -8.2, 3.3}
	assert.Equal(t, p.Apply(r, 5), zero.Apply(r, 5))
}
