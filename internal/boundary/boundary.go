// Package boundary implements the boundary conditions of the simulation
// box. The primary box is centred on the origin and spans [-L/2, L/2) in
// every dimension.
package boundary

import (
	"fmt"
	"math"

	"github.com/roach88/edmd/internal/model"
)

// Kind names a boundary condition.
type Kind string

const (
	KindNone        Kind = "none"
	KindPeriodic    Kind = "periodic"
	KindLeesEdwards Kind = "lees-edwards"
)

// Boundary maps separations and positions onto the images the physics sees.
type Boundary interface {
	Kind() Kind

	// Box returns the primary box lengths.
	Box() model.Vector

	// Apply returns the minimum image of the separation r at system time t.
	Apply(r model.Vector, t float64) model.Vector

	// Wrap folds an absolute position into the primary box at system time t.
	Wrap(r model.Vector, t float64) model.Vector
}

// New builds the boundary named by kind. shearRate is only used by
// Lees-Edwards.
func New(kind Kind, box model.Vector, shearRate float64) (Boundary, error) {
	for i := 0; i < 3; i++ {
		if !(box[i] > 0) {
			return nil, fmt.Errorf("box length %d must be positive, got %g", i, box[i])
		}
	}
	switch kind {
	case KindNone, "":
		return None{Size: box}, nil
	case KindPeriodic:
		return Periodic{Size: box}, nil
	case KindLeesEdwards:
		return LeesEdwards{Size: box, ShearRate: shearRate}, nil
	default:
		return nil, fmt.Errorf("unknown boundary kind %q", kind)
	}
}

// None is an open boundary. Box only sizes the spatial index.
type None struct {
	Size model.Vector
}

func (None) Kind() Kind                                   { return KindNone }
func (b None) Box() model.Vector                          { return b.Size }
func (None) Apply(r model.Vector, _ float64) model.Vector { return r }
func (None) Wrap(r model.Vector, _ float64) model.Vector  { return r }

// Periodic applies the minimum image convention in all three dimensions.
type Periodic struct {
	Size model.Vector
}

func (Periodic) Kind() Kind          { return KindPeriodic }
func (b Periodic) Box() model.Vector { return b.Size }

func (b Periodic) Apply(r model.Vector, _ float64) model.Vector {
	for i := 0; i < 3; i++ {
		r[i] -= b.Size[i] * math.RoundToEven(r[i]/b.Size[i])
	}
	return r
}

func (b Periodic) Wrap(r model.Vector, t float64) model.Vector { return b.Apply(r, t) }

// LeesEdwards is the sliding-brick boundary for planar shear flow along x
// with the velocity gradient along y. Images across the y faces are shifted
// in x by ShearRate * Ly * t.
type LeesEdwards struct {
	Size      model.Vector
	ShearRate float64
}

func (LeesEdwards) Kind() Kind          { return KindLeesEdwards }
func (b LeesEdwards) Box() model.Vector { return b.Size }

// Shift returns the x displacement of the image above the primary box.
func (b LeesEdwards) Shift(t float64) float64 {
	return math.Mod(b.ShearRate*b.Size[1]*t, b.Size[0])
}

func (b LeesEdwards) Apply(r model.Vector, t float64) model.Vector {
	ny := math.RoundToEven(r[1] / b.Size[1])
	r[0] -= ny * b.Shift(t)
	r[1] -= ny * b.Size[1]
	r[0] -= b.Size[0] * math.RoundToEven(r[0]/b.Size[0])
	r[2] -= b.Size[2] * math.RoundToEven(r[2]/b.Size[2])
	return r
}

func (b LeesEdwards) Wrap(r model.Vector, t float64) model.Vector { return b.Apply(r, t) }
