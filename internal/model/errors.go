package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes simulation errors.
type ErrorKind string

const (
	// KindModelInconsistency indicates a broken physical or bookkeeping
	// invariant: NaN or negative predicted time, a particle outside its
	// cell, a NaN velocity after resolution.
	KindModelInconsistency ErrorKind = "MODEL_INCONSISTENCY"

	// KindConfiguration indicates an incompatible combination of
	// interactions, dynamics and boundaries. Only raised during setup.
	KindConfiguration ErrorKind = "CONFIGURATION_ERROR"

	// KindNumericDegenerate indicates a root search that could not be
	// bracketed. Recovered locally as "no event".
	KindNumericDegenerate ErrorKind = "NUMERIC_DEGENERATE"

	// KindOverlapViolation indicates two bodies overlapping more than their
	// declared hard core allows. Reported by the consistency check.
	KindOverlapViolation ErrorKind = "OVERLAP_VIOLATION"
)

// SimError carries full diagnostic context for a simulation failure.
type SimError struct {
	Kind    ErrorKind
	Message string

	// Particles lists the participant IDs, if any.
	Particles []int

	// Positions holds the participants' positions in the same order.
	Positions []Vector

	// Magnitude is the size of the violation (overlap depth, bad dt, ...).
	Magnitude float64

	// Time is the system time the error was detected at.
	Time float64

	Details map[string]string
}

// Error implements the error interface.
func (e *SimError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Message)
	if len(e.Particles) > 0 {
		ids := make([]string, len(e.Particles))
		for i, id := range e.Particles {
			ids[i] = fmt.Sprintf("%d", id)
		}
		fmt.Fprintf(&b, " (particles=%s", strings.Join(ids, ","))
		if e.Magnitude != 0 {
			fmt.Fprintf(&b, ", magnitude=%g", e.Magnitude)
		}
		fmt.Fprintf(&b, ", t=%g)", e.Time)
	}
	return b.String()
}

// WithTime returns e after recording the detection time.
func (e *SimError) WithTime(t float64) *SimError {
	e.Time = t
	return e
}

// NewModelInconsistency creates a ModelInconsistency error.
func NewModelInconsistency(msg string, particles ...*Particle) *SimError {
	return withParticles(&SimError{Kind: KindModelInconsistency, Message: msg}, particles)
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(format string, args ...any) *SimError {
	return &SimError{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// NewNumericDegenerate creates a NumericDegenerate error.
func NewNumericDegenerate(msg string, particles ...*Particle) *SimError {
	return withParticles(&SimError{Kind: KindNumericDegenerate, Message: msg}, particles)
}

// NewOverlapViolation creates an OverlapViolation for a pair whose overlap
// depth is magnitude.
func NewOverlapViolation(name string, magnitude float64, p1, p2 *Particle) *SimError {
	e := withParticles(&SimError{
		Kind:      KindOverlapViolation,
		Message:   fmt.Sprintf("%s: particles overlap the hard core", name),
		Magnitude: magnitude,
	}, []*Particle{p1, p2})
	return e
}

func withParticles(e *SimError, particles []*Particle) *SimError {
	for _, p := range particles {
		if p == nil {
			continue
		}
		e.Particles = append(e.Particles, p.ID)
		e.Positions = append(e.Positions, p.Position)
	}
	return e
}

func isKind(err error, kind ErrorKind) bool {
	var se *SimError
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}

// IsModelInconsistency reports whether err is a ModelInconsistency.
func IsModelInconsistency(err error) bool { return isKind(err, KindModelInconsistency) }

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool { return isKind(err, KindConfiguration) }

// IsNumericDegenerate reports whether err is a NumericDegenerate error.
func IsNumericDegenerate(err error) bool { return isKind(err, KindNumericDegenerate) }

// IsOverlapViolation reports whether err is an OverlapViolation.
func IsOverlapViolation(err error) bool { return isKind(err, KindOverlapViolation) }
