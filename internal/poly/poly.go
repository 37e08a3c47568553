// Package poly implements the low-degree real polynomials that describe how
// separations evolve between events, together with the root finders used to
// predict when an overlap function changes sign.
//
// Overlap functions follow one sign convention everywhere: f(t) > 0 while
// the bodies are apart, f(t) < 0 while they overlap.
package poly

import (
	"math"
	"strconv"
	"strings"
)

// MaxDegree is the highest degree any overlap function reaches.
const MaxDegree = 4

// Poly is a polynomial in t with p[i] the coefficient of t^i.
type Poly []float64

// Constant returns the degree-0 polynomial c.
func Constant(c float64) Poly { return Poly{c} }

// Linear returns c0 + c1 t.
func Linear(c0, c1 float64) Poly { return Poly{c0, c1} }

// Degree returns the index of the highest non-zero coefficient, or 0 for
// the zero polynomial.
func (p Poly) Degree() int {
	for i := len(p) - 1; i > 0; i-- {
		if p[i] != 0 {
			return i
		}
	}
	return 0
}

// Trim drops trailing zero coefficients.
func (p Poly) Trim() Poly {
	if len(p) == 0 {
		return Poly{0}
	}
	return p[:p.Degree()+1]
}

// Coeff returns the coefficient of t^i, zero past the end.
func (p Poly) Coeff(i int) float64 {
	if i < len(p) {
		return p[i]
	}
	return 0
}

// Eval evaluates p at t by Horner's scheme.
func (p Poly) Eval(t float64) float64 {
	var sum float64
	for i := len(p) - 1; i >= 0; i-- {
		sum = sum*t + p[i]
	}
	return sum
}

// Deriv returns dp/dt.
func (p Poly) Deriv() Poly {
	if len(p) <= 1 {
		return Poly{0}
	}
	d := make(Poly, len(p)-1)
	for i := 1; i < len(p); i++ {
		d[i-1] = float64(i) * p[i]
	}
	return d
}

// Add returns p + q.
func (p Poly) Add(q Poly) Poly {
	n := max(len(p), len(q))
	r := make(Poly, n)
	for i := range r {
		r[i] = p.Coeff(i) + q.Coeff(i)
	}
	return r
}

// Sub returns p - q.
func (p Poly) Sub(q Poly) Poly {
	n := max(len(p), len(q))
	r := make(Poly, n)
	for i := range r {
		r[i] = p.Coeff(i) - q.Coeff(i)
	}
	return r
}

// Mul returns the product p q.
func (p Poly) Mul(q Poly) Poly {
	if len(p) == 0 || len(q) == 0 {
		return Poly{0}
	}
	r := make(Poly, len(p)+len(q)-1)
	for i, a := range p {
		if a == 0 {
			continue
		}
		for j, b := range q {
			r[i+j] += a * b
		}
	}
	return r
}

// Scale returns s p.
func (p Poly) Scale(s float64) Poly {
	r := make(Poly, len(p))
	for i, a := range p {
		r[i] = s * a
	}
	return r
}

// Shift returns q(t) = p(t + t0).
func (p Poly) Shift(t0 float64) Poly {
	if t0 == 0 {
		return append(Poly(nil), p...)
	}
	r := Poly{0}
	// Horner with a linear factor (t + t0).
	for i := len(p) - 1; i >= 0; i-- {
		r = r.Mul(Linear(t0, 1)).Add(Constant(p[i]))
	}
	return r.Trim()
}

func (p Poly) String() string {
	var b strings.Builder
	for i, c := range p {
		if i > 0 {
			b.WriteString(" + ")
		}
		b.WriteString(strconv.FormatFloat(c, 'g', -1, 64))
		if i > 0 {
			b.WriteString("t")
			if i > 1 {
				b.WriteString("^" + strconv.Itoa(i))
			}
		}
	}
	return b.String()
}

// cauchyBound returns a radius containing every real root of p.
func cauchyBound(p Poly) float64 {
	n := p.Degree()
	lead := math.Abs(p[n])
	var m float64
	for i := 0; i < n; i++ {
		m = math.Max(m, math.Abs(p[i])/lead)
	}
	return 1 + m
}
