package poly

import (
	"math"
	"sort"
)

// DefaultPrecision is the relative precision of bracketed roots, in units
// of the caller's length scale.
const DefaultPrecision = 1e-16

// bisectIterations bounds a single bracket search.
const bisectIterations = 1100

// Roots returns the distinct real roots of p in ascending order.
//
// Degree 1 and 2 use closed forms. Degree 3 uses the closed-form cubic.
// Degree 4 brackets monotonic intervals with the roots of the derivative
// and bisects each bracket to machine precision.
func Roots(p Poly) []float64 {
	p = p.Trim()
	switch p.Degree() {
	case 0:
		return nil
	case 1:
		return []float64{-p[0] / p[1]}
	case 2:
		return quadraticRoots(p[0], p[1], p[2])
	case 3:
		return cubicRoots(p)
	default:
		return bracketRoots(p, 0)
	}
}

// BracketRoots finds the real roots of p by bisection between the turning
// points of p. tol is the absolute root tolerance; zero bisects to machine
// precision.
func BracketRoots(p Poly, tol float64) []float64 {
	p = p.Trim()
	if p.Degree() <= 2 {
		return Roots(p)
	}
	return bracketRoots(p, tol)
}

// quadraticRoots solves c + b t + a t^2 = 0 without catastrophic
// cancellation.
func quadraticRoots(c, b, a float64) []float64 {
	if a == 0 {
		if b == 0 {
			return nil
		}
		return []float64{-c / b}
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		return nil
	}
	if disc == 0 {
		return []float64{-b / (2 * a)}
	}
	q := -0.5 * (b + math.Copysign(math.Sqrt(disc), b))
	r1, r2 := q/a, c/q
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	if r1 == r2 {
		return []float64{r1}
	}
	return []float64{r1, r2}
}

// cubicRoots solves a cubic in closed form and polishes each root with a
// few Newton steps.
func cubicRoots(p Poly) []float64 {
	a := p[3]
	B, C, D := p[2]/a, p[1]/a, p[0]/a

	// Depressed cubic x^3 + P x + Q with t = x - B/3.
	P := C - B*B/3
	Q := 2*B*B*B/27 - B*C/3 + D
	shift := -B / 3

	var roots []float64
	disc := Q*Q/4 + P*P*P/27
	switch {
	case P == 0 && Q == 0:
		roots = []float64{shift}
	case disc > 0:
		u := math.Cbrt(-Q/2 - math.Copysign(math.Sqrt(disc), Q))
		x := u
		if u != 0 {
			x = u - P/(3*u)
		}
		roots = []float64{x + shift}
	default:
		m := 2 * math.Sqrt(-P/3)
		arg := 3 * Q / (P * m)
		arg = math.Max(-1, math.Min(1, arg))
		theta := math.Acos(arg) / 3
		for k := 0; k < 3; k++ {
			roots = append(roots, m*math.Cos(theta-2*math.Pi*float64(k)/3)+shift)
		}
	}

	dp := p.Deriv()
	for i, r := range roots {
		roots[i] = polish(p, dp, r)
	}
	return uniqueSorted(roots)
}

// polish refines r with Newton's method, keeping the better estimate.
func polish(p, dp Poly, r float64) float64 {
	best, fbest := r, math.Abs(p.Eval(r))
	for i := 0; i < 4 && fbest != 0; i++ {
		d := dp.Eval(best)
		if d == 0 {
			break
		}
		next := best - p.Eval(best)/d
		fn := math.Abs(p.Eval(next))
		if !(fn < fbest) {
			break
		}
		best, fbest = next, fn
	}
	return best
}

func bracketRoots(p Poly, tol float64) []float64 {
	bound := cauchyBound(p)
	edges := []float64{-bound}
	for _, c := range Roots(p.Deriv()) {
		if c > -bound && c < bound {
			edges = append(edges, c)
		}
	}
	edges = append(edges, bound)

	var roots []float64
	for i := 0; i+1 < len(edges); i++ {
		lo, hi := edges[i], edges[i+1]
		flo, fhi := p.Eval(lo), p.Eval(hi)
		switch {
		case flo == 0:
			roots = append(roots, lo)
		case fhi == 0:
			roots = append(roots, hi)
		case (flo < 0) != (fhi < 0):
			roots = append(roots, bisect(p, lo, hi, flo, tol))
		}
	}
	return uniqueSorted(roots)
}

// bisect narrows a sign-changing bracket [lo, hi] and returns the end that
// still has the sign of f(lo), so the root is never overshot.
func bisect(p Poly, lo, hi, flo, tol float64) float64 {
	for i := 0; i < bisectIterations; i++ {
		mid := lo + 0.5*(hi-lo)
		if mid <= lo || mid >= hi || hi-lo <= tol {
			break
		}
		fm := p.Eval(mid)
		if fm == 0 {
			return mid
		}
		if (fm < 0) == (flo < 0) {
			lo, flo = mid, fm
		} else {
			hi = mid
		}
	}
	return lo
}

func uniqueSorted(xs []float64) []float64 {
	sort.Float64s(xs)
	out := xs[:0]
	for i, x := range xs {
		if i > 0 && x == out[len(out)-1] {
			continue
		}
		out = append(out, x)
	}
	return out
}
