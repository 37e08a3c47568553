package poly

import "math"

// Result is the outcome of an event search on an overlap function.
type Result struct {
	T     float64
	Found bool
	// Tangent marks searches that touched zero without crossing it. They
	// report no event.
	Tangent bool
}

// NextEvent returns the time t >= 0 at which the overlap function f next
// becomes negative while decreasing, and false if that never happens.
//
// The policy is fixed:
//   - apart now: the next genuine sign change into overlap;
//   - overlapping and approaching: 0, an instant event;
//   - overlapping and separating: the next turning point of f at which the
//     bodies are still in contact, otherwise the next re-entry after it;
//   - tangency and even-multiplicity roots are not events.
//
// scale is the characteristic length of the bodies involved; it sets the
// bracketing precision for degree 3 and 4.
func NextEvent(f Poly, scale float64) (float64, bool) {
	r := Next(f, scale)
	return r.T, r.Found
}

// Next is NextEvent with tangency reporting.
func Next(f Poly, scale float64) Result {
	f = f.Trim()
	switch f.Degree() {
	case 0:
		return Result{}
	case 1:
		return nextLinear(f[0], f[1])
	case 2:
		return nextQuadratic(f[0], f[1], f[2])
	}

	tol := DefaultPrecision * math.Abs(scale)
	if f[0] >= 0 {
		return nextNegative(f, 0, tol)
	}
	df := f.Deriv()
	if df[0] < 0 {
		return Result{T: 0, Found: true}
	}
	turn := nextNegative(df, 0, tol)
	if !turn.Found {
		return Result{}
	}
	if f.Eval(turn.T) <= 0 {
		return turn
	}
	return nextNegative(f, turn.T, tol)
}

func nextLinear(f0, f1 float64) Result {
	if f1 >= 0 {
		return Result{}
	}
	return Result{T: math.Max(0, -f0/f1), Found: true}
}

func nextQuadratic(f0, f1, f2 float64) Result {
	arg := f1*f1 - 4*f2*f0
	if f2 < 0 {
		// Heading into permanent overlap.
		if arg <= 0 {
			return Result{T: math.Max(0, -f1/(2*f2)), Found: true}
		}
		if f1 > 0 {
			return Result{T: math.Max(0, (-f1-math.Sqrt(arg))/(2*f2)), Found: true}
		}
		return Result{T: math.Max(0, 2*f0/(-f1+math.Sqrt(arg))), Found: true}
	}
	// Only an event between the first root and the turning point.
	if f1 >= 0 || arg < 0 {
		return Result{}
	}
	if arg == 0 {
		return Result{Tangent: true}
	}
	return Result{T: math.Max(0, 2*f0/(-f1+math.Sqrt(arg))), Found: true}
}

// nextNegative returns the first time >= origin after which f is negative.
// A numerical sign change right at origin reports origin itself.
func nextNegative(f Poly, origin, tol float64) Result {
	var roots []float64
	for _, r := range BracketRoots(f, tol) {
		if r >= origin {
			roots = append(roots, r)
		}
	}

	sample := origin + 1
	if len(roots) > 0 {
		sample = origin + 0.5*(roots[0]-origin)
	}
	if f.Eval(sample) < 0 {
		return Result{T: origin, Found: true}
	}

	for i, r := range roots {
		next := r + 1
		if i+1 < len(roots) {
			next = r + 0.5*(roots[i+1]-r)
		}
		if f.Eval(next) < 0 {
			return Result{T: r, Found: true}
		}
	}
	return Result{Tangent: len(roots) > 0}
}
