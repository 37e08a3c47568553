package poly

import "github.com/go-gl/mathgl/mgl64"

// Vec is a vector whose components are polynomials in t.
type Vec [3]Poly

// VecOf returns the trajectory r0 + v t + a t^2/2.
func VecOf(r0, v, a mgl64.Vec3) Vec {
	var out Vec
	for i := 0; i < 3; i++ {
		out[i] = Poly{r0[i], v[i], 0.5 * a[i]}.Trim()
	}
	return out
}

// Sub returns a - b componentwise.
func (a Vec) Sub(b Vec) Vec {
	return Vec{a[0].Sub(b[0]), a[1].Sub(b[1]), a[2].Sub(b[2])}
}

// Add returns a + b componentwise.
func (a Vec) Add(b Vec) Vec {
	return Vec{a[0].Add(b[0]), a[1].Add(b[1]), a[2].Add(b[2])}
}

// Dot returns the polynomial a . b.
func (a Vec) Dot(b Vec) Poly {
	return a[0].Mul(b[0]).Add(a[1].Mul(b[1])).Add(a[2].Mul(b[2])).Trim()
}

// Norm2 returns |a|^2.
func (a Vec) Norm2() Poly { return a.Dot(a) }

// DotVec returns the polynomial a . n for a fixed vector n.
func (a Vec) DotVec(n mgl64.Vec3) Poly {
	return a[0].Scale(n[0]).Add(a[1].Scale(n[1])).Add(a[2].Scale(n[2])).Trim()
}

// Eval evaluates every component at t.
func (a Vec) Eval(t float64) mgl64.Vec3 {
	return mgl64.Vec3{a[0].Eval(t), a[1].Eval(t), a[2].Eval(t)}
}

// Deriv differentiates every component.
func (a Vec) Deriv() Vec {
	return Vec{a[0].Deriv(), a[1].Deriv(), a[2].Deriv()}
}
