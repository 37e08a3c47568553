package physics

// Compression streams inertially while every interaction length grows as
// l0*(1 + Rate*t). It is the standard way of packing hard spheres to high
// density.
type Compression struct {
	Newtonian
	Rate float64
}

func (*Compression) Kind() Kind { return KindCompression }

func (c *Compression) Growth() (float64, float64) {
	return 1 + c.Rate*c.t, c.Rate
}

func (*Compression) Supports(c Capability) bool {
	return c != CapStatic
}
