package cells

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/roach88/edmd/internal/boundary"
	"github.com/roach88/edmd/internal/local"
	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/physics"
	"github.com/roach88/edmd/internal/poly"
)

var posInf = math.Inf(1)

const (
	// DefaultOverlap is the fraction of the free space in a cell by which it
	// overlaps its neighbours.
	DefaultOverlap = 0.9

	// CompressionOverlap replaces DefaultOverlap while lengths grow.
	CompressionOverlap = 0.001

	// minCells is the preferred smallest number of cells per axis.
	minCells = 4

	// spanCells is the number of cells per axis whose single neighbourhood
	// covers the whole axis. It is used when minCells cells would be
	// narrower than the interaction range.
	spanCells = 3

	// compressionHeadroom is the relative room a lattice keeps above the
	// cutoff while lengths grow, so that successive regrids do not creep
	// up on the lattice width.
	compressionHeadroom = 1e-3

	embiggen = 1 + 10*2.220446049250313e-16
)

// Cells is the overlapping cell list.
//
// Space is cut into a lattice of width W per axis. Each cell is then
// expanded to W + (W - cutoff)*Overlap, centred on its lattice site, and a
// particle keeps its cell until it leaves the expanded box. The 27 cells
// around a particle's cell contain every partner closer than the cutoff.
type Cells struct {
	// Overlap is the overlap fraction; zero selects the default for the
	// active dynamics.
	Overlap float64

	logger *slog.Logger

	lees     bool
	overlap  float64
	cutoff   float64
	box      model.Vector
	lattice  model.Vector
	dim      model.Vector
	offset   model.Vector
	counts   [3]int
	contents map[uint32][]int
	cellOf   []uint32
	locals   []local.Local
	reach    map[uint32][]int
}

// New returns an empty cell list.
func New(logger *slog.Logger) *Cells {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cells{logger: logger}
}

func (*Cells) Name() string { return "cells" }

func (c *Cells) Build(e *physics.Env, ps []model.Particle, cutoff float64, locals []local.Local) error {
	if err := checkIDs(ps); err != nil {
		return err
	}
	if cutoff <= 0 {
		return model.NewConfigurationError("cell list needs a positive interaction range, got %g", cutoff)
	}
	c.box = e.Boundary.Box()
	c.lees = e.Boundary.Kind() == boundary.KindLeesEdwards
	c.cutoff = cutoff
	c.locals = locals
	c.overlap = c.Overlap
	if c.overlap == 0 {
		c.overlap = DefaultOverlap
		if e.Dynamics.Kind() == physics.KindCompression {
			c.overlap = CompressionOverlap
		}
	}

	need := cutoff
	if e.Dynamics.Kind() == physics.KindCompression {
		need *= 1 + compressionHeadroom
	}
	width := cutoff
	if n := len(ps); n > 0 {
		width = math.Max(width, math.Cbrt(c.box[0]*c.box[1]*c.box[2]/float64(n)))
	}
	for i := 0; i < 3; i++ {
		n := int(c.box[i] / (width * embiggen))
		n = min(max(n, minCells), MaxCoord+1)
		if c.box[i]/float64(n) < need {
			n = max(int(c.box[i]/(need*embiggen)), spanCells)
		}
		c.counts[i] = n
		c.lattice[i] = c.box[i] / float64(n)
		free := math.Max(c.lattice[i]-cutoff, 0) * c.overlap
		c.dim[i] = c.lattice[i] + free
		c.offset[i] = -0.5 * free
	}
	if got := c.MaxSupported(); got < cutoff {
		return model.NewConfigurationError("box %v is too small for interaction range %g (cells support %g)", c.box, cutoff, got)
	}

	c.contents = make(map[uint32][]int)
	c.cellOf = make([]uint32, len(ps))
	for i := range ps {
		e.Update(&ps[i])
		id := Morton(c.coords(e, ps[i].Position))
		c.cellOf[i] = id
		c.contents[id] = append(c.contents[id], i)
	}
	c.attachLocals()

	c.logger.Debug("cells built",
		"counts", fmt.Sprintf("%dx%dx%d", c.counts[0], c.counts[1], c.counts[2]),
		"lattice", c.lattice,
		"cell_dim", c.dim,
		"overlap", c.overlap,
		"supported", c.MaxSupported())
	return nil
}

func (c *Cells) attachLocals() {
	c.reach = make(map[uint32][]int)
	if len(c.locals) == 0 {
		return
	}
	for z := 0; z < c.counts[2]; z++ {
		for y := 0; y < c.counts[1]; y++ {
			for x := 0; x < c.counts[0]; x++ {
				coord := [3]int{x, y, z}
				origin := c.origin(coord)
				for i, l := range c.locals {
					if l.Intersects(origin, c.dim) {
						id := Morton(coord)
						c.reach[id] = append(c.reach[id], i)
					}
				}
			}
		}
	}
}

// Counts returns the number of cells per axis.
func (c *Cells) Counts() [3]int { return c.counts }

// MaxSupported is min over axes of 2W - D. An axis of spanCells cells
// supports the whole box width.
func (c *Cells) MaxSupported() float64 {
	out := posInf
	for i := 0; i < 3; i++ {
		supported := 2*c.lattice[i] - c.dim[i]
		if c.counts[i] == spanCells {
			supported = c.box[i]
		}
		out = math.Min(out, supported)
	}
	return out
}

// coords returns the lattice cell containing pos.
func (c *Cells) coords(e *physics.Env, pos model.Vector) [3]int {
	pos = e.Boundary.Wrap(pos, e.Now())
	var out [3]int
	for i := 0; i < 3; i++ {
		k := int(math.Floor((pos[i]-c.offset[i])/c.lattice[i] + 0.5*float64(c.counts[i])))
		out[i] = mod(k, c.counts[i])
	}
	return out
}

// origin returns the lower corner of the expanded box of a cell in the
// primary image.
func (c *Cells) origin(coord [3]int) model.Vector {
	var o model.Vector
	for i := 0; i < 3; i++ {
		o[i] = float64(coord[i])*c.lattice[i] - 0.5*c.box[i] + c.offset[i]
	}
	return o
}

func (c *Cells) centre(coord [3]int) model.Vector {
	return c.origin(coord).Add(c.dim.Mul(0.5))
}

// CellOf returns the coordinates of the cell holding particle id.
func (c *Cells) CellOf(id int) [3]int { return Coords(c.cellOf[id]) }

func (c *Cells) Neighbours(p *model.Particle, visit func(int)) {
	c.visitBlock(Coords(c.cellOf[p.ID]), [3]int{1, 1, 1}, p.ID, visit)
	if c.lees {
		c.visitShearStrip(Coords(c.cellOf[p.ID]), p.ID, visit)
	}
}

func (c *Cells) Locals(p *model.Particle, visit func(int)) {
	for _, i := range c.reach[c.cellOf[p.ID]] {
		visit(i)
	}
}

// visitBlock visits every particle in the cells within span of centre.
func (c *Cells) visitBlock(centre, span [3]int, skip int, visit func(int)) {
	for dz := -span[2]; dz <= span[2]; dz++ {
		for dy := -span[1]; dy <= span[1]; dy++ {
			for dx := -span[0]; dx <= span[0]; dx++ {
				coord := [3]int{
					mod(centre[0]+dx, c.counts[0]),
					mod(centre[1]+dy, c.counts[1]),
					mod(centre[2]+dz, c.counts[2]),
				}
				c.visitCell(Morton(coord), skip, visit)
			}
		}
	}
}

func (c *Cells) visitCell(id uint32, skip int, visit func(int)) {
	for _, other := range c.contents[id] {
		if other != skip {
			visit(other)
		}
	}
}

// visitShearStrip visits the particles reachable across a sliding
// Lees-Edwards face. Their x offset changes continuously, so the whole row
// of the opposite layer is a candidate, minus the cells the ordinary
// neighbourhood already covered.
func (c *Cells) visitShearStrip(centre [3]int, skip int, visit func(int)) {
	var layer int
	switch centre[1] {
	case 0:
		layer = c.counts[1] - 1
	case c.counts[1] - 1:
		layer = 0
	default:
		return
	}
	for dz := -1; dz <= 1; dz++ {
		z := mod(centre[2]+dz, c.counts[2])
		for x := 0; x < c.counts[0]; x++ {
			if d := mod(x-centre[0], c.counts[0]); d <= 1 || d >= c.counts[0]-1 {
				continue
			}
			c.visitCell(Morton([3]int{x, layer, z}), skip, visit)
		}
	}
}

// exit returns, for an up-to-date particle, the time until it leaves its
// cell and the face it leaves through as axis and sign.
func (c *Cells) exit(e *physics.Env, p *model.Particle) (poly.Result, int, int) {
	path := e.Offset(p, c.centre(Coords(c.cellOf[p.ID])))
	best := poly.Result{}
	axis, sign := -1, 0
	for i := 0; i < 3; i++ {
		half := 0.5 * c.dim[i]
		for _, s := range [2]int{1, -1} {
			f := poly.Constant(half).Sub(path[i].Scale(float64(s))).Trim()
			r := poly.Next(f, c.dim[i])
			if r.Found && (!best.Found || r.T < best.T) {
				best, axis, sign = r, i, s
			}
		}
	}
	return best, axis, sign
}

func (c *Cells) Predict(e *physics.Env, p *model.Particle) model.Prediction {
	r, _, _ := c.exit(e, p)
	if !r.Found {
		return model.Never()
	}
	return model.At(model.Event{
		Dt:        r.T,
		Particle1: p.ID,
		Particle2: model.NoPartner,
		Source:    model.SourceGlobal,
		Type:      model.Cell,
	})
}

func (c *Cells) Resolve(e *physics.Env, p *model.Particle, ev model.Event) (Transition, error) {
	if ev.Type != model.Cell {
		return Transition{}, model.NewModelInconsistency("cell list cannot resolve a "+ev.Type.String()+" event", p)
	}
	e.Update(p)
	r, axis, sign := c.exit(e, p)
	if !r.Found {
		return Transition{}, model.NewModelInconsistency("cell transition with no exit face", p).WithTime(e.Now())
	}

	old := Coords(c.cellOf[p.ID])
	next := old
	next[axis] = mod(old[axis]+sign, c.counts[axis])
	wrapsY := axis == 1 && next[1] != old[1]+sign
	if c.lees && wrapsY {
		// The x offset of the image across a sliding face is only known
		// from the position.
		nudged := p.Position
		nudged[1] += float64(sign) * 0.5 * c.dim[1]
		next[0] = c.coords(e, nudged)[0]
	}
	c.move(p.ID, Morton(next))

	var tr Transition
	collect := func(id int) { tr.Neighbours = append(tr.Neighbours, id) }
	if c.lees {
		c.visitBlock(next, [3]int{1, 1, 1}, p.ID, collect)
		c.visitShearStrip(next, p.ID, collect)
	} else {
		front := next
		front[axis] = mod(next[axis]+sign, c.counts[axis])
		span := [3]int{1, 1, 1}
		span[axis] = 0
		c.visitBlock(front, span, p.ID, collect)
	}
	tr.Locals = slices.Clone(c.reach[c.cellOf[p.ID]])
	return tr, nil
}

func (c *Cells) move(id int, to uint32) {
	from := c.cellOf[id]
	list := c.contents[from]
	if i := slices.Index(list, id); i >= 0 {
		list[i] = list[len(list)-1]
		list = list[:len(list)-1]
	}
	if len(list) == 0 {
		delete(c.contents, from)
	} else {
		c.contents[from] = list
	}
	c.contents[to] = append(c.contents[to], id)
	c.cellOf[id] = to
}

// Validate reports a particle outside its expanded cell or missing from
// the contents of its cell.
func (c *Cells) Validate(e *physics.Env, ps []model.Particle) error {
	for i := range ps {
		p := &ps[i]
		id := c.cellOf[p.ID]
		if !slices.Contains(c.contents[id], p.ID) {
			return model.NewModelInconsistency(fmt.Sprintf("particle %d missing from cell %v", p.ID, Coords(id)), p)
		}
		rel := e.Boundary.Apply(p.Position.Sub(c.centre(Coords(id))), e.Now())
		for k := 0; k < 3; k++ {
			tol := 1e-9 * c.dim[k]
			if math.Abs(rel[k]) > 0.5*c.dim[k]+tol {
				err := model.NewModelInconsistency(fmt.Sprintf("particle %d is outside cell %v", p.ID, Coords(id)), p)
				err.Magnitude = math.Abs(rel[k]) - 0.5*c.dim[k]
				return err.WithTime(e.Now())
			}
		}
	}
	return nil
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}
