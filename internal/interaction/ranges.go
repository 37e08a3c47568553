package interaction

import "sort"

// PairKey identifies an unordered pair.
type PairKey struct {
	Lo, Hi int
}

// MakePairKey orders a and b.
func MakePairKey(a, b int) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{Lo: a, Hi: b}
}

// Range is a set of particle pairs.
type Range interface {
	// Contains reports whether the unordered pair (a, b) is in the set.
	Contains(a, b int) bool

	// Includes reports whether id appears in any pair of the set.
	Includes(id int) bool
}

// All contains every pair.
type All struct{}

func (All) Contains(a, b int) bool { return a != b }
func (All) Includes(int) bool      { return true }

// Within contains the pairs whose IDs both lie in [Start, End).
type Within struct {
	Start, End int
}

func (w Within) Includes(id int) bool { return id >= w.Start && id < w.End }

func (w Within) Contains(a, b int) bool {
	return a != b && w.Includes(a) && w.Includes(b)
}

// Between contains the pairs with one ID in each of two intervals.
type Between struct {
	A, B Within
}

func (r Between) Includes(id int) bool { return r.A.Includes(id) || r.B.Includes(id) }

func (r Between) Contains(a, b int) bool {
	return (r.A.Includes(a) && r.B.Includes(b)) || (r.A.Includes(b) && r.B.Includes(a))
}

// Chains contains the bonds of linear chains of Length consecutive IDs
// packed into [Start, End).
type Chains struct {
	Start, End, Length int
}

func (c Chains) Includes(id int) bool { return id >= c.Start && id < c.End }

func (c Chains) Contains(a, b int) bool {
	if !c.Includes(a) || !c.Includes(b) || c.Length < 2 {
		return false
	}
	k := MakePairKey(a, b)
	if k.Hi-k.Lo != 1 {
		return false
	}
	return (k.Lo-c.Start)/c.Length == (k.Hi-c.Start)/c.Length
}

// Pairs is an explicit list of pairs.
type Pairs struct {
	set     map[PairKey]struct{}
	members map[int]struct{}
}

// NewPairs builds a Pairs range.
func NewPairs(pairs [][2]int) *Pairs {
	p := &Pairs{set: make(map[PairKey]struct{}), members: make(map[int]struct{})}
	for _, pr := range pairs {
		p.set[MakePairKey(pr[0], pr[1])] = struct{}{}
		p.members[pr[0]] = struct{}{}
		p.members[pr[1]] = struct{}{}
	}
	return p
}

func (p *Pairs) Contains(a, b int) bool {
	_, ok := p.set[MakePairKey(a, b)]
	return ok
}

func (p *Pairs) Includes(id int) bool {
	_, ok := p.members[id]
	return ok
}

// List returns the pairs in ascending order.
func (p *Pairs) List() []PairKey {
	out := make([]PairKey, 0, len(p.set))
	for k := range p.set {
		out = append(out, k)
	}
	sortKeys(out)
	return out
}

func sortKeys(keys []PairKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Lo != keys[j].Lo {
			return keys[i].Lo < keys[j].Lo
		}
		return keys[i].Hi < keys[j].Hi
	})
}

// pairsOf lists the pairs of r among n particles in ascending order.
func pairsOf(r Range, n int) []PairKey {
	var out []PairKey
	switch r := r.(type) {
	case *Pairs:
		for _, k := range r.List() {
			if k.Hi < n {
				out = append(out, k)
			}
		}
	case Chains:
		for a := r.Start; a+1 < min(r.End, n); a++ {
			if r.Contains(a, a+1) {
				out = append(out, PairKey{Lo: a, Hi: a + 1})
			}
		}
	default:
		for a := 0; a < n; a++ {
			if !r.Includes(a) {
				continue
			}
			for b := a + 1; b < n; b++ {
				if r.Contains(a, b) {
					out = append(out, PairKey{Lo: a, Hi: b})
				}
			}
		}
	}
	return out
}
