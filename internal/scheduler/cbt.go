package scheduler

import "math"

// cbt is a complete binary tournament tree over leaf keys. Each internal
// node holds the index of the winning leaf below it, so the minimum is at
// the root and a changed leaf replays only its path.
type cbt struct {
	size  int
	keys  []float64
	seqs  []uint64
	nodes []int
}

func newCBT(n int) *cbt {
	size := 1
	for size < n {
		size <<= 1
	}
	t := &cbt{
		size:  size,
		keys:  make([]float64, size),
		seqs:  make([]uint64, size),
		nodes: make([]int, 2*size),
	}
	for i := range t.keys {
		t.keys[i] = math.Inf(1)
	}
	for i := 0; i < size; i++ {
		t.nodes[size+i] = i
	}
	for i := size - 1; i >= 1; i-- {
		t.nodes[i] = t.winner(t.nodes[2*i], t.nodes[2*i+1])
	}
	return t
}

// winner prefers the earlier key, then the earlier push, then the left leaf.
func (t *cbt) winner(a, b int) int {
	switch {
	case t.keys[b] < t.keys[a]:
		return b
	case t.keys[a] < t.keys[b]:
		return a
	case t.seqs[b] < t.seqs[a]:
		return b
	default:
		return a
	}
}

func (t *cbt) set(leaf int, key float64, seq uint64) {
	t.keys[leaf], t.seqs[leaf] = key, seq
	for i := (t.size + leaf) / 2; i >= 1; i /= 2 {
		t.nodes[i] = t.winner(t.nodes[2*i], t.nodes[2*i+1])
	}
}

// min returns the winning leaf; its key is +Inf when every leaf is empty.
func (t *cbt) min() int {
	if t.size == 1 {
		return 0
	}
	return t.nodes[1]
}

func (t *cbt) shift(d float64) {
	for i := range t.keys {
		t.keys[i] -= d
	}
}
