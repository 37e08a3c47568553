package scheduler

import (
	"container/heap"

	"github.com/roach88/edmd/internal/model"
)

// entry is a stored event. key is the absolute stream time the event fires
// at; seq breaks ties in push order.
type entry struct {
	ev  model.Event
	key float64
	seq uint64
}

func (a entry) before(b entry) bool {
	if a.key != b.key {
		return a.key < b.key
	}
	return a.seq < b.seq
}

// pel is one particle's event list, kept as a binary heap.
type pel []entry

func (p pel) Len() int           { return len(p) }
func (p pel) Less(i, j int) bool { return p[i].before(p[j]) }
func (p pel) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }
func (p *pel) Push(x any)        { *p = append(*p, x.(entry)) }

func (p *pel) Pop() any {
	old := *p
	n := len(old)
	x := old[n-1]
	*p = old[:n-1]
	return x
}

func (p *pel) push(e entry) { heap.Push(p, e) }

func (p *pel) pop() entry { return heap.Pop(p).(entry) }

func (p pel) top() (entry, bool) {
	if len(p) == 0 {
		return entry{}, false
	}
	return p[0], true
}

func (p *pel) clear() { *p = (*p)[:0] }

// shift subtracts d from every key. Uniform shifts keep the heap order.
func (p pel) shift(d float64) {
	for i := range p {
		p[i].key -= d
	}
}
