package scheduler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/roach88/edmd/internal/model"
)

func pairEv(dt float64, p1, p2 int) model.Event {
	return model.Event{Dt: dt, Particle1: p1, Particle2: p2, Source: model.SourceInteraction, Type: model.Core}
}

func localEv(dt float64, p int) model.Event {
	return model.Event{Dt: dt, Particle1: p, Particle2: model.NoPartner, Source: model.SourceLocal, Type: model.Wall}
}

func naiveTop(f *FEL) (model.Event, bool) {
	var best model.Event
	found := false
	for _, ev := range f.Events() {
		if !f.Valid(ev) {
			continue
		}
		if !found || ev.Dt < best.Dt {
			best, found = ev, true
		}
	}
	return best, found
}

func TestFEL_MatchesNaiveScan(t *testing.T) {
	const n = 20
	rng := rand.New(rand.NewSource(99))
	f := New(n)
	f.SetFlushInterval(7)

	for op := 0; op < 5000; op++ {
		switch k := rng.Intn(10); {
		case k < 4:
			p1 := rng.Intn(n)
			p2 := (p1 + 1 + rng.Intn(n-1)) % n
			f.Push(pairEv(rng.Float64()*10, p1, p2))
		case k < 5:
			f.Push(localEv(rng.Float64()*10, rng.Intn(n)))
		case k < 7:
			f.Invalidate(rng.Intn(n))
		case k < 8:
			if top, ok := f.Top(); ok {
				f.Stream(top.Dt * rng.Float64())
			}
		default:
			if _, ok := f.Top(); ok {
				_, err := f.Pop()
				require.NoError(t, err)
			}
		}

		want, wantOK := naiveTop(f)
		got, gotOK := f.Top()
		require.Equal(t, wantOK, gotOK, "op %d", op)
		if wantOK {
			require.InDelta(t, want.Dt, got.Dt, 1e-9, "op %d", op)
			require.Equal(t, want.Particle1, got.Particle1, "op %d", op)
			require.Equal(t, want.Particle2, got.Particle2, "op %d", op)
			require.Equal(t, want.Source, got.Source, "op %d", op)
		}
	}
}

func TestFEL_LazyInvalidation(t *testing.T) {
	f := New(3)
	f.Push(pairEv(1, 0, 1))
	f.Push(pairEv(2, 0, 2))
	f.Push(localEv(3, 1))

	f.Invalidate(1)
	assert.Equal(t, uint64(1), f.Counter(1))

	top, ok := f.Top()
	require.True(t, ok)
	assert.Equal(t, 2.0, top.Dt)
	assert.Equal(t, 2, top.Particle2)
	assert.Equal(t, uint64(0), top.Counter2)
}

func TestFEL_PopOrderAndStream(t *testing.T) {
	f := New(2)
	f.Push(localEv(5, 0))
	f.Push(localEv(2, 1))
	f.Push(localEv(3, 0))

	ev, err := f.Pop()
	require.NoError(t, err)
	assert.Equal(t, 2.0, ev.Dt)
	f.Stream(ev.Dt)

	ev, err = f.Pop()
	require.NoError(t, err)
	assert.Equal(t, 1.0, ev.Dt)
	f.Stream(ev.Dt)

	f.Flush()
	ev, err = f.Pop()
	require.NoError(t, err)
	assert.Equal(t, 2.0, ev.Dt)

	_, err = f.Pop()
	assert.True(t, model.IsModelInconsistency(err))
	assert.Equal(t, StateDrained, f.State())
}

func TestFEL_TiesKeepPushOrder(t *testing.T) {
	f := New(4)
	f.Push(localEv(1, 3))
	f.Push(localEv(1, 0))
	f.Push(localEv(1, 3))

	var order []int
	for {
		ev, err := f.Pop()
		if err != nil {
			break
		}
		order = append(order, ev.Particle1)
	}
	assert.Equal(t, []int{3, 0, 3}, order)
}

func TestFEL_SystemSlot(t *testing.T) {
	f := New(2)
	f.Push(model.Event{Dt: 0.5, Particle1: model.NoPartner, Particle2: model.NoPartner, Source: model.SourceSystem, Type: model.Tick})
	f.Push(localEv(1, 0))

	top, ok := f.Top()
	require.True(t, ok)
	assert.Equal(t, model.Tick, top.Type)

	f.ClearSystem()
	top, ok = f.Top()
	require.True(t, ok)
	assert.Equal(t, model.Wall, top.Type)
}

func TestFEL_DropsNever(t *testing.T) {
	f := New(1)
	f.Push(localEv(math.Inf(1), 0))
	f.Push(localEv(math.NaN(), 0))
	_, ok := f.Top()
	assert.False(t, ok)
}

func TestFEL_ClearKeepsCounters(t *testing.T) {
	f := New(2)
	f.Invalidate(0)
	f.Push(pairEv(1, 1, 0))
	f.Clear()
	_, ok := f.Top()
	assert.False(t, ok)
	assert.Equal(t, uint64(1), f.Counter(0))

	f.Init(2)
	assert.Zero(t, f.Counter(0))
}
