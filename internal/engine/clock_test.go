package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_Stamps(t *testing.T) {
	tests := []struct {
		name  string
		clock *Clock
		want  []int64
	}{
		{"fresh run", NewClock(), []int64{1, 2, 3}},
		{"resumed at 500", NewClockAt(500), []int64{501, 502, 503}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, w := range tt.want {
				assert.Equal(t, w, tt.clock.Next())
			}
			assert.Equal(t, tt.want[len(tt.want)-1], tt.clock.Current())
		})
	}
}

func TestClock_ConcurrentReaders(t *testing.T) {
	c := NewClock()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := int64(0)
			for range 1000 {
				now := c.Current()
				assert.GreaterOrEqual(t, now, last)
				last = now
			}
		}()
	}
	for range 5000 {
		c.Next()
	}
	wg.Wait()
	assert.Equal(t, int64(5000), c.Current())
}

func TestClock_RecordSeqsAreContiguous(t *testing.T) {
	e := newGas(t, WithEventBudget(300))
	rec := &Recorder{}
	e.AddObserver(rec)
	require.NoError(t, e.Run(context.Background()))

	require.Len(t, rec.Records, 300)
	for i, r := range rec.Records {
		assert.Equal(t, uint64(i+1), r.Seq)
		if i > 0 {
			assert.GreaterOrEqual(t, r.Time, rec.Records[i-1].Time)
		}
	}
	assert.Equal(t, uint64(300), e.EventCount())
}
