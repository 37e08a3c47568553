package observer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edmd/internal/engine"
	"github.com/roach88/edmd/internal/interaction"
	"github.com/roach88/edmd/internal/store"
	"github.com/roach88/edmd/internal/system"
	"github.com/roach88/edmd/internal/testutil"
)

// newGas returns 125 hard spheres in a periodic box of side 10.
func newGas(t *testing.T, opts ...engine.Option) *engine.Engine {
	t.Helper()
	opts = append([]engine.Option{engine.WithLogger(testutil.QuietLogger()), engine.WithRunID("gas")}, opts...)
	e := engine.New(testutil.PeriodicEnv(10), testutil.Lattice(5, 2, 7), opts...)
	_, err := e.AddInteraction(interaction.NewHardSphere("bulk", interaction.All{}, 1, 1))
	require.NoError(t, err)
	return e
}

func openStore(t *testing.T, runID string) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.WriteRun(context.Background(), store.Run{ID: runID, Config: "{}", ConfigHash: "h", Particles: 125}))
	return st
}

func TestMisc_ElasticGas(t *testing.T) {
	e := newGas(t, engine.WithEventBudget(2000))
	m := NewMisc()
	e.AddObserver(m)
	require.NoError(t, e.Run(context.Background()))

	r := m.Report()
	assert.Equal(t, uint64(2000), r.Events)
	assert.Equal(t, map[string]uint64{"CORE": 2000}, r.Counts)
	assert.Equal(t, []string{"CORE"}, r.Types())
	assert.Greater(t, r.Duration, 0.0)
	assert.InDelta(t, 2000/r.Duration, r.EventRate, 1e-9)

	ke := e.KineticEnergy()
	assert.InDelta(t, ke, r.KineticEnergy, 1e-9*ke)
	assert.InDelta(t, 0, r.KineticEnergyStd, 1e-9*ke)
	assert.InDelta(t, 2*r.KineticEnergy/(3*125), r.Temperature, 1e-12)

	assert.InDelta(t, 125*r.Duration/4000, r.MeanFreeTime, 1e-12)
	assert.Greater(t, r.FreeTimeMean, 0.0)
	assert.Greater(t, r.FreeTimeStd, 0.0)
}

func TestMisc_EmptyReport(t *testing.T) {
	r := NewMisc().Report()
	assert.Zero(t, r.Events)
	assert.Zero(t, r.EventRate)
	assert.Zero(t, r.Temperature)
	assert.Empty(t, r.Types())
}

func TestEventLog_WritesEveryEvent(t *testing.T) {
	ctx := context.Background()
	st := openStore(t, "gas")
	e := newGas(t, engine.WithEventBudget(500))
	rec := &engine.Recorder{}
	log := NewEventLog(ctx, st, "gas", WithBatchSize(64), WithEventLogLogger(testutil.QuietLogger()))
	e.AddObserver(rec)
	e.AddObserver(log)

	require.NoError(t, e.Run(ctx))
	require.NoError(t, log.Err())

	n, err := st.CountEvents(ctx, "gas")
	require.NoError(t, err)
	assert.Equal(t, 500, n)

	stored, err := st.ReadEvents(ctx, "gas", store.EventFilter{})
	require.NoError(t, err)
	want := make([]store.Event, len(rec.Records))
	for i, r := range rec.Records {
		want[i] = store.EventFromRecord("gas", r)
	}
	assert.Nil(t, store.CompareEvents(want, stored))

	run, err := st.ReadRun(ctx, "gas")
	require.NoError(t, err)
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, uint64(500), run.Events)
	assert.Equal(t, e.Now(), run.EndTime)
}

func TestEventLog_MissingRunFails(t *testing.T) {
	ctx := context.Background()
	st := openStore(t, "other")
	e := newGas(t, engine.WithEventBudget(10))
	log := NewEventLog(ctx, st, "gas", WithEventLogLogger(testutil.QuietLogger()))
	e.AddObserver(log)

	require.NoError(t, e.Run(ctx))
	assert.Error(t, log.Err())
}

func TestSnapshotter_Every(t *testing.T) {
	ctx := context.Background()
	st := openStore(t, "gas")
	e := newGas(t, engine.WithEventBudget(450))
	snaps := NewSnapshotter(ctx, e, st, Every(100))
	e.AddObserver(snaps)

	require.NoError(t, e.Run(ctx))
	require.NoError(t, snaps.Err())

	seqs, err := st.SnapshotSeqs(ctx, "gas")
	require.NoError(t, err)
	assert.Equal(t, []uint64{100, 200, 300, 400}, seqs)
	assert.Len(t, snaps.Hashes, 4)

	last, err := st.ReadSnapshot(ctx, "gas", 400)
	require.NoError(t, err)
	assert.Equal(t, snaps.Hashes[400], last.Hash)
	state, err := last.State()
	require.NoError(t, err)
	assert.Equal(t, uint64(400), state.Events)
	assert.Len(t, state.Particles, 125)
}

func TestSnapshotter_SameSeqsSameHashes(t *testing.T) {
	hashes := func() map[uint64]string {
		e := newGas(t, engine.WithEventBudget(300))
		snaps := NewSnapshotter(context.Background(), e, nil, At(50, 250))
		e.AddObserver(snaps)
		require.NoError(t, e.Run(context.Background()))
		require.NoError(t, snaps.Err())
		return snaps.Hashes
	}
	a, b := hashes(), hashes()
	assert.Len(t, a, 2)
	assert.Equal(t, a, b)
}

func TestSampler_Ticks(t *testing.T) {
	e := newGas(t, engine.WithTimeBudget(2.2))
	tick, err := system.NewTicker("sample", 0.5)
	require.NoError(t, err)
	_, err = e.AddSystem(tick)
	require.NoError(t, err)
	s := &Sampler{}
	e.AddObserver(s)

	require.NoError(t, e.Run(context.Background()))

	require.Len(t, s.Samples, 4)
	ke := e.KineticEnergy()
	for i, smp := range s.Samples {
		assert.InDelta(t, 0.5*float64(i+1), smp.Time, 1e-9)
		assert.InDelta(t, ke, smp.KineticEnergy, 1e-9*ke)
	}
	assert.Len(t, s.Values(), 4)

	mean, std := s.Stats()
	assert.InDelta(t, ke, mean, 1e-9*ke)
	assert.InDelta(t, 0, std, 1e-9*ke)
	mean, std = (&Sampler{}).Stats()
	assert.Zero(t, mean)
	assert.Zero(t, std)
}
