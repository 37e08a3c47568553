package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edmd/internal/engine"
	"github.com/roach88/edmd/internal/store"
)

// executeRun runs the run command with a fixed run ID and returns stdout.
func executeRun(t *testing.T, format, runID string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: format},
		RunIDs:      engine.NewFixedGenerator(runID),
	}
	cmd := newRunCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// decodeRunResult decodes the data of a JSON run response.
func decodeRunResult(t *testing.T, out string) (CLIResponse, RunResult) {
	t.Helper()
	var raw struct {
		CLIResponse
		Data RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw))
	return raw.CLIResponse, raw.Data
}

func TestRunMissingConfig(t *testing.T) {
	_, err := executeRun(t, "text", "r", "testdata/missing.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid config")
}

func TestRunInvalidConfig(t *testing.T) {
	_, err := executeRun(t, "text", "r", "testdata/invalid.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunSnapshotNeedsDatabase(t *testing.T) {
	_, err := executeRun(t, "text", "r", "--snapshot-every", "10", "testdata/gas.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "need --db")
}

func TestRunHeadOnText(t *testing.T) {
	out, err := executeRun(t, "text", "head-on", "testdata/head_on.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "Run: head-on")
	assert.Contains(t, out, "Status: completed")
	assert.Contains(t, out, "CORE")
	assert.Contains(t, out, "Events:          1")
}

func TestRunBudgetFlagsOverrideConfig(t *testing.T) {
	out, err := executeRun(t, "json", "gas", "--events", "50", "testdata/gas.yaml")
	require.NoError(t, err)

	resp, result := decodeRunResult(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "gas", resp.RunID)
	assert.Equal(t, uint64(50), result.Events)
	assert.Equal(t, "completed", result.Status)
	assert.Equal(t, 27, result.Particles)
	assert.Greater(t, result.Counts["CORE"], uint64(0))

	out, err = executeRun(t, "json", "gas", "--time", "1", "testdata/head_on.yaml")
	require.NoError(t, err)
	_, result = decodeRunResult(t, out)
	assert.Equal(t, uint64(0), result.Events, "the collision at t=1.5 is past the budget")
}

func TestRunSamplesTicks(t *testing.T) {
	out, err := executeRun(t, "json", "ticked", "testdata/ticked.yaml")
	require.NoError(t, err)
	_, result := decodeRunResult(t, out)
	require.Len(t, result.Samples, 4)
	for i, smp := range result.Samples {
		assert.InDelta(t, 0.5*float64(i+1), smp.Time, 1e-9)
		assert.InDelta(t, result.KineticEnergy, smp.KineticEnergy, 1e-9*result.KineticEnergy)
	}
	assert.Equal(t, uint64(4), result.Counts["TICK"])

	out, err = executeRun(t, "text", "ticked", "testdata/ticked.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Ticks:           4")
}

func TestRunWithDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "edmd.db")

	out, err := executeRun(t, "json", "gas-db", "--db", dbPath, "--snapshot-every", "50", "testdata/gas.yaml")
	require.NoError(t, err)
	_, result := decodeRunResult(t, out)
	assert.Equal(t, uint64(200), result.Events)
	assert.Equal(t, 4, result.Snapshots)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	run, err := st.ReadRun(ctx, "gas-db")
	require.NoError(t, err)
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, uint64(200), run.Events)
	assert.Equal(t, "yaml", run.Format)
	assert.Contains(t, run.Config, "lattice")

	n, err := st.CountEvents(ctx, "gas-db")
	require.NoError(t, err)
	assert.Equal(t, 200, n)

	seqs, err := st.SnapshotSeqs(ctx, "gas-db")
	require.NoError(t, err)
	assert.Equal(t, []uint64{50, 100, 150, 200}, seqs)
}

func TestRunResume(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "edmd.db")

	_, err := executeRun(t, "json", "gas-resume", "--db", dbPath, "--events", "100", "--snapshot-every", "50", "testdata/gas.yaml")
	require.NoError(t, err)

	out, err := executeRun(t, "json", "unused", "--db", dbPath, "--resume", "gas-resume", "testdata/gas.yaml")
	require.NoError(t, err)
	resp, result := decodeRunResult(t, out)
	assert.Equal(t, "gas-resume", resp.RunID)
	assert.Equal(t, uint64(200), result.Events)
	assert.Equal(t, "completed", result.Status)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	n, err := st.CountEvents(context.Background(), "gas-resume")
	require.NoError(t, err)
	assert.Equal(t, 200, n)
}

func TestRunResumeRejectsOtherConfig(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "edmd.db")

	_, err := executeRun(t, "text", "gas-other", "--db", dbPath, "--snapshot-every", "50", "testdata/gas.yaml")
	require.NoError(t, err)

	_, err = executeRun(t, "text", "unused", "--db", dbPath, "--resume", "gas-other", "testdata/head_on.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "config hash")
}

func TestRunResumeUnknownRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "edmd.db")

	_, err := executeRun(t, "text", "unused", "--db", dbPath, "--resume", "nope", "testdata/gas.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRunHelpText(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "--snapshot-every")
	assert.Contains(t, buf.String(), "--resume")
}
