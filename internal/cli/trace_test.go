package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edmd/internal/store"
)

// recordRun runs the gas config into a fresh database and returns its path.
func recordRun(t *testing.T, runID string, extra ...string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "edmd.db")
	args := append([]string{"--db", dbPath}, extra...)
	args = append(args, "testdata/gas.yaml")
	_, err := executeRun(t, "text", runID, args...)
	require.NoError(t, err)
	return dbPath
}

func executeTrace(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTraceMissingDatabaseFlag(t *testing.T) {
	_, err := executeTrace(t, "text", "--run", "r")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTraceNonExistentDatabase(t *testing.T) {
	_, err := executeTrace(t, "text", "--db", "/nonexistent/path/test.db", "--run", "r")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestTraceUnknownRun(t *testing.T) {
	dbPath := recordRun(t, "gas-trace")

	_, err := executeTrace(t, "text", "--db", dbPath, "--run", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTraceInvalidType(t *testing.T) {
	dbPath := recordRun(t, "gas-trace")

	_, err := executeTrace(t, "text", "--db", dbPath, "--run", "gas-trace", "--type", "EXPLODE")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTraceListRuns(t *testing.T) {
	dbPath := recordRun(t, "gas-list")

	out, err := executeTrace(t, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "=== Runs ===")
	assert.Contains(t, out, "gas-list")
	assert.Contains(t, out, "completed")
}

func TestTraceText(t *testing.T) {
	dbPath := recordRun(t, "gas-text", "--snapshot-every", "100")

	out, err := executeTrace(t, "text", "--db", dbPath, "--run", "gas-text", "--limit", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Trace for Run: gas-text")
	assert.Contains(t, out, "Status: completed")
	assert.Contains(t, out, "[1] t=")
	assert.Contains(t, out, "[3] t=")
	assert.NotContains(t, out, "[4] t=")
	assert.Contains(t, out, "#100 #200")
	assert.Contains(t, out, "Events shown:    3 of 200")
}

func TestTraceJSONFilters(t *testing.T) {
	dbPath := recordRun(t, "gas-json")

	out, err := executeTrace(t, "json", "--db", dbPath, "--run", "gas-json", "--type", "core", "--after", "100", "--limit", "5")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		RunID  string      `json:"run_id"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "gas-json", resp.RunID)
	assert.Equal(t, 27, resp.Data.Run.Particles)
	assert.Equal(t, 200, resp.Data.Stats.Stored)
	require.NotEmpty(t, resp.Data.Timeline)
	assert.LessOrEqual(t, len(resp.Data.Timeline), 5)
	for _, ev := range resp.Data.Timeline {
		assert.Equal(t, "CORE", ev.Type)
		assert.Greater(t, ev.Seq, uint64(100))
		assert.NotEqual(t, ev.Particle1, ev.Particle2)
	}
	assert.Empty(t, resp.Data.Snapshots)
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "01923c4e...89abcdef", truncateID("01923c4e-0000-7000-8000-0123456789abcdef"))
}
