package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edmd/internal/store"
)

func executeReplay(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewReplayCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestReplayMissingDatabaseFlag(t *testing.T) {
	_, err := executeReplay(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestReplayEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := executeReplay(t, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found")

	out, err = executeReplay(t, "json", "--db", dbPath)
	require.NoError(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestReplayDeterministic(t *testing.T) {
	dbPath := recordRun(t, "gas-replay", "--snapshot-every", "40")

	out, err := executeReplay(t, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Run: gas-replay")
	assert.Contains(t, out, "200 replayed, 5 snapshot(s) verified")
	assert.Contains(t, out, "✓ All runs verified deterministic")
}

func TestReplayDeterministicJSON(t *testing.T) {
	dbPath := recordRun(t, "gas-replay")

	out, err := executeReplay(t, "json", "--db", dbPath, "--run", "gas-replay")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.AllDeterministic)
	require.Len(t, resp.Data.Runs, 1)
	assert.Equal(t, 200, resp.Data.Runs[0].Stored)
	assert.Equal(t, 200, resp.Data.Runs[0].Replayed)
}

func TestReplayDetectsTamperedLog(t *testing.T) {
	dbPath := recordRun(t, "gas-tamper")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = st.DB().ExecContext(context.Background(),
		`UPDATE events SET time = time + 1e-9 WHERE run_id = ? AND seq = 17`, "gas-tamper")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := executeReplay(t, "text", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Run: gas-tamper")
	assert.Contains(t, out, "event 16: time differs")
	assert.Contains(t, out, "✗ Determinism verification failed")
}

func TestReplayDetectsChangedConfig(t *testing.T) {
	dbPath := recordRun(t, "gas-config")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = st.DB().ExecContext(context.Background(),
		`UPDATE runs SET config = replace(config, 'seed: 3', 'seed: 4') WHERE id = ?`, "gas-config")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := executeReplay(t, "json", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Data  ReplayResult `json:"data"`
		Error *CLIError    `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "E_DETERMINISM", resp.Error.Code)
	require.Len(t, resp.Data.Runs, 1)
	assert.Contains(t, resp.Data.Runs[0].Mismatch, "config hash")
}

func TestReplaySkipsRunsWithoutEvents(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "edmd.db")
	_, err := executeRun(t, "text", "idle", "--db", dbPath, "--time", "1", "testdata/head_on.yaml")
	require.NoError(t, err)

	out, err := executeReplay(t, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Skipped: no stored events")
}
