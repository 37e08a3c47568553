package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeReplex(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewReplexCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestReplexMissingTemperatures(t *testing.T) {
	_, err := executeReplex(t, "text", "testdata/gas.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestReplexInvalidLadder(t *testing.T) {
	_, err := executeReplex(t, "text", "--temps", "1", "testdata/gas.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "at least two temperatures")
}

func TestReplexInvalidConfig(t *testing.T) {
	_, err := executeReplex(t, "text", "--temps", "1,2", "testdata/invalid.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplexText(t *testing.T) {
	out, err := executeReplex(t, "text", "--temps", "1,2", "--rounds", "2", "--interval", "0.5", "--workers", "2", "testdata/gas.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Replica exchange: 2 round(s)")
	assert.Contains(t, out, "=== Ladder ===")
	assert.Contains(t, out, "1 <-> 2")
}

func TestReplexJSON(t *testing.T) {
	out, err := executeReplex(t, "json", "--temps", "2,1,1.5", "--rounds", "4", "--interval", "0.5", "testdata/gas.yaml")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplexResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 4, resp.Data.Rounds)
	require.Len(t, resp.Data.Slots, 3)
	assert.Equal(t, []float64{1, 1.5, 2}, []float64{
		resp.Data.Slots[0].Temperature,
		resp.Data.Slots[1].Temperature,
		resp.Data.Slots[2].Temperature,
	})
	require.Len(t, resp.Data.Pairs, 2)
	for _, p := range resp.Data.Pairs {
		assert.Positive(t, p.Attempts)
		assert.LessOrEqual(t, p.Accepts, p.Attempts)
	}
	for _, s := range resp.Data.Slots {
		assert.Positive(t, s.Events)
	}
}
