package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edmd/internal/config"
	"github.com/roach88/edmd/internal/model"
)

func executeValidate(t *testing.T, format, path string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path})
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateValidConfig(t *testing.T) {
	out, err := executeValidate(t, "text", "testdata/head_on.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ testdata/head_on.yaml valid (2 particles)")
}

func TestValidateValidConfigJSON(t *testing.T) {
	out, err := executeValidate(t, "json", "testdata/gas.yaml")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 27, resp.Data.Particles)
}

func TestValidateOverlap(t *testing.T) {
	out, err := executeValidate(t, "text", "testdata/overlap.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, CodeOverlap)
}

func TestValidateOverlapJSON(t *testing.T) {
	out, err := executeValidate(t, "json", "testdata/overlap.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotEmpty(t, resp.Data.Issues)
	assert.Equal(t, CodeOverlap, resp.Error.Code)
}

func TestValidateConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"unknown field", "testdata/typo.yaml"},
		{"schema violation", "testdata/invalid.yaml"},
		{"missing file", "testdata/missing.yaml"},
		{"unknown extension", "testdata/head_on.toml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeValidate(t, "text", tt.path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, CodeConfig)
		})
	}
}

func TestConfigIssues(t *testing.T) {
	joined := errors.Join(
		model.NewConfigurationError("particle %d outside the box", 3),
		&config.Error{Field: "interactions.0.diameter", Message: "must be positive"},
	)

	issues := configIssues(joined)
	require.Len(t, issues, 2)
	assert.Equal(t, CodeConfig, issues[0].Code)
	assert.Contains(t, issues[0].Message, "particle 3 outside the box")
	assert.Equal(t, "interactions.0.diameter", issues[1].Field)
	assert.Equal(t, "must be positive", issues[1].Message)
	assert.Zero(t, issues[1].Line)
}
