package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "engine.yaml", `
max_pending: 4
overflow: DROP_OLDEST
merge_keys: [SetItems]
diff_mode: inline
thread_check: log
`)

	stdout, _, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ "+path+" is valid")
	assert.Contains(t, stdout, "max_pending:  4")
	assert.Contains(t, stdout, "overflow:     DROP_OLDEST")
	assert.Contains(t, stdout, "merge_keys:   [SetItems]")
	assert.Contains(t, stdout, "diff_mode:    inline")
	assert.Contains(t, stdout, "thread_check: log")
}

func TestValidate_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "engine.cue", `
max_pending: 2
overflow: "CLEAR_AND_ENQUEUE"
metrics_namespace: "feed"
`)

	stdout, _, err := execute(t, "validate", path, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   ValidateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.NotNil(t, resp.Data.Config)
	assert.Equal(t, 2, resp.Data.Config.MaxPending)
	assert.Equal(t, "CLEAR_AND_ENQUEUE", resp.Data.Config.Overflow)
	assert.Equal(t, "feed", resp.Data.Config.MetricsNamespace)
	assert.Equal(t, []string{}, resp.Data.Config.MergeKeys)
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown overflow", "engine.yaml", "overflow: BOGUS\n"},
		{"negative bound", "engine.yaml", "max_pending: -1\n"},
		{"unknown field", "engine.yaml", "max_queue: 3\n"},
		{"cue type error", "engine.cue", "max_pending: \"three\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)

			stdout, _, err := execute(t, "validate", path, "--format", "json")
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "E_INVALID_CONFIG", resp.Error.Code)
		})
	}
}

func TestValidate_MissingFile(t *testing.T) {
	_, _, err := execute(t, "validate", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
