package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/listq/internal/engine"
)

const dropNewScenario = `name: drop_new
description: the second add is rejected by a full queue
config:
  max_pending: 1
  overflow: DROP_NEW
queued: true
steps:
  - op: AddItem
    item: a
  - op: AddItem
    item: b
    expect: {status: DROPPED, reason: QUEUE_FULL_DROP_NEW}
expect:
  items: [a]
  drops: {QUEUE_FULL_DROP_NEW: 1}
`

const failingScenario = `name: wrong_items
description: expects a list the steps never build
steps:
  - op: AddItem
    item: a
expect:
  items: [z]
`

type runResponse struct {
	Status string    `json:"status"`
	Data   RunResult `json:"data"`
	Error  *CLIError `json:"error"`
}

func TestRun_Text(t *testing.T) {
	path := writeFile(t, t.TempDir(), "drop_new.yaml", dropNewScenario)

	stdout, _, err := execute(t, "run", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Scenario: drop_new")
	assert.Contains(t, stdout, "Items (generation 1): [a]")
	assert.Contains(t, stdout, "Drops: QUEUE_FULL_DROP_NEW=1")
	assert.Contains(t, stdout, "✓ all expectations met")
}

func TestRun_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "drop_new.yaml", dropNewScenario)

	stdout, _, err := execute(t, "run", path, "--format", "json")
	require.NoError(t, err)

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Pass)
	assert.Equal(t, []string{"a"}, resp.Data.Items)
	assert.Equal(t, int64(1), resp.Data.Generation)
	require.Len(t, resp.Data.Outcomes, 2)
	assert.Equal(t, "APPLIED", resp.Data.Outcomes[0].Status)
	assert.Equal(t, "DROPPED", resp.Data.Outcomes[1].Status)
	assert.Equal(t, map[string]int{"QUEUE_FULL_DROP_NEW": 1}, resp.Data.Drops)
	assert.Empty(t, resp.Data.Trace, "trace is only included with --verbose")
}

func TestRun_VerboseIncludesTrace(t *testing.T) {
	path := writeFile(t, t.TempDir(), "drop_new.yaml", dropNewScenario)

	stdout, _, err := execute(t, "run", path, "--format", "json", "-v")
	require.NoError(t, err)

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.NotEmpty(t, resp.Data.Trace)
}

func TestRun_ExpectationFailure(t *testing.T) {
	path := writeFile(t, t.TempDir(), "wrong.yaml", failingScenario)

	stdout, _, err := execute(t, "run", path, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_EXPECTATION_FAILED", resp.Error.Code)
	assert.False(t, resp.Data.Pass)
	assert.NotEmpty(t, resp.Data.Errors)
}

func TestRun_ConfigOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "drop_new.yaml", dropNewScenario)
	cfg := writeFile(t, dir, "unbounded.yaml", "max_pending: 0\n")

	// Unbounded, so the second add applies and the expectations no longer hold.
	stdout, _, err := execute(t, "run", path, "--config", cfg, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, []string{"a", "b"}, resp.Data.Items)
}

func TestRun_Metrics(t *testing.T) {
	path := writeFile(t, t.TempDir(), "drop_new.yaml", dropNewScenario)

	stdout, _, err := execute(t, "run", path, "--metrics")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# TYPE")
	assert.Contains(t, stdout, `reason="QUEUE_FULL_DROP_NEW"`)
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "drop_new.yaml", dropNewScenario)
	bad := writeFile(t, dir, "bad.yaml", "name: x\n")

	tests := []struct {
		name string
		args []string
	}{
		{"missing scenario", []string{"run", filepath.Join(dir, "absent.yaml")}},
		{"invalid scenario", []string{"run", bad}},
		{"missing config", []string{"run", path, "--config", filepath.Join(dir, "absent.yaml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestRun_JournalUsesRunIDGenerator(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "drop_new.yaml", dropNewScenario)

	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "json"},
		Database:    filepath.Join(dir, "listq.db"),
		RunIDs:      engine.NewFixedGenerator("run-1"),
	}
	var buf, errBuf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetErr(&errBuf)

	require.NoError(t, runScenarioFile(opts, path, cmd))

	var resp runResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.Data.RunID)
}
