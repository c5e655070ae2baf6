package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/agora/internal/sim"
)

func TestRunCommand_OfflineSimulation(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "sim.yaml", offlineConfig)
	dbPath := filepath.Join(dir, "agora.db")

	out, err := execute(t, "run", cfgPath, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Simulation ")
	assert.Contains(t, out, "Steps:      2")
	assert.Contains(t, out, "Activated:  4")
	assert.Contains(t, out, "Rejections: 0")

	trace, err := execute(t, "trace", "--db", dbPath, "--action", "sign_up", "--action", "do_nothing")
	require.NoError(t, err)
	assert.Contains(t, trace, "sign_up: 2")
	assert.Contains(t, trace, "do_nothing: 4")
}

func TestRunCommand_JSONReport(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "sim.yaml", offlineConfig)

	out, err := execute(t, "run", cfgPath, "--steps", "1", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   sim.Report `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Steps)
	assert.Equal(t, 2, resp.Data.Activated)
	assert.Equal(t, 2, resp.Data.Commands)
	assert.NotEmpty(t, resp.Data.RunID)
}

func TestRunCommand_SnapshotsMemoryStore(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "sim.yaml", offlineConfig)
	snapshot := filepath.Join(dir, "out.db")

	_, err := execute(t, "run", cfgPath, "--steps", "1", "--snapshot", snapshot)
	require.NoError(t, err)

	trace, err := execute(t, "trace", "--db", snapshot, "--user", "1")
	require.NoError(t, err)
	assert.Contains(t, trace, "user 1 sign_up")
	assert.NotContains(t, trace, "user 2 ")
}

func TestRunCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	noAgents := writeFile(t, dir, "empty.yaml", "simulation:\n  num_timesteps: 1\n")
	badSchema := writeFile(t, dir, "bad.yaml", "platform:\n  recsys: bogus\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file", []string{"run", filepath.Join(dir, "nope.yaml")}, "failed to load config"},
		{"schema violation", []string{"run", badSchema}, "platform.recsys"},
		{"no agents", []string{"run", noAgents}, "no agents configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestRunCommand_MissingArgs(t *testing.T) {
	_, err := execute(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
