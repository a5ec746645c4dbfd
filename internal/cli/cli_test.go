package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCLI(t *testing.T) {
	cmd := BuildCLI()

	assert.NotNil(t, cmd, "BuildCLI should return a non-nil command")
	assert.Equal(t, "readpulse", cmd.Use, "Root command should be 'readpulse'")
	assert.Equal(t, "2.0.0", cmd.Version, "Version should be 2.0.0")

	commands := cmd.Commands()
	commandNames := make(map[string]bool)
	for _, c := range commands {
		commandNames[c.Use] = true
	}

	assert.True(t, commandNames["run"], "Should have 'run' command")
	assert.True(t, commandNames["check"], "Should have 'check' command")
	assert.True(t, commandNames["test-push"], "Should have 'test-push' command")
	assert.True(t, commandNames["history"], "Should have 'history' command")

	configFlag := cmd.PersistentFlags().Lookup("config")
	assert.NotNil(t, configFlag, "Should have --config flag")
	assert.Equal(t, "configs/default.yaml", configFlag.DefValue, "Default config path should be configs/default.yaml")
}

func TestBuildRunCommand(t *testing.T) {
	cmd := buildRunCommand()

	assert.NotNil(t, cmd, "buildRunCommand should return a non-nil command")
	assert.Equal(t, "run", cmd.Use, "Command should be 'run'")
	assert.Contains(t, cmd.Short, "Start", "Short description should mention 'Start'")
	assert.NotNil(t, cmd.RunE, "RunE function should be set")

	readsFlag := cmd.Flags().Lookup("reads")
	assert.NotNil(t, readsFlag, "Should have --reads flag")
}

func TestCheckCommandValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
read:
  target_count: 5
`), 0o644))

	cmd := BuildCLI()
	cmd.SetArgs([]string{"check", "-c", configPath})
	assert.NoError(t, cmd.Execute())
}

func TestCheckCommandInvalidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
read:
  target_count: -3
`), 0o644))

	cmd := BuildCLI()
	cmd.SetArgs([]string{"check", "-c", configPath})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	assert.Error(t, cmd.Execute())
}

func TestTestPushWithoutMethod(t *testing.T) {
	// Defaults carry no push method, so test-push must refuse.
	cmd := BuildCLI()
	cmd.SetArgs([]string{"test-push", "-c", filepath.Join(t.TempDir(), "missing.yaml")})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no push method configured")
}

func TestHistoryCommandEmpty(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
history:
  path: `+filepath.Join(tmpDir, "history.json")+`
`), 0o644))

	cmd := BuildCLI()
	cmd.SetArgs([]string{"history", "-c", configPath})
	assert.NoError(t, cmd.Execute())
}
