package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupCLITestEnv isolates the CLI from the user's home and environment.
func setupCLITestEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("FRETWISE_STORE_PATH", filepath.Join(home, "fretwise.db"))
	t.Setenv("FRETWISE_SEGMENT_PROVIDER", "mock")
	t.Setenv("FRETWISE_HANDS_PROVIDER", "mock")
	t.Setenv("FRETWISE_LOG_LEVEL", "error")
	return home
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestConfigInitShowValidate(t *testing.T) {
	home := setupCLITestEnv(t)
	target := filepath.Join(home, "conf", "fretwise.toml")

	out, _, err := runCLI(t, "config", "init", "--path", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote sample configuration")
	require.FileExists(t, target)

	_, _, err = runCLI(t, "config", "init", "--path", target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = runCLI(t, "config", "init", "--path", target, "--overwrite")
	require.NoError(t, err)

	out, _, err = runCLI(t, "--config", target, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "[server]")
	assert.Contains(t, out, "[tracker]")

	out, _, err = runCLI(t, "--config", target, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.NotContains(t, out, "defaults were used")
}

func TestConfigValidate_Defaults(t *testing.T) {
	home := setupCLITestEnv(t)

	out, _, err := runCLI(t, "--config", filepath.Join(home, "missing.toml"), "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "defaults were used")
}

func TestConfig_Invalid(t *testing.T) {
	home := setupCLITestEnv(t)
	target := filepath.Join(home, "bad.toml")
	require.NoError(t, os.WriteFile(target, []byte("[server]\nnope = 1\n"), 0o644))

	_, _, err := runCLI(t, "--config", target, "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestEnvFile(t *testing.T) {
	home := setupCLITestEnv(t)
	envFile := filepath.Join(home, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("FRETWISE_SERVER_ADDR=127.0.0.1:9123\n"), 0o644))
	os.Unsetenv("FRETWISE_SERVER_ADDR")
	t.Cleanup(func() { os.Unsetenv("FRETWISE_SERVER_ADDR") })

	out, _, err := runCLI(t, "--env-file", envFile, "--config", filepath.Join(home, "none.toml"), "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "127.0.0.1:9123")
}

func TestTrack_MissingVideo(t *testing.T) {
	home := setupCLITestEnv(t)

	_, _, err := runCLI(t, "--config", filepath.Join(home, "none.toml"), "track", "--video", filepath.Join(home, "missing.mp4"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "track video:"), err.Error())
}

func TestRootShowsHelp(t *testing.T) {
	setupCLITestEnv(t)

	out, _, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	for _, sub := range []string{"serve", "track", "config"} {
		assert.Contains(t, out, sub)
	}
}
