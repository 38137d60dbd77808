package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["migrate"])
	assert.True(t, names["seed"])

	sub := map[string]bool{}
	for _, c := range migrateCmd.Commands() {
		sub[c.Name()] = true
	}
	assert.Equal(t, map[string]bool{"up": true, "down": true, "status": true}, sub)
}

func TestRootCommand_MissingEnvFile(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env"), "migrate", "status"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		envFile = ""
	})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load env file")
}

func TestRootCommand_LoadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("KIDNEYCTL_TEST_MARKER=loaded\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("KIDNEYCTL_TEST_MARKER")
		envFile = ""
	})

	envFile = path
	require.NoError(t, rootCmd.PersistentPreRunE(rootCmd, nil))
	assert.Equal(t, "loaded", os.Getenv("KIDNEYCTL_TEST_MARKER"))
	assert.NotNil(t, cfg)
	assert.NotNil(t, log)
}
