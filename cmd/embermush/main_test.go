// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUSH Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embermush/embermush/pkg/errutil"
)

// isolateXDG keeps command tests away from the developer's real config and
// data directories.
func isolateXDG(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	configFile = ""
	t.Cleanup(func() { configFile = "" })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	isolateXDG(t)

	output, err := execute(t, "--help")
	require.NoError(t, err)

	for _, sub := range []string{"serve", "migrate", "seed", "validate"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	isolateXDG(t)

	_, err := execute(t, "--config", "/path/to/config.yaml", "--help")
	require.NoError(t, err)
	assert.Equal(t, "/path/to/config.yaml", configFile)
}

func TestRootCommand_DiscoversXDGConfig(t *testing.T) {
	isolateXDG(t)

	dir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "embermush")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shard: discovered\n"), 0o600))

	_, err := execute(t, "validate")
	require.NoError(t, err)
	assert.Equal(t, path, configFile)
}

func TestRootCommand_LongDescription(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "embermush", cmd.Use)
	assert.Contains(t, cmd.Long, "prototype")
	assert.Contains(t, cmd.Long, "Lua")
}

func TestUnknownCommand(t *testing.T) {
	isolateXDG(t)

	_, err := execute(t, "nonexistent")
	require.Error(t, err)
}

func TestInvalidFlag(t *testing.T) {
	isolateXDG(t)

	_, err := execute(t, "--invalid-flag")
	require.Error(t, err)
}

func TestResolveScriptsDir(t *testing.T) {
	isolateXDG(t)

	assert.Equal(t, "/configured", resolveScriptsDir("/configured"),
		"a configured dir wins even if absent")

	assert.Empty(t, resolveScriptsDir(""),
		"no configured dir and no conventional dir means no packs")

	packs := filepath.Join(os.Getenv("XDG_DATA_HOME"), "embermush", "packs")
	require.NoError(t, os.MkdirAll(packs, 0o700))
	assert.Equal(t, packs, resolveScriptsDir(""))
}

func TestMigrateCommand_RequiresDatabaseURL(t *testing.T) {
	isolateXDG(t)

	_, err := execute(t, "migrate", "up")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestMigrateCommand_RejectsNonIntegerSteps(t *testing.T) {
	isolateXDG(t)

	_, err := execute(t, "migrate", "steps", "many")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "INVALID_ARGUMENT")

	_, err = execute(t, "migrate", "force", "latest")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "INVALID_ARGUMENT")
}

func TestValidateCommand_SucceedsWithNoContent(t *testing.T) {
	isolateXDG(t)

	_, err := execute(t, "validate")
	require.NoError(t, err, "validate should succeed without a database or content")
}

func TestValidateCommand_ReportsBadContent(t *testing.T) {
	isolateXDG(t)

	dir := t.TempDir()
	seedPath := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte("entities: []\n"), 0o600))

	packDir := filepath.Join(dir, "packs", "broken-pack")
	require.NoError(t, os.MkdirAll(packDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(packDir, "pack.yaml"),
		[]byte("name: broken-pack\nversion: not-semver\nentry: main.lua\nhandlers: []\n"), 0o600))

	configPath := filepath.Join(dir, "shard.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
seeds:
  - `+seedPath+`
scripts:
  dir: `+filepath.Join(dir, "packs")+`
`), 0o600))

	_, err := execute(t, "--config", configPath, "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 problem(s)")
}

func TestSeedCommand_RequiresDatabaseURL(t *testing.T) {
	isolateXDG(t)

	_, err := execute(t, "seed")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestSeedCommand_RequiresSeedFiles(t *testing.T) {
	isolateXDG(t)

	configPath := filepath.Join(t.TempDir(), "shard.yaml")
	require.NoError(t, os.WriteFile(configPath,
		[]byte("database:\n  url: postgres://localhost/ember\n"), 0o600))

	_, err := execute(t, "--config", configPath, "seed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no seed files")
}
