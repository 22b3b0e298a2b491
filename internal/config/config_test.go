package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Nil(t, cfg.Session.TickMs)
	assert.Nil(t, cfg.Session.History)
}

func TestLoadConfigEmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestLoadConfigValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `[session]
tick-ms = 50
group-size = 4
history = false
log-level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Session.TickMs)
	assert.Equal(t, 50, *cfg.Session.TickMs)
	require.NotNil(t, cfg.Session.GroupSize)
	assert.Equal(t, 4, *cfg.Session.GroupSize)
	require.NotNil(t, cfg.Session.History)
	assert.False(t, *cfg.Session.History)
	require.NotNil(t, cfg.Session.LogLevel)
	assert.Equal(t, "debug", *cfg.Session.LogLevel)
	assert.Nil(t, cfg.Session.MetricsFile)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[session]\ntick = 5\n"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestDefaultPathsHonorXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "cfg"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))

	assert.Equal(t, filepath.Join(dir, "cfg", "codemem", "config.toml"), DefaultConfigPath())
	assert.Equal(t, filepath.Join(dir, "data", "codemem", "codemem.db"), DefaultDBPath())
	assert.Equal(t, filepath.Join(dir, "state", "codemem", "codemem.log"), DefaultLogPath())
}
