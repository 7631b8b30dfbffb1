package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
server:
  port: 9090
storage:
  database_path: /tmp/test.db
matching:
  min_lag_days: 1
  max_lag_days: 7
  enable_split: false
  split_max_k: 2
observability:
  logging:
    level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/test.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 1, cfg.Matching.MinLagDays)
	assert.Equal(t, 7, cfg.Matching.MaxLagDays)
	assert.False(t, cfg.Matching.EnableSplit)
	assert.Equal(t, 2, cfg.Matching.SplitMaxK)
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)
}

func TestLoad_PartialYAMLKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Matching.MaxLagDays, "unspecified sections keep defaults")
	assert.Equal(t, "ledgermatch.db", cfg.Storage.DatabasePath)
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "/data/runs.db")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  database_path: ${TEST_DB_PATH}\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/runs.db", cfg.Storage.DatabasePath)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MATCH_MAX_LAG_DAYS", "10")
	t.Setenv("MATCH_ENABLE_SPLIT", "false")
	t.Setenv("LOG_LEVEL", "warn")

	cfg := LoadFromEnv()

	assert.Equal(t, 10, cfg.Matching.MaxLagDays)
	assert.False(t, cfg.Matching.EnableSplit)
	assert.Equal(t, "warn", cfg.Observability.Logging.Level)
	assert.Equal(t, 0, cfg.Matching.MinLagDays)
}

func TestLoadOrEnvWithPath_MissingFileFallsBack(t *testing.T) {
	cfg := LoadOrEnvWithPath(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Equal(t, 4, cfg.Matching.MaxLagDays)
}
