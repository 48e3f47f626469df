package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5, cfg.Import.DedupWindowDays)
	assert.Equal(t, 0.5, cfg.Import.FutureFraction)
	assert.Equal(t, 100, cfg.Import.PageSize)
	assert.Equal(t, 60, cfg.Import.BatchTTLMinutes)
	assert.Equal(t, 30, cfg.Import.RepairDaysAhead)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
import:
  dedup_window_days: 10
  page_size: 25
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Import.DedupWindowDays)
	assert.Equal(t, 25, cfg.Import.PageSize)
	// Untouched keys keep their defaults.
	assert.Equal(t, 0.5, cfg.Import.FutureFraction)
}

func TestMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Import.DedupWindowDays)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PF_DEDUP_WINDOW_DAYS", "7")
	t.Setenv("PF_FUTURE_FRACTION", "0.75")
	t.Setenv("PORT", "3000")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Import.DedupWindowDays)
	assert.Equal(t, 0.75, cfg.Import.FutureFraction)
	assert.Equal(t, "3000", cfg.Server.Port)
}

func TestValidation(t *testing.T) {
	t.Setenv("PF_FUTURE_FRACTION", "1.5")
	_, err := Load("")
	assert.Error(t, err)
}
