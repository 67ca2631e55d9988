package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg := LoadFromEnv()
	assert.Equal(t, "./data", cfg.DataPath)
	assert.Equal(t, int64(64<<20), cfg.CacheSize)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10, cfg.ShardCount)
	assert.Equal(t, "balanced", cfg.HNSWPreset)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("DATA_PATH", "/var/lib/vectorengine")
	t.Setenv("PORT", "9090")
	t.Setenv("VECTOR_SHARD_COUNT", "4")
	t.Setenv("VECTOR_HNSW_PRESET", "fast")

	cfg := LoadFromEnv()
	assert.Equal(t, "/var/lib/vectorengine", cfg.DataPath)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 4, cfg.ShardCount)
	assert.Equal(t, "fast", cfg.HNSWPreset)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Port = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownPreset(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.HNSWPreset = "ludicrous-speed"
	assert.Error(t, cfg.Validate())
}

func TestHNSWConfigResolvesPreset(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.HNSWPreset = "high-quality"
	resolved, err := cfg.HNSWConfig()
	require.NoError(t, err)
	assert.Equal(t, 32, resolved.M)
}

func TestHNSWConfigAppliesOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hnsw.yaml")
	require.NoError(t, os.WriteFile(path, []byte("m: 64\nef_search: 300\n"), 0o644))

	cfg := LoadFromEnv()
	cfg.HNSWPreset = "balanced"
	cfg.HNSWOverridePath = path

	resolved, err := cfg.HNSWConfig()
	require.NoError(t, err)
	assert.Equal(t, 64, resolved.M)
	assert.Equal(t, 300, resolved.EfSearch)
	// EfConstruction wasn't overridden, so the balanced preset's value survives.
	assert.Equal(t, hnswBalancedEfConstruction(t), resolved.EfConstruction)
}

func hnswBalancedEfConstruction(t *testing.T) int {
	t.Helper()
	cfg, ok := hnswConfigForPreset("balanced")
	require.True(t, ok)
	return cfg.EfConstruction
}
