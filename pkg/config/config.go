// Package config loads the engine's environment-driven configuration.
// Per spec.md §6.3, server-mode boot reads only DATA_PATH, CACHE_SIZE,
// HOST, and PORT from the environment — no other configuration surface.
// This package also reads three knobs of its own: VECTOR_SHARD_COUNT,
// VECTOR_HNSW_PRESET and VECTOR_HNSW_CONFIG_FILE. The serve command
// validates them but does not pass them on to index creation (see the
// field comments below).
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/quartzvec/vectorengine/pkg/hnsw"
	"gopkg.in/yaml.v3"
)

// Config is the full set of environment-derived settings for server mode.
type Config struct {
	// DataPath is the storage root under which named indexes live
	// (storage_root/indexes/<name>/...).
	DataPath string

	// CacheSize is an advisory cache-size hint in bytes, passed through
	// to the KV store's block/index cache sizing.
	CacheSize int64

	Host string
	Port int

	// ShardCount is read from VECTOR_SHARD_COUNT and must be positive.
	// It is not applied to index creation: indexes created over HTTP
	// take shard_count from the request, or shard.DefaultShardCount
	// when that is 0.
	ShardCount int

	// HNSWPreset names a build config: "fast", "balanced", or
	// "high-quality". HNSWConfig resolves it; the serve command does not
	// call HNSWConfig, so indexes created over HTTP use the request's
	// hnsw_preset (balanced when absent).
	HNSWPreset string

	// HNSWOverridePath, if set, points at a YAML file with custom M /
	// EfConstruction / EfSearch / LevelMultiplier values that
	// HNSWConfig applies on top of the selected preset.
	HNSWOverridePath string
}

// hnswOverride is the on-disk shape read from HNSWOverridePath.
type hnswOverride struct {
	M               int     `yaml:"m"`
	EfConstruction  int     `yaml:"ef_construction"`
	EfSearch        int     `yaml:"ef_search"`
	LevelMultiplier float64 `yaml:"level_multiplier"`
}

// LoadFromEnv reads Config from the process environment, applying the
// documented defaults for anything unset.
func LoadFromEnv() Config {
	return Config{
		DataPath:   getEnv("DATA_PATH", "./data"),
		CacheSize:  getEnvInt64("CACHE_SIZE", 64<<20),
		Host:       getEnv("HOST", "0.0.0.0"),
		Port:       getEnvInt("PORT", 8080),
		ShardCount:       getEnvInt("VECTOR_SHARD_COUNT", 10),
		HNSWPreset:       getEnv("VECTOR_HNSW_PRESET", "balanced"),
		HNSWOverridePath: getEnv("VECTOR_HNSW_CONFIG_FILE", ""),
	}
}

// Validate rejects settings that would fail later in a more confusing way.
func (c Config) Validate() error {
	if c.DataPath == "" {
		return fmt.Errorf("DATA_PATH must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.ShardCount <= 0 {
		return fmt.Errorf("VECTOR_SHARD_COUNT must be positive, got %d", c.ShardCount)
	}
	if _, ok := hnswConfigForPreset(c.HNSWPreset); !ok {
		return fmt.Errorf("VECTOR_HNSW_PRESET must be one of fast, balanced, high-quality, got %q", c.HNSWPreset)
	}
	return nil
}

// HNSWConfig resolves the configured preset name to an hnsw.Config,
// applying the on-disk override file (if HNSWOverridePath is set) on
// top of the preset's defaults.
func (c Config) HNSWConfig() (hnsw.Config, error) {
	cfg, _ := hnswConfigForPreset(c.HNSWPreset)
	if c.HNSWOverridePath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(c.HNSWOverridePath)
	if err != nil {
		return cfg, fmt.Errorf("read HNSW override file %q: %w", c.HNSWOverridePath, err)
	}
	var override hnswOverride
	if err := yaml.Unmarshal(data, &override); err != nil {
		return cfg, fmt.Errorf("parse HNSW override file %q: %w", c.HNSWOverridePath, err)
	}

	if override.M > 0 {
		cfg.M = override.M
	}
	if override.EfConstruction > 0 {
		cfg.EfConstruction = override.EfConstruction
	}
	if override.EfSearch > 0 {
		cfg.EfSearch = override.EfSearch
	}
	if override.LevelMultiplier > 0 {
		cfg.LevelMultiplier = override.LevelMultiplier
	}
	return cfg, nil
}

func hnswConfigForPreset(name string) (hnsw.Config, bool) {
	switch name {
	case "fast":
		return hnsw.FastConfig(), true
	case "balanced":
		return hnsw.BalancedConfig(), true
	case "high-quality":
		return hnsw.HighQualityConfig(), true
	default:
		return hnsw.Config{}, false
	}
}

func (c Config) String() string {
	return fmt.Sprintf("Config{DataPath: %s, CacheSize: %d, Host: %s, Port: %d, ShardCount: %d, HNSWPreset: %s}",
		c.DataPath, c.CacheSize, c.Host, c.Port, c.ShardCount, c.HNSWPreset)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}
