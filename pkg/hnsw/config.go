package hnsw

import "math"

// MaxLevel caps the number of layers for memory safety. With M=16 this
// still accommodates roughly 10^12 points. It is a package constant,
// not a field of Config (see spec's level-cap open question).
const MaxLevel = 10

// Config holds the build/search quality knobs for an Index.
type Config struct {
	M               int // max connections per node per layer (layer >= 1)
	EfConstruction  int // candidate list width while inserting
	EfSearch        int // candidate list width while searching
	LevelMultiplier float64
}

// M0 returns the layer-0 connection cap, 2*M.
func (c Config) M0() int { return 2 * c.M }

func newConfig(m, efConstruction, efSearch int) Config {
	return Config{
		M:               m,
		EfConstruction:  efConstruction,
		EfSearch:        efSearch,
		LevelMultiplier: 1.0 / math.Log(float64(m)),
	}
}

// FastConfig favors build/search speed over recall (M=8).
func FastConfig() Config { return newConfig(8, 100, 50) }

// BalancedConfig is the default preset (M=16).
func BalancedConfig() Config { return newConfig(16, 200, 100) }

// HighQualityConfig favors recall over speed (M=32).
func HighQualityConfig() Config { return newConfig(32, 400, 200) }

// DefaultConfig is BalancedConfig, matching the upstream default.
func DefaultConfig() Config { return BalancedConfig() }
