// ============================================================================
// Sundial Configuration
// ============================================================================
//
// File: config.go
// Function: Tunable constants governing wheel geometry, reactor cadence,
//           pool size and actor mailbox depth, with YAML load support for
//           embedders who want to override them from a file.
//
// ============================================================================

package sundial

import (
	"fmt"
	"os"
	"time"

	"github.com/cherish-ltt/lynn-sundial/internal/pool"
	"github.com/cherish-ltt/lynn-sundial/internal/reactor"
	"gopkg.in/yaml.v3"
)

// Config carries every constant New needs to assemble a Scheduler.
// Wheel geometry (ring slot counts/intervals) is fixed by design and not
// part of Config - only the two knobs an embedder plausibly wants to tune
// live here: pool size and the reactor's tick cadence.
type Config struct {
	// PoolSize is the number of work-stealing pool workers. Zero falls
	// back to pool.DefaultSize.
	PoolSize int `yaml:"pool_size"`
	// Tick overrides the reactor's nominal loop period. Zero falls back
	// to reactor.Tick (25ms).
	Tick time.Duration `yaml:"tick"`
}

// DefaultConfig returns the constants fixed by the scheduler's design:
// pool.DefaultSize workers and reactor.Tick cadence.
func DefaultConfig() Config {
	return Config{
		PoolSize: pool.DefaultSize,
		Tick:     reactor.Tick,
	}
}

// LoadConfig decodes a YAML file into a Config, defaulting any field left
// at its zero value.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("sundial: read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("sundial: parse config %s: %w", path, err)
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = pool.DefaultSize
	}
	if cfg.Tick <= 0 {
		cfg.Tick = reactor.Tick
	}
	return cfg, nil
}
