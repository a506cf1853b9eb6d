package weathergw

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/meteo-labs/weather-gateway/providers"
)

// LoadConfig reads and parses a config file from the given path.
// Supported formats: JSON (.json), YAML (.yaml, .yml).
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q: use .json, .yaml, or .yml", ext)
	}

	return &cfg, nil
}

// ValidateConfig validates a Config for correctness. It fails fast so that
// no Service is constructed from a bad configuration. Note that capacities
// above the hard maximum are clamped later, not rejected here.
func ValidateConfig(cfg Config) error {
	switch cfg.Mode {
	case "", ModeOnDemand, ModePolling:
	default:
		return fmt.Errorf("%w: unknown mode %q", providers.ErrConfiguration, cfg.Mode)
	}

	if cfg.CacheCapacity < 0 {
		return fmt.Errorf("%w: cache capacity must be at least 1, got %d", providers.ErrConfiguration, cfg.CacheCapacity)
	}
	if cfg.TTL < 0 {
		return fmt.Errorf("%w: ttl must not be negative", providers.ErrConfiguration)
	}
	if cfg.PollInterval < 0 {
		return fmt.Errorf("%w: poll interval must not be negative", providers.ErrConfiguration)
	}
	if cfg.AsyncWorkers < 0 {
		return fmt.Errorf("%w: async workers must not be negative", providers.ErrConfiguration)
	}

	switch cfg.Units {
	case "", providers.UnitsStandard, providers.UnitsMetric, providers.UnitsImperial:
	default:
		return fmt.Errorf("%w: unknown units %q", providers.ErrConfiguration, cfg.Units)
	}

	return nil
}
