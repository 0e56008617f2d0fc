package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/smartcache-sim/smartcache-sim/sim"
	"github.com/smartcache-sim/smartcache-sim/sim/experiment"
	"github.com/smartcache-sim/smartcache-sim/sim/report"
)

// ModeDefaults overrides the search size of a named mode.
type ModeDefaults struct {
	MaxSize int64 `yaml:"max_size"`
	Budget  int   `yaml:"budget"`
}

// Config represents the full defaults.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Version   string                  `yaml:"version"`
	Baselines []report.Baseline       `yaml:"baselines"`
	Modes     map[string]ModeDefaults `yaml:"modes"`

	// MaxCapacityBaseline appends the max_capacity baseline (full size
	// budget, 128B blocks, 16 ways) for the run's max size.
	MaxCapacityBaseline bool `yaml:"max_capacity_baseline"`
}

// loadDefaultsConfig parses defaults.yaml into a Config struct.
// Uses strict field checking: typos must cause errors.
func loadDefaultsConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading defaults file: %w", err)
	}
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing defaults YAML %s: %w", path, err)
	}
	seen := make(map[string]bool, len(cfg.Baselines))
	for i, b := range cfg.Baselines {
		if b.Name == "" {
			return nil, fmt.Errorf("baselines[%d]: name required", i)
		}
		if seen[b.Name] {
			return nil, fmt.Errorf("baselines[%d]: duplicate name %q", i, b.Name)
		}
		seen[b.Name] = true
		if b.Config.IsZero() {
			return nil, fmt.Errorf("baseline %s: config required", b.Name)
		}
	}
	for name, m := range cfg.Modes {
		if m.MaxSize <= 0 || m.Budget < 0 {
			return nil, fmt.Errorf("mode %s: max_size must be positive and budget non-negative", name)
		}
	}
	return &cfg, nil
}

// baselinesFor returns the configured baselines for a run capped at maxSize,
// or the built-in set when cfg is nil.
func baselinesFor(cfg *Config, maxSize int64) []report.Baseline {
	if cfg == nil {
		return report.DefaultBaselines(maxSize)
	}
	out := append([]report.Baseline(nil), cfg.Baselines...)
	if cfg.MaxCapacityBaseline {
		if c, err := sim.NewCacheConfig(maxSize, 128, 16); err == nil {
			out = append(out, report.Baseline{Name: "max_capacity", Config: c})
		}
	}
	return out
}

// presetFor resolves a mode's search size, preferring defaults.yaml.
func presetFor(cfg *Config, mode string) (experiment.Preset, bool) {
	if cfg != nil {
		if m, ok := cfg.Modes[mode]; ok {
			return experiment.Preset{MaxSize: m.MaxSize, Budget: m.Budget}, true
		}
	}
	return experiment.PresetFor(mode)
}
