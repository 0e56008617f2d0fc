package optimize

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/smartcache-sim/smartcache-sim/sim"
)

// Default axis bounds.
const (
	DefaultMinSize  int64 = 1 << 10
	DefaultMaxSize  int64 = 32 << 10
	defaultMinBlock int64 = 16
	defaultMaxBlock int64 = 256
	defaultMaxAssoc int64 = 16
)

// SearchSpace is the discrete candidate set for each geometry axis plus a
// hard ceiling on total size.
type SearchSpace struct {
	Sizes           []int64 `yaml:"sizes"`
	BlockSizes      []int64 `yaml:"block_sizes"`
	Associativities []int64 `yaml:"associativities"`
	MaxSize         int64   `yaml:"max_size"`
}

// DefaultSpace returns power-of-two sizes from 1KiB up to maxSize, block
// sizes 16..256 and associativities 1..16.
func DefaultSpace(maxSize int64) *SearchSpace {
	return &SearchSpace{
		Sizes:           powersOfTwo(DefaultMinSize, maxSize),
		BlockSizes:      powersOfTwo(defaultMinBlock, defaultMaxBlock),
		Associativities: powersOfTwo(1, defaultMaxAssoc),
		MaxSize:         maxSize,
	}
}

func powersOfTwo(lo, hi int64) []int64 {
	var out []int64
	for v := lo; v > 0 && v <= hi; v *= 2 {
		out = append(out, v)
	}
	return out
}

// Validate checks that every axis is non-empty and positive.
func (s *SearchSpace) Validate() error {
	if s.MaxSize <= 0 {
		return fmt.Errorf("max_size must be positive, got %d", s.MaxSize)
	}
	axes := []struct {
		name   string
		values []int64
	}{
		{"sizes", s.Sizes},
		{"block_sizes", s.BlockSizes},
		{"associativities", s.Associativities},
	}
	for _, axis := range axes {
		if len(axis.values) == 0 {
			return fmt.Errorf("%s must not be empty", axis.name)
		}
		for _, v := range axis.values {
			if v <= 0 {
				return fmt.Errorf("%s: values must be positive, got %d", axis.name, v)
			}
		}
	}
	if len(s.Feasible()) == 0 {
		return fmt.Errorf("no feasible configuration with max_size %d", s.MaxSize)
	}
	return nil
}

// Feasible enumerates every valid geometry within MaxSize, sorted by size,
// then block size, then associativity. Duplicate axis values collapse.
func (s *SearchSpace) Feasible() []sim.CacheConfig {
	seen := make(map[sim.CacheConfig]bool)
	var out []sim.CacheConfig
	for _, size := range s.Sizes {
		if size > s.MaxSize {
			continue
		}
		for _, block := range s.BlockSizes {
			for _, assoc := range s.Associativities {
				cfg, err := sim.NewCacheConfig(size, block, assoc)
				if err != nil || seen[cfg] {
					continue
				}
				seen[cfg] = true
				out = append(out, cfg)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Contains reports whether cfg is one of the feasible configurations.
func (s *SearchSpace) Contains(cfg sim.CacheConfig) bool {
	if cfg.Validate() != nil || cfg.SizeBytes() > s.MaxSize {
		return false
	}
	return containsInt(s.Sizes, cfg.SizeBytes()) &&
		containsInt(s.BlockSizes, cfg.BlockBytes()) &&
		containsInt(s.Associativities, cfg.Associativity())
}

func containsInt(values []int64, v int64) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// LoadSpace reads a YAML search-space file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadSpace(path string) (*SearchSpace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading search space: %w", err)
	}
	var space SearchSpace
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&space); err != nil {
		return nil, fmt.Errorf("parsing search space: %w", err)
	}
	if err := space.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search space %s: %w", path, err)
	}
	return &space, nil
}

// encoder maps configurations to the unit cube: each axis is log2-scaled and
// normalized over the range of the space's candidate values.
type encoder struct {
	lo, span [3]float64
}

func newEncoder(space *SearchSpace) encoder {
	var e encoder
	for i, values := range [][]int64{space.Sizes, space.BlockSizes, space.Associativities} {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range values {
			l := math.Log2(float64(v))
			lo = math.Min(lo, l)
			hi = math.Max(hi, l)
		}
		e.lo[i] = lo
		e.span[i] = hi - lo
	}
	return e
}

func (e encoder) encode(cfg sim.CacheConfig) []float64 {
	raw := [3]float64{
		math.Log2(float64(cfg.SizeBytes())),
		math.Log2(float64(cfg.BlockBytes())),
		math.Log2(float64(cfg.Associativity())),
	}
	x := make([]float64, 3)
	for i := range raw {
		if e.span[i] > 0 {
			x[i] = (raw[i] - e.lo[i]) / e.span[i]
		}
	}
	return x
}
