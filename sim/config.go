package sim

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/bits"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is matched by every ConfigurationError via errors.Is.
var ErrInvalidConfig = errors.New("invalid cache configuration")

// ConfigurationError reports a cache geometry that violates a structural
// invariant. Raised before any simulation work is done.
type ConfigurationError struct {
	SizeBytes     int64
	BlockBytes    int64
	Associativity int64
	Reason        string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("cache config (size=%d, block=%d, assoc=%d): %s",
		e.SizeBytes, e.BlockBytes, e.Associativity, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidConfig) true for any ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// CacheConfig is an immutable cache geometry. The zero value is not a valid
// configuration; use NewCacheConfig.
type CacheConfig struct {
	sizeBytes     int64
	blockBytes    int64
	associativity int64
}

// NewCacheConfig validates the geometry and returns it as a value.
//
// Invariants:
//   - sizeBytes > 0 and a multiple of blockBytes
//   - blockBytes is a power of two
//   - associativity >= 1 and divides sizeBytes/blockBytes
//   - the resulting set count is a power of two
func NewCacheConfig(sizeBytes, blockBytes, associativity int64) (CacheConfig, error) {
	fail := func(format string, args ...any) (CacheConfig, error) {
		return CacheConfig{}, &ConfigurationError{
			SizeBytes:     sizeBytes,
			BlockBytes:    blockBytes,
			Associativity: associativity,
			Reason:        fmt.Sprintf(format, args...),
		}
	}
	if sizeBytes <= 0 {
		return fail("size must be positive")
	}
	if !IsPowerOfTwo(blockBytes) {
		return fail("block size must be a power of two")
	}
	if sizeBytes%blockBytes != 0 {
		return fail("size must be a multiple of block size")
	}
	if associativity < 1 {
		return fail("associativity must be at least 1")
	}
	numBlocks := sizeBytes / blockBytes
	if associativity > numBlocks {
		return fail("associativity %d exceeds block count %d", associativity, numBlocks)
	}
	if numBlocks%associativity != 0 {
		return fail("associativity must divide block count %d", numBlocks)
	}
	if !IsPowerOfTwo(numBlocks / associativity) {
		return fail("set count %d is not a power of two", numBlocks/associativity)
	}
	return CacheConfig{sizeBytes: sizeBytes, blockBytes: blockBytes, associativity: associativity}, nil
}

// MustCacheConfig is NewCacheConfig for static geometries; it panics on error.
func MustCacheConfig(sizeBytes, blockBytes, associativity int64) CacheConfig {
	c, err := NewCacheConfig(sizeBytes, blockBytes, associativity)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CacheConfig) SizeBytes() int64     { return c.sizeBytes }
func (c CacheConfig) BlockBytes() int64    { return c.blockBytes }
func (c CacheConfig) Associativity() int64 { return c.associativity }

// NumBlocks returns the number of cache lines.
func (c CacheConfig) NumBlocks() int64 {
	if c.blockBytes == 0 {
		return 0
	}
	return c.sizeBytes / c.blockBytes
}

// NumSets returns the number of sets.
func (c CacheConfig) NumSets() int64 {
	if c.associativity == 0 {
		return 0
	}
	return c.NumBlocks() / c.associativity
}

// OffsetBits and IndexBits describe the [tag | index | offset] address split.
func (c CacheConfig) OffsetBits() int { return bits.TrailingZeros64(uint64(c.blockBytes)) }
func (c CacheConfig) IndexBits() int  { return bits.TrailingZeros64(uint64(c.NumSets())) }

// Validate re-checks the invariants. Only a zero or hand-assembled value can fail.
func (c CacheConfig) Validate() error {
	_, err := NewCacheConfig(c.sizeBytes, c.blockBytes, c.associativity)
	return err
}

// IsZero reports whether c is the zero value.
func (c CacheConfig) IsZero() bool { return c == CacheConfig{} }

// Less orders configurations by size, then block size, then associativity.
func (c CacheConfig) Less(o CacheConfig) bool {
	if c.sizeBytes != o.sizeBytes {
		return c.sizeBytes < o.sizeBytes
	}
	if c.blockBytes != o.blockBytes {
		return c.blockBytes < o.blockBytes
	}
	return c.associativity < o.associativity
}

func (c CacheConfig) String() string {
	return fmt.Sprintf("%s/%dB/%d-way", FormatBytes(c.sizeBytes), c.blockBytes, c.associativity)
}

// cacheConfigWire is the serialized form shared by JSON and YAML.
type cacheConfigWire struct {
	SizeBytes     int64 `json:"size_bytes" yaml:"size_bytes"`
	BlockBytes    int64 `json:"block_bytes" yaml:"block_bytes"`
	Associativity int64 `json:"associativity" yaml:"associativity"`
}

func (c CacheConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(cacheConfigWire{c.sizeBytes, c.blockBytes, c.associativity})
}

// UnmarshalJSON decodes and validates; invalid geometries are rejected.
func (c *CacheConfig) UnmarshalJSON(data []byte) error {
	var w cacheConfigWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed, err := NewCacheConfig(w.SizeBytes, w.BlockBytes, w.Associativity)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c CacheConfig) MarshalYAML() (interface{}, error) {
	return cacheConfigWire{c.sizeBytes, c.blockBytes, c.associativity}, nil
}

// UnmarshalYAML decodes and validates; unknown keys are rejected.
func (c *CacheConfig) UnmarshalYAML(node *yaml.Node) error {
	var w struct {
		SizeBytes     int64 `yaml:"size_bytes"`
		BlockBytes    int64 `yaml:"block_bytes"`
		Associativity int64 `yaml:"associativity"`
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		switch key := node.Content[i].Value; key {
		case "size_bytes", "block_bytes", "associativity":
		default:
			return fmt.Errorf("line %d: unknown cache config field %q", node.Content[i].Line, key)
		}
	}
	if err := node.Decode(&w); err != nil {
		return err
	}
	parsed, err := NewCacheConfig(w.SizeBytes, w.BlockBytes, w.Associativity)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// IsPowerOfTwo reports whether v is a positive power of two.
func IsPowerOfTwo(v int64) bool {
	return v > 0 && v&(v-1) == 0
}

// FormatBytes renders a byte count with a binary unit suffix (4096 -> "4KiB").
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit && n%unit == 0; n /= unit {
		div *= unit
		exp++
	}
	if b%div == 0 {
		return fmt.Sprintf("%d%ciB", b/div, "KMGTPE"[exp])
	}
	return fmt.Sprintf("%.1f%ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
