package workload

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Workload type tags.
const (
	TypeSequential = "sequential"
	TypeRandom     = "random"
	TypeStrided    = "strided"
	TypeMatmul     = "matmul"
	TypeSort       = "sort"
	TypeMixed      = "mixed"
)

// DefaultSeed is used when neither the spec nor its suite sets one.
const DefaultSeed int64 = 42

// validTypes maps each workload tag to its default size parameter.
var validTypes = map[string]int{
	TypeSequential: 5000,
	TypeRandom:     5000,
	TypeStrided:    5000,
	TypeMatmul:     32,
	TypeSort:       1000,
	TypeMixed:      5000,
}

// Spec describes one synthetic workload. Together with the seed it fully
// determines the generated address trace.
type Spec struct {
	Name   string `yaml:"name,omitempty" json:"name,omitempty"`
	Type   string `yaml:"type" json:"type"`
	Size   int    `yaml:"size" json:"size"`                         // element count, or matrix dimension for matmul
	Stride int64  `yaml:"stride,omitempty" json:"stride,omitempty"` // bytes; sequential and strided only
	Range  int64  `yaml:"range,omitempty" json:"range,omitempty"`   // bytes; random only
	Passes int    `yaml:"passes,omitempty" json:"passes,omitempty"` // strided only
	Seed   *int64 `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// Suite is a named collection of workloads, loadable from YAML.
type Suite struct {
	Version   string `yaml:"version"`
	Seed      *int64 `yaml:"seed,omitempty"`
	Workloads []Spec `yaml:"workloads"`
}

// IsValidType reports whether name is a recognized workload tag.
func IsValidType(name string) bool {
	_, ok := validTypes[name]
	return ok
}

// ValidTypes returns the recognized workload tags in sorted order.
func ValidTypes() []string {
	names := make([]string, 0, len(validTypes))
	for name := range validTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the tag and the size parameters.
func (s *Spec) Validate() error {
	if !IsValidType(s.Type) {
		return fmt.Errorf("unknown workload type %q; valid: %s", s.Type, strings.Join(ValidTypes(), ", "))
	}
	if s.Size < 0 {
		return fmt.Errorf("workload %q: size must be non-negative, got %d", s.DisplayName(), s.Size)
	}
	if s.Stride < 0 {
		return fmt.Errorf("workload %q: stride must be non-negative, got %d", s.DisplayName(), s.Stride)
	}
	if s.Range != 0 && s.Range < elementSize {
		return fmt.Errorf("workload %q: range must be at least %d bytes, got %d", s.DisplayName(), elementSize, s.Range)
	}
	if s.Passes < 0 {
		return fmt.Errorf("workload %q: passes must be non-negative, got %d", s.DisplayName(), s.Passes)
	}
	if n := s.EstimatedLength(); n > MaxTraceLength {
		return fmt.Errorf("workload %q: %d accesses exceeds the %d limit", s.DisplayName(), n, MaxTraceLength)
	}
	return nil
}

// EffectiveSeed returns the spec's seed or DefaultSeed.
func (s *Spec) EffectiveSeed() int64 {
	if s.Seed != nil {
		return *s.Seed
	}
	return DefaultSeed
}

// DisplayName returns Name, or "<type>_<size>" when Name is empty.
func (s *Spec) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("%s_%d", s.Type, s.Size)
}

// Key identifies the generated trace: two specs with equal keys produce
// identical traces. Name is not part of the key.
func (s *Spec) Key() string {
	return fmt.Sprintf("%s/n=%d/stride=%d/range=%d/passes=%d/seed=%d",
		s.Type, s.Size, s.stride(), s.addrRange(), s.passes(), s.EffectiveSeed())
}

// EstimatedLength returns the number of addresses Generate will produce.
// Estimates above MaxTraceLength saturate at MaxTraceLength+1.
func (s *Spec) EstimatedLength() int64 {
	n := int64(s.Size)
	if n > MaxTraceLength {
		return MaxTraceLength + 1
	}
	switch s.Type {
	case TypeMatmul:
		return mulCapped(n, mulCapped(n, 1+3*n))
	case TypeStrided:
		return mulCapped(n, int64(s.passes()))
	case TypeSort:
		// randomized quicksort: about 2·n·ln(n) touches on average
		return mulCapped(4*n, int64(bitLen(s.Size)+1))
	default:
		return n
	}
}

// mulCapped multiplies non-negative a and b, saturating at MaxTraceLength+1.
func mulCapped(a, b int64) int64 {
	const limit = MaxTraceLength + 1
	if a == 0 || b == 0 {
		return 0
	}
	if a >= limit || b >= limit || a > limit/b {
		return limit
	}
	return a * b
}

func bitLen(n int) int {
	l := 0
	for ; n > 0; n >>= 1 {
		l++
	}
	return l
}

// ParseName builds a Spec from a short name such as "matmul_32", "sort_1000"
// or "mixed" (default size).
func ParseName(name string) (*Spec, error) {
	typ, sizeStr, hasSize := strings.Cut(name, "_")
	spec := &Spec{Name: name, Type: typ}
	if !IsValidType(typ) {
		return nil, fmt.Errorf("unknown workload %q; valid types: %s", name, strings.Join(ValidTypes(), ", "))
	}
	if !hasSize {
		spec.Size = validTypes[typ]
		return spec, nil
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil {
		return nil, fmt.Errorf("workload %q: size %q is not an integer", name, sizeStr)
	}
	spec.Size = size
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// LoadSuite reads and parses a YAML workload suite file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workload suite: %w", err)
	}
	var suite Suite
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&suite); err != nil {
		return nil, fmt.Errorf("parsing workload suite: %w", err)
	}
	if err := suite.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workload suite %s: %w", path, err)
	}
	return &suite, nil
}

// Validate checks every workload and rejects duplicate names.
func (s *Suite) Validate() error {
	if len(s.Workloads) == 0 {
		return fmt.Errorf("at least one workload required")
	}
	seen := make(map[string]bool, len(s.Workloads))
	for i := range s.Workloads {
		w := &s.Workloads[i]
		if err := w.Validate(); err != nil {
			return fmt.Errorf("workloads[%d]: %w", i, err)
		}
		if seen[w.DisplayName()] {
			return fmt.Errorf("workloads[%d]: duplicate workload name %q", i, w.DisplayName())
		}
		seen[w.DisplayName()] = true
	}
	return nil
}

// Specs returns copies of the suite's workloads with the suite seed applied
// to workloads that do not set their own.
func (s *Suite) Specs() []*Spec {
	specs := make([]*Spec, len(s.Workloads))
	for i := range s.Workloads {
		w := s.Workloads[i]
		if w.Seed == nil && s.Seed != nil {
			seed := *s.Seed
			w.Seed = &seed
		}
		specs[i] = &w
	}
	return specs
}
