// Package testutil provides shared test infrastructure for the simulator.
// It holds the golden miss-rate dataset types and assertion helpers used
// across sim/ test packages. It must not import sim/ packages.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/golden_missrates.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one (workload, geometry) pair with its expected counts.
// Only deterministic workloads (no RNG draws) appear in the dataset.
type GoldenTestCase struct {
	Workload GoldenWorkload `json:"workload"`
	Config   GoldenConfig   `json:"config"`
	Accesses int64          `json:"accesses"`
	Hits     int64          `json:"hits"`
	Misses   int64          `json:"misses"`
	MissRate float64        `json:"miss_rate"`
}

// GoldenWorkload mirrors the workload spec fields used by the dataset.
type GoldenWorkload struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Size   int    `json:"size"`
	Stride int64  `json:"stride"`
	Passes int    `json:"passes"`
}

// GoldenConfig is a cache geometry.
type GoldenConfig struct {
	SizeBytes     int64 `json:"size_bytes"`
	BlockBytes    int64 `json:"block_bytes"`
	Associativity int64 `json:"associativity"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// Navigate from sim/internal/testutil/ to repo root testdata/
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "golden_missrates.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}
	if len(dataset.Tests) == 0 {
		t.Fatal("golden dataset is empty")
	}

	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
