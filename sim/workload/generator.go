package workload

import (
	"fmt"
	"math/rand"

	"github.com/smartcache-sim/smartcache-sim/sim"
)

const (
	elementSize = 4 // bytes per array element (32-bit words)

	// MaxTraceLength bounds the number of addresses a single spec may produce.
	MaxTraceLength = 1 << 26

	defaultSequentialStride = elementSize
	defaultStridedStride    = 8 * elementSize
	defaultRandomRange      = 1 << 20

	matmulBase = 0x10000
	sortBase   = 0x20000

	// mixed workload regions, one per component pattern
	mixedSequentialBase = 0x100000
	mixedStridedBase    = 0x200000
	mixedRandomBase     = 0x300000
	mixedHotspotBase    = 0x400000
	mixedRandomRange    = 1000 * elementSize
	mixedHotspotRange   = 100 * elementSize
)

func (s *Spec) stride() int64 {
	if s.Stride > 0 {
		return s.Stride
	}
	switch s.Type {
	case TypeSequential:
		return defaultSequentialStride
	case TypeStrided:
		return defaultStridedStride
	}
	return 0
}

func (s *Spec) addrRange() int64 {
	if s.Type != TypeRandom {
		return 0
	}
	if s.Range > 0 {
		return s.Range
	}
	return defaultRandomRange
}

func (s *Spec) passes() int {
	if s.Type != TypeStrided {
		return 0
	}
	if s.Passes > 0 {
		return s.Passes
	}
	return 1
}

// Generate produces the address trace for spec.
// Deterministic: the same spec (including seed) always yields the same trace.
func Generate(spec *Spec) (sim.AddressTrace, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workload spec: %w", err)
	}

	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(spec.EffectiveSeed()))
	workloadRNG := rng.ForSubsystem(sim.SubsystemWorkload)

	switch spec.Type {
	case TypeSequential:
		return stridedTrace(spec.Size, spec.stride(), 1, 0), nil
	case TypeStrided:
		return stridedTrace(spec.Size, spec.stride(), spec.passes(), 0), nil
	case TypeRandom:
		return randomTrace(spec.Size, spec.addrRange(), 0, workloadRNG), nil
	case TypeMatmul:
		return matmulTrace(spec.Size, matmulBase), nil
	case TypeSort:
		return sortTrace(spec.Size, sortBase, workloadRNG), nil
	case TypeMixed:
		return mixedTrace(spec.Size, workloadRNG), nil
	}
	// unreachable after Validate
	return nil, fmt.Errorf("unknown workload type %q", spec.Type)
}

// stridedTrace returns base + i·stride for i in [0, n), repeated passes times.
func stridedTrace(n int, stride int64, passes int, base uint64) sim.AddressTrace {
	trace := make(sim.AddressTrace, 0, n*passes)
	for p := 0; p < passes; p++ {
		for i := 0; i < n; i++ {
			trace = append(trace, base+uint64(int64(i)*stride))
		}
	}
	return trace
}

// randomTrace draws n element-aligned addresses uniformly from [base, base+span).
func randomTrace(n int, span int64, base uint64, rng *rand.Rand) sim.AddressTrace {
	elements := span / elementSize
	trace := make(sim.AddressTrace, n)
	for i := range trace {
		trace[i] = base + uint64(rng.Int63n(elements))*elementSize
	}
	return trace
}

// matmulTrace replays C = A×B with the i-j-k loop order over dim×dim
// row-major matrices stored back to back: C[i][j] is touched once before the
// inner loop, then A[i][k], B[k][j] and C[i][j] on every k.
func matmulTrace(dim int, base uint64) sim.AddressTrace {
	n := uint64(dim)
	a := base
	b := a + n*n*elementSize
	c := b + n*n*elementSize
	trace := make(sim.AddressTrace, 0, n*n*(1+3*n))
	for i := uint64(0); i < n; i++ {
		for j := uint64(0); j < n; j++ {
			cAddr := c + (i*n+j)*elementSize
			trace = append(trace, cAddr)
			for k := uint64(0); k < n; k++ {
				trace = append(trace,
					a+(i*n+k)*elementSize,
					b+(k*n+j)*elementSize,
					cAddr)
			}
		}
	}
	return trace
}

// sortTrace records the element accesses of a randomized quicksort (Lomuto
// partition) over a shuffled array of n elements.
func sortTrace(n int, base uint64, rng *rand.Rand) sim.AddressTrace {
	arr := rng.Perm(n)
	trace := make(sim.AddressTrace, 0, 4*n)
	addr := func(i int) uint64 { return base + uint64(i)*elementSize }
	swap := func(i, j int) {
		trace = append(trace, addr(i), addr(j))
		arr[i], arr[j] = arr[j], arr[i]
	}

	var quicksort func(lo, hi int)
	quicksort = func(lo, hi int) {
		for lo < hi {
			swap(lo+rng.Intn(hi-lo+1), hi)
			pivot := arr[hi]
			store := lo
			for i := lo; i < hi; i++ {
				trace = append(trace, addr(i))
				if arr[i] < pivot {
					if i != store {
						swap(i, store)
					}
					store++
				}
			}
			swap(store, hi)
			// recurse into the smaller side to bound stack depth
			if store-lo < hi-store {
				quicksort(lo, store-1)
				lo = store + 1
			} else {
				quicksort(store+1, hi)
				hi = store - 1
			}
		}
	}
	quicksort(0, n-1)
	return trace
}

// mixedTrace interleaves 40% sequential, 30% strided, 20% random and 10%
// hotspot accesses, each in its own region, in a seeded random order.
func mixedTrace(n int, rng *rand.Rand) sim.AddressTrace {
	trace := make(sim.AddressTrace, 0, n)
	trace = append(trace, stridedTrace(n*4/10, elementSize, 1, mixedSequentialBase)...)
	trace = append(trace, stridedTrace(n*3/10, defaultStridedStride, 1, mixedStridedBase)...)
	trace = append(trace, randomTrace(n*2/10, mixedRandomRange, mixedRandomBase, rng)...)
	trace = append(trace, randomTrace(n/10, mixedHotspotRange, mixedHotspotBase, rng)...)
	rng.Shuffle(len(trace), func(i, j int) { trace[i], trace[j] = trace[j], trace[i] })
	return trace
}
