package objective

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcache-sim/smartcache-sim/sim"
	"github.com/smartcache-sim/smartcache-sim/sim/internal/testutil"
	"github.com/smartcache-sim/smartcache-sim/sim/optimize"
	"github.com/smartcache-sim/smartcache-sim/sim/workload"
)

func TestEvaluate_GoldenDataset(t *testing.T) {
	dataset := testutil.LoadGoldenDataset(t)
	f := New()
	for _, tc := range dataset.Tests {
		cfg := sim.MustCacheConfig(tc.Config.SizeBytes, tc.Config.BlockBytes, tc.Config.Associativity)
		t.Run(tc.Workload.Name+"/"+cfg.String(), func(t *testing.T) {
			spec := &workload.Spec{
				Name: tc.Workload.Name, Type: tc.Workload.Type, Size: tc.Workload.Size,
				Stride: tc.Workload.Stride, Passes: tc.Workload.Passes,
			}
			res, err := f.Evaluate(cfg, spec)
			require.NoError(t, err)
			assert.Equal(t, tc.Hits, res.Hits)
			assert.Equal(t, tc.Misses, res.Misses)
			assert.Equal(t, tc.Accesses, res.Hits+res.Misses)
			testutil.AssertFloat64Equal(t, "miss_rate", tc.MissRate, res.MissRate, 1e-9)
		})
	}
}

func TestEvaluate_RandomTrace_MissRateNearOneMinusCoverage(t *testing.T) {
	// GIVEN 10 000 random accesses over 1MiB and an 8KiB 4-way cache
	spec := &workload.Spec{Type: workload.TypeRandom, Size: 10000, Range: 1 << 20}
	cfg := sim.MustCacheConfig(8192, 64, 4)

	// WHEN evaluated
	res, err := New().Evaluate(cfg, spec)
	require.NoError(t, err)

	// THEN miss rate ≈ 1 − 8KiB/1MiB
	assert.InDelta(t, 1-8192.0/(1<<20), res.MissRate, 0.01)
}

func TestEvaluate_EmptyTrace_FlaggedWithZeroMissRate(t *testing.T) {
	res, err := New().Evaluate(sim.MustCacheConfig(4096, 64, 1), &workload.Spec{Type: workload.TypeSequential, Size: 0})
	require.NoError(t, err)
	assert.True(t, res.EmptyTrace)
	assert.Equal(t, 0.0, res.MissRate)
	assert.Zero(t, res.Hits+res.Misses)
}

func TestEvaluate_InvalidConfig_NoSimulation(t *testing.T) {
	f := New()
	_, err := f.Evaluate(sim.CacheConfig{}, &workload.Spec{Type: workload.TypeSequential, Size: 100})
	assert.ErrorIs(t, err, sim.ErrInvalidConfig)
	assert.Zero(t, f.Simulations())
}

func TestEvaluate_UnknownWorkload_ReturnsError(t *testing.T) {
	_, err := New().Evaluate(sim.MustCacheConfig(4096, 64, 1), &workload.Spec{Type: "fft", Size: 8})
	require.Error(t, err)
	assert.NotErrorIs(t, err, sim.ErrInvalidConfig)
}

func TestEvaluate_RepeatedConfig_Memoized(t *testing.T) {
	f := New()
	spec := &workload.Spec{Type: workload.TypeMatmul, Size: 8}
	cfg := sim.MustCacheConfig(2048, 32, 2)

	first, err := f.Evaluate(cfg, spec)
	require.NoError(t, err)
	second, err := f.Evaluate(cfg, &workload.Spec{Name: "renamed", Type: workload.TypeMatmul, Size: 8})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), f.Simulations())
}

func TestFunction_ConcurrentWorkloads_MatchSerial(t *testing.T) {
	specs := []*workload.Spec{
		{Type: workload.TypeMatmul, Size: 12},
		{Type: workload.TypeSort, Size: 500},
		{Type: workload.TypeMixed, Size: 2000},
	}
	configs := []sim.CacheConfig{
		sim.MustCacheConfig(1024, 16, 1),
		sim.MustCacheConfig(4096, 64, 4),
		sim.MustCacheConfig(8192, 128, 8),
	}

	serial := New()
	want := map[string]Result{}
	for _, s := range specs {
		for _, c := range configs {
			res, err := serial.Evaluate(c, s)
			require.NoError(t, err)
			want[s.Key()+c.String()] = res
		}
	}

	shared := New()
	var mu sync.Mutex
	got := map[string]Result{}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		for _, s := range specs {
			wg.Add(1)
			go func(s *workload.Spec) {
				defer wg.Done()
				for _, c := range configs {
					res, err := shared.Evaluate(c, s)
					if err != nil {
						t.Error(err)
						return
					}
					mu.Lock()
					got[s.Key()+c.String()] = res
					mu.Unlock()
				}
			}(s)
		}
	}
	wg.Wait()
	assert.Equal(t, want, got)
}

func TestOptimize_MatmulVsBaseline_NeverWorse(t *testing.T) {
	// GIVEN matmul(32), budget 20, max size 32KiB and the (8192, 64, 1) baseline
	f := New()
	spec := &workload.Spec{Name: "matmul_32", Type: workload.TypeMatmul, Size: 32}
	baseline := sim.MustCacheConfig(8192, 64, 1)
	baseRes, err := f.Evaluate(baseline, spec)
	require.NoError(t, err)

	space := optimize.DefaultSpace(32 << 10)
	for name, seeds := range map[string][]sim.CacheConfig{
		"baseline seeded": {baseline},
		"random init":     nil,
	} {
		t.Run(name, func(t *testing.T) {
			// WHEN the optimizer runs
			res, err := optimize.Optimize(f.Bind(spec), space, optimize.Options{
				Budget: 20, Seed: 42, Workload: spec.DisplayName(), InitConfigs: seeds,
			})
			require.NoError(t, err)

			// THEN the best found is no worse than the baseline
			assert.Equal(t, optimize.DefaultInitSamples+20, res.History.Len())
			assert.LessOrEqual(t, res.Best.MissRate, baseRes.MissRate)
			assert.LessOrEqual(t, res.Best.Config.SizeBytes(), int64(32<<10))
		})
	}
}
