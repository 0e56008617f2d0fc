package optimize

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcache-sim/smartcache-sim/sim"
	"github.com/smartcache-sim/smartcache-sim/sim/trace"
)

// bowlObjective is a smooth synthetic miss-rate surface: decreasing in size,
// minimized at 64B blocks and 4 ways.
func bowlObjective(calls *int) Objective {
	return func(cfg sim.CacheConfig) (sim.Stats, error) {
		if calls != nil {
			*calls++
		}
		rate := 0.5/math.Log2(float64(cfg.SizeBytes())/512) +
			0.05*math.Abs(math.Log2(float64(cfg.BlockBytes()))-6) +
			0.02*math.Abs(math.Log2(float64(cfg.Associativity()))-2)
		misses := int64(rate * 10000)
		return sim.Stats{Hits: 10000 - misses, Misses: misses}, nil
	}
}

func configsOf(h *History) []sim.CacheConfig {
	var out []sim.CacheConfig
	for _, r := range h.Records() {
		out = append(out, r.Config)
	}
	return out
}

func TestOptimize_BudgetConformance_HistoryIsInitPlusBudget(t *testing.T) {
	space := DefaultSpace(32 << 10)
	for _, budget := range []int{0, 1, 10, 20} {
		t.Run(fmt.Sprintf("budget=%d", budget), func(t *testing.T) {
			calls := 0
			res, err := Optimize(bowlObjective(&calls), space, Options{Budget: budget, Seed: 42})
			require.NoError(t, err)
			assert.Equal(t, DefaultInitSamples, res.InitCount)
			assert.Equal(t, DefaultInitSamples+budget, res.History.Len())
			assert.Equal(t, res.History.Len(), calls)
		})
	}
}

func TestOptimize_SeededInitConfigs_ExtendInitialDesign(t *testing.T) {
	// GIVEN more seeded configurations than InitSamples
	seeded := []sim.CacheConfig{
		sim.MustCacheConfig(4096, 32, 1),
		sim.MustCacheConfig(16384, 64, 4),
		sim.MustCacheConfig(32768, 64, 8),
		sim.MustCacheConfig(32768, 128, 16),
		sim.MustCacheConfig(8192, 64, 1),
		sim.MustCacheConfig(8192, 64, 1),  // duplicate
		sim.MustCacheConfig(65536, 64, 1), // above max size
		sim.MustCacheConfig(2048, 16, 2),
	}

	// WHEN optimizing with InitSamples 2
	res, err := Optimize(bowlObjective(nil), DefaultSpace(32<<10), Options{Budget: 3, InitSamples: 2, InitConfigs: seeded})
	require.NoError(t, err)

	// THEN k_init counts the six usable seeds, evaluated first and in order
	assert.Equal(t, 6, res.InitCount)
	assert.Equal(t, 9, res.History.Len())
	got := configsOf(res.History)
	assert.Equal(t, []sim.CacheConfig{seeded[0], seeded[1], seeded[2], seeded[3], seeded[4], seeded[7]}, got[:6])
}

func TestOptimize_NoDuplicateEvaluations_AllWithinSpace(t *testing.T) {
	space := DefaultSpace(16 << 10)
	res, err := Optimize(bowlObjective(nil), space, Options{Budget: 25, Seed: 3})
	require.NoError(t, err)

	seen := map[sim.CacheConfig]bool{}
	for _, r := range res.History.Records() {
		assert.False(t, seen[r.Config], "duplicate evaluation of %s", r.Config)
		seen[r.Config] = true
		assert.True(t, space.Contains(r.Config), "%s outside space", r.Config)
		assert.LessOrEqual(t, r.Config.SizeBytes(), space.MaxSize)
	}
}

func TestOptimize_SameSeed_SameSequence(t *testing.T) {
	space := DefaultSpace(32 << 10)
	a, err := Optimize(bowlObjective(nil), space, Options{Budget: 10, Seed: 11})
	require.NoError(t, err)
	b, err := Optimize(bowlObjective(nil), space, Options{Budget: 10, Seed: 11})
	require.NoError(t, err)
	assert.Equal(t, configsOf(a.History), configsOf(b.History))
}

func TestOptimize_FindsGoodRegion(t *testing.T) {
	// GIVEN a smooth surface over the default 32KiB space
	space := DefaultSpace(32 << 10)
	obj := bowlObjective(nil)
	var all []float64
	for _, cfg := range space.Feasible() {
		stats, err := obj(cfg)
		require.NoError(t, err)
		all = append(all, stats.MissRate())
	}
	sort.Float64s(all)

	// WHEN searching with budget 20
	res, err := Optimize(obj, space, Options{Budget: 20, Seed: 42})
	require.NoError(t, err)

	// THEN the best found lies in the top 15% of the whole space
	threshold := all[len(all)*15/100]
	assert.LessOrEqual(t, res.Best.MissRate, threshold)
	assert.Equal(t, res.Best, mustBest(t, res.History))
}

func mustBest(t *testing.T, h *History) EvaluationRecord {
	t.Helper()
	best, ok := h.Best()
	require.True(t, ok)
	return best
}

func TestOptimize_ConfigurationError_ExcludedWithoutConsumingBudget(t *testing.T) {
	// GIVEN an objective that refuses every 2-way configuration
	base := bowlObjective(nil)
	obj := func(cfg sim.CacheConfig) (sim.Stats, error) {
		if cfg.Associativity() == 2 {
			return sim.Stats{}, &sim.ConfigurationError{
				SizeBytes: cfg.SizeBytes(), BlockBytes: cfg.BlockBytes(), Associativity: 2,
				Reason: "2-way arrays unavailable",
			}
		}
		return base(cfg)
	}
	refused := sim.MustCacheConfig(8192, 64, 2)
	st := trace.NewSearchTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})

	// WHEN the refused configuration is seeded first
	res, err := Optimize(obj, DefaultSpace(32<<10), Options{
		Budget: 15, Seed: 5, InitConfigs: []sim.CacheConfig{refused}, Trace: st,
	})
	require.NoError(t, err)

	// THEN it is never recorded and the history length is unaffected
	assert.Equal(t, DefaultInitSamples+15, res.History.Len())
	assert.GreaterOrEqual(t, res.Rejected, 1)
	for _, r := range res.History.Records() {
		assert.NotEqual(t, int64(2), r.Config.Associativity())
	}
	require.NotEmpty(t, st.Rejections)
	assert.Equal(t, int64(2), st.Rejections[0].Associativity)
}

func TestOptimize_ObjectiveFailure_Aborts(t *testing.T) {
	boom := errors.New("disk on fire")
	obj := func(sim.CacheConfig) (sim.Stats, error) { return sim.Stats{}, boom }
	_, err := Optimize(obj, DefaultSpace(32<<10), Options{Budget: 5})
	assert.ErrorIs(t, err, boom)
}

func TestOptimize_SurrogateFitFailure_FallsBackToRandom(t *testing.T) {
	// GIVEN a surrogate that can never be fitted
	failing := func([][]float64, []float64) (Surrogate, error) {
		return nil, fmt.Errorf("%w: singular", ErrSurrogateFit)
	}
	st := trace.NewSearchTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	o := newOptimizer(bowlObjective(nil), DefaultSpace(32<<10), Options{Budget: 7, Seed: 1, Trace: st}, failing)

	// WHEN the search runs
	res, err := o.run()

	// THEN it completes with one random fallback per guided iteration
	require.NoError(t, err)
	assert.Equal(t, DefaultInitSamples+7, res.History.Len())
	assert.Equal(t, 7, res.Fallbacks)
	summary := trace.Summarize(st)
	assert.Equal(t, 7, summary.FallbackCount)
	assert.Equal(t, DefaultInitSamples, summary.InitCount)
	assert.Zero(t, summary.AcquisitionCount)
}

func TestOptimize_SpaceTooSmall_ReturnsErrSpaceExhausted(t *testing.T) {
	space := &SearchSpace{Sizes: []int64{1024}, BlockSizes: []int64{64}, Associativities: []int64{1, 2}, MaxSize: 1024}
	_, err := Optimize(bowlObjective(nil), space, Options{Budget: 10})
	assert.ErrorIs(t, err, ErrSpaceExhausted)
}

func TestOptimize_InvalidOptions(t *testing.T) {
	space := DefaultSpace(32 << 10)
	_, err := Optimize(bowlObjective(nil), space, Options{Budget: -1})
	assert.Error(t, err)
	_, err = Optimize(bowlObjective(nil), space, Options{Acquisition: "ucb"})
	assert.Error(t, err)
	_, err = Optimize(nil, space, Options{})
	assert.Error(t, err)
	_, err = Optimize(bowlObjective(nil), nil, Options{})
	assert.Error(t, err)
}

func TestOptimize_AllAcquisitions_RecordTrace(t *testing.T) {
	for _, name := range ValidAcquisitionNames() {
		t.Run(name, func(t *testing.T) {
			st := trace.NewSearchTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions, CandidateK: 3})
			var seen []EvaluationRecord
			res, err := Optimize(bowlObjective(nil), DefaultSpace(32<<10), Options{
				Budget: 6, Seed: 9, Acquisition: name, Trace: st,
				OnEvaluation: func(r EvaluationRecord) { seen = append(seen, r) },
			})
			require.NoError(t, err)
			assert.Equal(t, res.History.Records(), seen)
			require.Len(t, st.Proposals, res.History.Len())
			for _, p := range st.Proposals[res.InitCount:] {
				assert.Equal(t, trace.SourceAcquisition, p.Source)
				assert.Len(t, p.Candidates, 3)
				for _, c := range p.Candidates {
					assert.LessOrEqual(t, c.Score, p.Score)
				}
			}
		})
	}
}

func TestPropose_TiedScores_PreferSmallerConfig(t *testing.T) {
	// GIVEN a surrogate that predicts the same value everywhere
	o := newOptimizer(bowlObjective(nil), DefaultSpace(32<<10), Options{}, fitGP)
	acquire, err := NewAcquisition(AcquisitionEI, DefaultXi, DefaultKappa)
	require.NoError(t, err)
	o.acquire = acquire
	o.history.append(EvaluationRecord{Config: sim.MustCacheConfig(32768, 64, 4), MissRate: 0.2})

	pending := o.unevaluated()

	// WHEN proposing
	p := o.propose(flatSurrogate{mean: 0.1, std: 0.05}, pending)

	// THEN the smallest pending configuration wins
	assert.Equal(t, pending[0], p.config)
	assert.Equal(t, sim.MustCacheConfig(1024, 16, 1), p.config)
}

type flatSurrogate struct{ mean, std float64 }

func (f flatSurrogate) Predict([]float64) (float64, float64) { return f.mean, f.std }
