// Package objective turns (configuration, workload) into a miss rate.
// Traces are generated once per workload key and shared; simulations are
// memoized per (key, configuration) since the simulator is deterministic.
package objective

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/smartcache-sim/smartcache-sim/sim"
	"github.com/smartcache-sim/smartcache-sim/sim/optimize"
	"github.com/smartcache-sim/smartcache-sim/sim/workload"
)

// Result is the outcome of one evaluation.
type Result struct {
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	MissRate   float64 `json:"miss_rate"`
	EmptyTrace bool    `json:"empty_trace"`
}

// Stats returns the raw counters.
func (r Result) Stats() sim.Stats { return sim.Stats{Hits: r.Hits, Misses: r.Misses} }

type memoKey struct {
	workload string
	config   sim.CacheConfig
}

// Function evaluates configurations against workloads. Safe for concurrent use.
type Function struct {
	loads singleflight.Group

	mu     sync.RWMutex
	traces map[string]sim.AddressTrace
	memo   map[memoKey]Result

	simulations atomic.Int64
}

// New returns an empty Function.
func New() *Function {
	return &Function{
		traces: make(map[string]sim.AddressTrace),
		memo:   make(map[memoKey]Result),
	}
}

// Trace returns the cached trace for spec, generating it on first use.
// Concurrent callers for the same key share one generation.
func (f *Function) Trace(spec *workload.Spec) (sim.AddressTrace, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	key := spec.Key()
	f.mu.RLock()
	trace, ok := f.traces[key]
	f.mu.RUnlock()
	if ok {
		return trace, nil
	}

	v, err, _ := f.loads.Do(key, func() (interface{}, error) {
		trace, err := workload.Generate(spec)
		if err != nil {
			return nil, err
		}
		if len(trace) == 0 {
			logrus.Warnf("[%s] workload produced an empty trace; miss rate is reported as 0", spec.DisplayName())
		}
		f.mu.Lock()
		f.traces[key] = trace
		f.mu.Unlock()
		logrus.Debugf("[%s] generated %d addresses (key %s)", spec.DisplayName(), len(trace), key)
		return trace, nil
	})
	if err != nil {
		return nil, fmt.Errorf("generating workload %s: %w", spec.DisplayName(), err)
	}
	return v.(sim.AddressTrace), nil
}

// Evaluate simulates cfg against the workload's trace. An invalid cfg yields
// a *sim.ConfigurationError and no result.
func (f *Function) Evaluate(cfg sim.CacheConfig, spec *workload.Spec) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	trace, err := f.Trace(spec)
	if err != nil {
		return Result{}, err
	}

	key := memoKey{workload: spec.Key(), config: cfg}
	f.mu.RLock()
	res, ok := f.memo[key]
	f.mu.RUnlock()
	if ok {
		return res, nil
	}

	stats, err := sim.Simulate(trace, cfg)
	if err != nil {
		return Result{}, err
	}
	f.simulations.Add(1)
	res = Result{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		MissRate:   stats.MissRate(),
		EmptyTrace: len(trace) == 0,
	}
	f.mu.Lock()
	f.memo[key] = res
	f.mu.Unlock()
	return res, nil
}

// Bind fixes the workload and returns an optimizer objective.
func (f *Function) Bind(spec *workload.Spec) optimize.Objective {
	return func(cfg sim.CacheConfig) (sim.Stats, error) {
		res, err := f.Evaluate(cfg, spec)
		if err != nil {
			return sim.Stats{}, err
		}
		return res.Stats(), nil
	}
}

// Simulations returns how many simulations actually ran (memo misses).
func (f *Function) Simulations() int64 { return f.simulations.Load() }
