// Package experiment drives optimization over a suite of workloads: one
// search per workload, a shared objective, baseline comparison, and the
// result artifact.
package experiment

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartcache-sim/smartcache-sim/sim"
	"github.com/smartcache-sim/smartcache-sim/sim/objective"
	"github.com/smartcache-sim/smartcache-sim/sim/optimize"
	"github.com/smartcache-sim/smartcache-sim/sim/report"
	"github.com/smartcache-sim/smartcache-sim/sim/trace"
	"github.com/smartcache-sim/smartcache-sim/sim/workload"
)

// Mode presets.
const (
	ModeQuick  = "quick"
	ModeFull   = "full"
	ModeCustom = "custom"
)

// Preset is the search size of a named mode.
type Preset struct {
	MaxSize int64
	Budget  int
}

var presets = map[string]Preset{
	ModeQuick: {MaxSize: 32 << 10, Budget: 20},
	ModeFull:  {MaxSize: 64 << 10, Budget: 50},
}

// PresetFor returns the preset of a built-in mode.
func PresetFor(mode string) (Preset, bool) {
	p, ok := presets[mode]
	return p, ok
}

// Recorder receives every evaluation, e.g. a recorder.SQLiteRecorder.
type Recorder interface {
	Record(optimize.EvaluationRecord)
}

// Config describes one experiment.
type Config struct {
	RunID       string
	Mode        string
	Workloads   []*workload.Spec
	Space       *optimize.SearchSpace
	Budget      int
	InitSamples int
	Acquisition string
	Seed        int64
	Baselines   []report.Baseline

	// SeedBaselines evaluates the baselines as part of the initial design so
	// the search result is never worse than the best feasible baseline.
	SeedBaselines bool

	Parallel   int // concurrent workloads; <= 1 runs them in order
	TraceLevel trace.TraceLevel
	CandidateK int

	Recorder  Recorder   // may be nil
	Telemetry *Telemetry // may be nil
}

// Validate checks the experiment before any work starts.
func (c *Config) Validate() error {
	if len(c.Workloads) == 0 {
		return fmt.Errorf("at least one workload required")
	}
	seen := make(map[string]bool, len(c.Workloads))
	for _, w := range c.Workloads {
		if err := w.Validate(); err != nil {
			return err
		}
		if seen[w.DisplayName()] {
			return fmt.Errorf("duplicate workload name %q", w.DisplayName())
		}
		seen[w.DisplayName()] = true
	}
	if c.Space == nil {
		return fmt.Errorf("search space required")
	}
	if err := c.Space.Validate(); err != nil {
		return err
	}
	if len(c.Baselines) == 0 {
		return fmt.Errorf("at least one baseline required")
	}
	if !trace.IsValidTraceLevel(string(c.TraceLevel)) {
		return fmt.Errorf("unknown trace level %q", c.TraceLevel)
	}
	return c.optionsFor(c.Workloads[0]).Validate()
}

func (c *Config) optionsFor(spec *workload.Spec) optimize.Options {
	opts := optimize.Options{
		Budget:      c.Budget,
		InitSamples: c.InitSamples,
		Acquisition: c.Acquisition,
		Seed:        c.Seed,
		Workload:    spec.DisplayName(),
	}
	if c.SeedBaselines {
		for _, b := range c.Baselines {
			opts.InitConfigs = append(opts.InitConfigs, b.Config)
		}
	}
	if c.TraceLevel == trace.TraceLevelDecisions {
		opts.Trace = trace.NewSearchTrace(trace.TraceConfig{Level: c.TraceLevel, CandidateK: c.CandidateK})
	}
	if c.Recorder != nil || c.Telemetry != nil {
		opts.OnEvaluation = func(rec optimize.EvaluationRecord) {
			if c.Recorder != nil {
				c.Recorder.Record(rec)
			}
			if c.Telemetry != nil {
				c.Telemetry.Observe(rec)
			}
		}
	}
	return opts
}

// Outcome is everything an experiment produced.
type Outcome struct {
	Artifact   *report.Artifact
	Comparison *report.ComparisonTable
	Results    map[string]*optimize.Result
	Objective  *objective.Function
}

type workloadResult struct {
	spec   *workload.Spec
	stats  workload.TraceStats
	result *optimize.Result
}

// Run optimizes every workload, compares against the baselines and
// assembles the artifact. The first failing workload aborts the experiment.
func Run(cfg *Config) (*Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid experiment: %w", err)
	}
	fn := objective.New()
	start := time.Now()

	results := make([]workloadResult, len(cfg.Workloads))
	errs := make([]error, len(cfg.Workloads))
	parallel := cfg.Parallel
	if parallel < 1 {
		parallel = 1
	}
	sem := make(chan struct{}, parallel)
	var wg sync.WaitGroup
	for i, spec := range cfg.Workloads {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, spec *workload.Spec) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i], errs[i] = runWorkload(cfg, fn, spec)
		}(i, spec)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	histories := make(map[string]*optimize.History, len(results))
	specs := make(map[string]*workload.Spec, len(results))
	byName := make(map[string]*optimize.Result, len(results))
	for _, r := range results {
		name := r.spec.DisplayName()
		histories[name] = r.result.History
		specs[name] = r.spec
		byName[name] = r.result
	}
	table, err := report.Compare(histories, cfg.Baselines, func(name string, c sim.CacheConfig) (float64, error) {
		res, err := fn.Evaluate(c, specs[name])
		return res.MissRate, err
	})
	if err != nil {
		return nil, fmt.Errorf("comparing against baselines: %w", err)
	}

	art := &report.Artifact{
		RunID:       cfg.RunID,
		Mode:        cfg.Mode,
		CreatedAt:   time.Now().UTC(),
		Budget:      cfg.Budget,
		MaxSize:     cfg.Space.MaxSize,
		Acquisition: acquisitionName(cfg.Acquisition),
		Seed:        cfg.Seed,
		Baselines:   cfg.Baselines,
	}
	for _, r := range results {
		art.Workloads = append(art.Workloads,
			report.NewWorkloadArtifact(r.spec, r.stats, r.result, table.Row(r.spec.DisplayName())))
	}
	summary := table.Summary()
	art.Summary = &summary

	logrus.Infof("Experiment %s finished: %d workloads, %d simulations in %s",
		cfg.RunID, len(results), fn.Simulations(), time.Since(start).Round(time.Millisecond))
	return &Outcome{Artifact: art, Comparison: table, Results: byName, Objective: fn}, nil
}

func runWorkload(cfg *Config, fn *objective.Function, spec *workload.Spec) (workloadResult, error) {
	name := spec.DisplayName()
	addrs, err := fn.Trace(spec)
	if err != nil {
		return workloadResult{}, err
	}
	stats := workload.Stats(addrs)
	logrus.Infof("[%s] optimizing over %d accesses (%d unique blocks)", name, stats.Accesses, stats.UniqueBlocks)

	res, err := optimize.Optimize(fn.Bind(spec), cfg.Space, cfg.optionsFor(spec))
	if err != nil {
		return workloadResult{}, fmt.Errorf("workload %s: %w", name, err)
	}
	if cfg.Telemetry != nil {
		cfg.Telemetry.Finish(name, res)
	}
	logrus.Infof("[%s] best %s with miss rate %.4f after %d evaluations",
		name, res.Best.Config, res.Best.MissRate, res.History.Len())
	return workloadResult{spec: spec, stats: stats, result: res}, nil
}

func acquisitionName(name string) string {
	if name == "" {
		return optimize.AcquisitionEI
	}
	return name
}
