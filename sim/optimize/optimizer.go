// Package optimize implements the Bayesian-optimization search over cache
// geometries: a Gaussian Process surrogate refit after every evaluation and
// an acquisition function choosing the next configuration.
package optimize

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/smartcache-sim/smartcache-sim/sim"
	"github.com/smartcache-sim/smartcache-sim/sim/trace"
)

// DefaultInitSamples is the number of initial design points when Options
// does not set one.
const DefaultInitSamples = 5

// ErrSpaceExhausted is returned when the feasible space cannot supply the
// requested number of evaluations.
var ErrSpaceExhausted = errors.New("search space exhausted")

// Objective evaluates one configuration. A *sim.ConfigurationError marks the
// configuration as unusable; any other error aborts the search.
type Objective func(cfg sim.CacheConfig) (sim.Stats, error)

// Surrogate predicts the objective at an encoded configuration.
type Surrogate interface {
	Predict(x []float64) (mean, std float64)
}

// Options controls one optimization run.
type Options struct {
	Budget      int               // acquisition-driven evaluations after initialization
	InitSamples int               // minimum initial design size (default 5)
	InitConfigs []sim.CacheConfig // evaluated first when feasible, e.g. baselines
	Acquisition string            // ei (default), pi or lcb
	Xi          float64           // improvement margin for ei/pi (default 0.01)
	Kappa       float64           // exploration weight for lcb (default 1.96)
	Seed        int64
	Workload    string // copied into every EvaluationRecord

	// Trace receives proposal and rejection records when enabled. May be nil.
	Trace *trace.SearchTrace

	// OnEvaluation is called after every successful evaluation. May be nil.
	OnEvaluation func(EvaluationRecord)
}

func (o Options) withDefaults() Options {
	if o.InitSamples <= 0 {
		o.InitSamples = DefaultInitSamples
	}
	if o.Xi == 0 {
		o.Xi = DefaultXi
	}
	if o.Kappa == 0 {
		o.Kappa = DefaultKappa
	}
	return o
}

// Validate checks the option values.
func (o Options) Validate() error {
	if o.Budget < 0 {
		return fmt.Errorf("budget must be non-negative, got %d", o.Budget)
	}
	if o.InitSamples < 0 {
		return fmt.Errorf("init samples must be non-negative, got %d", o.InitSamples)
	}
	if !IsValidAcquisition(o.Acquisition) {
		return fmt.Errorf("unknown acquisition function %q", o.Acquisition)
	}
	if o.Xi < 0 || o.Kappa < 0 {
		return fmt.Errorf("xi and kappa must be non-negative")
	}
	return nil
}

// Result is the outcome of one optimization run.
type Result struct {
	History   *History
	Best      EvaluationRecord
	Trace     *trace.SearchTrace
	InitCount int // k_init: evaluations spent on the initial design
	Fallbacks int // iterations that fell back to a random proposal
	Rejected  int // configurations refused by the objective
}

// optimizer holds the state of a single run. Nothing is shared across runs.
type optimizer struct {
	objective Objective
	opts      Options
	enc       encoder
	acquire   AcquisitionFunc
	fit       func(x [][]float64, y []float64) (Surrogate, error)

	candidates []sim.CacheConfig // feasible, sorted
	excluded   map[sim.CacheConfig]bool
	history    *History
	trace      *trace.SearchTrace
	rng        *sim.PartitionedRNG

	fallbacks int
	rejected  int
}

func fitGP(x [][]float64, y []float64) (Surrogate, error) { return FitGP(x, y) }

// Optimize runs the search and returns a history of exactly k_init + Budget
// evaluations, where k_init = max(InitSamples, number of feasible InitConfigs).
func Optimize(objective Objective, space *SearchSpace, opts Options) (*Result, error) {
	if space == nil {
		return nil, fmt.Errorf("search space must not be nil")
	}
	return newOptimizer(objective, space, opts, fitGP).run()
}

func newOptimizer(objective Objective, space *SearchSpace, opts Options,
	fit func([][]float64, []float64) (Surrogate, error)) *optimizer {
	return &optimizer{
		objective:  objective,
		opts:       opts.withDefaults(),
		enc:        newEncoder(space),
		fit:        fit,
		candidates: space.Feasible(),
		excluded:   make(map[sim.CacheConfig]bool),
		history:    &History{},
		trace:      opts.Trace,
		rng:        sim.NewPartitionedRNG(sim.NewSimulationKey(opts.Seed)),
	}
}

func (o *optimizer) run() (*Result, error) {
	if o.objective == nil {
		return nil, fmt.Errorf("objective must not be nil")
	}
	if err := o.opts.Validate(); err != nil {
		return nil, err
	}
	acquire, err := NewAcquisition(o.opts.Acquisition, o.opts.Xi, o.opts.Kappa)
	if err != nil {
		return nil, err
	}
	o.acquire = acquire

	seeded := o.usableInitConfigs()
	kInit := o.opts.InitSamples
	if len(seeded) > kInit {
		kInit = len(seeded)
	}
	total := kInit + o.opts.Budget
	if len(o.candidates) < total {
		return nil, fmt.Errorf("%w: %d feasible configurations, need %d (%d initial + %d budget)",
			ErrSpaceExhausted, len(o.candidates), total, kInit, o.opts.Budget)
	}
	logrus.Debugf("[%s] optimizing over %d feasible configurations: %d initial + %d guided",
		o.opts.Workload, len(o.candidates), kInit, o.opts.Budget)

	if err := o.initialize(seeded, kInit); err != nil {
		return nil, err
	}
	for o.history.Len() < total {
		if err := o.step(); err != nil {
			return nil, err
		}
	}

	best, _ := o.history.Best()
	logrus.Infof("[%s] best after %d evaluations: %s miss rate %.4f",
		o.opts.Workload, o.history.Len(), best.Config, best.MissRate)
	return &Result{
		History:   o.history,
		Best:      best,
		Trace:     o.trace,
		InitCount: kInit,
		Fallbacks: o.fallbacks,
		Rejected:  o.rejected,
	}, nil
}

// usableInitConfigs returns the InitConfigs inside the space, deduplicated.
func (o *optimizer) usableInitConfigs() []sim.CacheConfig {
	feasible := make(map[sim.CacheConfig]bool, len(o.candidates))
	for _, c := range o.candidates {
		feasible[c] = true
	}
	var out []sim.CacheConfig
	seen := make(map[sim.CacheConfig]bool)
	for _, c := range o.opts.InitConfigs {
		if !feasible[c] {
			logrus.Warnf("[%s] initial configuration %s is outside the search space; skipped", o.opts.Workload, c)
			continue
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// initialize evaluates the seeded configurations, then uniform random draws
// without replacement until kInit evaluations have succeeded.
func (o *optimizer) initialize(seeded []sim.CacheConfig, kInit int) error {
	for _, cfg := range seeded {
		if _, err := o.evaluate(cfg, trace.ProposalRecord{Source: trace.SourceInit, Reason: "seeded"}); err != nil {
			return err
		}
	}

	rng := o.rng.ForSubsystem(sim.SubsystemOptimizerInit)
	order := rng.Perm(len(o.candidates))
	for _, idx := range order {
		if o.history.Len() >= kInit {
			break
		}
		cfg := o.candidates[idx]
		if o.history.Contains(cfg) || o.excluded[cfg] {
			continue
		}
		if _, err := o.evaluate(cfg, trace.ProposalRecord{Source: trace.SourceInit, Reason: "random"}); err != nil {
			return err
		}
	}
	if o.history.Len() < kInit {
		return fmt.Errorf("%w: only %d usable configurations for %d initial samples",
			ErrSpaceExhausted, o.history.Len(), kInit)
	}
	return nil
}

// step proposes and evaluates one configuration. A rejected proposal does
// not count against the budget; the caller simply loops again.
func (o *optimizer) step() error {
	pending := o.unevaluated()
	if len(pending) == 0 {
		return fmt.Errorf("%w: no unevaluated configuration left after %d evaluations",
			ErrSpaceExhausted, o.history.Len())
	}

	surrogate, err := o.fitSurrogate()
	if err != nil {
		o.fallbacks++
		rng := o.rng.ForSubsystem(sim.SubsystemOptimizerFallback)
		cfg := pending[rng.Intn(len(pending))]
		logrus.Warnf("[%s] %v; falling back to random proposal %s", o.opts.Workload, err, cfg)
		_, err = o.evaluate(cfg, trace.ProposalRecord{Source: trace.SourceFallback, Reason: err.Error()})
		return err
	}

	proposal := o.propose(surrogate, pending)
	_, err = o.evaluate(proposal.config, proposal.record)
	return err
}

func (o *optimizer) unevaluated() []sim.CacheConfig {
	var out []sim.CacheConfig
	for _, c := range o.candidates {
		if !o.excluded[c] && !o.history.Contains(c) {
			out = append(out, c)
		}
	}
	return out
}

func (o *optimizer) fitSurrogate() (Surrogate, error) {
	records := o.history.Records()
	x := make([][]float64, len(records))
	y := make([]float64, len(records))
	for i, r := range records {
		x[i] = o.enc.encode(r.Config)
		y[i] = r.MissRate
	}
	return o.fit(x, y)
}

type scored struct {
	config    sim.CacheConfig
	score     float64
	mean, std float64
}

type proposal struct {
	config sim.CacheConfig
	record trace.ProposalRecord
}

// propose scores every pending configuration and returns the argmax.
// pending is sorted, so keeping the first of equal scores prefers the
// smaller size, then block size, then associativity.
func (o *optimizer) propose(surrogate Surrogate, pending []sim.CacheConfig) proposal {
	best, _ := o.history.Best()
	all := make([]scored, len(pending))
	top := 0
	for i, cfg := range pending {
		mean, std := surrogate.Predict(o.enc.encode(cfg))
		all[i] = scored{config: cfg, score: o.acquire(mean, std, best.MissRate), mean: mean, std: std}
		if all[i].score > all[top].score {
			top = i
		}
	}
	chosen := all[top]
	record := trace.ProposalRecord{
		Source:        trace.SourceAcquisition,
		Score:         chosen.score,
		PredictedMean: chosen.mean,
		PredictedStd:  chosen.std,
		Reason:        fmt.Sprintf("%s over %d candidates", o.acquisitionName(), len(pending)),
	}
	if k := o.candidateK(); k > 0 {
		record.Candidates = runnersUp(all, top, k)
	}
	return proposal{config: chosen.config, record: record}
}

func (o *optimizer) acquisitionName() string {
	if o.opts.Acquisition == "" {
		return AcquisitionEI
	}
	return o.opts.Acquisition
}

func (o *optimizer) candidateK() int {
	if !o.trace.Enabled() {
		return 0
	}
	return o.trace.Config.CandidateK
}

// runnersUp returns the k best-scoring candidates other than the chosen one.
func runnersUp(all []scored, chosen, k int) []trace.CandidateScore {
	rest := make([]scored, 0, len(all)-1)
	for i, s := range all {
		if i != chosen {
			rest = append(rest, s)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].score > rest[j].score })
	if len(rest) > k {
		rest = rest[:k]
	}
	out := make([]trace.CandidateScore, len(rest))
	for i, s := range rest {
		out[i] = trace.CandidateScore{
			SizeBytes:     s.config.SizeBytes(),
			BlockBytes:    s.config.BlockBytes(),
			Associativity: s.config.Associativity(),
			Score:         s.score,
		}
	}
	return out
}

// evaluate calls the objective and appends the result to the history.
// A configuration error excludes cfg and returns ok=false with a nil error.
func (o *optimizer) evaluate(cfg sim.CacheConfig, rec trace.ProposalRecord) (ok bool, err error) {
	iteration := o.history.Len() + 1
	stats, err := o.objective(cfg)
	if err != nil {
		if !errors.Is(err, sim.ErrInvalidConfig) {
			return false, fmt.Errorf("evaluating %s: %w", cfg, err)
		}
		o.excluded[cfg] = true
		o.rejected++
		logrus.Warnf("[%s] objective rejected %s: %v; excluded from search", o.opts.Workload, cfg, err)
		if o.trace.Enabled() {
			o.trace.RecordRejection(trace.RejectionRecord{
				Iteration:     iteration,
				SizeBytes:     cfg.SizeBytes(),
				BlockBytes:    cfg.BlockBytes(),
				Associativity: cfg.Associativity(),
				Reason:        err.Error(),
			})
		}
		return false, nil
	}

	prevBest, hadBest := o.history.Best()
	record := o.history.append(EvaluationRecord{
		Config:   cfg,
		MissRate: stats.MissRate(),
		Hits:     stats.Hits,
		Misses:   stats.Misses,
		Workload: o.opts.Workload,
		Source:   rec.Source,
	})
	logrus.Debugf("[%s] eval %03d (%s) %s miss rate %.4f",
		o.opts.Workload, record.Iteration, record.Source, cfg, record.MissRate)
	if hadBest && record.MissRate < prevBest.MissRate {
		logrus.Infof("[%s] new best at eval %d: %s miss rate %.4f (was %.4f)",
			o.opts.Workload, record.Iteration, cfg, record.MissRate, prevBest.MissRate)
	}

	if o.trace.Enabled() {
		rec.Iteration = record.Iteration
		rec.SizeBytes = cfg.SizeBytes()
		rec.BlockBytes = cfg.BlockBytes()
		rec.Associativity = cfg.Associativity()
		o.trace.RecordProposal(rec)
	}
	if o.opts.OnEvaluation != nil {
		o.opts.OnEvaluation(record)
	}
	return true, nil
}
