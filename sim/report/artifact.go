package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/smartcache-sim/smartcache-sim/sim"
	"github.com/smartcache-sim/smartcache-sim/sim/optimize"
	"github.com/smartcache-sim/smartcache-sim/sim/trace"
	"github.com/smartcache-sim/smartcache-sim/sim/workload"
)

// WorkloadArtifact is the per-workload section of the result artifact.
type WorkloadArtifact struct {
	Workload     string              `json:"workload"`
	Spec         *workload.Spec      `json:"spec"`
	TraceStats   workload.TraceStats `json:"workload_stats"`
	History      *optimize.History   `json:"history"`
	BestConfig   sim.CacheConfig     `json:"best_config"`
	BestMissRate float64             `json:"best_miss_rate"`
	Pareto       []ParetoPoint       `json:"pareto_frontier"`
	Convergence  []float64           `json:"convergence"`
	Comparison   *ComparisonRow      `json:"comparison,omitempty"`
	TraceSummary *trace.TraceSummary `json:"trace_summary,omitempty"`
}

// Artifact is the JSON result of a run: the hand-off to downstream tooling.
type Artifact struct {
	RunID       string              `json:"run_id"`
	Mode        string              `json:"mode"`
	CreatedAt   time.Time           `json:"created_at"`
	Budget      int                 `json:"budget"`
	MaxSize     int64               `json:"max_size"`
	Acquisition string              `json:"acquisition"`
	Seed        int64               `json:"seed"`
	Baselines   []Baseline          `json:"baselines"`
	Workloads   []WorkloadArtifact  `json:"workloads"`
	Summary     *ImprovementSummary `json:"summary,omitempty"`
}

// NewWorkloadArtifact derives the frontier, convergence curve and best
// configuration from res. row and the trace summary may be nil.
func NewWorkloadArtifact(spec *workload.Spec, stats workload.TraceStats, res *optimize.Result, row *ComparisonRow) WorkloadArtifact {
	wa := WorkloadArtifact{
		Workload:     spec.DisplayName(),
		Spec:         spec,
		TraceStats:   stats,
		History:      res.History,
		BestConfig:   res.Best.Config,
		BestMissRate: res.Best.MissRate,
		Pareto:       ParetoFrontier(res.History),
		Convergence:  res.History.Convergence(),
		Comparison:   row,
	}
	if res.Trace.Enabled() {
		wa.TraceSummary = trace.Summarize(res.Trace)
	}
	return wa
}

// WriteJSON writes the artifact, indented, to path.
func (a *Artifact) WriteJSON(path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding artifact: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	return nil
}

// ReadArtifact loads an artifact written by WriteJSON. Configurations are
// re-validated on decode.
func ReadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parsing artifact %s: %w", path, err)
	}
	return &a, nil
}
