package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/smartcache-sim/smartcache-sim/sim"
	"github.com/smartcache-sim/smartcache-sim/sim/optimize"
)

// Baseline is a fixed, named configuration the search is compared against.
type Baseline struct {
	Name   string          `yaml:"name" json:"name"`
	Config sim.CacheConfig `yaml:"config" json:"config"`
}

// DefaultBaselines returns the four reference designs. max_capacity uses the
// full size budget with 128B blocks and 16 ways; it is omitted when that
// geometry is invalid for maxSize.
func DefaultBaselines(maxSize int64) []Baseline {
	baselines := []Baseline{
		{Name: "small_direct", Config: sim.MustCacheConfig(4096, 32, 1)},
		{Name: "balanced", Config: sim.MustCacheConfig(16384, 64, 4)},
		{Name: "large_assoc", Config: sim.MustCacheConfig(32768, 64, 8)},
	}
	if cfg, err := sim.NewCacheConfig(maxSize, 128, 16); err == nil {
		baselines = append(baselines, Baseline{Name: "max_capacity", Config: cfg})
	} else {
		logrus.Warnf("max_capacity baseline skipped: %v", err)
	}
	return baselines
}

// BaselineEvaluator returns the miss rate of cfg on the named workload.
type BaselineEvaluator func(workload string, cfg sim.CacheConfig) (float64, error)

// ComparisonRow compares one workload's best-found configuration with the
// best fixed baseline.
type ComparisonRow struct {
	Workload            string             `json:"workload"`
	BestConfig          sim.CacheConfig    `json:"best_config"`
	BestMissRate        float64            `json:"best_miss_rate"`
	BaselineName        string             `json:"best_baseline"`
	BaselineConfig      sim.CacheConfig    `json:"best_baseline_config"`
	BaselineMissRate    float64            `json:"best_baseline_miss_rate"`
	AbsoluteImprovement float64            `json:"absolute_improvement"`
	ImprovementPct      float64            `json:"improvement_pct"`
	BaselineMissRates   map[string]float64 `json:"baseline_miss_rates"`
}

// ComparisonTable holds one row per workload, sorted by workload name.
type ComparisonTable struct {
	Rows []ComparisonRow `json:"rows"`
}

// ImprovementSummary aggregates ImprovementPct over all rows.
type ImprovementSummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean_pct"`
	Median float64 `json:"median_pct"`
	Best   float64 `json:"best_pct"`
	Worst  float64 `json:"worst_pct"`
}

// RelativeImprovement returns (baseline − found)/baseline × 100, or 0 when
// the baseline miss rate is 0.
func RelativeImprovement(baseline, found float64) float64 {
	if baseline == 0 {
		return 0
	}
	return (baseline - found) / baseline * 100
}

// Compare builds the comparison table. Every history must be non-empty.
func Compare(results map[string]*optimize.History, baselines []Baseline, eval BaselineEvaluator) (*ComparisonTable, error) {
	if len(baselines) == 0 {
		return nil, fmt.Errorf("at least one baseline required")
	}
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	table := &ComparisonTable{}
	for _, name := range names {
		best, ok := results[name].Best()
		if !ok {
			return nil, fmt.Errorf("workload %s: empty evaluation history", name)
		}
		row, err := compareRow(name, best, baselines, eval)
		if err != nil {
			return nil, err
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func compareRow(name string, best optimize.EvaluationRecord, baselines []Baseline, eval BaselineEvaluator) (ComparisonRow, error) {
	row := ComparisonRow{
		Workload:          name,
		BestConfig:        best.Config,
		BestMissRate:      best.MissRate,
		BaselineMissRates: make(map[string]float64, len(baselines)),
	}
	for i, b := range baselines {
		rate, err := eval(name, b.Config)
		if err != nil {
			return ComparisonRow{}, fmt.Errorf("workload %s: baseline %s: %w", name, b.Name, err)
		}
		row.BaselineMissRates[b.Name] = rate
		if i == 0 || rate < row.BaselineMissRate {
			row.BaselineName = b.Name
			row.BaselineConfig = b.Config
			row.BaselineMissRate = rate
		}
	}
	row.AbsoluteImprovement = row.BaselineMissRate - row.BestMissRate
	row.ImprovementPct = RelativeImprovement(row.BaselineMissRate, row.BestMissRate)
	return row, nil
}

// Row returns the row for workload, or nil.
func (t *ComparisonTable) Row(workload string) *ComparisonRow {
	for i := range t.Rows {
		if t.Rows[i].Workload == workload {
			return &t.Rows[i]
		}
	}
	return nil
}

// Summary returns mean, median, best and worst relative improvement.
func (t *ComparisonTable) Summary() ImprovementSummary {
	if len(t.Rows) == 0 {
		return ImprovementSummary{}
	}
	pcts := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		pcts[i] = r.ImprovementPct
	}
	return ImprovementSummary{
		Count:  len(pcts),
		Mean:   stat.Mean(pcts, nil),
		Median: median(pcts),
		Best:   floats.Max(pcts),
		Worst:  floats.Min(pcts),
	}
}

// median averages the two middle values when len(xs) is even. xs is not
// modified.
func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	m := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	if len(sorted)%2 == 0 {
		m = (m + sorted[len(sorted)/2]) / 2
	}
	return m
}

// Print writes the table and its summary in aligned columns.
func (t *ComparisonTable) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WORKLOAD\tBEST CONFIG\tMISS RATE\tBEST BASELINE\tBASELINE MISS\tIMPROVEMENT")
	for _, r := range t.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%s (%s)\t%.4f\t%+.1f%%\n",
			r.Workload, r.BestConfig, r.BestMissRate, r.BaselineName, r.BaselineConfig, r.BaselineMissRate, r.ImprovementPct)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	s := t.Summary()
	_, err := fmt.Fprintf(w, "\n%d workloads: mean %+.1f%%, median %+.1f%%, best %+.1f%%, worst %+.1f%%\n",
		s.Count, s.Mean, s.Median, s.Best, s.Worst)
	return err
}
