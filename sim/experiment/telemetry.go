package experiment

import (
	"net/http"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smartcache-sim/smartcache-sim/sim/optimize"
)

// Telemetry exposes live progress of a run as Prometheus metrics. Each
// Telemetry owns its registry so several runs (or tests) never collide.
type Telemetry struct {
	registry *prometheus.Registry

	evaluations *prometheus.CounterVec
	missRate    *prometheus.HistogramVec
	bestMiss    *prometheus.GaugeVec
	fallbacks   *prometheus.GaugeVec
	rejected    *prometheus.GaugeVec

	mu   sync.Mutex
	best map[string]optimize.EvaluationRecord
}

// NewTelemetry creates and registers the collectors.
func NewTelemetry() *Telemetry {
	t := &Telemetry{
		registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartcache_evaluations_total",
			Help: "Objective evaluations by workload and proposal source",
		}, []string{"workload", "source"}),
		missRate: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "smartcache_evaluated_miss_rate",
			Help:    "Miss rate of evaluated configurations by workload",
			Buckets: prometheus.LinearBuckets(0, 0.05, 20),
		}, []string{"workload"}),
		bestMiss: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smartcache_best_miss_rate",
			Help: "Lowest miss rate found so far by workload",
		}, []string{"workload"}),
		fallbacks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smartcache_surrogate_fallbacks",
			Help: "Iterations that fell back to random proposals, by workload",
		}, []string{"workload"}),
		rejected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smartcache_rejected_configs",
			Help: "Configurations refused by the simulator, by workload",
		}, []string{"workload"}),
		best: make(map[string]optimize.EvaluationRecord),
	}
	t.registry.MustRegister(t.evaluations, t.missRate, t.bestMiss, t.fallbacks, t.rejected)
	return t
}

// Observe records one evaluation. Safe for concurrent use.
func (t *Telemetry) Observe(rec optimize.EvaluationRecord) {
	t.evaluations.WithLabelValues(rec.Workload, string(rec.Source)).Inc()
	t.missRate.WithLabelValues(rec.Workload).Observe(rec.MissRate)

	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.best[rec.Workload]; !ok || rec.MissRate < cur.MissRate {
		t.best[rec.Workload] = rec
		t.bestMiss.WithLabelValues(rec.Workload).Set(rec.MissRate)
	}
}

// Finish records the end-of-run counters for a workload.
func (t *Telemetry) Finish(workload string, res *optimize.Result) {
	t.fallbacks.WithLabelValues(workload).Set(float64(res.Fallbacks))
	t.rejected.WithLabelValues(workload).Set(float64(res.Rejected))
}

// Best returns the current best record per workload, sorted by workload.
func (t *Telemetry) Best() []optimize.EvaluationRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]optimize.EvaluationRecord, 0, len(t.best))
	for _, r := range t.best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Workload < out[j].Workload })
	return out
}

// Registry returns the registry holding the run's collectors.
func (t *Telemetry) Registry() *prometheus.Registry { return t.registry }

// Handler serves the registry in the Prometheus exposition format.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}
