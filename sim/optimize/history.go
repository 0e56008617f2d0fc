package optimize

import (
	"encoding/json"

	"github.com/smartcache-sim/smartcache-sim/sim"
	"github.com/smartcache-sim/smartcache-sim/sim/trace"
)

// EvaluationRecord is one objective evaluation. Records are appended to a
// History in evaluation order and never modified afterwards.
type EvaluationRecord struct {
	Config    sim.CacheConfig `json:"config"`
	MissRate  float64         `json:"miss_rate"`
	Hits      int64           `json:"hits"`
	Misses    int64           `json:"misses"`
	Workload  string          `json:"workload"`
	Iteration int             `json:"iteration"` // 1-based position in the history
	Source    trace.Source    `json:"source"`
}

// History is the append-only evaluation log of one optimization run.
type History struct {
	records []EvaluationRecord
}

// NewHistory builds a history from existing records, renumbering iterations.
func NewHistory(records ...EvaluationRecord) *History {
	h := &History{}
	for _, r := range records {
		h.append(r)
	}
	return h
}

func (h *History) append(r EvaluationRecord) EvaluationRecord {
	r.Iteration = len(h.records) + 1
	h.records = append(h.records, r)
	return r
}

// Len returns the number of evaluations.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.records)
}

// Records returns a copy of the evaluations in order.
func (h *History) Records() []EvaluationRecord {
	if h == nil {
		return nil
	}
	out := make([]EvaluationRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Best returns the lowest-miss-rate evaluation; ties go to the smaller
// configuration. ok is false for an empty history.
func (h *History) Best() (best EvaluationRecord, ok bool) {
	for i, r := range h.Records() {
		if i == 0 || r.MissRate < best.MissRate ||
			(r.MissRate == best.MissRate && r.Config.Less(best.Config)) {
			best = r
		}
	}
	return best, h.Len() > 0
}

// Convergence returns the running best miss rate after each evaluation.
func (h *History) Convergence() []float64 {
	records := h.Records()
	out := make([]float64, len(records))
	for i, r := range records {
		if i == 0 || r.MissRate < out[i-1] {
			out[i] = r.MissRate
		} else {
			out[i] = out[i-1]
		}
	}
	return out
}

// Contains reports whether cfg has already been evaluated.
func (h *History) Contains(cfg sim.CacheConfig) bool {
	if h == nil {
		return false
	}
	for _, r := range h.records {
		if r.Config == cfg {
			return true
		}
	}
	return false
}

// MarshalJSON encodes the history as an array of records.
func (h *History) MarshalJSON() ([]byte, error) {
	records := h.Records()
	if records == nil {
		records = []EvaluationRecord{}
	}
	return json.Marshal(records)
}

// UnmarshalJSON decodes an array of records.
func (h *History) UnmarshalJSON(data []byte) error {
	var records []EvaluationRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	h.records = records
	return nil
}
