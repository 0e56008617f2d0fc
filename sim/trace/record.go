// Package trace provides decision-trace recording for optimizer runs.
// This package has no dependencies on sim/ or sim/optimize/; it stores pure data types.
package trace

// Source labels how a proposed configuration was chosen.
type Source string

const (
	SourceInit        Source = "init"        // seeded or random initial design
	SourceAcquisition Source = "acquisition" // argmax of the acquisition function
	SourceFallback    Source = "fallback"    // random pick after a surrogate fit failure
)

// CandidateScore captures a runner-up configuration with its acquisition score.
type CandidateScore struct {
	SizeBytes     int64
	BlockBytes    int64
	Associativity int64
	Score         float64
}

// ProposalRecord captures a single configuration the optimizer decided to evaluate.
type ProposalRecord struct {
	Iteration     int
	Source        Source
	SizeBytes     int64
	BlockBytes    int64
	Associativity int64
	Score         float64          // acquisition value; 0 unless Source is acquisition
	PredictedMean float64          // surrogate mean miss rate at the proposal
	PredictedStd  float64          // surrogate standard deviation at the proposal
	Candidates    []CandidateScore // top-k runners-up sorted by score desc (nil if k=0)
	Reason        string
}

// RejectionRecord captures a proposal the objective refused as an invalid geometry.
type RejectionRecord struct {
	Iteration     int
	SizeBytes     int64
	BlockBytes    int64
	Associativity int64
	Reason        string
}
