package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every proposal and rejection.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level      TraceLevel
	CandidateK int // number of runner-up candidates kept per acquisition decision
}

// SearchTrace collects decision records during one optimization run.
type SearchTrace struct {
	Config     TraceConfig
	Proposals  []ProposalRecord
	Rejections []RejectionRecord
}

// NewSearchTrace creates a SearchTrace ready for recording.
func NewSearchTrace(config TraceConfig) *SearchTrace {
	return &SearchTrace{
		Config:     config,
		Proposals:  make([]ProposalRecord, 0),
		Rejections: make([]RejectionRecord, 0),
	}
}

// Enabled reports whether records should be collected. Safe on nil.
func (st *SearchTrace) Enabled() bool {
	return st != nil && st.Config.Level == TraceLevelDecisions
}

// RecordProposal appends a proposal record.
func (st *SearchTrace) RecordProposal(record ProposalRecord) {
	st.Proposals = append(st.Proposals, record)
}

// RecordRejection appends a rejection record.
func (st *SearchTrace) RecordRejection(record RejectionRecord) {
	st.Rejections = append(st.Rejections, record)
}
