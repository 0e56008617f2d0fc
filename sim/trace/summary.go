package trace

// TraceSummary aggregates statistics from a SearchTrace.
type TraceSummary struct {
	TotalProposals     int            `json:"total_proposals"`
	InitCount          int            `json:"init_count"`
	AcquisitionCount   int            `json:"acquisition_count"`
	FallbackCount      int            `json:"fallback_count"`
	RejectedCount      int            `json:"rejected_count"`
	MeanScore          float64        `json:"mean_acquisition_score"`
	MaxScore           float64        `json:"max_acquisition_score"`
	SourceDistribution map[Source]int `json:"source_distribution"`
}

// Summarize computes aggregate statistics from a SearchTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SearchTrace) *TraceSummary {
	summary := &TraceSummary{
		SourceDistribution: make(map[Source]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalProposals = len(st.Proposals)
	summary.RejectedCount = len(st.Rejections)

	totalScore := 0.0
	for _, p := range st.Proposals {
		summary.SourceDistribution[p.Source]++
		switch p.Source {
		case SourceInit:
			summary.InitCount++
		case SourceFallback:
			summary.FallbackCount++
		case SourceAcquisition:
			summary.AcquisitionCount++
			totalScore += p.Score
			if summary.AcquisitionCount == 1 || p.Score > summary.MaxScore {
				summary.MaxScore = p.Score
			}
		}
	}
	if summary.AcquisitionCount > 0 {
		summary.MeanScore = totalScore / float64(summary.AcquisitionCount)
	}

	return summary
}
