package trace

import "testing"

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	st := NewSearchTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN summarized
	summary := Summarize(st)

	// THEN all counts are zero
	if summary.TotalProposals != 0 || summary.RejectedCount != 0 {
		t.Errorf("expected zero counts, got %+v", summary)
	}
	if summary.MeanScore != 0 || summary.MaxScore != 0 {
		t.Error("expected 0 score values")
	}
	if len(summary.SourceDistribution) != 0 {
		t.Error("expected empty source distribution")
	}
}

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	summary := Summarize(nil)
	if summary.TotalProposals != 0 || summary.SourceDistribution == nil {
		t.Errorf("expected zero summary with initialized map, got %+v", summary)
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN a trace with every proposal source and one rejection
	st := NewSearchTrace(TraceConfig{Level: TraceLevelDecisions})
	st.RecordProposal(ProposalRecord{Iteration: 1, Source: SourceInit})
	st.RecordProposal(ProposalRecord{Iteration: 2, Source: SourceInit})
	st.RecordProposal(ProposalRecord{Iteration: 3, Source: SourceAcquisition, Score: 0.1})
	st.RecordProposal(ProposalRecord{Iteration: 4, Source: SourceFallback})
	st.RecordProposal(ProposalRecord{Iteration: 5, Source: SourceAcquisition, Score: 0.3})
	st.RecordRejection(RejectionRecord{Iteration: 5, Reason: "invalid"})

	// WHEN summarized
	summary := Summarize(st)

	// THEN counts match
	if summary.TotalProposals != 5 {
		t.Errorf("expected 5 proposals, got %d", summary.TotalProposals)
	}
	if summary.InitCount != 2 || summary.AcquisitionCount != 2 || summary.FallbackCount != 1 {
		t.Errorf("unexpected per-source counts: %+v", summary)
	}
	if summary.RejectedCount != 1 {
		t.Errorf("expected 1 rejected, got %d", summary.RejectedCount)
	}
	if summary.SourceDistribution[SourceInit] != 2 {
		t.Errorf("expected init distribution 2, got %d", summary.SourceDistribution[SourceInit])
	}
}

func TestSummarize_ScoreStatistics_OnlyAcquisitionCounts(t *testing.T) {
	// GIVEN acquisition records with known scores, plus a scored init record that must be ignored
	st := NewSearchTrace(TraceConfig{Level: TraceLevelDecisions})
	st.RecordProposal(ProposalRecord{Source: SourceInit, Score: 99})
	st.RecordProposal(ProposalRecord{Source: SourceAcquisition, Score: -0.2})
	st.RecordProposal(ProposalRecord{Source: SourceAcquisition, Score: -0.1})

	// WHEN summarized
	summary := Summarize(st)

	// THEN mean = -0.15 and max = -0.1 (negative scores from lcb are kept)
	if d := summary.MeanScore - (-0.15); d > 1e-9 || d < -1e-9 {
		t.Errorf("expected mean score -0.15, got %.4f", summary.MeanScore)
	}
	if summary.MaxScore != -0.1 {
		t.Errorf("expected max score -0.1, got %.4f", summary.MaxScore)
	}
}
