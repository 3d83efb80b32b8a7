package advisor

import "github.com/sells-group/account-advisor/internal/model"

// CandidateResult is the per-candidate outcome of one pipeline step:
// either a built recommendation or a skip with its reason. Skips are
// expected, frequent outcomes and are not modeled as errors.
type CandidateResult struct {
	Type           model.RecommendationType `json:"type"`
	Recommendation *model.Recommendation    `json:"recommendation,omitempty"`
	Skipped        bool                     `json:"skipped"`
	Reason         string                   `json:"reason,omitempty"`
}

// Ok wraps a built recommendation.
func Ok(rec *model.Recommendation) CandidateResult {
	return CandidateResult{Type: rec.Type, Recommendation: rec}
}

// Skip records a dropped candidate with a diagnostic reason.
func Skip(t model.RecommendationType, reason string) CandidateResult {
	return CandidateResult{Type: t, Skipped: true, Reason: reason}
}

// BatchResult carries a generated batch plus the diagnostics for every
// candidate or payload that was dropped along the way.
type BatchResult struct {
	Batch      *model.RecommendationBatch `json:"batch"`
	Skipped    []CandidateResult          `json:"skipped,omitempty"`
	Extraction []*ExtractionError         `json:"extraction_diagnostics,omitempty"`
	DurationMS int64                      `json:"duration_ms"`
}
