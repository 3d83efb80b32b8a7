package advisor

import (
	"time"

	"github.com/sells-group/account-advisor/internal/model"
)

// RenderContext is the typed view of a recommendation handed to the
// external template-rendering collaborator. The core never formats
// human-readable text itself, and the collaborator never depends on
// stringly-typed keys.
type RenderContext struct {
	RecommendationID string    `json:"recommendation_id"`
	AccountID        string    `json:"account_id"`
	Type             string    `json:"type"`
	Title            string    `json:"title"`
	Rationale        string    `json:"rationale"`
	Priority         string    `json:"priority"`
	ConfidenceLevel  string    `json:"confidence_level"`
	Confidence       float64   `json:"confidence"`
	UrgencyScore     float64   `json:"urgency_score"`
	NextSteps        []string  `json:"next_steps"`
	EvidenceCount    int       `json:"evidence_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// BuildRenderContext maps a recommendation into its render view. Total
// over valid recommendations: slices are always non-nil.
func BuildRenderContext(rec *model.Recommendation) RenderContext {
	steps := rec.NextSteps
	if steps == nil {
		steps = []string{}
	}
	return RenderContext{
		RecommendationID: rec.ID,
		AccountID:        rec.AccountID,
		Type:             string(rec.Type),
		Title:            rec.Title,
		Rationale:        rec.Rationale,
		Priority:         string(rec.Priority),
		ConfidenceLevel:  string(rec.Confidence.Level),
		Confidence:       rec.Confidence.Overall,
		UrgencyScore:     rec.UrgencyScore,
		NextSteps:        steps,
		EvidenceCount:    len(rec.DataReferences),
		CreatedAt:        rec.CreatedAt,
	}
}
