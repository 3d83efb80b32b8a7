package advisor

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/account-advisor/internal/model"
)

// ErrInsufficientEvidence signals a candidate with zero usable references.
// Callers drop the candidate from the batch and continue.
var ErrInsufficientEvidence = eris.New("advisor: insufficient evidence")

// ExtractionError reports a collaborator payload that could not be turned
// into references. Extraction is best-effort: the error is recorded as a
// diagnostic while remaining payloads are still processed.
type ExtractionError struct {
	Payload string `json:"payload"`
	Reason  string `json:"reason"`
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("advisor: extract %s: %s", e.Payload, e.Reason)
}

// ConfidenceCalculationError reports a numeric domain violation during
// scoring (negative age, negative outcome totals). Fatal for the single
// candidate being scored, never for the batch.
type ConfidenceCalculationError struct {
	Component string
	Detail    string
}

func (e *ConfidenceCalculationError) Error() string {
	return fmt.Sprintf("advisor: %s: %s", e.Component, e.Detail)
}

// InvalidTransitionError reports an approval-gate transition attempted from
// a state that does not admit it. The recommendation is left unchanged.
type InvalidTransitionError struct {
	RecommendationID string
	From             model.ApprovalStatus
	Action           string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("advisor: cannot %s recommendation %s from status %s", e.Action, e.RecommendationID, e.From)
}
