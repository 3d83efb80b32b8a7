package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/account-advisor/internal/model"
)

// ErrStaleStatus is returned by RecordDecision when the recommendation's
// stored status no longer matches the expected one. It is the persistence
// half of the single-writer guarantee: of two concurrent decisions on the
// same recommendation, exactly one sees the expected status.
var ErrStaleStatus = eris.New("store: recommendation status changed")

// PendingFilter specifies criteria for listing pending recommendations.
type PendingFilter struct {
	AccountID string `json:"account_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// Store defines the persistence interface for recommendation batches and
// approval decisions.
type Store interface {
	// Batches
	SaveBatch(ctx context.Context, batch *model.RecommendationBatch) error
	GetLatestBatch(ctx context.Context, accountID string) (*model.RecommendationBatch, error)

	// Recommendations
	GetRecommendation(ctx context.Context, id string) (*model.Recommendation, error)
	ListPending(ctx context.Context, filter PendingFilter) ([]model.Recommendation, error)

	// RecordDecision persists a gate transition conditionally on the
	// stored status still being expectedStatus.
	RecordDecision(ctx context.Context, rec *model.Recommendation, expectedStatus model.ApprovalStatus) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
