package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriority_Ordinal(t *testing.T) {
	assert.Equal(t, 3, PriorityCritical.Ordinal())
	assert.Equal(t, 2, PriorityHigh.Ordinal())
	assert.Equal(t, 1, PriorityMedium.Ordinal())
	assert.Equal(t, 0, PriorityLow.Ordinal())
	assert.Equal(t, -1, Priority("bogus").Ordinal())
}

func TestApprovalStatus_Terminal(t *testing.T) {
	assert.False(t, StatusDraft.Terminal())
	assert.False(t, StatusPendingApproval.Terminal())
	assert.True(t, StatusAutoApproved.Terminal())
	assert.True(t, StatusApproved.Terminal())
	assert.True(t, StatusRejected.Terminal())
}

func TestRecommendationType_Valid(t *testing.T) {
	for _, typ := range AllTypes {
		assert.True(t, typ.Valid(), string(typ))
	}
	assert.False(t, RecommendationType("upsell").Valid())
}

func validRecommendation() *Recommendation {
	return &Recommendation{
		ID:        "rec-1",
		AccountID: "acct-1",
		Type:      TypeRetention,
		Title:     "Run retention play before renewal",
		Priority:  PriorityHigh,
		Confidence: ConfidenceScore{
			Recency: 0.8, PatternStrength: 0.6, EvidenceQuality: 0.75,
			HistoricalAccuracy: 0.7, Overall: 0.71, Level: ConfidenceHigh,
		},
		DataReferences: []DataReference{
			{Source: SourceCRMField, FieldPath: "account.renewal_date", RecordID: "a1"},
		},
		Status:    StatusDraft,
		CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRecommendation_Validate(t *testing.T) {
	require.NoError(t, validRecommendation().Validate())
}

func TestRecommendation_Validate_EmptyReferences(t *testing.T) {
	rec := validRecommendation()
	rec.DataReferences = nil

	err := rec.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "data_references", verr.Field)
}

func TestRecommendation_Validate_EscalationNeverAutoApproved(t *testing.T) {
	rec := validRecommendation()
	rec.Type = TypeEscalation
	rec.Status = StatusAutoApproved

	err := rec.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Field)
}

func TestRecommendation_Validate_ConfidenceOutOfBounds(t *testing.T) {
	rec := validRecommendation()
	rec.Confidence.Overall = 1.5
	assert.Error(t, rec.Validate())
}

func TestRecommendationBatch_ComputeBreakdown(t *testing.T) {
	batch := &RecommendationBatch{
		Recommendations: []Recommendation{
			{Priority: PriorityCritical},
			{Priority: PriorityHigh},
			{Priority: PriorityHigh},
			{Priority: PriorityMedium},
			{Priority: PriorityLow},
		},
	}
	batch.ComputeBreakdown()

	assert.Equal(t, 1, batch.PriorityBreakdown.Critical)
	assert.Equal(t, 2, batch.PriorityBreakdown.High)
	assert.Equal(t, 1, batch.PriorityBreakdown.Medium)
	assert.Equal(t, 1, batch.PriorityBreakdown.Low)
}

func TestRecommendationBatch_ComputeBreakdown_Empty(t *testing.T) {
	batch := &RecommendationBatch{}
	batch.ComputeBreakdown()
	assert.Equal(t, PriorityBreakdown{}, batch.PriorityBreakdown)
}
