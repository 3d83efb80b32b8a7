package advisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/account-advisor/internal/model"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	return NewBuilder(DefaultPlaybook(), WithBuilderClock(fixedClock))
}

func mediumConfidence() model.ConfidenceScore {
	return model.ConfidenceScore{
		Recency: 0.7, PatternStrength: 0.6, EvidenceQuality: 0.75,
		HistoricalAccuracy: 0.7, Overall: 0.69, Level: model.ConfidenceMedium,
	}
}

func TestBuilder_Build(t *testing.T) {
	b := newTestBuilder(t)

	rec, err := b.Build(model.TypeRetention, mediumConfidence(), retentionRefs(), retentionContext())
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "acct-1", rec.AccountID)
	assert.Equal(t, model.TypeRetention, rec.Type)
	assert.Equal(t, "Run retention play before renewal", rec.Title)
	assert.Equal(t, model.StatusDraft, rec.Status)
	assert.Equal(t, testNow, rec.CreatedAt)
	assert.Len(t, rec.NextSteps, 3)
	assert.Len(t, rec.DataReferences, 3)
	assert.Nil(t, rec.DecidedAt)
}

func TestBuilder_Build_Rationale(t *testing.T) {
	b := newTestBuilder(t)

	rec, err := b.Build(model.TypeRetention, mediumConfidence(), retentionRefs(), retentionContext())
	require.NoError(t, err)

	// Cites the most recent references first, with provenance and age.
	assert.Contains(t, rec.Rationale, "Supported by 3 evidence points")
	assert.Contains(t, rec.Rationale, "account.renewal_date=2025-09-01 (crm_field, 1d ago)")
	assert.Contains(t, rec.Rationale, "pattern.churn_signals=3 (memory_pattern, 40d ago)")
}

func TestBuilder_Build_RationaleCapsAtThreeRefs(t *testing.T) {
	b := newTestBuilder(t)

	refs := retentionRefs()
	refs = append(refs, model.DataReference{
		Source: model.SourceDealRecord, FieldPath: "deal.renewal_amount",
		Value: 120000, ObservedAt: testNow.AddDate(0, 0, -60), RecordID: "deal-5",
	})

	rec, err := b.Build(model.TypeRetention, mediumConfidence(), refs, retentionContext())
	require.NoError(t, err)

	assert.Contains(t, rec.Rationale, "Supported by 4 evidence points")
	// Oldest reference falls outside the citation cap.
	assert.NotContains(t, rec.Rationale, "deal.renewal_amount")
}

func TestBuilder_Build_UnknownType(t *testing.T) {
	b := newTestBuilder(t)

	_, err := b.Build(model.RecommendationType("upsell"), mediumConfidence(), retentionRefs(), retentionContext())
	require.Error(t, err)

	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "type", verr.Field)
}

func TestBuilder_Build_EmptyRefs(t *testing.T) {
	b := newTestBuilder(t)

	_, err := b.Build(model.TypeRetention, mediumConfidence(), nil, retentionContext())
	require.ErrorIs(t, err, ErrInsufficientEvidence)
}

func TestDerivePriority_Table(t *testing.T) {
	tests := []struct {
		typ   model.RecommendationType
		level model.ConfidenceLevel
		risk  bool
		want  model.Priority
	}{
		{model.TypeEscalation, model.ConfidenceLow, false, model.PriorityHigh},
		{model.TypeEscalation, model.ConfidenceHigh, false, model.PriorityCritical},
		{model.TypeRiskMitigation, model.ConfidenceVeryHigh, false, model.PriorityCritical},
		{model.TypeRetention, model.ConfidenceHigh, false, model.PriorityHigh},
		{model.TypeExpansion, model.ConfidenceMedium, false, model.PriorityMedium},
		{model.TypeEngagement, model.ConfidenceLow, false, model.PriorityLow},
		// Risk indicators bump one step.
		{model.TypeEngagement, model.ConfidenceLow, true, model.PriorityMedium},
		{model.TypeRetention, model.ConfidenceHigh, true, model.PriorityCritical},
		// Critical does not bump past critical.
		{model.TypeEscalation, model.ConfidenceVeryHigh, true, model.PriorityCritical},
	}

	for _, tt := range tests {
		got := derivePriority(tt.typ, tt.level, tt.risk)
		assert.Equal(t, tt.want, got, "%s/%s risk=%v", tt.typ, tt.level, tt.risk)
	}
}

func TestBuilder_Build_RiskBumpsPriority(t *testing.T) {
	b := newTestBuilder(t)

	calm := retentionContext()
	risky := retentionContext()
	risky.RiskIndicators = true

	recCalm, err := b.Build(model.TypeRetention, mediumConfidence(), retentionRefs(), calm)
	require.NoError(t, err)
	recRisky, err := b.Build(model.TypeRetention, mediumConfidence(), retentionRefs(), risky)
	require.NoError(t, err)

	assert.Greater(t, recRisky.Priority.Ordinal(), recCalm.Priority.Ordinal())
}
