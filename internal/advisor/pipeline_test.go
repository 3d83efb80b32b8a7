package advisor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/account-advisor/internal/model"
)

func richContext() *model.RecommendationContext {
	return &model.RecommendationContext{
		AccountID: "acct-1",
		Account: model.AccountSnapshot{
			RecordID: "acct-1",
			Name:     "Globex",
			Revenue:  750_000,
			Fields: map[string]any{
				"renewal_date":   "2025-09-01",
				"health_score":   55,
				"annual_revenue": 750_000.0,
			},
			RiskLevel:  "high",
			SnapshotAt: testNow.AddDate(0, 0, -1),
		},
		Activity: []model.ActivityEntry{
			{RecordID: "act-1", Kind: "support", Fields: map[string]any{"ticket_count": 4}, OccurredAt: testNow.AddDate(0, 0, -3)},
		},
		Patterns: []model.MemoryPattern{
			{RecordID: "mem-1", Pattern: "churn_signals", Occurrences: 3, LastSeen: testNow.AddDate(0, 0, -7)},
		},
		Outcomes: map[model.RecommendationType]model.OutcomeStats{
			model.TypeRetention: {Successes: 18, Total: 20},
		},
		RiskIndicators: true,
	}
}

func newTestAdvisor(t *testing.T) *Advisor {
	t.Helper()
	return New(testConfig(), DefaultPlaybook(), WithAdvisorClock(fixedClock))
}

func TestAdvisor_GenerateBatch(t *testing.T) {
	adv := newTestAdvisor(t)

	result, err := adv.GenerateBatch(context.Background(), richContext())
	require.NoError(t, err)

	batch := result.Batch
	assert.NotEmpty(t, batch.ID)
	assert.Equal(t, "acct-1", batch.AccountID)
	assert.Equal(t, testNow, batch.GeneratedAt)
	require.NotEmpty(t, batch.Recommendations)

	// Engagement has no relevant evidence in this context and is skipped
	// without aborting the batch.
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, model.TypeEngagement, result.Skipped[0].Type)
	assert.Equal(t, "no relevant evidence", result.Skipped[0].Reason)

	built := make(map[model.RecommendationType]*model.Recommendation)
	for i := range batch.Recommendations {
		rec := &batch.Recommendations[i]
		built[rec.Type] = rec
	}
	assert.Len(t, built, 4)
	assert.Contains(t, built, model.TypeRetention)
	assert.Contains(t, built, model.TypeRiskMitigation)
	assert.Contains(t, built, model.TypeEscalation)
	assert.Contains(t, built, model.TypeExpansion)

	// Every recommendation left the draft state through the gate.
	for typ, rec := range built {
		assert.NotEqual(t, model.StatusDraft, rec.Status, string(typ))
		require.NoError(t, rec.Validate(), string(typ))
		assert.NotZero(t, rec.UrgencyScore, string(typ))
	}

	// Escalations always wait for a human.
	assert.Equal(t, model.StatusPendingApproval, built[model.TypeEscalation].Status)
}

func TestAdvisor_GenerateBatch_Ordered(t *testing.T) {
	adv := newTestAdvisor(t)

	result, err := adv.GenerateBatch(context.Background(), richContext())
	require.NoError(t, err)

	recs := result.Batch.Recommendations
	for i := 1; i < len(recs); i++ {
		prev, cur := &recs[i-1], &recs[i]
		if prev.Priority.Ordinal() == cur.Priority.Ordinal() {
			assert.GreaterOrEqual(t, prev.UrgencyScore, cur.UrgencyScore)
		} else {
			assert.Greater(t, prev.Priority.Ordinal(), cur.Priority.Ordinal())
		}
	}

	total := result.Batch.PriorityBreakdown.Low + result.Batch.PriorityBreakdown.Medium +
		result.Batch.PriorityBreakdown.High + result.Batch.PriorityBreakdown.Critical
	assert.Equal(t, len(recs), total)
}

func TestAdvisor_GenerateBatch_Deterministic(t *testing.T) {
	adv := newTestAdvisor(t)

	first, err := adv.GenerateBatch(context.Background(), richContext())
	require.NoError(t, err)
	second, err := adv.GenerateBatch(context.Background(), richContext())
	require.NoError(t, err)

	require.Equal(t, len(first.Batch.Recommendations), len(second.Batch.Recommendations))
	for i := range first.Batch.Recommendations {
		a, b := first.Batch.Recommendations[i], second.Batch.Recommendations[i]
		assert.Equal(t, a.Type, b.Type)
		assert.Equal(t, a.Priority, b.Priority)
		assert.Equal(t, a.Confidence, b.Confidence)
		assert.Equal(t, a.UrgencyScore, b.UrgencyScore)
		assert.Equal(t, a.Status, b.Status)
	}
}

func TestAdvisor_GenerateBatch_EmptyContext(t *testing.T) {
	adv := newTestAdvisor(t)

	result, err := adv.GenerateBatch(context.Background(), &model.RecommendationContext{AccountID: "acct-9"})
	require.NoError(t, err)

	// No evidence anywhere: every candidate is skipped, the batch is empty.
	assert.Empty(t, result.Batch.Recommendations)
	assert.Len(t, result.Skipped, len(model.AllTypes))
	for _, skip := range result.Skipped {
		assert.Equal(t, "no relevant evidence", skip.Reason)
	}
}

func TestAdvisor_GenerateBatch_ReportsExtractionDiagnostics(t *testing.T) {
	adv := newTestAdvisor(t)

	rctx := richContext()
	rctx.Activity = append(rctx.Activity, model.ActivityEntry{
		Kind: "support", Fields: map[string]any{"ticket_count": 1}, OccurredAt: testNow,
	})

	result, err := adv.GenerateBatch(context.Background(), rctx)
	require.NoError(t, err)

	require.Len(t, result.Extraction, 1)
	assert.Equal(t, "missing record_id", result.Extraction[0].Reason)
	// The broken payload does not remove the valid ones.
	assert.NotEmpty(t, result.Batch.Recommendations)

	// Diagnostics survive serialization to the API and CLI consumers.
	doc, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(doc), `"extraction_diagnostics"`)
	assert.Contains(t, string(doc), `"missing record_id"`)
}
