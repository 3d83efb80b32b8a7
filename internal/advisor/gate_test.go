package advisor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/account-advisor/internal/config"
	"github.com/sells-group/account-advisor/internal/model"
)

func newTestGate(t *testing.T) *Gate {
	t.Helper()
	return NewGate(config.GateConfig{AutoApproveThreshold: 0.85}, WithGateClock(fixedClock))
}

func draftRecommendation(typ model.RecommendationType, overall float64, prio model.Priority) *model.Recommendation {
	return &model.Recommendation{
		ID:        "rec-" + string(typ),
		AccountID: "acct-1",
		Type:      typ,
		Priority:  prio,
		Confidence: model.ConfidenceScore{
			Overall: overall,
			Level:   model.DefaultLevelThresholds.LevelFor(overall),
		},
		DataReferences: []model.DataReference{{Source: model.SourceCRMField, RecordID: "a1"}},
		Status:         model.StatusDraft,
		CreatedAt:      testNow,
	}
}

func TestGate_Evaluate_AutoApprove(t *testing.T) {
	g := newTestGate(t)
	rec := draftRecommendation(model.TypeRetention, 0.9, model.PriorityHigh)

	require.NoError(t, g.Evaluate(rec))
	assert.Equal(t, model.StatusAutoApproved, rec.Status)
	require.NotNil(t, rec.DecidedAt)
	assert.Equal(t, testNow, *rec.DecidedAt)
}

func TestGate_Evaluate_BelowThresholdPends(t *testing.T) {
	g := newTestGate(t)
	rec := draftRecommendation(model.TypeRetention, 0.84, model.PriorityHigh)

	require.NoError(t, g.Evaluate(rec))
	assert.Equal(t, model.StatusPendingApproval, rec.Status)
	assert.Nil(t, rec.DecidedAt)
}

func TestGate_Evaluate_EscalationNeverAutoApproves(t *testing.T) {
	g := newTestGate(t)
	rec := draftRecommendation(model.TypeEscalation, 0.99, model.PriorityHigh)

	require.NoError(t, g.Evaluate(rec))
	assert.Equal(t, model.StatusPendingApproval, rec.Status)
}

func TestGate_Evaluate_CriticalNeverAutoApproves(t *testing.T) {
	g := newTestGate(t)
	rec := draftRecommendation(model.TypeRiskMitigation, 0.99, model.PriorityCritical)

	require.NoError(t, g.Evaluate(rec))
	assert.Equal(t, model.StatusPendingApproval, rec.Status)
}

func TestGate_Evaluate_NonDraftFails(t *testing.T) {
	g := newTestGate(t)
	rec := draftRecommendation(model.TypeRetention, 0.9, model.PriorityHigh)
	rec.Status = model.StatusApproved

	err := g.Evaluate(rec)
	require.Error(t, err)

	var terr *InvalidTransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, model.StatusApproved, terr.From)
	// The recommendation is left unchanged.
	assert.Equal(t, model.StatusApproved, rec.Status)
}

func pendingRecommendation() *model.Recommendation {
	rec := draftRecommendation(model.TypeRetention, 0.7, model.PriorityHigh)
	rec.Status = model.StatusPendingApproval
	return rec
}

func TestGate_Approve(t *testing.T) {
	g := newTestGate(t)
	rec := pendingRecommendation()

	require.NoError(t, g.Approve(rec, "user-42", nil))
	assert.Equal(t, model.StatusApproved, rec.Status)
	assert.Equal(t, "user-42", rec.Approver)
	require.NotNil(t, rec.DecidedAt)
	assert.Equal(t, testNow, *rec.DecidedAt)
}

func TestGate_Approve_WithModifications(t *testing.T) {
	g := newTestGate(t)
	rec := pendingRecommendation()

	mods := &Modifications{
		Title:     "Renewal rescue plan",
		Priority:  model.PriorityCritical,
		NextSteps: []string{"Call the champion today"},
	}
	require.NoError(t, g.Approve(rec, "user-42", mods))

	assert.Equal(t, "Renewal rescue plan", rec.Title)
	assert.Equal(t, model.PriorityCritical, rec.Priority)
	assert.Equal(t, []string{"Call the champion today"}, rec.NextSteps)
}

func TestGate_Approve_RequiresApprover(t *testing.T) {
	g := newTestGate(t)
	rec := pendingRecommendation()

	err := g.Approve(rec, "", nil)
	require.Error(t, err)
	assert.Equal(t, model.StatusPendingApproval, rec.Status)
}

func TestGate_Approve_TerminalIsImmutable(t *testing.T) {
	g := newTestGate(t)
	rec := pendingRecommendation()
	require.NoError(t, g.Approve(rec, "user-1", nil))

	// Second decision of any kind fails and changes nothing.
	err := g.Approve(rec, "user-2", nil)
	require.Error(t, err)
	assert.Equal(t, "user-1", rec.Approver)

	err = g.Reject(rec, "user-2", "changed my mind")
	require.Error(t, err)
	assert.Equal(t, model.StatusApproved, rec.Status)
	assert.Empty(t, rec.RejectionReason)
}

func TestGate_Reject(t *testing.T) {
	g := newTestGate(t)
	rec := pendingRecommendation()

	require.NoError(t, g.Reject(rec, "user-42", "stale account data"))
	assert.Equal(t, model.StatusRejected, rec.Status)
	assert.Equal(t, "stale account data", rec.RejectionReason)
	assert.Equal(t, "user-42", rec.Approver)
	require.NotNil(t, rec.DecidedAt)
}

func TestGate_Reject_RequiresReason(t *testing.T) {
	g := newTestGate(t)
	rec := pendingRecommendation()

	err := g.Reject(rec, "user-42", "")
	require.Error(t, err)
	assert.Equal(t, model.StatusPendingApproval, rec.Status)
}

func TestGate_Reject_DraftFails(t *testing.T) {
	g := newTestGate(t)
	rec := draftRecommendation(model.TypeRetention, 0.7, model.PriorityHigh)

	err := g.Reject(rec, "user-42", "not ready")
	require.Error(t, err)
	assert.Equal(t, model.StatusDraft, rec.Status)
}

func TestGate_ConcurrentDecisions_ExactlyOneSucceeds(t *testing.T) {
	g := newTestGate(t)
	rec := pendingRecommendation()

	const writers = 16
	var wg sync.WaitGroup
	errs := make([]error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if n%2 == 0 {
				errs[n] = g.Approve(rec, "user-a", nil)
			} else {
				errs[n] = g.Reject(rec, "user-b", "duplicate")
			}
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.True(t, rec.Status.Terminal())
}
