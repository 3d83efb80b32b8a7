package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/account-advisor/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgres_GetRecommendation_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT doc FROM recommendations WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	rec, err := s.GetRecommendation(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetRecommendation(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	doc := []byte(`{"id":"rec-1","account_id":"acct-1","type":"retention","status":"pending_approval"}`)
	mock.ExpectQuery(`SELECT doc FROM recommendations WHERE id = \$1`).
		WithArgs("rec-1").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(doc))

	rec, err := s.GetRecommendation(context.Background(), "rec-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.TypeRetention, rec.Type)
	assert.Equal(t, model.StatusPendingApproval, rec.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetLatestBatch_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, account_id, breakdown, generated_at FROM batches`).
		WithArgs("acct-9").
		WillReturnError(pgx.ErrNoRows)

	batch, err := s.GetLatestBatch(context.Background(), "acct-9")
	require.NoError(t, err)
	assert.Nil(t, batch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetLatestBatch(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	generatedAt := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, account_id, breakdown, generated_at FROM batches`).
		WithArgs("acct-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "account_id", "breakdown", "generated_at"}).
			AddRow("batch-1", "acct-1", []byte(`{"low":0,"medium":0,"high":1,"critical":0}`), generatedAt))
	mock.ExpectQuery(`SELECT doc FROM recommendations WHERE batch_id = \$1 ORDER BY position`).
		WithArgs("batch-1").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).
			AddRow([]byte(`{"id":"rec-1","type":"retention","priority":"high"}`)))

	batch, err := s.GetLatestBatch(context.Background(), "acct-1")
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, "batch-1", batch.ID)
	assert.Equal(t, 1, batch.PriorityBreakdown.High)
	require.Len(t, batch.Recommendations, 1)
	assert.Equal(t, model.PriorityHigh, batch.Recommendations[0].Priority)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveBatch(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	generatedAt := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	batch := &model.RecommendationBatch{
		ID:          "batch-1",
		AccountID:   "acct-1",
		GeneratedAt: generatedAt,
		Recommendations: []model.Recommendation{
			{
				ID: "rec-1", AccountID: "acct-1", Type: model.TypeRetention,
				Priority: model.PriorityHigh, Status: model.StatusPendingApproval,
				DataReferences: []model.DataReference{{RecordID: "a1"}},
				CreatedAt:      generatedAt,
			},
		},
	}
	batch.ComputeBreakdown()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO batches`).
		WithArgs("batch-1", "acct-1", pgxmock.AnyArg(), generatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO recommendations`).
		WithArgs("rec-1", "batch-1", "acct-1", "retention", "high", "pending_approval",
			0, pgxmock.AnyArg(), generatedAt, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, s.SaveBatch(context.Background(), batch))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveBatch_RollsBackOnFailure(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	generatedAt := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	batch := &model.RecommendationBatch{
		ID:          "batch-1",
		AccountID:   "acct-1",
		GeneratedAt: generatedAt,
		Recommendations: []model.Recommendation{
			{
				ID: "rec-1", AccountID: "acct-1", Type: model.TypeRetention,
				Priority: model.PriorityHigh, Status: model.StatusPendingApproval,
				CreatedAt: generatedAt,
			},
		},
	}
	batch.ComputeBreakdown()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO batches`).
		WithArgs("batch-1", "acct-1", pgxmock.AnyArg(), generatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO recommendations`).
		WithArgs("rec-1", "batch-1", "acct-1", "retention", "high", "pending_approval",
			0, pgxmock.AnyArg(), generatedAt, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(eris.New("duplicate key"))
	mock.ExpectRollback()

	err := s.SaveBatch(context.Background(), batch)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListPending_WithFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT doc FROM recommendations WHERE status = \$1 AND account_id = \$2 ORDER BY created_at DESC LIMIT \$3`).
		WithArgs("pending_approval", "acct-1", 10).
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).
			AddRow([]byte(`{"id":"rec-1","account_id":"acct-1","status":"pending_approval"}`)))

	recs, err := s.ListPending(context.Background(), PendingFilter{AccountID: "acct-1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "rec-1", recs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordDecision(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	decided := time.Date(2025, 6, 15, 13, 0, 0, 0, time.UTC)
	rec := &model.Recommendation{
		ID: "rec-1", Status: model.StatusApproved,
		Approver: "user-42", DecidedAt: &decided,
	}

	mock.ExpectExec(`UPDATE recommendations`).
		WithArgs("approved", pgxmock.AnyArg(), &decided, "user-42", nil, "rec-1", "pending_approval").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.RecordDecision(context.Background(), rec, model.StatusPendingApproval))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordDecision_Stale(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	decided := time.Date(2025, 6, 15, 13, 0, 0, 0, time.UTC)
	rec := &model.Recommendation{
		ID: "rec-1", Status: model.StatusRejected,
		Approver: "user-42", RejectionReason: "stale data", DecidedAt: &decided,
	}

	mock.ExpectExec(`UPDATE recommendations`).
		WithArgs("rejected", pgxmock.AnyArg(), &decided, "user-42", "stale data", "rec-1", "pending_approval").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.RecordDecision(context.Background(), rec, model.StatusPendingApproval)
	require.ErrorIs(t, err, ErrStaleStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}
