package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/account-advisor/internal/db"
	"github.com/sells-group/account-advisor/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS batches (
	id           TEXT PRIMARY KEY,
	account_id   TEXT NOT NULL,
	breakdown    JSONB NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS recommendations (
	id               TEXT PRIMARY KEY,
	batch_id         TEXT NOT NULL REFERENCES batches(id),
	account_id       TEXT NOT NULL,
	type             TEXT NOT NULL,
	priority         TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'draft',
	position         INTEGER NOT NULL,
	doc              JSONB NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	decided_at       TIMESTAMPTZ,
	approver         TEXT,
	rejection_reason TEXT
);

CREATE INDEX IF NOT EXISTS idx_batches_account ON batches(account_id, generated_at);
CREATE INDEX IF NOT EXISTS idx_recs_batch ON recommendations(batch_id);
CREATE INDEX IF NOT EXISTS idx_recs_status ON recommendations(status);
CREATE INDEX IF NOT EXISTS idx_recs_account ON recommendations(account_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// SaveBatch writes the batch header and its recommendations in batch order,
// atomically: a failed insert rolls back the whole batch.
func (s *PostgresStore) SaveBatch(ctx context.Context, batch *model.RecommendationBatch) error {
	breakdown, err := json.Marshal(batch.PriorityBreakdown)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal breakdown")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save batch")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO batches (id, account_id, breakdown, generated_at) VALUES ($1, $2, $3, $4)`,
		batch.ID, batch.AccountID, breakdown, batch.GeneratedAt,
	); err != nil {
		return eris.Wrap(err, "postgres: insert batch")
	}

	for i := range batch.Recommendations {
		rec := &batch.Recommendations[i]
		doc, err := json.Marshal(rec)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal recommendation %s", rec.ID)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO recommendations (id, batch_id, account_id, type, priority, status, position, doc, created_at, decided_at, approver, rejection_reason)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			rec.ID, batch.ID, rec.AccountID, string(rec.Type), string(rec.Priority), string(rec.Status),
			i, doc, rec.CreatedAt, rec.DecidedAt, nullEmpty(rec.Approver), nullEmpty(rec.RejectionReason),
		); err != nil {
			return eris.Wrapf(err, "postgres: insert recommendation %s", rec.ID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit save batch")
	}
	return nil
}

// GetLatestBatch returns the most recently generated batch for the
// account, or nil when none exists.
func (s *PostgresStore) GetLatestBatch(ctx context.Context, accountID string) (*model.RecommendationBatch, error) {
	var (
		batch     model.RecommendationBatch
		breakdown []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, account_id, breakdown, generated_at FROM batches
		 WHERE account_id = $1 ORDER BY generated_at DESC LIMIT 1`,
		accountID,
	).Scan(&batch.ID, &batch.AccountID, &breakdown, &batch.GeneratedAt)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get latest batch")
	}
	if err := json.Unmarshal(breakdown, &batch.PriorityBreakdown); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal breakdown")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT doc FROM recommendations WHERE batch_id = $1 ORDER BY position`,
		batch.ID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list batch recommendations")
	}
	defer rows.Close()

	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan recommendation")
		}
		var rec model.Recommendation
		if err := json.Unmarshal(doc, &rec); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal recommendation")
		}
		batch.Recommendations = append(batch.Recommendations, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate recommendations")
	}

	return &batch, nil
}

// GetRecommendation returns one recommendation by id, or nil when absent.
func (s *PostgresStore) GetRecommendation(ctx context.Context, id string) (*model.Recommendation, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM recommendations WHERE id = $1`, id,
	).Scan(&doc)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get recommendation")
	}
	var rec model.Recommendation
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal recommendation")
	}
	return &rec, nil
}

// ListPending returns pending-approval recommendations, newest first.
func (s *PostgresStore) ListPending(ctx context.Context, filter PendingFilter) ([]model.Recommendation, error) {
	query := `SELECT doc FROM recommendations WHERE status = $1`
	args := []any{string(model.StatusPendingApproval)}
	argNum := 2
	if filter.AccountID != "" {
		query += fmt.Sprintf(" AND account_id = $%d", argNum)
		args = append(args, filter.AccountID)
		argNum++
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list pending")
	}
	defer rows.Close()

	var recs []model.Recommendation
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan pending")
		}
		var rec model.Recommendation
		if err := json.Unmarshal(doc, &rec); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal pending")
		}
		recs = append(recs, rec)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: iterate pending")
}

// RecordDecision persists a gate transition only if the stored status
// still matches expectedStatus.
func (s *PostgresStore) RecordDecision(ctx context.Context, rec *model.Recommendation, expectedStatus model.ApprovalStatus) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrapf(err, "postgres: marshal recommendation %s", rec.ID)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE recommendations
		 SET status = $1, doc = $2, decided_at = $3, approver = $4, rejection_reason = $5
		 WHERE id = $6 AND status = $7`,
		string(rec.Status), doc, rec.DecidedAt, nullEmpty(rec.Approver), nullEmpty(rec.RejectionReason),
		rec.ID, string(expectedStatus),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: record decision %s", rec.ID)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
