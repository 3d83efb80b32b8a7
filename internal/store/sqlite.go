package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/account-advisor/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS batches (
	id           TEXT PRIMARY KEY,
	account_id   TEXT NOT NULL,
	breakdown    TEXT NOT NULL,
	generated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS recommendations (
	id               TEXT PRIMARY KEY,
	batch_id         TEXT NOT NULL REFERENCES batches(id),
	account_id       TEXT NOT NULL,
	type             TEXT NOT NULL,
	priority         TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'draft',
	position         INTEGER NOT NULL,
	doc              TEXT NOT NULL,
	created_at       DATETIME NOT NULL,
	decided_at       DATETIME,
	approver         TEXT,
	rejection_reason TEXT
);

CREATE INDEX IF NOT EXISTS idx_batches_account ON batches(account_id, generated_at);
CREATE INDEX IF NOT EXISTS idx_recs_batch ON recommendations(batch_id);
CREATE INDEX IF NOT EXISTS idx_recs_status ON recommendations(status);
CREATE INDEX IF NOT EXISTS idx_recs_account ON recommendations(account_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveBatch writes the batch header and every recommendation in batch
// order inside a single transaction.
func (s *SQLiteStore) SaveBatch(ctx context.Context, batch *model.RecommendationBatch) error {
	breakdown, err := json.Marshal(batch.PriorityBreakdown)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal breakdown")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO batches (id, account_id, breakdown, generated_at) VALUES (?, ?, ?, ?)`,
		batch.ID, batch.AccountID, string(breakdown), batch.GeneratedAt,
	); err != nil {
		return eris.Wrap(err, "sqlite: insert batch")
	}

	for i := range batch.Recommendations {
		rec := &batch.Recommendations[i]
		doc, err := json.Marshal(rec)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal recommendation %s", rec.ID)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO recommendations (id, batch_id, account_id, type, priority, status, position, doc, created_at, decided_at, approver, rejection_reason)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, batch.ID, rec.AccountID, string(rec.Type), string(rec.Priority), string(rec.Status),
			i, string(doc), rec.CreatedAt, rec.DecidedAt, nullEmpty(rec.Approver), nullEmpty(rec.RejectionReason),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert recommendation %s", rec.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit batch")
}

// GetLatestBatch returns the most recently generated batch for the
// account, or nil when none exists.
func (s *SQLiteStore) GetLatestBatch(ctx context.Context, accountID string) (*model.RecommendationBatch, error) {
	var (
		batch     model.RecommendationBatch
		breakdown string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, account_id, breakdown, generated_at FROM batches
		 WHERE account_id = ? ORDER BY generated_at DESC LIMIT 1`,
		accountID,
	).Scan(&batch.ID, &batch.AccountID, &breakdown, &batch.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get latest batch")
	}
	if err := json.Unmarshal([]byte(breakdown), &batch.PriorityBreakdown); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal breakdown")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM recommendations WHERE batch_id = ? ORDER BY position`,
		batch.ID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list batch recommendations")
	}
	defer rows.Close()

	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan recommendation")
		}
		var rec model.Recommendation
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal recommendation")
		}
		batch.Recommendations = append(batch.Recommendations, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate recommendations")
	}

	return &batch, nil
}

// GetRecommendation returns one recommendation by id, or nil when absent.
func (s *SQLiteStore) GetRecommendation(ctx context.Context, id string) (*model.Recommendation, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM recommendations WHERE id = ?`, id,
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get recommendation")
	}
	var rec model.Recommendation
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal recommendation")
	}
	return &rec, nil
}

// ListPending returns pending-approval recommendations, newest first.
func (s *SQLiteStore) ListPending(ctx context.Context, filter PendingFilter) ([]model.Recommendation, error) {
	query := `SELECT doc FROM recommendations WHERE status = ?`
	args := []any{string(model.StatusPendingApproval)}
	if filter.AccountID != "" {
		query += ` AND account_id = ?`
		args = append(args, filter.AccountID)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list pending")
	}
	defer rows.Close()

	var recs []model.Recommendation
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pending")
		}
		var rec model.Recommendation
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal pending")
		}
		recs = append(recs, rec)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: iterate pending")
}

// RecordDecision persists a gate transition only if the stored status
// still matches expectedStatus. Zero affected rows means another writer
// decided first.
func (s *SQLiteStore) RecordDecision(ctx context.Context, rec *model.Recommendation, expectedStatus model.ApprovalStatus) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrapf(err, "sqlite: marshal recommendation %s", rec.ID)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE recommendations
		 SET status = ?, doc = ?, decided_at = ?, approver = ?, rejection_reason = ?
		 WHERE id = ? AND status = ?`,
		string(rec.Status), string(doc), rec.DecidedAt, nullEmpty(rec.Approver), nullEmpty(rec.RejectionReason),
		rec.ID, string(expectedStatus),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: record decision %s", rec.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrStaleStatus
	}
	return nil
}

// nullEmpty maps empty strings to NULL for nullable columns.
func nullEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Store = (*SQLiteStore)(nil)
