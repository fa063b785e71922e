package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/baccarun/internal/combine"
	"github.com/sawpanic/baccarun/internal/persistence"
	"github.com/sawpanic/baccarun/internal/session"
)

// Schema creates the ledger table
const Schema = `
CREATE TABLE IF NOT EXISTS prediction_ledger (
	id          UUID PRIMARY KEY,
	session_id  TEXT NOT NULL,
	hand_index  INTEGER NOT NULL,
	mode        TEXT NOT NULL,
	predicted   CHAR(1) NOT NULL,
	confidence  DOUBLE PRECISION NOT NULL,
	actual      CHAR(1) NOT NULL,
	correct     BOOLEAN NOT NULL,
	winner      TEXT NOT NULL DEFAULT '',
	is_default  BOOLEAN NOT NULL DEFAULT FALSE,
	settled_at  TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS prediction_ledger_session_idx ON prediction_ledger (session_id, settled_at DESC);`

// ledgerRepo implements LedgerRepo interface for PostgreSQL
type ledgerRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewLedgerRepo creates a new PostgreSQL ledger repository
func NewLedgerRepo(db *sqlx.DB, timeout time.Duration) persistence.LedgerRepo {
	return &ledgerRepo{
		db:      db,
		timeout: timeout,
	}
}

// Append inserts one settled prediction; replays of the same entry are ignored
func (r *ledgerRepo) Append(ctx context.Context, sessionID string, e session.LedgerEntry) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if !e.Mode.Valid() {
		return fmt.Errorf("invalid mode: %s", e.Mode)
	}

	query := `
		INSERT INTO prediction_ledger
		(id, session_id, hand_index, mode, predicted, confidence, actual, correct, winner, is_default, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, sessionID, e.Index, string(e.Mode), string(e.Predicted), e.Confidence,
		string(e.Actual), e.Correct, e.Winner, e.Default, e.SettledAt)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries for a session, newest first
func (r *ledgerRepo) Recent(ctx context.Context, sessionID string, limit int) ([]session.LedgerEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, hand_index, mode, predicted, confidence, actual, correct, winner, is_default, settled_at
		FROM prediction_ledger
		WHERE session_id = $1
		ORDER BY settled_at DESC
		LIMIT $2`

	var entries []session.LedgerEntry
	if err := r.db.SelectContext(ctx, &entries, query, sessionID, limit); err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}

type modeAccuracy struct {
	Mode    string `db:"mode"`
	Total   int    `db:"total"`
	Correct int    `db:"correct"`
}

// AccuracyByMode aggregates hit rates for a session
func (r *ledgerRepo) AccuracyByMode(ctx context.Context, sessionID string) (map[combine.Mode]session.Accuracy, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT mode, COUNT(*) AS total, COUNT(*) FILTER (WHERE correct) AS correct
		FROM prediction_ledger
		WHERE session_id = $1
		GROUP BY mode`

	var rows []modeAccuracy
	if err := r.db.SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("failed to aggregate accuracy: %w", err)
	}

	out := make(map[combine.Mode]session.Accuracy, len(rows))
	for _, row := range rows {
		acc := session.Accuracy{Total: row.Total, Correct: row.Correct}
		if row.Total > 0 {
			acc.Rate = float64(row.Correct) / float64(row.Total) * 100
		}
		out[combine.Mode(row.Mode)] = acc
	}
	return out, nil
}
