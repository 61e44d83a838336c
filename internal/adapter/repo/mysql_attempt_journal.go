package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

var ErrNotFound = errors.New("not found")

const maxReason = 255

// Schema is the payment_attempts table. It is plain SQL accepted by MySQL and SQLite.
const Schema = `
CREATE TABLE IF NOT EXISTS payment_attempts (
	id         VARCHAR(36)   NOT NULL PRIMARY KEY,
	order_id   BIGINT        NOT NULL,
	flow       VARCHAR(16)   NOT NULL,
	amount     DECIMAL(12,2) NOT NULL,
	recipient  VARCHAR(32)   NOT NULL,
	outcome    VARCHAR(32)   NOT NULL,
	reason     VARCHAR(255)  NOT NULL DEFAULT '',
	reconciled BOOLEAN       NOT NULL DEFAULT FALSE,
	created_at DATETIME      NOT NULL
)`

// MySQLAttemptJournal keeps one row per finished payment attempt. Rows with
// outcome SETTLE_FAILED are the reconciliation queue.
type MySQLAttemptJournal struct{ db *sql.DB }

func NewMySQLAttemptJournal(db *sql.DB) *MySQLAttemptJournal { return &MySQLAttemptJournal{db: db} }

func (r *MySQLAttemptJournal) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, Schema)
	return err
}

func (r *MySQLAttemptJournal) Record(ctx context.Context, a usecase.Attempt) error {
	reason := a.Reason
	if len(reason) > maxReason {
		reason = reason[:maxReason]
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO payment_attempts (id,order_id,flow,amount,recipient,outcome,reason,reconciled,created_at)
VALUES (?,?,?,?,?,?,?,?,?)
`, a.ID, a.OrderID, a.Flow, a.Amount.StringFixed(2), a.Recipient, a.Outcome, reason, a.Reconciled, a.CreatedAt.UTC())
	return err
}

// ListGaps returns unreconciled SETTLE_FAILED attempts, oldest first.
func (r *MySQLAttemptJournal) ListGaps(ctx context.Context, limit int) ([]usecase.Attempt, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id,order_id,flow,amount,recipient,outcome,reason,reconciled,created_at
FROM payment_attempts
WHERE outcome = ? AND reconciled = ?
ORDER BY created_at ASC
LIMIT ?`, string(usecase.StateSettleFailed), false, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []usecase.Attempt
	for rows.Next() {
		var (
			a      usecase.Attempt
			amount string
		)
		if err := rows.Scan(&a.ID, &a.OrderID, &a.Flow, &amount, &a.Recipient, &a.Outcome, &a.Reason, &a.Reconciled, &a.CreatedAt); err != nil {
			return nil, err
		}
		if a.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("attempt %s amount %q: %w", a.ID, amount, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *MySQLAttemptJournal) MarkReconciled(ctx context.Context, attemptID string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE payment_attempts SET reconciled = ?
WHERE id = ? AND outcome = ?`, true, attemptID, string(usecase.StateSettleFailed))
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// OrderOf returns the order of an attempt, used to clear the settlement ledger.
func (r *MySQLAttemptJournal) OrderOf(ctx context.Context, attemptID string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT order_id FROM payment_attempts WHERE id = ?`, attemptID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}

var _ usecase.AttemptJournal = (*MySQLAttemptJournal)(nil)
