package repo_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aq2208/campuspay-terminal/internal/adapter/repo"
	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

func setupJournal(t *testing.T) *repo.MySQLAttemptJournal {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	j := repo.NewMySQLAttemptJournal(db)
	require.NoError(t, j.Migrate(context.Background()))
	return j
}

func attempt(id string, orderID int64, outcome string, at time.Time) usecase.Attempt {
	return usecase.Attempt{
		ID:        id,
		OrderID:   orderID,
		Flow:      usecase.FlowNFC,
		Amount:    decimal.RequireFromString("150.00"),
		Recipient: "09171234567",
		Outcome:   outcome,
		Reason:    "Internal Server Error",
		CreatedAt: at,
	}
}

func TestAttemptJournal_ListGaps(t *testing.T) {
	j := setupJournal(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, j.Record(ctx, attempt("a-2", 43, "SETTLE_FAILED", now)))
	require.NoError(t, j.Record(ctx, attempt("a-1", 42, "SETTLE_FAILED", now.Add(-time.Minute))))
	require.NoError(t, j.Record(ctx, attempt("a-3", 44, "DONE", now)))
	require.NoError(t, j.Record(ctx, attempt("a-4", 45, "VERIFY_FAILED", now)))

	gaps, err := j.ListGaps(ctx, 10)
	require.NoError(t, err)
	require.Len(t, gaps, 2)
	assert.Equal(t, "a-1", gaps[0].ID)
	assert.Equal(t, int64(42), gaps[0].OrderID)
	assert.Equal(t, "150.00", gaps[0].Amount.StringFixed(2))
	assert.Equal(t, "Internal Server Error", gaps[0].Reason)
	assert.False(t, gaps[0].Reconciled)
	assert.Equal(t, "a-2", gaps[1].ID)
}

func TestAttemptJournal_MarkReconciled(t *testing.T) {
	j := setupJournal(t)
	ctx := context.Background()
	require.NoError(t, j.Record(ctx, attempt("a-1", 42, "SETTLE_FAILED", time.Now())))
	require.NoError(t, j.Record(ctx, attempt("a-2", 43, "DONE", time.Now())))

	require.NoError(t, j.MarkReconciled(ctx, "a-1"))
	gaps, err := j.ListGaps(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, gaps)

	assert.ErrorIs(t, j.MarkReconciled(ctx, "a-2"), repo.ErrNotFound)
	assert.ErrorIs(t, j.MarkReconciled(ctx, "missing"), repo.ErrNotFound)

	id, err := j.OrderOf(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}
