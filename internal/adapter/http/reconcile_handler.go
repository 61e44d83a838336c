package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aq2208/campuspay-terminal/internal/adapter/http/middleware"
	"github.com/aq2208/campuspay-terminal/internal/adapter/repo"
	"github.com/aq2208/campuspay-terminal/internal/logging"
)

const maxGapPage = 200

// ReconcileHandler lists transfers whose order was never marked paid and
// lets the finance desk close them once fixed on the backend.
type ReconcileHandler struct {
	journal GapJournal
	ledger  LedgerClearer
}

// NewReconcileHandler accepts a nil journal when no database is configured;
// its routes then answer 503. ledger may be nil.
func NewReconcileHandler(journal GapJournal, ledger LedgerClearer) *ReconcileHandler {
	return &ReconcileHandler{journal: journal, ledger: ledger}
}

type gapResp struct {
	AttemptID string    `json:"attempt_id"`
	OrderID   int64     `json:"order_id"`
	Flow      string    `json:"flow"`
	Amount    string    `json:"amount"`
	Recipient string    `json:"recipient"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *ReconcileHandler) List(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal not configured"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	limit = min(limit, maxGapPage)

	gaps, err := h.journal.ListGaps(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gapResp, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, gapResp{
			AttemptID: g.ID,
			OrderID:   g.OrderID,
			Flow:      g.Flow,
			Amount:    g.Amount.StringFixed(2),
			Recipient: g.Recipient,
			Reason:    g.Reason,
			CreatedAt: g.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"gaps": out})
}

// Resolve marks a gap reconciled and clears the order's settlement marker.
func (h *ReconcileHandler) Resolve(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal not configured"})
		return
	}
	ctx := c.Request.Context()
	attemptID := c.Param("attempt")

	orderID, err := h.journal.OrderOf(ctx, attemptID)
	if err == nil {
		err = h.journal.MarkReconciled(ctx, attemptID)
	}
	if errors.Is(err, repo.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "attempt not found"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}

	log := logging.From(c).With("attempt_id", attemptID, "order_id", orderID, "resolved_by", middleware.Operator(c))
	if h.ledger != nil {
		if err := h.ledger.Clear(ctx, orderID); err != nil {
			log.Warn("settlement marker not cleared", "error", err)
		}
	}
	log.Info("reconciliation resolved")
	c.Status(http.StatusNoContent)
}
