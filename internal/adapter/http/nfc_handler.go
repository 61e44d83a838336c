package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domain "github.com/aq2208/campuspay-terminal/internal/entity"
	"github.com/aq2208/campuspay-terminal/internal/logging"
	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

// NFCHandler drives the vendor's tag confirmation of an order.
type NFCHandler struct {
	sessions Sessions
	orders   *usecase.Orders
	confirm  *usecase.ConfirmPayment
}

func NewNFCHandler(sessions Sessions, orders *usecase.Orders, confirm *usecase.ConfirmPayment) *NFCHandler {
	return &NFCHandler{sessions: sessions, orders: orders, confirm: confirm}
}

// Begin opens the confirmation screen for an unpaid order the user sells.
func (h *NFCHandler) Begin(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	sc, err := h.sessions.Current(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	view, err := h.orders.Get(ctx, sc, id)
	if err != nil {
		writeError(c, err)
		return
	}
	if view.Role != domain.RoleVendor {
		writeError(c, errForbiddenRole)
		return
	}

	snap, err := h.confirm.Begin(view.Order)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

func (h *NFCHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	snap, err := h.confirm.Snapshot(id)
	writeFlow(c, http.StatusOK, snap, err)
}

// Read blocks until a tag is presented, the read is cancelled or the reader fails.
func (h *NFCHandler) Read(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	snap, err := h.confirm.ReadTag(c.Request.Context(), id)
	writeFlow(c, http.StatusOK, snap, err)
}

type secretReq struct {
	Secret string `json:"secret"`
}

func (h *NFCHandler) Secret(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req secretReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	snap, err := h.confirm.EditSecret(id, req.Secret)
	writeFlow(c, http.StatusOK, snap, err)
}

// Confirm runs verify, transfer and settle for the decoded credential.
func (h *NFCHandler) Confirm(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	sc, err := h.sessions.Current(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	snap, err := h.confirm.Confirm(ctx, sc, id)
	if err == nil {
		logging.From(c).Info("nfc payment confirmed", "order_id", id, "attempt_id", snap.AttemptID)
	}
	writeFlow(c, http.StatusOK, snap, err)
}

func (h *NFCHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	snap, err := h.confirm.Cancel(id)
	writeFlow(c, http.StatusOK, snap, err)
}

func (h *NFCHandler) Close(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.confirm.Close(id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Reader reports whether the NFC reader came up.
func (h *NFCHandler) Reader(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ready": h.confirm.ReaderReady()})
}
