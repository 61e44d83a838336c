package kafka

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

// OrderPaidHandler records orders the backend reports as paid in the
// settlement ledger, so no terminal starts a second confirmation for them.
type OrderPaidHandler struct {
	Ledger usecase.SettlementLedger
	Log    *slog.Logger
}

func NewOrderPaidHandler(ledger usecase.SettlementLedger, log *slog.Logger) *OrderPaidHandler {
	return &OrderPaidHandler{Ledger: ledger, Log: log}
}

func (h *OrderPaidHandler) Handle(ctx context.Context, ev usecase.OrderEventMsg) error {
	if ev.OrderID <= 0 {
		return nil
	}
	if !ev.IsPaid && !strings.EqualFold(ev.Status, "PAID") {
		return nil
	}
	if err := h.Ledger.MarkSettled(ctx, ev.OrderID); err != nil {
		return err
	}
	h.Log.Info("order settled by backend event", "order_id", ev.OrderID)
	return nil
}
