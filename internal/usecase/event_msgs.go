package usecase

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderEventMsg is published by the backend on Kafka when an order changes.
type OrderEventMsg struct {
	OrderID int64  `json:"order_id"`
	IsPaid  bool   `json:"is_paid"`
	Status  string `json:"status,omitempty"`
}

// Gap is a transfer that went through while marking the order paid failed.
// Nothing compensates it; an operator reconciles it with the backend.
type Gap struct {
	AttemptID  string          `json:"attempt_id"`
	OrderID    int64           `json:"order_id"`
	Flow       string          `json:"flow"`
	Recipient  string          `json:"recipient"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	OccurredAt time.Time       `json:"occurred_at"`
}
