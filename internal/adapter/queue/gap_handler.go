package queue

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/aq2208/campuspay-terminal/internal/logging"
	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

// Verifier checks signatures. security.CryptoService satisfies it.
type Verifier interface {
	CanVerify() bool
	Verify(payload, signature []byte) error
}

// NewGapHandler consumes payment.gap messages and hands them to the operator
// notifier. With a verifier configured, unsigned or forged messages are dropped.
// It logs through the delivery-scoped logger the Router puts in ctx.
func NewGapHandler(v Verifier, n usecase.GapNotifier) Handler {
	h := JSONHandler[usecase.Gap]{
		HandleFunc: func(ctx context.Context, gap usecase.Gap) error {
			logging.FromCtx(ctx).Warn("reconciliation gap received", "order_id", gap.OrderID, "attempt_id", gap.AttemptID)
			return n.NotifyGap(ctx, gap)
		},
	}
	if v != nil && v.CanVerify() {
		h.Verify = func(d amqp.Delivery) error { return verifyDelivery(v, d) }
	}
	return h
}

func verifyDelivery(v Verifier, d amqp.Delivery) error {
	raw, ok := d.Headers[headerSignature].(string)
	if !ok || raw == "" {
		return errors.New("unsigned message")
	}
	sig, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return fmt.Errorf("signature encoding: %w", err)
	}
	return v.Verify(d.Body, sig)
}
