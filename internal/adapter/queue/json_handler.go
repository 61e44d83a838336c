package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// JSONHandler adapts a typed function into a raw Delivery handler.
// Verify, when set, runs on the raw delivery before d.Body is unmarshalled into T.
type JSONHandler[T any] struct {
	Verify     func(d amqp.Delivery) error
	HandleFunc func(ctx context.Context, msg T) error
}

func (h JSONHandler[T]) Handle(ctx context.Context, d amqp.Delivery) error {
	if h.Verify != nil {
		if err := h.Verify(d); err != nil {
			return fmt.Errorf("%w: %v", ErrPoison, err)
		}
	}
	var v T
	if err := json.Unmarshal(d.Body, &v); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrPoison, err)
	}
	return h.HandleFunc(ctx, v)
}
