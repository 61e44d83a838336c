package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/IBM/sarama"

	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

// HandlerFunc processes a decoded event.
type HandlerFunc func(ctx context.Context, ev usecase.OrderEventMsg) error

// Consumer consumes topics with a single handler.
type Consumer struct {
	group  sarama.ConsumerGroup
	topics []string
	handle HandlerFunc
	log    *slog.Logger
}

func NewConsumer(group sarama.ConsumerGroup, topics []string, h HandlerFunc, log *slog.Logger) *Consumer {
	return &Consumer{group: group, topics: topics, handle: h, log: log}
}

// Start blocks until ctx is cancelled or the group fails.
func (c *Consumer) Start(ctx context.Context) error {
	go func() {
		for err := range c.group.Errors() {
			c.log.Warn("kafka consumer error", "error", err)
		}
	}()

	handler := &claimHandler{handle: c.handle, log: c.log}
	for {
		if err := c.group.Consume(ctx, c.topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		// Consume returns on rebalance or cancellation
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) Close() error { return c.group.Close() }

type claimHandler struct {
	handle HandlerFunc
	log    *slog.Logger
}

func (h *claimHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *claimHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *claimHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-sess.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			h.process(sess, msg)
		}
	}
}

func (h *claimHandler) process(sess sarama.ConsumerGroupSession, msg *sarama.ConsumerMessage) {
	var ev usecase.OrderEventMsg
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		h.log.Warn("kafka decode error", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		// poison: mark so it is not redelivered
		sess.MarkMessage(msg, "decode-error")
		return
	}
	if err := h.handle(sess.Context(), ev); err != nil {
		// left unmarked; redelivered after the next rebalance
		h.log.Error("order event handler error", "key", string(msg.Key), "offset", msg.Offset, "error", err)
		return
	}
	sess.MarkMessage(msg, "")
}
