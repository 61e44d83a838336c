package queue

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

const (
	headerSignature = "x-signature"
	headerKeyID     = "x-key-id"
)

// PublishChannel is the part of *amqp.Channel the producer needs.
type PublishChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Confirm(noWait bool) error
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
}

// Signer signs outgoing payloads. security.CryptoService satisfies it.
type Signer interface {
	CanSign() bool
	KeyID() string
	Sign(payload []byte) ([]byte, error)
}

type Topology struct {
	Exchange   string
	RoutingKey string
	Queue      string
}

// RabbitProducer publishes reconciliation gaps; it implements usecase.ReconciliationSink.
type RabbitProducer struct {
	ch     PublishChannel
	topo   Topology
	signer Signer
}

// NewRabbitProducer sets up the exchange, queue, and binding once at startup.
func NewRabbitProducer(ch PublishChannel, topo Topology, signer Signer) (*RabbitProducer, error) {
	if err := ch.ExchangeDeclare(
		topo.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		topo.Queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, topo.RoutingKey, topo.Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("queue bind: %w", err)
	}

	// a gap must not be lost silently, so wait for broker confirms
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}

	return &RabbitProducer{ch: ch, topo: topo, signer: signer}, nil
}

// Flag publishes the gap and waits for the broker to confirm it.
func (p *RabbitProducer) Flag(ctx context.Context, gap usecase.Gap) error {
	body, err := json.Marshal(gap)
	if err != nil {
		return fmt.Errorf("marshal gap: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    gap.AttemptID,
		Timestamp:    gap.OccurredAt,
		Type:         p.topo.RoutingKey,
		Body:         body,
	}
	if p.signer != nil && p.signer.CanSign() {
		sig, err := p.signer.Sign(body)
		if err != nil {
			return fmt.Errorf("sign gap: %w", err)
		}
		pub.Headers = amqp.Table{
			headerSignature: base64.StdEncoding.EncodeToString(sig),
			headerKeyID:     p.signer.KeyID(),
		}
	}

	conf, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.topo.Exchange, p.topo.RoutingKey, false, false, pub)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if conf == nil {
		return nil
	}
	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("publish confirm: %w", err)
	}
	if !acked {
		return errors.New("publish nacked by broker")
	}
	return nil
}

var _ usecase.ReconciliationSink = (*RabbitProducer)(nil)
