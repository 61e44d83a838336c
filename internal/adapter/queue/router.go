package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/aq2208/campuspay-terminal/internal/logging"
)

// ConsumeChannel is the part of *amqp.Channel the router needs.
type ConsumeChannel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Router manages multiple consumers (one per registered queue) on a single AMQP channel.
type Router struct {
	ch            ConsumeChannel
	log           *slog.Logger
	prefetch      int
	callTimeout   time.Duration
	requeueOnErr  bool
	registrations []registration
	wg            sync.WaitGroup
}

type registration struct {
	queueName   string
	handler     Handler
	consumerTag string
}

type RouterOption func(*Router)

func WithPrefetch(n int) RouterOption          { return func(r *Router) { r.prefetch = n } }
func WithTimeout(d time.Duration) RouterOption { return func(r *Router) { r.callTimeout = d } }
func WithRequeue(b bool) RouterOption          { return func(r *Router) { r.requeueOnErr = b } }
func WithLogger(l *slog.Logger) RouterOption   { return func(r *Router) { r.log = l } }

// NewRouter constructs a Router. Defaults: prefetch=10, timeout=10s, requeueOnErr=true.
func NewRouter(ch ConsumeChannel, opts ...RouterOption) *Router {
	r := &Router{
		ch:           ch,
		log:          slog.Default(),
		prefetch:     10,
		callTimeout:  10 * time.Second,
		requeueOnErr: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register associates a queue with a handler. Call multiple times for multiple queues.
func (r *Router) Register(queueName string, h Handler) {
	r.registrations = append(r.registrations, registration{
		queueName:   queueName,
		handler:     h,
		consumerTag: "c_" + queueName,
	})
}

// Start begins consuming; non-blocking (one goroutine per queue). Consumers
// stop when ctx is done or the broker closes the delivery channel.
func (r *Router) Start(ctx context.Context) error {
	if err := r.ch.Qos(r.prefetch, 0, false); err != nil {
		return err
	}

	for _, reg := range r.registrations {
		deliveries, err := r.ch.Consume(
			reg.queueName,
			reg.consumerTag,
			false, // manual ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			return err
		}
		r.wg.Add(1)
		go r.consume(ctx, reg, deliveries)
	}
	return nil
}

// Wait blocks until every consumer goroutine has stopped.
func (r *Router) Wait() { r.wg.Wait() }

func (r *Router) consume(ctx context.Context, reg registration, msgs <-chan amqp.Delivery) {
	defer r.wg.Done()
	log := r.log.With("queue", reg.queueName, "tag", reg.consumerTag)
	for {
		select {
		case <-ctx.Done():
			log.Info("consumer stopping")
			return
		case d, ok := <-msgs:
			if !ok {
				log.Info("consumer stopped")
				return
			}
			r.dispatch(ctx, log, reg.handler, d)
		}
	}
}

func (r *Router) dispatch(ctx context.Context, log *slog.Logger, h Handler, d amqp.Delivery) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	callCtx = logging.WithCtx(callCtx, log.With("message_id", d.MessageId))
	err := h.Handle(callCtx, d)
	cancel()

	if err == nil {
		_ = d.Ack(false)
		return
	}
	requeue := r.requeueOnErr && !errors.Is(err, ErrPoison)
	log.Error("handler error", "routing_key", d.RoutingKey, "message_id", d.MessageId, "error", err, "requeue", requeue)
	_ = d.Nack(false, requeue)
}
