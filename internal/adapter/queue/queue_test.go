package queue_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aq2208/campuspay-terminal/configs"
	"github.com/aq2208/campuspay-terminal/internal/adapter/queue"
	"github.com/aq2208/campuspay-terminal/internal/logging"
	"github.com/aq2208/campuspay-terminal/internal/security"
	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

type fakeAcker struct {
	mu     sync.Mutex
	acks   int
	nacks  int
	requeu []bool
}

func (a *fakeAcker) Ack(uint64, bool) error {
	a.mu.Lock()
	a.acks++
	a.mu.Unlock()
	return nil
}

func (a *fakeAcker) Nack(_ uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	a.nacks++
	a.requeu = append(a.requeu, requeue)
	a.mu.Unlock()
	return nil
}

func (a *fakeAcker) Reject(uint64, bool) error { return nil }

type fakeConsumeChannel struct {
	msgs chan amqp.Delivery
}

func (c *fakeConsumeChannel) Qos(int, int, bool) error { return nil }
func (c *fakeConsumeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return c.msgs, nil
}

type fakePublishChannel struct {
	published []amqp.Publishing
	keys      []string
	confirm   bool
}

func (c *fakePublishChannel) ExchangeDeclare(string, string, bool, bool, bool, bool, amqp.Table) error {
	return nil
}

func (c *fakePublishChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{Name: name}, nil
}

func (c *fakePublishChannel) QueueBind(string, string, string, bool, amqp.Table) error { return nil }

func (c *fakePublishChannel) Confirm(bool) error {
	c.confirm = true
	return nil
}

func (c *fakePublishChannel) PublishWithDeferredConfirmWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error) {
	c.keys = append(c.keys, key)
	c.published = append(c.published, msg)
	return nil, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	gaps []usecase.Gap
	err  error
}

func (n *recordingNotifier) NotifyGap(_ context.Context, g usecase.Gap) error {
	n.mu.Lock()
	n.gaps = append(n.gaps, g)
	n.mu.Unlock()
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.gaps)
}

func signingCrypto(t *testing.T) security.CryptoService {
	t.Helper()
	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(pk)
	require.NoError(t, err)
	key := make([]byte, 32)
	_, err = rand.Read(key)
	require.NoError(t, err)

	var cfg configs.Config
	cfg.CryptoConfig.AES256B64 = base64.RawURLEncoding.EncodeToString(key)
	cfg.CryptoConfig.RSAPriPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
	cm, err := security.NewCryptoMaterial(cfg)
	require.NoError(t, err)
	cs, err := security.NewCryptoService(cm)
	require.NoError(t, err)
	return cs
}

func sampleGap() usecase.Gap {
	return usecase.Gap{
		AttemptID:  "att-1",
		OrderID:    42,
		Flow:       usecase.FlowNFC,
		Recipient:  "09171234567",
		Amount:     decimal.RequireFromString("150.00"),
		Reason:     "Internal Server Error",
		OccurredAt: time.Now().UTC(),
	}
}

var topo = queue.Topology{Exchange: "payment.events", RoutingKey: "payment.gap", Queue: "payment.reconcile.q"}

func TestRabbitProducer_Flag_SignsAndConsumerVerifies(t *testing.T) {
	cs := signingCrypto(t)
	pubCh := &fakePublishChannel{}
	p, err := queue.NewRabbitProducer(pubCh, topo, cs)
	require.NoError(t, err)
	assert.True(t, pubCh.confirm)

	require.NoError(t, p.Flag(context.Background(), sampleGap()))
	require.Len(t, pubCh.published, 1)
	msg := pubCh.published[0]
	assert.Equal(t, "payment.gap", pubCh.keys[0])
	assert.Equal(t, "att-1", msg.MessageId)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.NotEmpty(t, msg.Headers["x-signature"])

	n := &recordingNotifier{}
	h := queue.NewGapHandler(cs, n)
	require.NoError(t, h.Handle(context.Background(), amqp.Delivery{Body: msg.Body, Headers: msg.Headers}))
	require.Equal(t, 1, n.count())
	assert.Equal(t, int64(42), n.gaps[0].OrderID)
	assert.Equal(t, "150.00", n.gaps[0].Amount.StringFixed(2))

	tampered := append([]byte(nil), msg.Body...)
	tampered[len(tampered)-2] = ' '
	err = h.Handle(context.Background(), amqp.Delivery{Body: tampered, Headers: msg.Headers})
	assert.ErrorIs(t, err, queue.ErrPoison)

	err = h.Handle(context.Background(), amqp.Delivery{Body: msg.Body})
	assert.ErrorIs(t, err, queue.ErrPoison)
	assert.Equal(t, 1, n.count())
}

func TestRabbitProducer_Flag_Unsigned(t *testing.T) {
	pubCh := &fakePublishChannel{}
	p, err := queue.NewRabbitProducer(pubCh, topo, nil)
	require.NoError(t, err)

	require.NoError(t, p.Flag(context.Background(), sampleGap()))
	assert.Nil(t, pubCh.published[0].Headers)
}

func TestRouter_AcksNacksAndDropsPoison(t *testing.T) {
	ch := &fakeConsumeChannel{msgs: make(chan amqp.Delivery, 3)}
	acker := &fakeAcker{}
	calls := 0
	h := queue.JSONHandler[usecase.Gap]{HandleFunc: func(_ context.Context, g usecase.Gap) error {
		calls++
		if g.OrderID == 2 {
			return errors.New("telegram down")
		}
		return nil
	}}

	r := queue.NewRouter(ch, queue.WithLogger(logging.Discard()), queue.WithTimeout(time.Second))
	r.Register(topo.Queue, h)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Start(ctx))

	ch.msgs <- amqp.Delivery{Acknowledger: acker, Body: []byte(`{"order_id":1}`)}
	ch.msgs <- amqp.Delivery{Acknowledger: acker, Body: []byte(`{"order_id":2}`)}
	ch.msgs <- amqp.Delivery{Acknowledger: acker, Body: []byte(`not json`)}
	close(ch.msgs)
	r.Wait()

	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, acker.acks)
	assert.Equal(t, 2, acker.nacks)
	assert.Equal(t, []bool{true, false}, acker.requeu)
}

func TestRouter_WithoutRequeueDropsFailuresAndScopesLogger(t *testing.T) {
	ch := &fakeConsumeChannel{msgs: make(chan amqp.Delivery, 2)}
	acker := &fakeAcker{}
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	n := &recordingNotifier{err: errors.New("telegram down")}

	r := queue.NewRouter(ch, queue.WithLogger(log), queue.WithRequeue(false))
	r.Register(topo.Queue, queue.NewGapHandler(nil, n))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Start(ctx))

	ch.msgs <- amqp.Delivery{Acknowledger: acker, MessageId: "att-1", Body: []byte(`{"order_id":42}`)}
	close(ch.msgs)
	r.Wait()

	assert.Equal(t, []bool{false}, acker.requeu)
	assert.Contains(t, buf.String(), `"msg":"reconciliation gap received"`)
	assert.Contains(t, buf.String(), `"message_id":"att-1"`)
	assert.Contains(t, buf.String(), `"queue":"payment.reconcile.q"`)
}
