package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aq2208/campuspay-terminal/internal/logging"
	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

type fakeSession struct {
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "m" }
func (s *fakeSession) GenerationID() int32                      { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) Commit()                                  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context                 { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct{ msgs chan *sarama.ConsumerMessage }

func (c *fakeClaim) Topic() string                            { return "orders.events" }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

func TestOrderPaidHandler_MarksSettled(t *testing.T) {
	ledger := usecase.NewMemoryLedger()
	h := NewOrderPaidHandler(ledger, logging.Discard())
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, usecase.OrderEventMsg{OrderID: 7, IsPaid: false}))
	st, _ := ledger.Status(ctx, 7)
	assert.Equal(t, usecase.SettlementNone, st)

	require.NoError(t, h.Handle(ctx, usecase.OrderEventMsg{OrderID: 7, IsPaid: true}))
	st, _ = ledger.Status(ctx, 7)
	assert.Equal(t, usecase.SettlementSettled, st)

	require.NoError(t, h.Handle(ctx, usecase.OrderEventMsg{OrderID: 8, Status: "paid"}))
	st, _ = ledger.Status(ctx, 8)
	assert.Equal(t, usecase.SettlementSettled, st)
}

func TestClaimHandler_MarksHandledAndPoison(t *testing.T) {
	var seen []int64
	h := &claimHandler{
		log: logging.Discard(),
		handle: func(_ context.Context, ev usecase.OrderEventMsg) error {
			seen = append(seen, ev.OrderID)
			if ev.OrderID == 2 {
				return errors.New("redis down")
			}
			return nil
		},
	}
	sess := &fakeSession{ctx: context.Background()}
	claim := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage, 3)}
	claim.msgs <- &sarama.ConsumerMessage{Offset: 10, Value: []byte(`{"order_id":1,"is_paid":true}`)}
	claim.msgs <- &sarama.ConsumerMessage{Offset: 11, Value: []byte(`{"order_id":2,"is_paid":true}`)}
	claim.msgs <- &sarama.ConsumerMessage{Offset: 12, Value: []byte(`{broken`)}
	close(claim.msgs)

	require.NoError(t, h.ConsumeClaim(sess, claim))

	assert.Equal(t, []int64{1, 2}, seen)
	assert.Equal(t, []int64{10, 12}, sess.marked)
}
