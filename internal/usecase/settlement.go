package usecase

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

const (
	FlowNFC    = "nfc"
	FlowPayNow = "pay_now"

	lockScope = "order.settle"
)

// Settlement groups the collaborators shared by every flow that moves money
// for an order. Locks and Ledger default to in-process implementations.
type Settlement struct {
	Locks   LockStore
	Ledger  SettlementLedger
	Journal AttemptJournal
	Gaps    ReconciliationSink
	Metrics FlowMetrics
	Log     *slog.Logger
	Now     func() time.Time
}

func (s *Settlement) init() {
	if s.Locks == nil {
		s.Locks = NewMemoryLocks()
	}
	if s.Ledger == nil {
		s.Ledger = NewMemoryLedger()
	}
	if s.Metrics == nil {
		s.Metrics = noopMetrics{}
	}
	if s.Log == nil {
		s.Log = slog.Default()
	}
	if s.Now == nil {
		s.Now = time.Now
	}
}

// guard refuses orders the ledger already knows money moved for. A ledger
// outage is logged and does not block payments.
func (s *Settlement) guard(ctx context.Context, orderID int64) error {
	st, err := s.Ledger.Status(ctx, orderID)
	if err != nil {
		s.Log.Warn("settlement ledger unavailable", "order_id", orderID, "error", err)
		return nil
	}
	switch st {
	case SettlementSettled:
		return ErrAlreadyPaid
	case SettlementTransferred:
		return ErrPendingReconciliation
	}
	return nil
}

// claim takes the per-order lock and then consults the ledger while holding
// it, so a settle that finished under another holder is always seen.
func (s *Settlement) claim(ctx context.Context, orderID int64) (func(), error) {
	release, err := s.acquire(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.guard(ctx, orderID); err != nil {
		release()
		return nil, err
	}
	return release, nil
}

// acquire takes the per-order lock. The returned func releases it.
func (s *Settlement) acquire(ctx context.Context, orderID int64) (func(), error) {
	key := strconv.FormatInt(orderID, 10)
	ok, err := s.Locks.TryLock(ctx, lockScope, key)
	if err != nil {
		s.Log.Warn("order lock unavailable", "order_id", orderID, "error", err)
		return func() {}, nil
	}
	if !ok {
		return nil, ErrBusy
	}
	stop := s.keepAlive(ctx, orderID, key)
	return func() {
		stop()
		if err := s.Locks.Unlock(context.WithoutCancel(ctx), lockScope, key); err != nil {
			s.Log.Warn("order unlock failed", "order_id", orderID, "error", err)
		}
	}, nil
}

// keepAlive extends an expiring lock every third of its TTL until the
// returned func is called.
func (s *Settlement) keepAlive(ctx context.Context, orderID int64, key string) func() {
	el, ok := s.Locks.(ExpiringLockStore)
	if !ok || el.TTL() <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(el.TTL() / 3)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				held, err := el.Extend(ctx, lockScope, key)
				if ctx.Err() != nil {
					return
				}
				if err != nil {
					s.Log.Warn("order lock extend failed", "order_id", orderID, "error", err)
				} else if !held {
					s.Log.Error("order lock lost while settling", "order_id", orderID)
					return
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (s *Settlement) transferred(ctx context.Context, a Attempt) {
	if err := s.Ledger.MarkTransferred(context.WithoutCancel(ctx), a.OrderID, a.ID); err != nil {
		s.Log.Error("ledger mark transferred failed", "order_id", a.OrderID, "attempt_id", a.ID, "error", err)
	}
}

func (s *Settlement) settled(ctx context.Context, a Attempt) {
	if err := s.Ledger.MarkSettled(context.WithoutCancel(ctx), a.OrderID); err != nil {
		s.Log.Error("ledger mark settled failed", "order_id", a.OrderID, "attempt_id", a.ID, "error", err)
	}
}

// flagGap reports a transfer whose order stayed unpaid. It never retries or
// reverses the transfer.
func (s *Settlement) flagGap(ctx context.Context, a Attempt) {
	ctx = context.WithoutCancel(ctx)
	s.Metrics.Gap(a.Flow)
	s.Log.Error("RECONCILIATION REQUIRED: funds moved but order not marked paid",
		"order_id", a.OrderID, "attempt_id", a.ID, "flow", a.Flow,
		"recipient", a.Recipient, "amount", a.Amount.StringFixed(2), "reason", a.Reason)

	if s.Gaps == nil {
		return
	}
	gap := Gap{
		AttemptID:  a.ID,
		OrderID:    a.OrderID,
		Flow:       a.Flow,
		Recipient:  a.Recipient,
		Amount:     a.Amount,
		Reason:     a.Reason,
		OccurredAt: a.CreatedAt,
	}
	if err := s.Gaps.Flag(ctx, gap); err != nil {
		s.Log.Error("reconciliation flag not delivered", "order_id", a.OrderID, "attempt_id", a.ID, "error", err)
	}
}

// finish journals and counts a terminal outcome.
func (s *Settlement) finish(ctx context.Context, a Attempt) {
	s.Metrics.Outcome(a.Flow, a.Outcome)
	if s.Journal == nil {
		return
	}
	if err := s.Journal.Record(context.WithoutCancel(ctx), a); err != nil {
		s.Log.Error("attempt journal write failed", "order_id", a.OrderID, "attempt_id", a.ID, "error", err)
	}
}

func (s *Settlement) timed(flow string, step Step, fn func() error) error {
	start := s.Now()
	err := fn()
	s.Metrics.StepDuration(flow, string(step), s.Now().Sub(start))
	return err
}

// MemoryLocks is a process-local LockStore.
type MemoryLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryLocks() *MemoryLocks { return &MemoryLocks{held: map[string]struct{}{}} }

func (m *MemoryLocks) TryLock(_ context.Context, scope, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := scope + ":" + key
	if _, ok := m.held[k]; ok {
		return false, nil
	}
	m.held[k] = struct{}{}
	return true, nil
}

func (m *MemoryLocks) Unlock(_ context.Context, scope, key string) error {
	m.mu.Lock()
	delete(m.held, scope+":"+key)
	m.mu.Unlock()
	return nil
}

// MemoryLedger is a process-local SettlementLedger.
type MemoryLedger struct {
	mu sync.Mutex
	m  map[int64]SettlementStatus
}

func NewMemoryLedger() *MemoryLedger { return &MemoryLedger{m: map[int64]SettlementStatus{}} }

func (l *MemoryLedger) Status(_ context.Context, orderID int64) (SettlementStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m[orderID], nil
}

func (l *MemoryLedger) MarkTransferred(_ context.Context, orderID int64, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.m[orderID] != SettlementSettled {
		l.m[orderID] = SettlementTransferred
	}
	return nil
}

func (l *MemoryLedger) MarkSettled(_ context.Context, orderID int64) error {
	l.mu.Lock()
	l.m[orderID] = SettlementSettled
	l.mu.Unlock()
	return nil
}

// Clear forgets the order, used once an operator has reconciled it.
func (l *MemoryLedger) Clear(_ context.Context, orderID int64) error {
	l.mu.Lock()
	delete(l.m, orderID)
	l.mu.Unlock()
	return nil
}

type noopMetrics struct{}

func (noopMetrics) Outcome(string, string)                    {}
func (noopMetrics) StepDuration(string, string, time.Duration) {}
func (noopMetrics) Gap(string)                                 {}
