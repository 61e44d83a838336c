package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/aq2208/campuspay-terminal/internal/entity"
	"github.com/aq2208/campuspay-terminal/internal/nfc"
	"github.com/aq2208/campuspay-terminal/internal/session"
	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

type fakeReader struct {
	startErr error
	readFn   func(ctx context.Context) (nfc.Tag, error)
}

func (r *fakeReader) Start(context.Context) error { return r.startErr }
func (r *fakeReader) Ready() bool                 { return r.startErr == nil }
func (r *fakeReader) ReadTag(ctx context.Context) (nfc.Tag, error) {
	return r.readFn(ctx)
}

func tagReader(tag nfc.Tag) *fakeReader {
	return &fakeReader{readFn: func(context.Context) (nfc.Tag, error) { return tag, nil }}
}

func studentTag() nfc.Tag {
	return nfc.Tag{ID: "04a2", Records: []nfc.Record{{
		TNF:     1,
		Type:    []byte("T"),
		Payload: nfc.TextPayload("student@uni.edu", " 09171234567 ", "secret123"),
	}}}
}

// fakeBackend records the backend calls in order.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	verifyUserFn     func(ctx context.Context, cred nfc.Credential) error
	verifyPasswordFn func(ctx context.Context, password string) error
	transferFn       func(ctx context.Context, req domain.TransferRequest) (string, error)
	payOrderFn       func(ctx context.Context, id int64) error

	creds     []nfc.Credential
	transfers []domain.TransferRequest
	paid      []int64
}

func (b *fakeBackend) record(name string) {
	b.mu.Lock()
	b.calls = append(b.calls, name)
	b.mu.Unlock()
}

func (b *fakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *fakeBackend) VerifyUser(ctx context.Context, _ session.Context, cred nfc.Credential) error {
	b.record("verify-user")
	b.mu.Lock()
	b.creds = append(b.creds, cred)
	b.mu.Unlock()
	if b.verifyUserFn != nil {
		return b.verifyUserFn(ctx, cred)
	}
	return nil
}

func (b *fakeBackend) VerifyPassword(ctx context.Context, _ session.Context, password string) error {
	b.record("verify-password")
	if b.verifyPasswordFn != nil {
		return b.verifyPasswordFn(ctx, password)
	}
	return nil
}

func (b *fakeBackend) TransferBuyerAndVendor(ctx context.Context, _ session.Context, req domain.TransferRequest) error {
	b.record("transfer-buyer-vendor")
	_, err := b.transfer(ctx, req)
	return err
}

func (b *fakeBackend) Transfer(ctx context.Context, _ session.Context, req domain.TransferRequest) (string, error) {
	b.record("transfer")
	return b.transfer(ctx, req)
}

func (b *fakeBackend) transfer(ctx context.Context, req domain.TransferRequest) (string, error) {
	b.mu.Lock()
	b.transfers = append(b.transfers, req)
	b.mu.Unlock()
	if b.transferFn != nil {
		return b.transferFn(ctx, req)
	}
	return "Transfer successful", nil
}

func (b *fakeBackend) PayOrder(ctx context.Context, _ session.Context, id int64) error {
	b.record("pay-order")
	b.mu.Lock()
	b.paid = append(b.paid, id)
	b.mu.Unlock()
	if b.payOrderFn != nil {
		return b.payOrderFn(ctx, id)
	}
	return nil
}

type fakeJournal struct {
	mu       sync.Mutex
	attempts []usecase.Attempt
}

func (j *fakeJournal) Record(_ context.Context, a usecase.Attempt) error {
	j.mu.Lock()
	j.attempts = append(j.attempts, a)
	j.mu.Unlock()
	return nil
}

func (j *fakeJournal) ListGaps(context.Context, int) ([]usecase.Attempt, error) { return nil, nil }
func (j *fakeJournal) MarkReconciled(context.Context, string) error              { return nil }

func (j *fakeJournal) All() []usecase.Attempt {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]usecase.Attempt(nil), j.attempts...)
}

type fakeSink struct {
	mu   sync.Mutex
	gaps []usecase.Gap
}

func (s *fakeSink) Flag(_ context.Context, g usecase.Gap) error {
	s.mu.Lock()
	s.gaps = append(s.gaps, g)
	s.mu.Unlock()
	return nil
}

type countingMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
	gaps     int
}

func (m *countingMetrics) Outcome(flow, outcome string) {
	m.mu.Lock()
	if m.outcomes == nil {
		m.outcomes = map[string]int{}
	}
	m.outcomes[flow+"/"+outcome]++
	m.mu.Unlock()
}

func (m *countingMetrics) StepDuration(string, string, time.Duration) {}

func (m *countingMetrics) Gap(string) {
	m.mu.Lock()
	m.gaps++
	m.mu.Unlock()
}

func order42() domain.Order {
	return domain.Order{
		ID:                42,
		Quantity:          2,
		TotalPrice:        decimal.RequireFromString("150.00"),
		User:              "student@uni.edu",
		Vendor:            "canteen@uni.edu",
		VendorPhoneNumber: "09990000001",
		UserPhoneNumber:   "09171234567",
	}
}

var sess = session.Context{AccessToken: "access", CSRFToken: "csrf"}

// stallingLedger answers the first Status read from the wrapped ledger and
// then holds the answer until resume is closed.
type stallingLedger struct {
	usecase.SettlementLedger

	once    sync.Once
	reading chan struct{}
	resume  chan struct{}
}

func newStallingLedger(inner usecase.SettlementLedger) *stallingLedger {
	return &stallingLedger{SettlementLedger: inner, reading: make(chan struct{}), resume: make(chan struct{})}
}

func (l *stallingLedger) Status(ctx context.Context, orderID int64) (usecase.SettlementStatus, error) {
	st, err := l.SettlementLedger.Status(ctx, orderID)
	first := false
	l.once.Do(func() { first = true })
	if first {
		close(l.reading)
		<-l.resume
	}
	return st, err
}

// expiringLocks is an in-process LockStore that reports a TTL and counts extensions.
type expiringLocks struct {
	*usecase.MemoryLocks
	ttl time.Duration

	mu      sync.Mutex
	extends int
}

func (l *expiringLocks) TTL() time.Duration { return l.ttl }

func (l *expiringLocks) Extend(context.Context, string, string) (bool, error) {
	l.mu.Lock()
	l.extends++
	l.mu.Unlock()
	return true, nil
}

func (l *expiringLocks) Extends() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.extends
}
