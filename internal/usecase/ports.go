package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/aq2208/campuspay-terminal/internal/entity"
	"github.com/aq2208/campuspay-terminal/internal/nfc"
	"github.com/aq2208/campuspay-terminal/internal/session"
)

// TagReader is the NFC side of the confirmation flow.
type TagReader interface {
	Start(ctx context.Context) error
	Ready() bool
	ReadTag(ctx context.Context) (nfc.Tag, error)
}

// PaymentBackend is what the NFC confirmation needs from the backend.
type PaymentBackend interface {
	VerifyUser(ctx context.Context, sc session.Context, cred nfc.Credential) error
	TransferBuyerAndVendor(ctx context.Context, sc session.Context, req domain.TransferRequest) error
	PayOrder(ctx context.Context, sc session.Context, orderID int64) error
}

// BuyerBackend is what the buyer-side flows need.
type BuyerBackend interface {
	VerifyPassword(ctx context.Context, sc session.Context, password string) error
	Transfer(ctx context.Context, sc session.Context, req domain.TransferRequest) (string, error)
	PayOrder(ctx context.Context, sc session.Context, orderID int64) error
}

type OrderBackend interface {
	ListOrders(ctx context.Context, sc session.Context) ([]domain.Order, error)
	Details(ctx context.Context, sc session.Context) (domain.UserDetails, error)
	CreateOrder(ctx context.Context, sc session.Context, foodID int64, quantity int) error
}

type WalletBackend interface {
	Balance(ctx context.Context, sc session.Context) (decimal.Decimal, error)
	Transactions(ctx context.Context, sc session.Context) ([]domain.Transaction, error)
	TopUpRequests(ctx context.Context, sc session.Context) ([]domain.TopUpRequest, error)
	CreateTopUp(ctx context.Context, sc session.Context, amount decimal.Decimal) (domain.TopUpRequest, error)
}

type ProfileBackend interface {
	UpdateBodyMetrics(ctx context.Context, sc session.Context, height, weight decimal.Decimal) error
}

// LockStore guards an order against two attempts in flight at once, across terminals.
type LockStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Unlock(ctx context.Context, scope, key string) error
}

// ExpiringLockStore locks lapse after TTL unless the holder extends them.
// Backend calls carry no deadline, so holders keep extending until release.
type ExpiringLockStore interface {
	LockStore
	TTL() time.Duration
	Extend(ctx context.Context, scope, key string) (bool, error)
}

type SettlementStatus string

const (
	SettlementNone        SettlementStatus = ""
	SettlementTransferred SettlementStatus = "TRANSFERRED"
	SettlementSettled     SettlementStatus = "SETTLED"
)

// SettlementLedger remembers which orders already had money moved.
type SettlementLedger interface {
	Status(ctx context.Context, orderID int64) (SettlementStatus, error)
	MarkTransferred(ctx context.Context, orderID int64, attemptID string) error
	MarkSettled(ctx context.Context, orderID int64) error
}

// Attempt is one finished payment attempt as journaled.
type Attempt struct {
	ID         string
	OrderID    int64
	Flow       string
	Amount     decimal.Decimal
	Recipient  string
	Outcome    string
	Reason     string
	Reconciled bool
	CreatedAt  time.Time
}

type AttemptJournal interface {
	Record(ctx context.Context, a Attempt) error
	ListGaps(ctx context.Context, limit int) ([]Attempt, error)
	MarkReconciled(ctx context.Context, attemptID string) error
}

// ReconciliationSink receives transfers whose order could not be marked paid.
type ReconciliationSink interface {
	Flag(ctx context.Context, gap Gap) error
}

type FlowMetrics interface {
	Outcome(flow, outcome string)
	StepDuration(flow, step string, d time.Duration)
	Gap(flow string)
}

// GapNotifier tells an operator that a gap needs reconciling.
type GapNotifier interface {
	NotifyGap(ctx context.Context, gap Gap) error
}
