package http

import (
	"context"

	domain "github.com/aq2208/campuspay-terminal/internal/entity"
	"github.com/aq2208/campuspay-terminal/internal/session"
	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

// Sessions is the terminal's backend session owner.
type Sessions interface {
	Login(ctx context.Context, phone, password string) error
	Logout(ctx context.Context) error
	Current(ctx context.Context) (session.Context, error)
	Phone() string
}

// Accounts covers the account calls that need no flow logic.
type Accounts interface {
	Register(ctx context.Context, r domain.Registration) error
	Details(ctx context.Context, sc session.Context) (domain.UserDetails, error)
	Notifications(ctx context.Context, sc session.Context) ([]domain.Notification, error)
}

type Catalog interface {
	Canteens(ctx context.Context, sc session.Context) ([]domain.Canteen, error)
	Categories(ctx context.Context, sc session.Context, canteenID int64) ([]domain.Category, error)
	Foods(ctx context.Context, sc session.Context, categoryID int64) ([]domain.Food, error)
	FeaturedFoods(ctx context.Context, sc session.Context) ([]domain.Food, error)
}

// GapJournal is the reconciliation view of the attempt journal.
type GapJournal interface {
	ListGaps(ctx context.Context, limit int) ([]usecase.Attempt, error)
	MarkReconciled(ctx context.Context, attemptID string) error
	OrderOf(ctx context.Context, attemptID string) (int64, error)
}

// LedgerClearer drops an order's settlement marker once it is reconciled.
type LedgerClearer interface {
	Clear(ctx context.Context, orderID int64) error
}
