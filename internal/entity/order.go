package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// Food is a catalog item as returned by the backend.
type Food struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
	Category    int64           `json:"category,omitempty"`
}

// Order is owned by the backend. The terminal only holds a transient copy.
// IsPaid flips false->true once and never changes afterwards.
type Order struct {
	ID                int64           `json:"id"`
	Food              *Food           `json:"food"`
	Quantity          int             `json:"quantity"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	User              string          `json:"user"`
	Vendor            string          `json:"vendor"`
	VendorPhoneNumber string          `json:"vendor_phone_number"`
	UserPhoneNumber   string          `json:"user_phone_number"`
	IsPaid            bool            `json:"is_paid"`
	CreatedAt         time.Time       `json:"created_at"`
}

// TransferRequest is built fresh per attempt and never persisted.
type TransferRequest struct {
	RecipientPhone string
	Amount         decimal.Decimal
}

func (t TransferRequest) Validate() error {
	if strings.TrimSpace(t.RecipientPhone) == "" || !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Role is the relation between the signed-in user and an order.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleVendor Role = "vendor"
	RoleOther  Role = "other"
)

// RoleOf compares by email, the same key the backend puts in user/vendor.
func (o Order) RoleOf(email string) Role {
	switch {
	case email == "":
		return RoleOther
	case o.User == email:
		return RoleBuyer
	case o.Vendor == email:
		return RoleVendor
	default:
		return RoleOther
	}
}

// Total is the client-side order total.
func Total(price decimal.Decimal, quantity int) (decimal.Decimal, error) {
	if quantity < 1 {
		return decimal.Zero, ErrInvalidQuantity
	}
	if price.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return price.Mul(decimal.NewFromInt(int64(quantity))).Round(2), nil
}
