package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserDetails is the backend /details/ payload.
type UserDetails struct {
	Email       string          `json:"email"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	PhoneNumber string          `json:"phone_number"`
	IsVendor    bool            `json:"is_vendor"`
	Height      decimal.Decimal `json:"height"`
	Weight      decimal.Decimal `json:"weight"`
}

type Balance struct {
	Balance decimal.Decimal `json:"balance"`
}

type Transaction struct {
	ID          int64           `json:"id"`
	Sender      string          `json:"sender"`
	Recipient   string          `json:"recipient"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	Date        time.Time       `json:"date"`
}

type TopUpRequest struct {
	ID            int64           `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	IsApproved    bool            `json:"is_approved"`
	UserFirstName string          `json:"user_first_name,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type Notification struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type Canteen struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

type Category struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Canteen int64  `json:"canteen,omitempty"`
}

// Registration is the /register/ form.
type Registration struct {
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Password    string `json:"password"`
}
