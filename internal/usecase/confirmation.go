package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	domain "github.com/aq2208/campuspay-terminal/internal/entity"
	"github.com/aq2208/campuspay-terminal/internal/nfc"
)

type State string

const (
	StateIdle           State = "IDLE"
	StateReading        State = "READING"
	StateDecoded        State = "DECODED"
	StateVerifying      State = "VERIFYING"
	StateVerifyFailed   State = "VERIFY_FAILED"
	StateTransferring   State = "TRANSFERRING"
	StateTransferFailed State = "TRANSFER_FAILED"
	StateSettling       State = "SETTLING"
	StateSettleFailed   State = "SETTLE_FAILED"
	StateDone           State = "DONE"
)

const (
	alertReadFailed   = "Error reading NFC tag."
	alertSettleFailed = "Payment was transferred but the order could not be marked paid. It has been flagged for reconciliation."
	alertConfirmed    = "Payment confirmed."
)

// busy states have a hardware or backend call in flight.
func (s State) busy() bool {
	switch s {
	case StateReading, StateVerifying, StateTransferring, StateSettling:
		return true
	}
	return false
}

// readable states accept a new tag read.
func (s State) readable() bool {
	switch s {
	case StateIdle, StateDecoded, StateVerifyFailed, StateTransferFailed:
		return true
	}
	return false
}

func rejectFrom(s State) error {
	if s.busy() {
		return ErrBusy
	}
	return ErrInvalidTransition
}

// Snapshot is the read-only view of a confirmation handed to the presentation layer.
type Snapshot struct {
	AttemptID string          `json:"attempt_id,omitempty"`
	OrderID   int64           `json:"order_id"`
	State     State           `json:"state"`
	Identity  string          `json:"identity,omitempty"`
	Phone     string          `json:"phone,omitempty"`
	SecretSet bool            `json:"secret_set"`
	Amount    decimal.Decimal `json:"amount"`
	Recipient string          `json:"recipient"`
	Alert     string          `json:"alert,omitempty"`
	Refresh   bool            `json:"refresh"`
}

// flow is one order's confirmation. Guarded by ConfirmPayment.mu.
type flow struct {
	order     domain.Order
	state     State
	cred      *nfc.Credential
	attemptID string
	alert     string
	refresh   bool

	// readSeq invalidates a read that was cancelled while in flight.
	readSeq    uint64
	cancelRead context.CancelFunc
	readDone   chan struct{}
}

func (f *flow) snapshot() Snapshot {
	s := Snapshot{
		AttemptID: f.attemptID,
		OrderID:   f.order.ID,
		State:     f.state,
		Amount:    f.order.TotalPrice,
		Recipient: f.order.UserPhoneNumber,
		Alert:     f.alert,
		Refresh:   f.refresh,
	}
	if f.cred != nil {
		s.SecretSet = f.cred.Secret != ""
		if f.state == StateDecoded {
			s.Identity = f.cred.Identity
			s.Phone = f.cred.Phone
		}
	}
	return s
}
