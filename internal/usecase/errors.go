package usecase

import (
	"errors"
	"fmt"

	"github.com/aq2208/campuspay-terminal/internal/nfc"
)

var (
	ErrReaderUnavailable = nfc.ErrReaderUnavailable
	ErrTagRead           = nfc.ErrTagRead

	// ErrNoCredential means the tag carried nothing decodable. Not alerted.
	ErrNoCredential = errors.New("no valid nfc data found")

	ErrVerification = errors.New("verification failed")
	ErrTransfer     = errors.New("transfer failed")
	ErrSettlement   = errors.New("settlement failed")

	ErrBusy                  = errors.New("a confirmation is already in progress for this order")
	ErrInvalidTransition     = errors.New("action not allowed in the current state")
	ErrAlreadyPaid           = errors.New("order is already paid")
	ErrPendingReconciliation = errors.New("order was charged but not marked paid; awaiting reconciliation")
	ErrFlowNotFound          = errors.New("no confirmation open for this order")
	ErrOrderNotFound         = errors.New("order not found")
	ErrEmptySecret           = errors.New("secret is required")
	ErrEmptyPassword         = errors.New("password is required")
)

type Step string

const (
	StepVerify   Step = "verify"
	StepTransfer Step = "transfer"
	StepSettle   Step = "settle"
)

// StepError is a failed backend step. errors.Is matches ErrVerification,
// ErrTransfer or ErrSettlement by step, and the underlying cause.
type StepError struct {
	Step   Step
	Reason string
	Err    error
}

func (e *StepError) sentinel() error {
	switch e.Step {
	case StepVerify:
		return ErrVerification
	case StepTransfer:
		return ErrTransfer
	default:
		return ErrSettlement
	}
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s", e.sentinel(), e.Reason)
}

func (e *StepError) Unwrap() []error {
	return []error{e.sentinel(), e.Err}
}
