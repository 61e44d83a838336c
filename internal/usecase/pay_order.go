package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	domain "github.com/aq2208/campuspay-terminal/internal/entity"
	"github.com/aq2208/campuspay-terminal/internal/session"
)

const reasonBadPassword = "Incorrect password."

// PayResult is what the buyer sees after "Pay Now".
type PayResult struct {
	AttemptID string `json:"attempt_id"`
	Message   string `json:"message"`
}

// PayOrder is the buyer-side payment: the buyer re-enters their password,
// pays the vendor and the order is marked paid.
type PayOrder struct {
	be    BuyerBackend
	set   *Settlement
	log   *slog.Logger
	newID func() string
}

func NewPayOrder(be BuyerBackend, set *Settlement, log *slog.Logger) *PayOrder {
	if log == nil {
		log = slog.Default()
	}
	if set == nil {
		set = &Settlement{}
	}
	if set.Log == nil {
		set.Log = log
	}
	set.init()
	return &PayOrder{be: be, set: set, log: log, newID: uuid.NewString}
}

func (p *PayOrder) Execute(ctx context.Context, sess session.Context, order domain.Order, password string) (PayResult, error) {
	if password == "" {
		return PayResult{}, ErrEmptyPassword
	}
	if order.IsPaid {
		return PayResult{}, ErrAlreadyPaid
	}
	req := domain.TransferRequest{RecipientPhone: strings.TrimSpace(order.VendorPhoneNumber), Amount: order.TotalPrice}
	if err := req.Validate(); err != nil {
		return PayResult{}, err
	}

	release, err := p.set.claim(ctx, order.ID)
	if err != nil {
		return PayResult{}, err
	}
	defer release()
	ctx = context.WithoutCancel(ctx)

	a := Attempt{
		ID:        p.newID(),
		OrderID:   order.ID,
		Flow:      FlowPayNow,
		Amount:    req.Amount,
		Recipient: req.RecipientPhone,
		CreatedAt: p.set.Now(),
	}
	log := p.log.With("order_id", order.ID, "attempt_id", a.ID)
	res := PayResult{AttemptID: a.ID}

	err = p.set.timed(FlowPayNow, StepVerify, func() error {
		return p.be.VerifyPassword(ctx, sess, password)
	})
	if err != nil {
		return res, p.fail(ctx, a, StateVerifyFailed, StepVerify, passwordReason(err), err)
	}

	var msg string
	err = p.set.timed(FlowPayNow, StepTransfer, func() error {
		var terr error
		msg, terr = p.be.Transfer(ctx, sess, req)
		return terr
	})
	if err != nil {
		log.Warn("pay now transfer failed", "error", err)
		return res, p.fail(ctx, a, StateTransferFailed, StepTransfer, domain.Reason(err), err)
	}
	p.set.transferred(ctx, a)

	err = p.set.timed(FlowPayNow, StepSettle, func() error {
		return p.be.PayOrder(ctx, sess, order.ID)
	})
	if err != nil {
		res.Message = alertSettleFailed
		return res, p.fail(ctx, a, StateSettleFailed, StepSettle, domain.Reason(err), err)
	}
	p.set.settled(ctx, a)

	a.Outcome = string(StateDone)
	p.set.finish(ctx, a)
	log.Info("order paid", "amount", req.Amount.StringFixed(2))

	res.Message = msg
	if res.Message == "" {
		res.Message = alertConfirmed
	}
	return res, nil
}

func (p *PayOrder) fail(ctx context.Context, a Attempt, st State, step Step, reason string, cause error) error {
	a.Outcome = string(st)
	a.Reason = reason
	if st == StateSettleFailed {
		p.set.flagGap(ctx, a)
	}
	p.set.finish(ctx, a)
	return &StepError{Step: step, Reason: reason, Err: cause}
}

// passwordReason hides the backend wording of a rejected password.
func passwordReason(err error) string {
	var re *domain.RemoteError
	if errors.As(err, &re) {
		return reasonBadPassword
	}
	return domain.Reason(err)
}
