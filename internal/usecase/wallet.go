package usecase

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	domain "github.com/aq2208/campuspay-terminal/internal/entity"
	"github.com/aq2208/campuspay-terminal/internal/session"
)

const (
	msgTopUpApproved = "Top-up request approved. Please pay at the finance office."
	msgTopUpPending  = "Top-up request submitted. Awaiting approval."
)

// topUpFee is charged at the finance office on top of the deposit.
var topUpFee = decimal.RequireFromString("0.05")

type TopUpQuote struct {
	Amount decimal.Decimal `json:"amount"`
	Fee    decimal.Decimal `json:"fee"`
	Total  decimal.Decimal `json:"total"`
}

// QuoteTopUp computes the fee and the amount to pay for a deposit.
func QuoteTopUp(amount decimal.Decimal) (TopUpQuote, error) {
	if !amount.IsPositive() {
		return TopUpQuote{}, domain.ErrInvalidAmount
	}
	fee := amount.Mul(topUpFee).Round(2)
	return TopUpQuote{Amount: amount, Fee: fee, Total: amount.Add(fee)}, nil
}

type TopUpResult struct {
	Request domain.TopUpRequest `json:"request"`
	Quote   TopUpQuote          `json:"quote"`
	Status  string              `json:"status"`
}

type Wallet struct {
	be    WalletBackend
	users OrderBackend
}

func NewWallet(be WalletBackend, users OrderBackend) *Wallet {
	return &Wallet{be: be, users: users}
}

func (w *Wallet) Balance(ctx context.Context, sess session.Context) (decimal.Decimal, error) {
	return w.be.Balance(ctx, sess)
}

// Transactions are returned newest first.
func (w *Wallet) Transactions(ctx context.Context, sess session.Context) ([]domain.Transaction, error) {
	txs, err := w.be.Transactions(ctx, sess)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.After(txs[j].Date) })
	return txs, nil
}

// TopUps lists the signed-in user's own top-up requests.
func (w *Wallet) TopUps(ctx context.Context, sess session.Context) ([]domain.TopUpRequest, error) {
	me, err := w.users.Details(ctx, sess)
	if err != nil {
		return nil, err
	}
	all, err := w.be.TopUpRequests(ctx, sess)
	if err != nil {
		return nil, err
	}
	mine := make([]domain.TopUpRequest, 0, len(all))
	for _, r := range all {
		if r.UserFirstName == "" || r.UserFirstName == me.FirstName {
			mine = append(mine, r)
		}
	}
	return mine, nil
}

func (w *Wallet) TopUp(ctx context.Context, sess session.Context, amount decimal.Decimal) (TopUpResult, error) {
	q, err := QuoteTopUp(amount)
	if err != nil {
		return TopUpResult{}, err
	}
	req, err := w.be.CreateTopUp(ctx, sess, amount)
	if err != nil {
		return TopUpResult{}, err
	}
	status := msgTopUpPending
	if req.IsApproved {
		status = msgTopUpApproved
	}
	return TopUpResult{Request: req, Quote: q, Status: status}, nil
}
