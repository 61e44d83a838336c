package backend

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	domain "github.com/aq2208/campuspay-terminal/internal/entity"
	"github.com/aq2208/campuspay-terminal/internal/session"
)

type transferBody struct {
	RecipientPhoneNumber string      `json:"recipient_phone_number"`
	Amount               json.Number `json:"amount"`
}

type messageBody struct {
	Message string `json:"message"`
}

func (c *Client) Balance(ctx context.Context, sc session.Context) (decimal.Decimal, error) {
	var out domain.Balance
	err := c.do(ctx, &sc, http.MethodGet, "/balance/", nil, &out)
	return out.Balance, err
}

func (c *Client) Transactions(ctx context.Context, sc session.Context) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := c.do(ctx, &sc, http.MethodGet, "/transactions/", nil, &out)
	return out, err
}

// Transfer moves money from the signed-in account to the recipient.
func (c *Client) Transfer(ctx context.Context, sc session.Context, req domain.TransferRequest) (string, error) {
	var out messageBody
	err := c.do(ctx, &sc, http.MethodPost, "/transfer/", transferBody{
		RecipientPhoneNumber: req.RecipientPhone,
		Amount:               amount(req.Amount),
	}, &out)
	return out.Message, err
}

// TransferBuyerAndVendor is the vendor-initiated transfer used after an NFC
// verification. The recipient is whatever the caller puts in req.
func (c *Client) TransferBuyerAndVendor(ctx context.Context, sc session.Context, req domain.TransferRequest) error {
	return c.do(ctx, &sc, http.MethodPost, "/transferbuyerandvendor/", transferBody{
		RecipientPhoneNumber: req.RecipientPhone,
		Amount:               amount(req.Amount),
	}, nil)
}

func (c *Client) TopUpRequests(ctx context.Context, sc session.Context) ([]domain.TopUpRequest, error) {
	var out []domain.TopUpRequest
	err := c.do(ctx, &sc, http.MethodGet, "/top-up-requests/", nil, &out)
	return out, err
}

func (c *Client) CreateTopUp(ctx context.Context, sc session.Context, amt decimal.Decimal) (domain.TopUpRequest, error) {
	in := struct {
		Amount json.Number `json:"amount"`
	}{Amount: amount(amt)}
	var out domain.TopUpRequest
	err := c.do(ctx, &sc, http.MethodPost, "/top-up-requests/", in, &out)
	return out, err
}
