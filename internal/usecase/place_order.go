package usecase

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	domain "github.com/aq2208/campuspay-terminal/internal/entity"
	"github.com/aq2208/campuspay-terminal/internal/session"
)

type PlaceOrderInput struct {
	FoodID   int64           `json:"food_id"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type PlaceOrderResult struct {
	FoodID   int64           `json:"food_id"`
	Quantity int             `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

type PlaceOrder struct {
	be  OrderBackend
	log *slog.Logger
}

func NewPlaceOrder(be OrderBackend, log *slog.Logger) *PlaceOrder {
	if log == nil {
		log = slog.Default()
	}
	return &PlaceOrder{be: be, log: log}
}

func (p *PlaceOrder) Execute(ctx context.Context, sess session.Context, in PlaceOrderInput) (PlaceOrderResult, error) {
	total, err := domain.Total(in.Price, in.Quantity)
	if err != nil {
		return PlaceOrderResult{}, err
	}
	if err := p.be.CreateOrder(ctx, sess, in.FoodID, in.Quantity); err != nil {
		p.log.Warn("create order failed", "food_id", in.FoodID, "error", err)
		return PlaceOrderResult{}, err
	}
	p.log.Info("order placed", "food_id", in.FoodID, "quantity", in.Quantity, "total", total.StringFixed(2))
	return PlaceOrderResult{FoodID: in.FoodID, Quantity: in.Quantity, Total: total}, nil
}
