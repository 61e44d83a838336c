package backend

import (
	"context"
	"fmt"
	"net/http"

	domain "github.com/aq2208/campuspay-terminal/internal/entity"
	"github.com/aq2208/campuspay-terminal/internal/session"
)

func (c *Client) ListOrders(ctx context.Context, sc session.Context) ([]domain.Order, error) {
	var out []domain.Order
	err := c.do(ctx, &sc, http.MethodGet, "/orders/", nil, &out)
	return out, err
}

// PayOrder flips the order's paid flag.
func (c *Client) PayOrder(ctx context.Context, sc session.Context, orderID int64) error {
	return c.do(ctx, &sc, http.MethodPatch, fmt.Sprintf("/orders/%d/pay/", orderID), nil, nil)
}

func (c *Client) CreateOrder(ctx context.Context, sc session.Context, foodID int64, quantity int) error {
	in := struct {
		Food     int64 `json:"food"`
		Quantity int   `json:"quantity"`
	}{Food: foodID, Quantity: quantity}
	return c.do(ctx, &sc, http.MethodPost, "/create-order/", in, nil)
}
