package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	domain "github.com/aq2208/campuspay-terminal/internal/entity"
	"github.com/aq2208/campuspay-terminal/internal/session"
)

func (c *Client) Canteens(ctx context.Context, sc session.Context) ([]domain.Canteen, error) {
	var out []domain.Canteen
	err := c.do(ctx, &sc, http.MethodGet, "/canteens/", nil, &out)
	return out, err
}

func (c *Client) Categories(ctx context.Context, sc session.Context, canteenID int64) ([]domain.Category, error) {
	var out []domain.Category
	err := c.do(ctx, &sc, http.MethodGet, fmt.Sprintf("/canteens/%d/categories/", canteenID), nil, &out)
	return out, err
}

func (c *Client) Foods(ctx context.Context, sc session.Context, categoryID int64) ([]domain.Food, error) {
	var out []domain.Food
	err := c.do(ctx, &sc, http.MethodGet, fmt.Sprintf("/categories/%d/foods/", categoryID), nil, &out)
	return out, err
}

func (c *Client) FeaturedFoods(ctx context.Context, sc session.Context) ([]domain.Food, error) {
	var out []domain.Food
	err := c.do(ctx, &sc, http.MethodGet, "/featured-foods/", nil, &out)
	return out, err
}

func (c *Client) Notifications(ctx context.Context, sc session.Context) ([]domain.Notification, error) {
	var out []domain.Notification
	err := c.do(ctx, &sc, http.MethodGet, "/notifications/details/", nil, &out)
	return out, err
}

// UpdateBodyMetrics stores height (cm) and weight (kg).
func (c *Client) UpdateBodyMetrics(ctx context.Context, sc session.Context, height, weight decimal.Decimal) error {
	in := struct {
		Height json.Number `json:"height"`
		Weight json.Number `json:"weight"`
	}{Height: amount(height), Weight: amount(weight)}
	return c.do(ctx, &sc, http.MethodPut, "/update-height-weight/", in, nil)
}
