package usecase

import (
	"context"
	"sort"

	domain "github.com/aq2208/campuspay-terminal/internal/entity"
	"github.com/aq2208/campuspay-terminal/internal/session"
)

// OrderView is an order as seen by the signed-in user.
type OrderView struct {
	domain.Order
	Role      domain.Role `json:"role"`
	CanPayNow bool        `json:"can_pay_now"`
	CanScan   bool        `json:"can_scan"`
}

type Orders struct {
	be OrderBackend
}

func NewOrders(be OrderBackend) *Orders { return &Orders{be: be} }

// List returns the user's orders, newest first.
func (o *Orders) List(ctx context.Context, sess session.Context) ([]OrderView, error) {
	me, err := o.be.Details(ctx, sess)
	if err != nil {
		return nil, err
	}
	orders, err := o.be.ListOrders(ctx, sess)
	if err != nil {
		return nil, err
	}

	out := make([]OrderView, 0, len(orders))
	for _, ord := range orders {
		role := ord.RoleOf(me.Email)
		out = append(out, OrderView{
			Order:     ord,
			Role:      role,
			CanPayNow: role == domain.RoleBuyer && !ord.IsPaid,
			CanScan:   role == domain.RoleVendor && !ord.IsPaid,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Get looks one order up by id in the user's order list.
func (o *Orders) Get(ctx context.Context, sess session.Context, id int64) (OrderView, error) {
	all, err := o.List(ctx, sess)
	if err != nil {
		return OrderView{}, err
	}
	for _, v := range all {
		if v.ID == id {
			return v, nil
		}
	}
	return OrderView{}, ErrOrderNotFound
}
