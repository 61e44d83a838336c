package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/aq2208/campuspay-terminal/internal/entity"
	"github.com/aq2208/campuspay-terminal/internal/logging"
	"github.com/aq2208/campuspay-terminal/internal/session"
	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

type fakeAccount struct {
	me      domain.UserDetails
	orders  []domain.Order
	txs     []domain.Transaction
	topUps  []domain.TopUpRequest
	created domain.TopUpRequest

	createdFood int64
	createdQty  int
	height      decimal.Decimal
	weight      decimal.Decimal
}

func (f *fakeAccount) ListOrders(context.Context, session.Context) ([]domain.Order, error) {
	return f.orders, nil
}

func (f *fakeAccount) Details(context.Context, session.Context) (domain.UserDetails, error) {
	return f.me, nil
}

func (f *fakeAccount) CreateOrder(_ context.Context, _ session.Context, foodID int64, qty int) error {
	f.createdFood, f.createdQty = foodID, qty
	return nil
}

func (f *fakeAccount) Balance(context.Context, session.Context) (decimal.Decimal, error) {
	return decimal.RequireFromString("500.25"), nil
}

func (f *fakeAccount) Transactions(context.Context, session.Context) ([]domain.Transaction, error) {
	return f.txs, nil
}

func (f *fakeAccount) TopUpRequests(context.Context, session.Context) ([]domain.TopUpRequest, error) {
	return f.topUps, nil
}

func (f *fakeAccount) CreateTopUp(_ context.Context, _ session.Context, amt decimal.Decimal) (domain.TopUpRequest, error) {
	out := f.created
	out.Amount = amt
	return out, nil
}

func (f *fakeAccount) UpdateBodyMetrics(_ context.Context, _ session.Context, h, w decimal.Decimal) error {
	f.height, f.weight = h, w
	return nil
}

func TestOrders_List_AnnotatesRole(t *testing.T) {
	now := time.Now()
	acc := &fakeAccount{
		me: domain.UserDetails{Email: "student@uni.edu"},
		orders: []domain.Order{
			{ID: 1, User: "student@uni.edu", Vendor: "canteen@uni.edu", CreatedAt: now.Add(-time.Hour)},
			{ID: 2, User: "other@uni.edu", Vendor: "student@uni.edu", CreatedAt: now},
			{ID: 3, User: "student@uni.edu", Vendor: "canteen@uni.edu", IsPaid: true, CreatedAt: now.Add(-2 * time.Hour)},
		},
	}

	views, err := usecase.NewOrders(acc).List(context.Background(), sess)

	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, int64(2), views[0].ID)
	assert.Equal(t, domain.RoleVendor, views[0].Role)
	assert.True(t, views[0].CanScan)
	assert.False(t, views[0].CanPayNow)
	assert.Equal(t, domain.RoleBuyer, views[1].Role)
	assert.True(t, views[1].CanPayNow)
	assert.False(t, views[2].CanPayNow)
}

func TestOrders_Get_NotFound(t *testing.T) {
	_, err := usecase.NewOrders(&fakeAccount{}).Get(context.Background(), sess, 9)
	assert.ErrorIs(t, err, usecase.ErrOrderNotFound)
}

func TestPlaceOrder_Execute(t *testing.T) {
	acc := &fakeAccount{}
	uc := usecase.NewPlaceOrder(acc, logging.Discard())

	res, err := uc.Execute(context.Background(), sess, usecase.PlaceOrderInput{
		FoodID: 7, Price: decimal.RequireFromString("75.50"), Quantity: 2,
	})

	require.NoError(t, err)
	assert.Equal(t, "151.00", res.Total.StringFixed(2))
	assert.Equal(t, int64(7), acc.createdFood)
	assert.Equal(t, 2, acc.createdQty)

	_, err = uc.Execute(context.Background(), sess, usecase.PlaceOrderInput{FoodID: 7, Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestWallet_Transactions_NewestFirst(t *testing.T) {
	now := time.Now()
	acc := &fakeAccount{txs: []domain.Transaction{
		{ID: 1, Date: now.Add(-time.Hour)},
		{ID: 2, Date: now},
		{ID: 3, Date: now.Add(-2 * time.Hour)},
	}}

	txs, err := usecase.NewWallet(acc, acc).Transactions(context.Background(), sess)

	require.NoError(t, err)
	ids := []int64{txs[0].ID, txs[1].ID, txs[2].ID}
	assert.Equal(t, []int64{2, 1, 3}, ids)
}

func TestWallet_TopUp(t *testing.T) {
	acc := &fakeAccount{}
	w := usecase.NewWallet(acc, acc)

	res, err := w.TopUp(context.Background(), sess, decimal.RequireFromString("200"))
	require.NoError(t, err)
	assert.Equal(t, "Top-up request submitted. Awaiting approval.", res.Status)
	assert.Equal(t, "10.00", res.Quote.Fee.StringFixed(2))
	assert.Equal(t, "210.00", res.Quote.Total.StringFixed(2))

	acc.created.IsApproved = true
	res, err = w.TopUp(context.Background(), sess, decimal.RequireFromString("50"))
	require.NoError(t, err)
	assert.Equal(t, "Top-up request approved. Please pay at the finance office.", res.Status)

	_, err = w.TopUp(context.Background(), sess, decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestWallet_TopUps_OnlyOwn(t *testing.T) {
	acc := &fakeAccount{
		me: domain.UserDetails{FirstName: "Ana"},
		topUps: []domain.TopUpRequest{
			{ID: 1, UserFirstName: "Ana"},
			{ID: 2, UserFirstName: "Ben"},
		},
	}

	mine, err := usecase.NewWallet(acc, acc).TopUps(context.Background(), sess)

	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, int64(1), mine[0].ID)
}

func TestBMI(t *testing.T) {
	bmi, ok := usecase.BMI(decimal.NewFromInt(170), decimal.NewFromInt(65))
	require.True(t, ok)
	assert.Equal(t, "22.49", bmi.StringFixed(2))

	_, ok = usecase.BMI(decimal.Zero, decimal.NewFromInt(65))
	assert.False(t, ok)
}

func TestProfile_UpdateBody(t *testing.T) {
	acc := &fakeAccount{}

	got, err := usecase.NewProfile(acc).UpdateBody(context.Background(), sess, decimal.NewFromInt(180), decimal.NewFromInt(81))

	require.NoError(t, err)
	require.NotNil(t, got.BMI)
	assert.Equal(t, "25.00", got.BMI.StringFixed(2))
	assert.Equal(t, "180", acc.height.String())
}
