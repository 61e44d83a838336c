package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

type OrderHandler struct {
	sessions Sessions
	orders   *usecase.Orders
	place    *usecase.PlaceOrder
	pay      *usecase.PayOrder
}

func NewOrderHandler(sessions Sessions, orders *usecase.Orders, place *usecase.PlaceOrder, pay *usecase.PayOrder) *OrderHandler {
	return &OrderHandler{sessions: sessions, orders: orders, place: place, pay: pay}
}

func (h *OrderHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	sc, err := h.sessions.Current(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := h.orders.List(ctx, sc)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

type placeOrderReq struct {
	FoodID   int64           `json:"food_id" binding:"required,gt=0"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Place creates an order for a catalog item.
func (h *OrderHandler) Place(c *gin.Context) {
	var req placeOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	ctx := c.Request.Context()
	sc, err := h.sessions.Current(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	out, err := h.place.Execute(ctx, sc, usecase.PlaceOrderInput{
		FoodID:   req.FoodID,
		Price:    req.Price,
		Quantity: req.Quantity,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

type payReq struct {
	Password string `json:"password"`
}

// Pay is the buyer's "Pay Now".
func (h *OrderHandler) Pay(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req payReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	ctx := c.Request.Context()
	sc, err := h.sessions.Current(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	view, err := h.orders.Get(ctx, sc, id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !view.IsPaid && !view.CanPayNow {
		writeError(c, errForbiddenRole)
		return
	}

	res, err := h.pay.Execute(ctx, sc, view.Order, req.Password)
	if err != nil && res.Message != "" {
		// money moved but the order is not marked paid
		c.JSON(statusOf(err), gin.H{"error": message(err), "alert": res.Message, "attempt_id": res.AttemptID})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempt_id": res.AttemptID, "message": res.Message, "refresh": true})
}
