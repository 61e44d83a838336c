package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/aq2208/campuspay-terminal/internal/logging"
	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

type WalletHandler struct {
	sessions Sessions
	wallet   *usecase.Wallet
	send     *usecase.SendMoney
}

func NewWalletHandler(sessions Sessions, wallet *usecase.Wallet, send *usecase.SendMoney) *WalletHandler {
	return &WalletHandler{sessions: sessions, wallet: wallet, send: send}
}

func (h *WalletHandler) Balance(c *gin.Context) {
	ctx := c.Request.Context()
	sc, err := h.sessions.Current(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	bal, err := h.wallet.Balance(ctx, sc)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": bal.StringFixed(2)})
}

func (h *WalletHandler) Transactions(c *gin.Context) {
	ctx := c.Request.Context()
	sc, err := h.sessions.Current(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	txs, err := h.wallet.Transactions(ctx, sc)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

type transferReq struct {
	Recipient string `json:"recipient" binding:"required"`
	// Amount is kept as typed; it is sanitised before use.
	Amount   string `json:"amount" binding:"required"`
	Password string `json:"password"`
}

// Transfer sends money to another user after re-checking the password.
func (h *WalletHandler) Transfer(c *gin.Context) {
	var req transferReq
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
	msg, err := h.send.Execute(ctx, sc, req.Recipient, req.Amount, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *WalletHandler) TopUps(c *gin.Context) {
	ctx := c.Request.Context()
	sc, err := h.sessions.Current(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := h.wallet.TopUps(ctx, sc)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"top_ups": list})
}

type topUpReq struct {
	Amount decimal.Decimal `json:"amount" form:"amount"`
}

// QuoteTopUp shows the fee before the request is made. Needs no session.
func (h *WalletHandler) QuoteTopUp(c *gin.Context) {
	amt, err := decimal.NewFromString(c.Query("amount"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	q, err := usecase.QuoteTopUp(amt)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *WalletHandler) TopUp(c *gin.Context) {
	var req topUpReq
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
	res, err := h.wallet.TopUp(ctx, sc, req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	logging.From(c).Info("top-up requested", "amount", res.Quote.Amount.StringFixed(2), "approved", res.Request.IsApproved)
	c.JSON(http.StatusCreated, res)
}
