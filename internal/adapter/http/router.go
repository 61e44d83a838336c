package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aq2208/campuspay-terminal/internal/adapter/http/middleware"
	"github.com/aq2208/campuspay-terminal/internal/logging"
)

const (
	PermOperate   = "terminal.operate"
	PermReconcile = "reconcile.manage"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Tokens    *TokenHandler
	Session   *SessionHandler
	Wallet    *WalletHandler
	Catalog   *CatalogHandler
	Orders    *OrderHandler
	NFC       *NFCHandler
	Profile   *ProfileHandler
	Reconcile *ReconcileHandler
}

func NewRouter(h Handlers, authz *middleware.Authz, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware())
	r.Use(middleware.Logging(log))

	r.GET("/healthz", func(c *gin.Context) {
		logging.From(c).Debug("health check")
		c.JSON(200, gin.H{"ok": true, "reader_ready": h.NFC.confirm.ReaderReady()})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/v1/token", h.Tokens.IssueToken)

	v1 := r.Group("/v1", authz.Require(PermOperate))
	{
		v1.POST("/session", h.Session.Login)
		v1.DELETE("/session", h.Session.Logout)
		v1.POST("/register", h.Session.Register)
		v1.GET("/me", h.Session.Me)
		v1.GET("/notifications", h.Session.Notifications)

		v1.GET("/wallet/balance", h.Wallet.Balance)
		v1.GET("/wallet/transactions", h.Wallet.Transactions)
		v1.POST("/wallet/transfers", h.Wallet.Transfer)
		v1.GET("/wallet/top-ups", h.Wallet.TopUps)
		v1.GET("/wallet/top-ups/quote", h.Wallet.QuoteTopUp)
		v1.POST("/wallet/top-ups", h.Wallet.TopUp)

		v1.GET("/canteens", h.Catalog.Canteens)
		v1.GET("/canteens/:id/categories", h.Catalog.Categories)
		v1.GET("/categories/:id/foods", h.Catalog.Foods)
		v1.GET("/foods/featured", h.Catalog.Featured)

		v1.GET("/orders", h.Orders.List)
		v1.POST("/orders", h.Orders.Place)
		v1.POST("/orders/:id/pay", h.Orders.Pay)

		v1.POST("/orders/:id/nfc", h.NFC.Begin)
		v1.GET("/orders/:id/nfc", h.NFC.Get)
		v1.DELETE("/orders/:id/nfc", h.NFC.Close)
		v1.POST("/orders/:id/nfc/read", h.NFC.Read)
		v1.PUT("/orders/:id/nfc/secret", h.NFC.Secret)
		v1.POST("/orders/:id/nfc/confirm", h.NFC.Confirm)
		v1.POST("/orders/:id/nfc/cancel", h.NFC.Cancel)

		v1.PUT("/profile/body", h.Profile.UpdateBody)
		v1.GET("/reader", h.NFC.Reader)
	}

	rec := r.Group("/v1/reconciliation", authz.Require(PermReconcile))
	{
		rec.GET("/gaps", h.Reconcile.List)
		rec.POST("/gaps/:attempt/resolve", h.Reconcile.Resolve)
	}

	return r
}
