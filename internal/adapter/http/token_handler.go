package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/aq2208/campuspay-terminal/configs"
	"github.com/aq2208/campuspay-terminal/internal/adapter/http/middleware"
	"github.com/aq2208/campuspay-terminal/internal/logging"
	"github.com/aq2208/campuspay-terminal/internal/security"
)

type TokenHandler struct {
	cfg       configs.Config
	operators *security.Operators
	now       func() time.Time
}

func NewTokenHandler(cfg configs.Config, operators *security.Operators) *TokenHandler {
	return &TokenHandler{cfg: cfg, operators: operators, now: time.Now}
}

type tokenReq struct {
	ClientID     string `json:"client_id" form:"client_id"`
	ClientSecret string `json:"client_secret" form:"client_secret"`
}

// POST /v1/token (form or JSON)
// Accepts: client_id, client_secret of a configured operator.
func (h *TokenHandler) IssueToken(c *gin.Context) {
	var req tokenReq
	if err := c.ShouldBind(&req); err != nil || req.ClientID == "" || req.ClientSecret == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid client"})
		return
	}

	op, err := h.operators.Authenticate(req.ClientID, req.ClientSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid client"})
		return
	}

	now := h.now()
	ttl := h.cfg.Security.TTL
	claims := middleware.Claims{
		OperatorID: op.ID,
		Perms:      op.Perms,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    h.cfg.Security.Issuer,
			Audience:  jwt.ClaimStrings{h.cfg.Security.Audience},
			Subject:   op.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.cfg.Security.JWTSecret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	logging.From(c).Info("operator token issued", "operator", op.ID, "reconcile", op.Has(PermReconcile))
	c.JSON(http.StatusOK, gin.H{
		"access_token": signed,
		"token_type":   "Bearer",
		"expires_in":   int64(ttl.Seconds()),
	})
}
