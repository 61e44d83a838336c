package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/aq2208/campuspay-terminal/configs"
	"github.com/aq2208/campuspay-terminal/internal/logging"
)

const operatorKey = "operator_id"

// Claims are the operator token claims.
type Claims struct {
	OperatorID string   `json:"operator_id"`
	Perms      []string `json:"perms"`
	jwt.RegisteredClaims
}

type Authz struct {
	secret []byte
	parser *jwt.Parser
}

func NewAuthz(cfg configs.Config) *Authz {
	return &Authz{
		secret: []byte(cfg.Security.JWTSecret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Security.Issuer),
			jwt.WithAudience(cfg.Security.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(30*time.Second), // small clock skew
		),
	}
}

// Require checks the operator JWT and ensures all required permissions are present.
func (a *Authz) Require(requiredPerms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			unauth(c, "invalid_request", "missing bearer token")
			return
		}

		var claims Claims
		_, err := a.parser.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), &claims, func(*jwt.Token) (any, error) {
			return a.secret, nil
		})
		if err != nil {
			unauth(c, "invalid_token", "invalid jwt")
			return
		}

		if !hasAll(claims.Perms, requiredPerms) {
			forbidden(c, "insufficient_scope", "missing required permissions")
			return
		}

		c.Set(operatorKey, claims.OperatorID)
		logging.With(c, logging.From(c).With("operator", claims.OperatorID))
		c.Next()
	}
}

// Operator returns the authenticated operator id.
func Operator(c *gin.Context) string { return c.GetString(operatorKey) }

func hasAll(have, req []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, p := range have {
		set[p] = struct{}{}
	}
	for _, r := range req {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}

func unauth(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code, "error_description": desc})
}

func forbidden(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": code, "error_description": desc})
}
