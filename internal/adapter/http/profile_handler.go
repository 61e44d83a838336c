package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

type ProfileHandler struct {
	sessions Sessions
	profile  *usecase.Profile
}

func NewProfileHandler(sessions Sessions, profile *usecase.Profile) *ProfileHandler {
	return &ProfileHandler{sessions: sessions, profile: profile}
}

type bodyReq struct {
	Height decimal.Decimal `json:"height"`
	Weight decimal.Decimal `json:"weight"`
}

// UpdateBody stores height (cm) and weight (kg) and returns the BMI.
func (h *ProfileHandler) UpdateBody(c *gin.Context) {
	var req bodyReq
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
	out, err := h.profile.UpdateBody(ctx, sc, req.Height, req.Weight)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
