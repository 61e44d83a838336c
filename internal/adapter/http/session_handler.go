package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	domain "github.com/aq2208/campuspay-terminal/internal/entity"
	"github.com/aq2208/campuspay-terminal/internal/logging"
)

type SessionHandler struct {
	sessions Sessions
	accounts Accounts
}

func NewSessionHandler(sessions Sessions, accounts Accounts) *SessionHandler {
	return &SessionHandler{sessions: sessions, accounts: accounts}
}

type loginReq struct {
	Phone    string `json:"phone_number" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login signs the terminal in to the backend.
func (h *SessionHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	if err := h.sessions.Login(c.Request.Context(), strings.TrimSpace(req.Phone), req.Password); err != nil {
		writeError(c, err)
		return
	}
	logging.From(c).Info("terminal signed in", "phone", h.sessions.Phone())
	c.JSON(http.StatusOK, gin.H{"phone_number": h.sessions.Phone()})
}

func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type registerReq struct {
	Phone     string `json:"phone_number" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

func (h *SessionHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	err := h.accounts.Register(c.Request.Context(), domain.Registration{
		PhoneNumber: strings.TrimSpace(req.Phone),
		Email:       strings.TrimSpace(req.Email),
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Password:    req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Registration successful."})
}

// Me returns the signed-in account.
func (h *SessionHandler) Me(c *gin.Context) {
	ctx := c.Request.Context()
	sc, err := h.sessions.Current(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	me, err := h.accounts.Details(ctx, sc)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, me)
}

func (h *SessionHandler) Notifications(c *gin.Context) {
	ctx := c.Request.Context()
	sc, err := h.sessions.Current(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := h.accounts.Notifications(ctx, sc)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}
