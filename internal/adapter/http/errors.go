package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domain "github.com/aq2208/campuspay-terminal/internal/entity"
	"github.com/aq2208/campuspay-terminal/internal/logging"
	"github.com/aq2208/campuspay-terminal/internal/session"
	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

var errForbiddenRole = errors.New("this action is not available for your role on this order")

// statusOf maps flow and backend errors to HTTP statuses.
func statusOf(err error) int {
	var (
		se *usecase.StepError
		re *domain.RemoteError
	)
	switch {
	case errors.Is(err, session.ErrNotLoggedIn):
		return http.StatusUnauthorized
	case errors.Is(err, errForbiddenRole):
		return http.StatusForbidden
	case errors.Is(err, usecase.ErrBusy),
		errors.Is(err, usecase.ErrAlreadyPaid),
		errors.Is(err, usecase.ErrPendingReconciliation),
		errors.Is(err, usecase.ErrInvalidTransition),
		errors.Is(err, context.Canceled):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrFlowNotFound),
		errors.Is(err, usecase.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, usecase.ErrEmptySecret),
		errors.Is(err, usecase.ErrEmptyPassword):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrNoCredential):
		return http.StatusUnprocessableEntity
	case errors.Is(err, usecase.ErrReaderUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &se),
		errors.Is(err, usecase.ErrTagRead),
		errors.Is(err, domain.ErrNetwork):
		return http.StatusBadGateway
	case errors.As(err, &re):
		switch re.Status {
		case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict:
			return re.Status
		case http.StatusUnauthorized, http.StatusForbidden:
			// the backend session expired; the operator has to log in again
			return http.StatusUnauthorized
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// message is what the presentation layer shows for err.
func message(err error) string {
	var se *usecase.StepError
	if errors.As(err, &se) {
		return se.Reason
	}
	var re *domain.RemoteError
	if errors.As(err, &re) || errors.Is(err, domain.ErrNetwork) {
		return domain.Reason(err)
	}
	return err.Error()
}

func writeError(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logging.From(c).Error("request failed", "error", err, "status", status)
	}
	c.JSON(status, gin.H{"error": message(err)})
}

// writeFlow answers a confirmation action; failures carry the flow snapshot
// so the UI can render the alert and state.
func writeFlow(c *gin.Context, ok int, snap usecase.Snapshot, err error) {
	if err != nil {
		status := statusOf(err)
		if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
			logging.From(c).Error("confirmation failed", "error", err, "status", status)
		}
		c.JSON(status, gin.H{"error": message(err), "flow": snap})
		return
	}
	c.JSON(ok, snap)
}
