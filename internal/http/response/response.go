package response

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/applyforge/applyforge-backend/internal/pkg/faults"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondFault maps domain error types onto HTTP statuses and stable codes.
func RespondFault(c *gin.Context, err error) {
	var rateErr *faults.RateLimitError
	var quotaErr *faults.QuotaError
	var auditErr *faults.AuditFailure
	var persistErr *faults.PersistenceError
	var genErr *faults.GenerationError

	switch {
	case errors.Is(err, faults.ErrUnauthorized):
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, faults.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, faults.ErrInvalidArgument):
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
	case errors.As(err, &rateErr):
		c.Header("Retry-After-Minutes", strconv.Itoa(rateErr.ResetInMinutes))
		RespondError(c, http.StatusTooManyRequests, "rate_limited", err)
	case errors.As(err, &quotaErr):
		RespondError(c, http.StatusTooManyRequests, "feature_limit_reached", err)
	case errors.As(err, &auditErr):
		RespondError(c, http.StatusServiceUnavailable, "audit_unavailable", err)
	case errors.As(err, &genErr):
		RespondError(c, http.StatusBadGateway, "generation_failed", err)
	case errors.As(err, &persistErr):
		RespondError(c, http.StatusInternalServerError, persistErr.Code, err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
