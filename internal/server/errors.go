package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	commissiondomain "github.com/haulbase/haulbase/internal/commission/domain"
	ruledomain "github.com/haulbase/haulbase/internal/commissionrule/domain"
	leaddomain "github.com/haulbase/haulbase/internal/lead/domain"
	loaddomain "github.com/haulbase/haulbase/internal/load/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrConflict           = errors.New("conflict")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, commissiondomain.ErrAlreadyApproved),
		errors.Is(err, loaddomain.ErrInvoiceExists),
		errors.Is(err, loaddomain.ErrInvoiceMissing),
		errors.Is(err, ErrConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, commissiondomain.ErrMetricsUnavailable),
		errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, commissiondomain.ErrInvalidMonth),
		errors.Is(err, commissiondomain.ErrInvalidUser),
		errors.Is(err, ruledomain.ErrInvalidOrganization),
		errors.Is(err, ruledomain.ErrInvalidType),
		errors.Is(err, ruledomain.ErrInvalidTiers),
		errors.Is(err, ruledomain.ErrInvalidActor),
		errors.Is(err, ruledomain.ErrInvalidID),
		errors.Is(err, leaddomain.ErrInvalidSource),
		errors.Is(err, leaddomain.ErrInvalidStatus),
		errors.Is(err, loaddomain.ErrInvalidStatus),
		errors.Is(err, loaddomain.ErrInvalidAmount):
		return true
	}
	return false
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, commissiondomain.ErrUserNotFound),
		errors.Is(err, commissiondomain.ErrRecordNotFound),
		errors.Is(err, ruledomain.ErrNotFound),
		errors.Is(err, leaddomain.ErrNotFound),
		errors.Is(err, loaddomain.ErrNotFound):
		return true
	}
	return false
}
