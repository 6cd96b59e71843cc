package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jakechorley/duty-roster/pkg/core/model"
	"github.com/jakechorley/duty-roster/pkg/db"
)

// Error codes returned in the envelope
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeDataError          = "DATA_ERROR"
	CodeInvariantViolation = "INVARIANT_VIOLATION"
	CodeTimeout            = "TIMEOUT"
	CodeNotFound           = "NOT_FOUND"
	CodeUnavailable        = "UNAVAILABLE"
	CodeInternal           = "INTERNAL"
)

// APIError is the error half of the envelope
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope represents the common response contract
type Envelope struct {
	Data  any       `json:"data,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.Header("Cache-Control", "no-store")
	c.JSON(status, Envelope{Data: data})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.Header("Cache-Control", "no-store")
	c.AbortWithStatusJSON(status, Envelope{Error: &APIError{Code: code, Message: message}})
}

// statusOf maps an error onto its HTTP status and envelope code
func statusOf(err error) (int, string) {
	switch {
	case model.IsDataError(err):
		return http.StatusUnprocessableEntity, CodeDataError
	case model.IsInvariantViolation(err):
		return http.StatusInternalServerError, CodeInvariantViolation
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	case errors.Is(err, db.ErrRosterNotFound):
		return http.StatusNotFound, CodeNotFound
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
