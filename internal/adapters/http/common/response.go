// Package common holds the shared response types of the HTTP layer.
// Separate from handlers to avoid import cycles with the router package.
package common

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/coinvault/coinvault/internal/domain/errors"
)

// APIResponse is the standard response envelope.
type APIResponse struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// APIError is the error body of a failed request.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Fields  []FieldError   `json:"fields,omitempty"`
}

// FieldError pins a validation failure to one request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error codes surfaced by this API.
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeAssetNotFound     = "ASSET_NOT_FOUND"
	ErrCodeWalletNotFound    = "WALLET_NOT_FOUND"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	ErrCodeTooManyRequests   = "TOO_MANY_REQUESTS"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// RequestIDKey keys the request id inside the gin context.
const RequestIDKey = "request_id"

// GetRequestID returns the request id set by the request-id middleware.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// Success writes a successful envelope.
func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, APIResponse{
		Success:   true,
		Data:      data,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// Error writes a failed envelope.
func Error(c *gin.Context, statusCode int, apiError *APIError) {
	c.JSON(statusCode, APIResponse{
		Success:   false,
		Error:     apiError,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// Raw writes pre-serialized bytes verbatim. Replayed idempotent responses go
// through here so the second response is byte-equal to the first.
func Raw(c *gin.Context, statusCode int, body []byte) {
	c.Data(statusCode, "application/json; charset=utf-8", body)
}

// ValidationErrorResponse writes a 422 for request validation failures.
func ValidationErrorResponse(c *gin.Context, fields []FieldError) {
	Error(c, http.StatusUnprocessableEntity, &APIError{
		Code:    ErrCodeValidation,
		Message: "Request validation failed",
		Fields:  fields,
	})
}

// InternalErrorResponse writes a generic 500. The underlying message is
// attached only when debug surfaces are enabled.
func InternalErrorResponse(c *gin.Context, debug bool, err error) {
	apiError := &APIError{
		Code:    ErrCodeInternal,
		Message: "An unexpected error occurred",
	}
	if debug && err != nil {
		apiError.Details = map[string]any{"cause": err.Error()}
	}
	Error(c, http.StatusInternalServerError, apiError)
}

// HandleDomainError maps the core's closed error set to HTTP responses.
// This is the single place where that mapping lives.
func HandleDomainError(c *gin.Context, err error, debug bool) {
	switch {
	case domainErrors.IsAssetNotFound(err):
		Error(c, http.StatusNotFound, &APIError{
			Code:    ErrCodeAssetNotFound,
			Message: err.Error(),
		})

	case domainErrors.IsWalletNotFound(err):
		Error(c, http.StatusNotFound, &APIError{
			Code:    ErrCodeWalletNotFound,
			Message: err.Error(),
		})

	case domainErrors.IsInsufficientFunds(err):
		var details map[string]any
		var ife *domainErrors.InsufficientFundsError
		if errors.As(err, &ife) {
			details = map[string]any{
				"available": ife.Available,
				"requested": ife.Requested,
			}
		}
		Error(c, http.StatusBadRequest, &APIError{
			Code:    ErrCodeInsufficientFunds,
			Message: err.Error(),
			Details: details,
		})

	case domainErrors.IsValidation(err):
		var ve domainErrors.ValidationError
		if errors.As(err, &ve) {
			ValidationErrorResponse(c, []FieldError{{Field: ve.Field, Message: ve.Message}})
			return
		}
		ValidationErrorResponse(c, nil)

	case domainErrors.IsNotFound(err):
		Error(c, http.StatusNotFound, &APIError{
			Code:    ErrCodeNotFound,
			Message: "Resource not found",
		})

	default:
		InternalErrorResponse(c, debug, err)
	}
}
