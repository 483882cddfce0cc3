package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Error codes
const (
	// Authentication errors
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken       = "INVALID_TOKEN"

	// Authorization errors
	ErrCodeForbidden               = "FORBIDDEN"
	ErrCodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"

	// Validation errors
	ErrCodeInvalidInput = "INVALID_INPUT"

	// Resource errors
	ErrCodeNotFound = "NOT_FOUND"
	ErrCodeConflict = "CONFLICT"

	// Service errors
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeDependencyFailed   = "DEPENDENCY_FAILED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// APIError represents a standardized API error response. Err mirrors
// Message for clients that read the "error" key.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Err     string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Err:     message,
	}
}

// NewAPIErrorWithDetails creates a new APIError with details
func NewAPIErrorWithDetails(code, message string, details interface{}) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Err:     message,
		Details: details,
	}
}

// Predefined errors
var (
	ErrUnauthorized = NewAPIError(ErrCodeUnauthorized, "Authentication required")
	ErrForbidden    = NewAPIError(ErrCodeForbidden, "Access denied")
	ErrNotFound     = NewAPIError(ErrCodeNotFound, "Resource not found")
	ErrInvalidInput = NewAPIError(ErrCodeInvalidInput, "Invalid request body")
	ErrInternalError = NewAPIError(ErrCodeInternalError, "Internal server error")
	ErrServiceUnavailable = NewAPIError(ErrCodeServiceUnavailable, "Service temporarily unavailable")
)

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	c.JSON(statusCode, err)
}

// Helper functions for common error responses

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RespondWithError(c, http.StatusUnauthorized, NewAPIError(ErrCodeUnauthorized, message))
}

// UnauthorizedWithCode sends a 401 response with a specific error code
func UnauthorizedWithCode(c *gin.Context, code, message string) {
	RespondWithError(c, http.StatusUnauthorized, NewAPIError(code, message))
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Access denied"
	}
	RespondWithError(c, http.StatusForbidden, NewAPIError(ErrCodeForbidden, message))
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, NewAPIError(ErrCodeNotFound, message))
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "Invalid request"
	}
	RespondWithError(c, http.StatusBadRequest, NewAPIError(ErrCodeInvalidInput, message))
}

// BadRequestWithDetails sends a 400 response with details
func BadRequestWithDetails(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, NewAPIErrorWithDetails(ErrCodeInvalidInput, message, details))
}

// Conflict sends a 409 response
func Conflict(c *gin.Context, message string) {
	if message == "" {
		message = "Resource conflict"
	}
	RespondWithError(c, http.StatusConflict, NewAPIError(ErrCodeConflict, message))
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	RespondWithError(c, http.StatusInternalServerError, NewAPIError(ErrCodeInternalError, message))
}

// DependencyFailed sends a 500 response for a failed downstream dependency
// such as email delivery.
func DependencyFailed(c *gin.Context, message string) {
	RespondWithError(c, http.StatusInternalServerError, NewAPIError(ErrCodeDependencyFailed, message))
}

// ServiceUnavailable sends a 503 response
func ServiceUnavailable(c *gin.Context, message string) {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	RespondWithError(c, http.StatusServiceUnavailable, NewAPIError(ErrCodeServiceUnavailable, message))
}

// ValidationFailed sends a 400 response describing a binding failure. Field
// level details are included when the failure came from validator tags.
func ValidationFailed(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, FieldError{
				Field:   jsonFieldName(fe),
				Message: fieldMessage(fe),
			})
		}
		BadRequestWithDetails(c, "Validation failed", details)
		return
	}
	BadRequest(c, "Invalid request body")
}

// jsonFieldName relies on the json tag name func registered with the gin
// validator in the handlers package.
func jsonFieldName(fe validator.FieldError) string {
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "numeric":
		return "must contain only digits"
	case "gt":
		return "must be greater than " + fe.Param()
	}
	return "is invalid"
}
