package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func TestHelpers_StatusAndEnvelope(t *testing.T) {
	tests := []struct {
		name   string
		call   func(c *gin.Context)
		status int
		code   string
	}{
		{"bad request", func(c *gin.Context) { BadRequest(c, "") }, http.StatusBadRequest, ErrCodeInvalidInput},
		{"unauthorized", func(c *gin.Context) { Unauthorized(c, "") }, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"forbidden", func(c *gin.Context) { Forbidden(c, "") }, http.StatusForbidden, ErrCodeForbidden},
		{"not found", func(c *gin.Context) { NotFound(c, "") }, http.StatusNotFound, ErrCodeNotFound},
		{"conflict", func(c *gin.Context) { Conflict(c, "") }, http.StatusConflict, ErrCodeConflict},
		{"dependency", func(c *gin.Context) { DependencyFailed(c, "mail down") }, http.StatusInternalServerError, ErrCodeDependencyFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext()
			tt.call(c)

			assert.Equal(t, tt.status, w.Code)
			var body APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Message)
			assert.Equal(t, body.Message, body.Err)
		})
	}
}

func TestValidationFailed_FieldDetails(t *testing.T) {
	type signup struct {
		Email    string `validate:"required,email"`
		Password string `validate:"min=6"`
	}
	err := validator.New().Struct(signup{Email: "nope", Password: "123"})
	require.Error(t, err)

	c, w := newTestContext()
	ValidationFailed(c, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Message string       `json:"message"`
		Details []FieldError `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Validation failed", body.Message)
	require.Len(t, body.Details, 2)
	assert.Equal(t, FieldError{Field: "Email", Message: "must be a valid email address"}, body.Details[0])
	assert.Equal(t, FieldError{Field: "Password", Message: "must be at least 6 characters"}, body.Details[1])
}

func TestValidationFailed_PlainError(t *testing.T) {
	c, w := newTestContext()
	ValidationFailed(c, assert.AnError)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid request body")
}
