package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/team-task-api/internal/dto"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"go.uber.org/mock/gomock"
)

// expectOTP captures the code mailed to email.
func (e *apiEnv) expectOTP(email string, code *string) {
	e.mailer.EXPECT().
		SendOTP(gomock.Any(), email, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, c string) error {
			*code = c
			return nil
		})
}

func (e *apiEnv) signup(email, password string) dto.AuthResponse {
	e.t.Helper()

	var code string
	e.expectOTP(email, &code)

	w := e.do(http.MethodPost, "/api/auth/signup", nil, map[string]any{
		"email":    email,
		"password": password,
		"name":     "Carol",
	})
	requireStatus(e.t, w, http.StatusOK)

	w = e.do(http.MethodPost, "/api/auth/signup-verify-otp", nil, map[string]any{
		"email": email,
		"otp":   code,
	})
	requireStatus(e.t, w, http.StatusOK)
	return decode[dto.AuthResponse](e.t, w)
}

func TestAuthHandler_SignupFlow(t *testing.T) {
	env := newAPIEnv(t)

	resp := env.signup("carol@example.com", "secret1")
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "carol@example.com", resp.User.Email)
	assert.Equal(t, models.RoleEmployee, resp.User.Role)
	assert.Equal(t, "Email verified successfully", resp.Message)

	w := env.do(http.MethodPost, "/api/auth/signup", nil, map[string]any{
		"email": "carol@example.com", "password": "secret1", "name": "Carol",
	})
	requireStatus(t, w, http.StatusConflict)
}

func TestAuthHandler_SignupValidation(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodPost, "/api/auth/signup", nil, map[string]any{
		"email":    "not-an-email",
		"password": "123",
	})
	requireStatus(t, w, http.StatusBadRequest)

	body := decode[errorBody](t, w)
	assert.Equal(t, apierrors.ErrCodeInvalidInput, body.Code)
	fields := map[string]string{}
	for _, d := range body.Details {
		fields[d.Field] = d.Message
	}
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be at least 6 characters", fields["password"])
	assert.Equal(t, "is required", fields["name"])

	w = env.do(http.MethodPost, "/api/auth/signup", nil, `{"email":`)
	requireStatus(t, w, http.StatusBadRequest)
}

func TestAuthHandler_SignupRoleSecret(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodPost, "/api/auth/signup", nil, map[string]any{
		"email": "boss@example.com", "password": "secret1", "name": "Boss", "role": "admin",
	})
	requireStatus(t, w, http.StatusBadRequest)

	w = env.do(http.MethodPost, "/api/auth/signup", nil, map[string]any{
		"email": "boss@example.com", "password": "secret1", "name": "Boss", "role": "admin", "secretKey": "wrong",
	})
	requireStatus(t, w, http.StatusForbidden)

	var code string
	env.expectOTP("boss@example.com", &code)
	w = env.do(http.MethodPost, "/api/auth/signup", nil, map[string]any{
		"email": "boss@example.com", "password": "secret1", "name": "Boss", "role": "manager", "secretKey": "manager-key",
	})
	requireStatus(t, w, http.StatusOK)
}

func TestAuthHandler_SignupMailFailure(t *testing.T) {
	env := newAPIEnv(t)
	env.mailer.EXPECT().SendOTP(gomock.Any(), "dora@example.com", gomock.Any()).Return(errors.New("smtp down"))

	w := env.do(http.MethodPost, "/api/auth/signup", nil, map[string]any{
		"email": "dora@example.com", "password": "secret1", "name": "Dora",
	})
	requireStatus(t, w, http.StatusInternalServerError)
	assert.Equal(t, apierrors.ErrCodeDependencyFailed, decode[errorBody](t, w).Code)
}

func TestAuthHandler_VerifyErrors(t *testing.T) {
	env := newAPIEnv(t)

	var code string
	env.expectOTP("erin@example.com", &code)
	requireStatus(t, env.do(http.MethodPost, "/api/auth/signup", nil, map[string]any{
		"email": "erin@example.com", "password": "secret1", "name": "Erin",
	}), http.StatusOK)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	w := env.do(http.MethodPost, "/api/auth/signup-verify-otp", nil, map[string]any{"email": "erin@example.com", "otp": wrong})
	requireStatus(t, w, http.StatusBadRequest)

	w = env.do(http.MethodPost, "/api/auth/signup-verify-otp", nil, map[string]any{"email": "erin@example.com", "otp": "12ab"})
	requireStatus(t, w, http.StatusBadRequest)
	assert.NotEmpty(t, decode[errorBody](t, w).Details)

	w = env.do(http.MethodPost, "/api/auth/signup-verify-otp", nil, map[string]any{"email": "nobody@example.com", "otp": "123456"})
	requireStatus(t, w, http.StatusNotFound)

	requireStatus(t, env.do(http.MethodPost, "/api/auth/signup-verify-otp", nil, map[string]any{"email": "erin@example.com", "otp": code}), http.StatusOK)
	w = env.do(http.MethodPost, "/api/auth/signup-verify-otp", nil, map[string]any{"email": "erin@example.com", "otp": code})
	requireStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "Email already verified", decode[errorBody](t, w).Message)
}

func TestAuthHandler_Login(t *testing.T) {
	env := newAPIEnv(t)
	env.signup("frank@example.com", "secret1")

	w := env.do(http.MethodPost, "/api/auth/login", nil, map[string]any{
		"email": "Frank@Example.com", "password": "secret1",
	})
	requireStatus(t, w, http.StatusOK)
	resp := decode[dto.AuthResponse](t, w)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "frank@example.com", resp.User.Email)

	w = env.do(http.MethodPost, "/api/auth/login", nil, map[string]any{
		"email": "frank@example.com", "password": "wrong-password",
	})
	requireStatus(t, w, http.StatusUnauthorized)
	assert.Equal(t, apierrors.ErrCodeInvalidCredentials, decode[errorBody](t, w).Code)

	// seeded users have no password
	w = env.do(http.MethodPost, "/api/auth/login", nil, map[string]any{
		"email": env.employee.Email, "password": "whatever",
	})
	requireStatus(t, w, http.StatusUnauthorized)
}

func TestAuthHandler_LoginUnverified(t *testing.T) {
	env := newAPIEnv(t)

	var code string
	env.expectOTP("gina@example.com", &code)
	requireStatus(t, env.do(http.MethodPost, "/api/auth/signup", nil, map[string]any{
		"email": "gina@example.com", "password": "secret1", "name": "Gina",
	}), http.StatusOK)

	w := env.do(http.MethodPost, "/api/auth/login", nil, map[string]any{
		"email": "gina@example.com", "password": "secret1",
	})
	requireStatus(t, w, http.StatusUnauthorized)
	assert.Contains(t, decode[errorBody](t, w).Message, "verif")
}

func TestAuthHandler_Refresh(t *testing.T) {
	env := newAPIEnv(t)
	resp := env.signup("hank@example.com", "secret1")

	w := env.do(http.MethodPost, "/api/auth/refresh", nil, map[string]any{"refreshToken": resp.RefreshToken})
	requireStatus(t, w, http.StatusOK)
	pair := decode[dto.TokenResponse](t, w)
	assert.NotEmpty(t, pair.Token)
	assert.NotEqual(t, resp.RefreshToken, pair.RefreshToken)

	// an access token is not a refresh token
	w = env.do(http.MethodPost, "/api/auth/refresh", nil, map[string]any{"refreshToken": resp.Token})
	requireStatus(t, w, http.StatusUnauthorized)
	assert.Equal(t, apierrors.ErrCodeInvalidToken, decode[errorBody](t, w).Code)
}

func TestAuthHandler_SendAndVerifyOTP(t *testing.T) {
	env := newAPIEnv(t)

	var code string
	env.expectOTP(env.employee.Email, &code)
	w := env.do(http.MethodPost, "/api/auth/send-otp", nil, map[string]any{"email": env.employee.Email})
	requireStatus(t, w, http.StatusOK)

	w = env.do(http.MethodPost, "/api/auth/verify-otp", nil, map[string]any{"email": env.employee.Email, "otp": code})
	requireStatus(t, w, http.StatusOK)
	resp := decode[dto.AuthResponse](t, w)
	assert.Equal(t, env.employee.ID, resp.User.ID)
	assert.Equal(t, "OTP verified successfully", resp.Message)

	w = env.do(http.MethodPost, "/api/auth/send-otp", nil, map[string]any{"email": "ghost@example.com"})
	requireStatus(t, w, http.StatusNotFound)
}

func TestAuthHandler_GoogleNotConfigured(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodPost, "/api/auth/google", nil, map[string]any{"idToken": "abc"})
	requireStatus(t, w, http.StatusServiceUnavailable)
}

func TestAuthHandler_GetCurrentUser(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodGet, "/api/auth/me", env.manager, nil)
	requireStatus(t, w, http.StatusOK)
	resp := decode[dto.CurrentUserResponse](t, w)
	require.Equal(t, env.manager.ID, resp.User.ID)
	assert.Equal(t, models.RoleManager, resp.User.Role)

	w = env.do(http.MethodGet, "/api/auth/me", nil, nil)
	requireStatus(t, w, http.StatusUnauthorized)
}
