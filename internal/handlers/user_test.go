package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/team-task-api/internal/dto"
	"github.com/yukikurage/team-task-api/internal/models"
)

func TestUserHandler_List(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodGet, "/api/users", env.manager, nil)
	requireStatus(t, w, http.StatusOK)
	users := decode[struct {
		Users []dto.UserDetailDTO `json:"users"`
	}](t, w).Users
	assert.Len(t, users, 3)

	requireStatus(t, env.do(http.MethodGet, "/api/users", env.employee, nil), http.StatusForbidden)
	requireStatus(t, env.do(http.MethodGet, "/api/users", nil, nil), http.StatusUnauthorized)
}

type userBody struct {
	User dto.UserDetailDTO `json:"user"`
}

func TestUserHandler_Create(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodPost, "/api/users", env.admin, map[string]any{
		"email":    "ivy@example.com",
		"password": "secret1",
		"name":     "Ivy",
		"role":     "manager",
	})
	requireStatus(t, w, http.StatusCreated)
	created := decode[userBody](t, w).User
	assert.Equal(t, models.RoleManager, created.Role)
	assert.True(t, created.EmailVerified)

	requireStatus(t, env.do(http.MethodPost, "/api/users", env.admin, map[string]any{
		"email": "ivy@example.com", "password": "secret1", "name": "Ivy",
	}), http.StatusConflict)

	requireStatus(t, env.do(http.MethodPost, "/api/users", env.admin, map[string]any{
		"email": "jo@example.com", "password": "secret1", "name": "Jo", "role": "owner",
	}), http.StatusBadRequest)

	requireStatus(t, env.do(http.MethodPost, "/api/users", env.manager, map[string]any{
		"email": "jo@example.com", "password": "secret1", "name": "Jo",
	}), http.StatusForbidden)

	// the created account can sign in straight away
	w = env.do(http.MethodPost, "/api/auth/login", nil, map[string]any{"email": "ivy@example.com", "password": "secret1"})
	requireStatus(t, w, http.StatusOK)
}

func TestUserHandler_GetAndUpdate(t *testing.T) {
	env := newAPIEnv(t)
	self := fmt.Sprintf("/api/users/%d", env.employee.ID)

	w := env.do(http.MethodGet, self, env.employee, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, env.employee.Email, decode[userBody](t, w).User.Email)

	requireStatus(t, env.do(http.MethodGet, fmt.Sprintf("/api/users/%d", env.admin.ID), env.employee, nil), http.StatusForbidden)

	w = env.do(http.MethodPut, self, env.employee, map[string]any{"name": "Renamed"})
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "Renamed", decode[userBody](t, w).User.Name)

	requireStatus(t, env.do(http.MethodPut, self, env.employee, map[string]any{"role": "admin"}), http.StatusForbidden)
	requireStatus(t, env.do(http.MethodPut, self, env.admin, map[string]any{"role": "boss"}), http.StatusBadRequest)

	w = env.do(http.MethodPut, self, env.admin, map[string]any{"role": "manager"})
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, models.RoleManager, decode[userBody](t, w).User.Role)
}

func TestUserHandler_Delete(t *testing.T) {
	env := newAPIEnv(t)

	requireStatus(t, env.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", env.admin.ID), env.admin, nil), http.StatusBadRequest)
	requireStatus(t, env.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", env.employee.ID), env.manager, nil), http.StatusForbidden)

	w := env.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", env.employee.ID), env.admin, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "User and all associated data deleted successfully", decode[dto.MessageResponse](t, w).Message)

	// the deleted user's token no longer authenticates
	w = env.do(http.MethodGet, "/api/auth/me", env.employee, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
