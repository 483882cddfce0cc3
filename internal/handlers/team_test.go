package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/team-task-api/internal/dto"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/testutil"
)

func TestTeamHandler_CreateAndList(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodPost, "/api/teams", env.manager, map[string]any{
		"name":       "Platform",
		"member_ids": []uint64{env.employee.ID},
	})
	requireStatus(t, w, http.StatusCreated)
	created := decode[dto.TeamResponse](t, w).Team
	require.NotNil(t, created.ManagerID)
	assert.Equal(t, env.manager.ID, *created.ManagerID)

	w = env.do(http.MethodGet, "/api/teams", env.employee, nil)
	requireStatus(t, w, http.StatusOK)
	teams := decode[dto.TeamListResponse](t, w).Teams
	require.Len(t, teams, 1)
	require.NotNil(t, teams[0].ManagerName)
	assert.Equal(t, env.manager.Name, *teams[0].ManagerName)
	require.NotNil(t, teams[0].MemberCount)
	assert.Equal(t, int64(1), *teams[0].MemberCount)

	w = env.do(http.MethodPost, "/api/teams", env.employee, map[string]any{"name": "Nope"})
	requireStatus(t, w, http.StatusForbidden)

	w = env.do(http.MethodPost, "/api/teams", env.admin, map[string]any{"description": "nameless"})
	requireStatus(t, w, http.StatusBadRequest)

	w = env.do(http.MethodPost, "/api/teams", env.admin, map[string]any{"name": "Bad", "manager_id": env.employee.ID})
	requireStatus(t, w, http.StatusBadRequest)
}

func TestTeamHandler_GetDetail(t *testing.T) {
	env := newAPIEnv(t)
	team := testutil.CreateTeam(t, env.db, "Ops", &env.manager.ID, env.employee.ID)
	outsider := testutil.CreateUser(t, env.db, "outsider", models.RoleEmployee)
	path := fmt.Sprintf("/api/teams/%d", team.ID)

	w := env.do(http.MethodGet, path, env.employee, nil)
	requireStatus(t, w, http.StatusOK)
	detail := decode[dto.TeamDetailResponse](t, w)
	assert.Equal(t, "Ops", detail.Team.Name)
	require.Len(t, detail.Members, 1)
	assert.Equal(t, env.employee.ID, detail.Members[0].ID)
	assert.Equal(t, env.employee.Email, detail.Members[0].Email)

	requireStatus(t, env.do(http.MethodGet, path, outsider, nil), http.StatusForbidden)
	requireStatus(t, env.do(http.MethodGet, "/api/teams/9999", env.admin, nil), http.StatusNotFound)
}

func TestTeamHandler_UpdateAndDelete(t *testing.T) {
	env := newAPIEnv(t)
	team := testutil.CreateTeam(t, env.db, "Ops", &env.manager.ID)
	path := fmt.Sprintf("/api/teams/%d", team.ID)

	w := env.do(http.MethodPut, path, env.manager, map[string]any{"name": "SRE", "description": "on call"})
	requireStatus(t, w, http.StatusOK)
	updated := decode[dto.TeamResponse](t, w).Team
	assert.Equal(t, "SRE", updated.Name)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "on call", *updated.Description)

	requireStatus(t, env.do(http.MethodPut, path, env.manager, map[string]any{}), http.StatusBadRequest)

	// only admins delete teams
	requireStatus(t, env.do(http.MethodDelete, path, env.manager, nil), http.StatusForbidden)

	w = env.do(http.MethodDelete, path, env.admin, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "Team deleted successfully", decode[dto.MessageResponse](t, w).Message)
	requireStatus(t, env.do(http.MethodGet, path, env.admin, nil), http.StatusNotFound)
}

func TestTeamHandler_Members(t *testing.T) {
	env := newAPIEnv(t)
	team := testutil.CreateTeam(t, env.db, "Ops", &env.manager.ID)
	other := testutil.CreateUser(t, env.db, "other", models.RoleManager)
	membersPath := fmt.Sprintf("/api/teams/%d/members", team.ID)
	memberPath := fmt.Sprintf("%s/%d", membersPath, env.employee.ID)

	requireStatus(t, env.do(http.MethodPost, membersPath, env.manager, map[string]any{}), http.StatusBadRequest)
	requireStatus(t, env.do(http.MethodPost, membersPath, other, map[string]any{"user_id": env.employee.ID}), http.StatusForbidden)

	w := env.do(http.MethodPost, membersPath, env.manager, map[string]any{"user_id": env.employee.ID})
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "Member added to team successfully", decode[dto.MessageResponse](t, w).Message)

	w = env.do(http.MethodDelete, memberPath, env.admin, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "Member removed from team successfully", decode[dto.MessageResponse](t, w).Message)

	requireStatus(t, env.do(http.MethodDelete, memberPath, env.admin, nil), http.StatusNotFound)
	requireStatus(t, env.do(http.MethodDelete, membersPath+"/abc", env.admin, nil), http.StatusBadRequest)
}
