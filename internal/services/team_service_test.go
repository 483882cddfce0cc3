package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type teamTestEnv struct {
	db      *gorm.DB
	service *TeamService

	admin    *models.User
	manager  *models.User
	other    *models.User
	employee *models.User
}

func setupTeamTestEnv(t *testing.T) teamTestEnv {
	t.Helper()

	db := testutil.NewDB(t)
	recorder := NewActivityRecorder(repository.NewActivityLogRepository(db), zap.NewNop())
	service := NewTeamService(repository.NewTeamRepository(db), repository.NewUserRepository(db), recorder)

	return teamTestEnv{
		db:       db,
		service:  service,
		admin:    testutil.CreateUser(t, db, "admin", models.RoleAdmin),
		manager:  testutil.CreateUser(t, db, "bob", models.RoleManager),
		other:    testutil.CreateUser(t, db, "other", models.RoleManager),
		employee: testutil.CreateUser(t, db, "al", models.RoleEmployee),
	}
}

func (env teamTestEnv) lastActivity(t *testing.T, action models.ActionType) models.ActivityLog {
	t.Helper()
	var entry models.ActivityLog
	require.NoError(t, env.db.Where("action_type = ?", action).Order("id DESC").First(&entry).Error)
	return entry
}

func TestTeamService_CreateManagerAutoAssignment(t *testing.T) {
	env := setupTeamTestEnv(t)
	ctx := context.Background()

	eng, err := env.service.Create(ctx, actorOf(env.admin), CreateTeamInput{Name: "Eng"})
	require.NoError(t, err)
	assert.Nil(t, eng.ManagerID, "admins are never auto-assigned")

	design, err := env.service.Create(ctx, actorOf(env.manager), CreateTeamInput{
		Name:      "Design",
		MemberIDs: []uint64{env.employee.ID, env.employee.ID},
	})
	require.NoError(t, err)
	require.NotNil(t, design.ManagerID)
	assert.Equal(t, env.manager.ID, *design.ManagerID)

	entry := env.lastActivity(t, models.ActionTeamCreated)
	assert.Equal(t, json.Number("1"), entry.Metadata["member_count"])
	assert.Equal(t, "Design", entry.Metadata["name"])

	detail, err := env.service.Get(ctx, actorOf(env.employee), design.ID)
	require.NoError(t, err)
	require.Len(t, detail.Members, 1)
	assert.Equal(t, env.employee.ID, detail.Members[0].UserID)
}

func TestTeamService_CreateErrors(t *testing.T) {
	env := setupTeamTestEnv(t)
	ctx := context.Background()
	missing := uint64(9999)

	_, err := env.service.Create(ctx, actorOf(env.employee), CreateTeamInput{Name: "x"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.service.Create(ctx, actorOf(env.admin), CreateTeamInput{Name: "  "})
	assert.ErrorIs(t, err, ErrTeamNameRequired)

	_, err = env.service.Create(ctx, actorOf(env.admin), CreateTeamInput{Name: "x", ManagerID: &missing})
	assert.ErrorIs(t, err, ErrManagerNotFound)

	_, err = env.service.Create(ctx, actorOf(env.admin), CreateTeamInput{Name: "x", ManagerID: &env.employee.ID})
	assert.ErrorIs(t, err, ErrInvalidManagerRole)

	_, err = env.service.Create(ctx, actorOf(env.admin), CreateTeamInput{Name: "x", MemberIDs: []uint64{missing}})
	assert.ErrorIs(t, err, ErrUserNotFound)

	var count int64
	require.NoError(t, env.db.Model(&models.Team{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestTeamService_GetVisibility(t *testing.T) {
	env := setupTeamTestEnv(t)
	ctx := context.Background()

	team := testutil.CreateTeam(t, env.db, "Ops", &env.manager.ID)

	_, err := env.service.Get(ctx, actorOf(env.employee), team.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	detail, err := env.service.Get(ctx, actorOf(env.other), team.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ops", detail.Team.Name)
	require.NotNil(t, detail.Team.Manager)
	assert.Equal(t, env.manager.Name, detail.Team.Manager.Name)

	_, err = env.service.Get(ctx, actorOf(env.admin), 9999)
	assert.ErrorIs(t, err, ErrTeamNotFound)

	_, err = env.service.Get(ctx, actorOf(env.employee), 9999)
	assert.ErrorIs(t, err, ErrTeamNotFound, "a missing team is not found for every role")

	summaries, err := env.service.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.NotNil(t, summaries[0].ManagerName)
	assert.Equal(t, env.manager.Name, *summaries[0].ManagerName)
}

func TestTeamService_Update(t *testing.T) {
	env := setupTeamTestEnv(t)
	ctx := context.Background()

	team := testutil.CreateTeam(t, env.db, "Ops", &env.manager.ID)

	name := "Platform"
	updated, err := env.service.Update(ctx, actorOf(env.other), team.ID, UpdateTeamInput{
		Name:      &name,
		ManagerID: &env.other.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Platform", updated.Name)
	assert.Equal(t, env.other.ID, *updated.ManagerID)

	entry := env.lastActivity(t, models.ActionTeamUpdated)
	assert.Len(t, entry.Metadata["changes"], 2)

	_, err = env.service.Update(ctx, actorOf(env.employee), team.ID, UpdateTeamInput{Name: &name})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.service.Update(ctx, actorOf(env.admin), team.ID, UpdateTeamInput{})
	assert.ErrorIs(t, err, ErrNoFieldsToUpdate)

	_, err = env.service.Update(ctx, actorOf(env.admin), 9999, UpdateTeamInput{Name: &name})
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestTeamService_Delete(t *testing.T) {
	env := setupTeamTestEnv(t)
	ctx := context.Background()

	team := testutil.CreateTeam(t, env.db, "Ops", &env.manager.ID, env.employee.ID)
	task := testutil.CreateTask(t, env.db, "Keep me", &team.ID, &env.admin.ID)

	assert.ErrorIs(t, env.service.Delete(ctx, actorOf(env.manager), team.ID), ErrForbidden)
	require.NoError(t, env.service.Delete(ctx, actorOf(env.admin), team.ID))
	assert.ErrorIs(t, env.service.Delete(ctx, actorOf(env.admin), team.ID), ErrTeamNotFound)

	var reloaded models.Task
	require.NoError(t, env.db.First(&reloaded, task.ID).Error)
	assert.Nil(t, reloaded.TeamID)

	var members int64
	require.NoError(t, env.db.Model(&models.TeamMember{}).Where("team_id = ?", team.ID).Count(&members).Error)
	assert.Zero(t, members)

	entry := env.lastActivity(t, models.ActionTeamDeleted)
	assert.Equal(t, "Ops", entry.Metadata["name"])
}

func TestTeamService_Members(t *testing.T) {
	env := setupTeamTestEnv(t)
	ctx := context.Background()

	team := testutil.CreateTeam(t, env.db, "Ops", &env.manager.ID)

	assert.ErrorIs(t, env.service.AddMember(ctx, actorOf(env.other), team.ID, env.employee.ID), ErrForbidden)
	assert.ErrorIs(t, env.service.AddMember(ctx, actorOf(env.employee), team.ID, env.employee.ID), ErrForbidden)
	assert.ErrorIs(t, env.service.AddMember(ctx, actorOf(env.manager), team.ID, 9999), ErrUserNotFound)
	assert.ErrorIs(t, env.service.AddMember(ctx, actorOf(env.admin), 9999, env.employee.ID), ErrTeamNotFound)

	require.NoError(t, env.service.AddMember(ctx, actorOf(env.manager), team.ID, env.employee.ID))
	require.NoError(t, env.service.AddMember(ctx, actorOf(env.admin), team.ID, env.employee.ID), "adding twice is a no-op")

	var count int64
	require.NoError(t, env.db.Model(&models.TeamMember{}).Where("team_id = ?", team.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var addedRows int64
	require.NoError(t, env.db.Model(&models.ActivityLog{}).
		Where("action_type = ?", models.ActionTeamMemberAdded).Count(&addedRows).Error)
	assert.Equal(t, int64(1), addedRows, "a repeated add is not logged")

	added := env.lastActivity(t, models.ActionTeamMemberAdded)
	assert.Equal(t, "Ops", added.Metadata["team_name"])
	assert.Equal(t, env.employee.Name, added.Metadata["user_name"])

	require.NoError(t, env.service.RemoveMember(ctx, actorOf(env.manager), team.ID, env.employee.ID))
	assert.ErrorIs(t, env.service.RemoveMember(ctx, actorOf(env.manager), team.ID, env.employee.ID), ErrMemberNotFound)

	var removed int64
	require.NoError(t, env.db.Model(&models.ActivityLog{}).
		Where("action_type = ?", models.ActionTeamMemberRemoved).Count(&removed).Error)
	assert.Equal(t, int64(1), removed)
}
