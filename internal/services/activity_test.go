package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/team-task-api/internal/access"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/testutil"
	"github.com/yukikurage/team-task-api/internal/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingActivityRepo struct {
	repository.ActivityLogRepository
	calls int
}

func (r *failingActivityRepo) Create(context.Context, *models.ActivityLog) error {
	r.calls++
	return errors.New("disk full")
}

func TestActivityRecorder_Record(t *testing.T) {
	t.Run("skips anonymous actors", func(t *testing.T) {
		repo := &failingActivityRepo{}
		NewActivityRecorder(repo, zap.NewNop()).Record(context.Background(), access.Actor{}, Activity{
			Action: models.ActionTaskCreated,
			Entity: models.EntityTask,
		})
		assert.Zero(t, repo.calls)
	})

	t.Run("swallows write failures", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		repo := &failingActivityRepo{}

		NewActivityRecorder(repo, zap.New(core)).Record(context.Background(),
			access.Actor{ID: 7, Role: models.RoleManager},
			Activity{Action: models.ActionTeamCreated, Entity: models.EntityTeam, EntityID: 3},
		)

		assert.Equal(t, 1, repo.calls)
		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "failed to record activity", entry.Message)
		assert.Equal(t, "team_created", entry.ContextMap()["action"])
	})

	t.Run("survives a cancelled request", func(t *testing.T) {
		db := testutil.NewDB(t)
		user := testutil.CreateUser(t, db, "admin", models.RoleAdmin)
		recorder := NewActivityRecorder(repository.NewActivityLogRepository(db), zap.NewNop())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		recorder.Record(ctx, actorOf(user), Activity{Action: models.ActionTaskDeleted, Entity: models.EntityTask, EntityID: 5})

		var entry models.ActivityLog
		require.NoError(t, db.First(&entry).Error)
		assert.Equal(t, user.ID, *entry.UserID)
		assert.Equal(t, uint64(5), *entry.EntityID)
		assert.NotNil(t, entry.Metadata)
	})
}

func TestActivityLogService_List(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewActivityLogRepository(db)
	recorder := NewActivityRecorder(repo, zap.NewNop())
	service := NewActivityLogService(repo)
	ctx := context.Background()

	admin := testutil.CreateUser(t, db, "admin", models.RoleAdmin)
	manager := testutil.CreateUser(t, db, "manager", models.RoleManager)
	other := testutil.CreateUser(t, db, "other", models.RoleManager)
	employee := testutil.CreateUser(t, db, "employee", models.RoleEmployee)

	mine := testutil.CreateTeam(t, db, "Mine", &manager.ID)
	theirs := testutil.CreateTeam(t, db, "Theirs", &other.ID)

	recorder.Record(ctx, actorOf(admin), Activity{Action: models.ActionTeamUpdated, Entity: models.EntityTeam, EntityID: mine.ID})
	recorder.Record(ctx, actorOf(other), Activity{Action: models.ActionTeamUpdated, Entity: models.EntityTeam, EntityID: theirs.ID})
	recorder.Record(ctx, actorOf(manager), Activity{Action: models.ActionTaskCreated, Entity: models.EntityTask, EntityID: 42})

	page := utils.PaginationParams{Page: 1, Limit: 10}

	all, total, err := service.List(ctx, actorOf(admin), ActivityQuery{Page: page})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)

	scoped, total, err := service.List(ctx, actorOf(manager), ActivityQuery{Page: page})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, e := range scoped {
		assert.NotEqual(t, other.ID, *e.UserID)
	}

	entity := models.EntityTeam
	teams, total, err := service.List(ctx, actorOf(manager), ActivityQuery{EntityType: &entity, Page: page})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, teams, 1)
	assert.Equal(t, mine.ID, *teams[0].EntityID)
	require.NotNil(t, teams[0].User)
	assert.Equal(t, "admin", teams[0].User.Name)

	_, _, err = service.List(ctx, actorOf(employee), ActivityQuery{Page: page})
	assert.ErrorIs(t, err, ErrForbidden)
}
