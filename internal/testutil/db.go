// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/team-task-api/internal/database"
	"github.com/yukikurage/team-task-api/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens an isolated in-memory SQLite database with the full schema.
// The shared cache keeps every pooled connection on the same database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, database.Migrate(db, zap.NewNop()))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return db
}

// CreateUser inserts a verified user with the given role.
func CreateUser(t *testing.T, db *gorm.DB, name string, role models.Role) *models.User {
	t.Helper()

	user := &models.User{
		Email:         fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		Name:          name,
		Role:          role,
		EmailVerified: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTeam inserts a team with the given manager and members.
func CreateTeam(t *testing.T, db *gorm.DB, name string, managerID *uint64, memberIDs ...uint64) *models.Team {
	t.Helper()

	team := &models.Team{Name: name, ManagerID: managerID}
	require.NoError(t, db.Omit("Manager", "Members").Create(team).Error)
	for _, id := range memberIDs {
		require.NoError(t, db.Omit("User").Create(&models.TeamMember{TeamID: team.ID, UserID: id}).Error)
	}
	return team
}

// CreateTask inserts a task whose assignee set is assigneeIDs in order.
func CreateTask(t *testing.T, db *gorm.DB, title string, teamID, creatorID *uint64, assigneeIDs ...uint64) *models.Task {
	t.Helper()

	task := &models.Task{
		Title:     title,
		Status:    models.TaskStatusPending,
		TeamID:    teamID,
		CreatedBy: creatorID,
	}
	if len(assigneeIDs) > 0 {
		first := assigneeIDs[0]
		task.AssignedTo = &first
	}
	require.NoError(t, db.Omit("Team", "Creator", "Assignee", "Assignments").Create(task).Error)
	for i, id := range assigneeIDs {
		require.NoError(t, db.Omit("User").Create(&models.TaskAssignment{TaskID: task.ID, UserID: id, Position: i}).Error)
	}
	return task
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
