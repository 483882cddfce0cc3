package repository

import (
	"context"
	"time"

	"github.com/yukikurage/team-task-api/internal/access"
	"github.com/yukikurage/team-task-api/internal/models"
	"gorm.io/gorm"
)

// GormReportRepository is a GORM implementation of ReportRepository
type GormReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &GormReportRepository{db: db}
}

func (r *GormReportRepository) StatusCounts(ctx context.Context, where access.Expr) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Select("tasks.status AS status, COUNT(*) AS count").
		Scopes(whereExpr(where)).
		Group("tasks.status").
		Scan(&rows).Error
	return rows, err
}

// TaskTimestamps returns the values of column (tasks.created_at or
// tasks.completed_at) for matching tasks. Day bucketing happens in the
// caller so it stays independent of the SQL dialect.
func (r *GormReportRepository) TaskTimestamps(ctx context.Context, column string, where access.Expr) ([]time.Time, error) {
	var stamps []time.Time
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Scopes(whereExpr(access.And(where, access.Not(access.IsNull(column))))).
		Pluck(column, &stamps).Error
	return stamps, err
}

func (r *GormReportRepository) Teams(ctx context.Context, where access.Expr) ([]TeamRow, error) {
	var rows []TeamRow
	err := r.db.WithContext(ctx).Table("teams").
		Select(`teams.id AS id, teams.name AS name,
			(SELECT COUNT(*) FROM team_members WHERE team_members.team_id = teams.id) AS member_count`).
		Scopes(whereExpr(where)).
		Order("teams.name ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *GormReportRepository) TeamStatusCounts(ctx context.Context, teamIDs []uint64, where access.Expr) ([]TeamStatusCount, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}
	var rows []TeamStatusCount
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Select("tasks.team_id AS team_id, tasks.status AS status, COUNT(*) AS count").
		Scopes(whereExpr(access.And(access.In("tasks.team_id", teamIDs), where))).
		Group("tasks.team_id, tasks.status").
		Scan(&rows).Error
	return rows, err
}

// TopEmployees ranks employees by the number of matching tasks they are
// assigned to.
func (r *GormReportRepository) TopEmployees(ctx context.Context, where access.Expr, limit int) ([]EmployeeRow, error) {
	var rows []EmployeeRow
	err := r.db.WithContext(ctx).Table("users").
		Select(`users.id AS id, users.name AS name, users.email AS email,
			COUNT(tasks.id) AS total,
			COUNT(CASE WHEN tasks.status = 'completed' THEN 1 END) AS completed,
			COUNT(CASE WHEN tasks.status = 'in_progress' THEN 1 END) AS in_progress,
			COUNT(CASE WHEN tasks.status = 'pending' THEN 1 END) AS pending`).
		Joins("JOIN task_assignments ON task_assignments.user_id = users.id").
		Joins("JOIN tasks ON tasks.id = task_assignments.task_id").
		Where("users.role = ?", models.RoleEmployee).
		Scopes(whereExpr(where)).
		Group("users.id, users.name, users.email").
		Order("total DESC").
		Order("users.name ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *GormReportRepository) ActivityEvents(ctx context.Context, where access.Expr) ([]ActivityEvent, error) {
	var rows []ActivityEvent
	err := r.db.WithContext(ctx).Model(&models.ActivityLog{}).
		Select("activity_logs.created_at AS created_at, activity_logs.action_type AS action_type").
		Scopes(whereExpr(where)).
		Scan(&rows).Error
	return rows, err
}
