package repository

import (
	"context"
	"time"

	"github.com/yukikurage/team-task-api/internal/database"
	"github.com/yukikurage/team-task-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

func orderedAssignments(db *gorm.DB) *gorm.DB {
	return db.Order("task_assignments.position ASC")
}

func withTaskRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Team").
		Preload("Creator").
		Preload("Assignee").
		Preload("Assignments", orderedAssignments).
		Preload("Assignments.User")
}

// Create creates the task and its assignments in one transaction
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task, assigneeIDs []uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(task).Error; err != nil {
			return err
		}
		return insertAssignments(tx, task.ID, assigneeIDs)
	})
}

// insertAssignments keeps the caller's order in Position. Duplicate pairs
// are ignored.
func insertAssignments(tx *gorm.DB, taskID uint64, userIDs []uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	assignments := make([]models.TaskAssignment, 0, len(userIDs))
	for i, userID := range userIDs {
		assignments = append(assignments, models.TaskAssignment{
			TaskID:     taskID,
			UserID:     userID,
			Position:   i,
			AssignedAt: now,
		})
	}
	return tx.Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&assignments).Error
}

// FindByID finds a task by ID with its relations loaded
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).Scopes(withTaskRelations).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks with filtering and optional pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.WithContext(ctx).Model(&models.Task{}).Scopes(whereExpr(filter.Scope))

	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.TeamID != nil {
		query = query.Where("tasks.team_id = ?", *filter.TeamID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("tasks.created_at DESC").Order("tasks.id DESC")
	if filter.Pagination != nil {
		listQuery = listQuery.Scopes(database.Paginate(*filter.Pagination))
	}

	if err := listQuery.Scopes(withTaskRelations).Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update applies fields and, when given, replaces the assignee set
func (r *GormTaskRepository) Update(ctx context.Context, id uint64, fields map[string]any, assigneeIDs *[]uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(fields) > 0 {
			res := tx.Model(&models.Task{}).Where("id = ?", id).Updates(fields)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}

		if assigneeIDs == nil {
			return nil
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}
		return insertAssignments(tx, id, *assigneeIDs)
	})
}

// Delete deletes a task and its assignments
func (r *GormTaskRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.Task{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
