package repository

import (
	"context"

	"github.com/yukikurage/team-task-api/internal/access"
	"github.com/yukikurage/team-task-api/internal/database"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormActivityLogRepository is a GORM implementation of ActivityLogRepository
type GormActivityLogRepository struct {
	db *gorm.DB
}

func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &GormActivityLogRepository{db: db}
}

func (r *GormActivityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(entry).Error
}

func (r *GormActivityLogRepository) List(ctx context.Context, where access.Expr, page utils.PaginationParams) ([]models.ActivityLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ActivityLog{}).Scopes(whereExpr(where))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.ActivityLog
	err := query.
		Preload("User").
		Order("activity_logs.created_at DESC").
		Order("activity_logs.id DESC").
		Scopes(database.Paginate(page)).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
