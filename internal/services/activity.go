package services

import (
	"context"
	"fmt"

	"github.com/yukikurage/team-task-api/internal/access"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/utils"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Activity describes one committed mutation.
type Activity struct {
	Action      models.ActionType
	Entity      models.EntityType
	EntityID    uint64
	Description string
	Metadata    map[string]any
}

// ActivityRecorder appends activity log entries on a best-effort basis.
// Failures are logged and never reach the caller.
type ActivityRecorder struct {
	repo repository.ActivityLogRepository
	log  *zap.Logger
}

func NewActivityRecorder(repo repository.ActivityLogRepository, log *zap.Logger) *ActivityRecorder {
	return &ActivityRecorder{repo: repo, log: log}
}

// Record must be called after the mutation has committed. Entries without
// an identified actor are skipped.
func (r *ActivityRecorder) Record(ctx context.Context, actor access.Actor, a Activity) {
	if actor.ID == 0 {
		return
	}

	entityID := a.EntityID
	entry := &models.ActivityLog{
		UserID:      &actor.ID,
		ActionType:  a.Action,
		EntityType:  a.Entity,
		Description: a.Description,
		Metadata:    datatypes.JSONMap(a.Metadata),
	}
	if entityID != 0 {
		entry.EntityID = &entityID
	}
	if entry.Metadata == nil {
		entry.Metadata = datatypes.JSONMap{}
	}

	// the response is already decided; a client disconnect should not drop the entry
	if err := r.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		r.log.Warn("failed to record activity",
			zap.String("action", string(a.Action)),
			zap.Uint64("entity_id", entityID),
			zap.Uint64("user_id", actor.ID),
			zap.Error(err),
		)
	}
}

// ActivityLogService reads the activity log within the caller's scope.
type ActivityLogService struct {
	repo repository.ActivityLogRepository
}

func NewActivityLogService(repo repository.ActivityLogRepository) *ActivityLogService {
	return &ActivityLogService{repo: repo}
}

// ActivityQuery combines the listing filters with the report filter shape.
type ActivityQuery struct {
	EntityType *models.EntityType
	EntityID   *uint64
	ActionType *models.ActionType
	Filters    access.Filters
	Page       utils.PaginationParams
}

func (s *ActivityLogService) List(ctx context.Context, actor access.Actor, q ActivityQuery) ([]models.ActivityLog, int64, error) {
	if !access.CanViewReports(actor) {
		return nil, 0, ErrForbidden
	}

	parts := []access.Expr{access.ActivityScope(actor), q.Filters.ActivityFilter()}
	if q.EntityType != nil {
		parts = append(parts, access.Eq("activity_logs.entity_type", string(*q.EntityType)))
	}
	if q.EntityID != nil {
		parts = append(parts, access.Eq("activity_logs.entity_id", *q.EntityID))
	}
	if q.ActionType != nil {
		parts = append(parts, access.Eq("activity_logs.action_type", string(*q.ActionType)))
	}

	entries, total, err := s.repo.List(ctx, access.And(parts...), q.Page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list activity logs: %w", err)
	}
	return entries, total, nil
}
