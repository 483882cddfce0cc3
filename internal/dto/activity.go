package dto

import (
	"time"

	"github.com/yukikurage/team-task-api/internal/models"
)

// ActivityLogDTO represents an activity log entry with its author
type ActivityLogDTO struct {
	ID          uint64            `json:"id"`
	UserID      *uint64           `json:"user_id"`
	ActionType  models.ActionType `json:"action_type"`
	EntityType  models.EntityType `json:"entity_type"`
	EntityID    *uint64           `json:"entity_id"`
	Description string            `json:"description"`
	Metadata    map[string]any    `json:"metadata"`
	CreatedAt   time.Time         `json:"created_at"`
	UserName    *string           `json:"user_name"`
	UserEmail   *string           `json:"user_email"`
	UserRole    *models.Role      `json:"user_role"`
}

type ActivityLogListResponse struct {
	Logs  []ActivityLogDTO `json:"logs"`
	Total int64            `json:"total"`
}

func ToActivityLogListResponse(entries []models.ActivityLog, total int64) ActivityLogListResponse {
	items := make([]ActivityLogDTO, len(entries))
	for i, e := range entries {
		items[i] = ActivityLogDTO{
			ID:          e.ID,
			UserID:      e.UserID,
			ActionType:  e.ActionType,
			EntityType:  e.EntityType,
			EntityID:    e.EntityID,
			Description: e.Description,
			Metadata:    map[string]any(e.Metadata),
			CreatedAt:   e.CreatedAt,
		}
		if e.User != nil {
			items[i].UserName = &e.User.Name
			items[i].UserEmail = &e.User.Email
			items[i].UserRole = &e.User.Role
		}
	}
	return ActivityLogListResponse{Logs: items, Total: total}
}
