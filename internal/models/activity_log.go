package models

import (
	"time"

	"gorm.io/datatypes"
)

type ActionType string

const (
	ActionTaskCreated       ActionType = "task_created"
	ActionTaskUpdated       ActionType = "task_updated"
	ActionTaskStatusUpdated ActionType = "task_status_updated"
	ActionTaskDeleted       ActionType = "task_deleted"
	ActionTeamCreated       ActionType = "team_created"
	ActionTeamUpdated       ActionType = "team_updated"
	ActionTeamDeleted       ActionType = "team_deleted"
	ActionTeamMemberAdded   ActionType = "team_member_added"
	ActionTeamMemberRemoved ActionType = "team_member_removed"
)

type EntityType string

const (
	EntityTask EntityType = "task"
	EntityTeam EntityType = "team"
)

// ActivityLog is append-only.
type ActivityLog struct {
	ID          uint64            `gorm:"primarykey" json:"id"`
	UserID      *uint64           `gorm:"index" json:"user_id"`
	ActionType  ActionType        `gorm:"type:varchar(50);not null;index" json:"action_type"`
	EntityType  EntityType        `gorm:"type:varchar(50);not null;index:idx_activity_entity" json:"entity_type"`
	EntityID    *uint64           `gorm:"index:idx_activity_entity" json:"entity_id"`
	Description string            `gorm:"type:text" json:"description"`
	Metadata    datatypes.JSONMap `json:"metadata"`
	CreatedAt   time.Time         `gorm:"index" json:"created_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"user,omitempty"`
}
