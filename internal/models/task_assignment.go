package models

import "time"

type TaskAssignment struct {
	TaskID     uint64    `gorm:"primarykey" json:"task_id"`
	UserID     uint64    `gorm:"primarykey;index" json:"user_id"`
	Position   int       `gorm:"not null;default:0" json:"position"`
	AssignedAt time.Time `json:"assigned_at"`

	// Relations
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}
