package models

import "time"

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// TaskStatuses lists every status in display order.
var TaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusInProgress,
	TaskStatusCompleted,
	TaskStatusCancelled,
}

func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Task keeps AssignedTo as a mirror of the first entry in Assignments.
type Task struct {
	ID          uint64     `gorm:"primarykey" json:"id"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Status      TaskStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	AssignedTo  *uint64    `gorm:"index" json:"assigned_to"`
	TeamID      *uint64    `gorm:"index" json:"team_id"`
	CreatedBy   *uint64    `gorm:"index" json:"created_by"`
	DueDate     *time.Time `json:"due_date"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relations
	Team        *Team            `gorm:"foreignKey:TeamID;constraint:OnDelete:SET NULL" json:"team,omitempty"`
	Creator     *User            `gorm:"foreignKey:CreatedBy;constraint:OnDelete:SET NULL" json:"creator,omitempty"`
	Assignee    *User            `gorm:"foreignKey:AssignedTo;constraint:OnDelete:SET NULL" json:"assignee,omitempty"`
	Assignments []TaskAssignment `gorm:"foreignKey:TaskID" json:"assignments,omitempty"`
}

// AssigneeIDs returns the ordered assignee set.
func (t *Task) AssigneeIDs() []uint64 {
	ids := make([]uint64, 0, len(t.Assignments))
	for _, a := range t.Assignments {
		ids = append(ids, a.UserID)
	}
	return ids
}
