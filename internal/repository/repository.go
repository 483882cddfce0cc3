package repository

import (
	"context"
	"time"

	"github.com/yukikurage/team-task-api/internal/access"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/utils"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByEmail finds a user by normalized email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// ExistingIDs returns the subset of ids that belong to a user
	ExistingIDs(ctx context.Context, ids []uint64) ([]uint64, error)

	// List returns every user, newest first
	List(ctx context.Context) ([]models.User, error)

	// Update applies a partial update; demoting to employee clears the
	// user's team manager references
	Update(ctx context.Context, id uint64, fields map[string]any) error

	// SetOTP stores a fresh OTP for the user with the given email
	SetOTP(ctx context.Context, email, otp string, expiresAt time.Time) error

	// ConsumeOTP marks the user verified and clears the OTP, provided the
	// stored code still equals otp
	ConsumeOTP(ctx context.Context, id uint64, otp string) error

	// SetGoogleID links a Google account to an existing user
	SetGoogleID(ctx context.Context, id uint64, googleID string) error

	// Delete removes the user and detaches every reference in one transaction
	Delete(ctx context.Context, id uint64) error
}

// TeamRepository defines the interface for team data access
type TeamRepository interface {
	// Create creates a team and its initial members atomically
	Create(ctx context.Context, team *models.Team, memberIDs []uint64) error

	// FindByID finds a team by ID with its manager loaded
	FindByID(ctx context.Context, id uint64) (*models.Team, error)

	// List returns every team with manager name and member count
	List(ctx context.Context) ([]TeamSummary, error)

	// ListMembers returns the members of a team with their users loaded
	ListMembers(ctx context.Context, teamID uint64) ([]models.TeamMember, error)

	// MemberIDs returns the user IDs of a team's members
	MemberIDs(ctx context.Context, teamID uint64) ([]uint64, error)

	// IsMember reports whether a user belongs to a team
	IsMember(ctx context.Context, teamID, userID uint64) (bool, error)

	// Update applies a partial update
	Update(ctx context.Context, id uint64, fields map[string]any) error

	// Delete deletes a team, its memberships and detaches its tasks
	Delete(ctx context.Context, id uint64) error

	// AddMember adds a member and reports whether one was inserted; adding
	// an existing member is a no-op
	AddMember(ctx context.Context, teamID, userID uint64) (bool, error)

	// RemoveMember removes a member and reports whether one was removed
	RemoveMember(ctx context.Context, teamID, userID uint64) (bool, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a task and its ordered assignee set atomically
	Create(ctx context.Context, task *models.Task, assigneeIDs []uint64) error

	// FindByID finds a task with team, creator and assignees loaded
	FindByID(ctx context.Context, id uint64) (*models.Task, error)

	// List retrieves tasks matching filter
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update applies a partial update. A non-nil assigneeIDs replaces the
	// assignee set in the same transaction.
	Update(ctx context.Context, id uint64, fields map[string]any, assigneeIDs *[]uint64) error

	// Delete deletes a task and its assignments
	Delete(ctx context.Context, id uint64) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	// Scope is the visibility predicate for the caller
	Scope      access.Expr
	Status     *models.TaskStatus
	TeamID     *uint64
	Pagination *utils.PaginationParams
}

// TeamSummary is a team row enriched for listings
type TeamSummary struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	ManagerID   *uint64   `json:"manager_id"`
	ManagerName *string   `json:"manager_name"`
	MemberCount int64     `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ActivityLogRepository defines the interface for activity log data access
type ActivityLogRepository interface {
	// Create appends an entry
	Create(ctx context.Context, entry *models.ActivityLog) error

	// List returns entries matching where, newest first
	List(ctx context.Context, where access.Expr, page utils.PaginationParams) ([]models.ActivityLog, int64, error)
}

// ReportRepository runs the aggregate queries behind reports. Every method
// takes a fully assembled predicate.
type ReportRepository interface {
	StatusCounts(ctx context.Context, where access.Expr) ([]StatusCount, error)
	TaskTimestamps(ctx context.Context, column string, where access.Expr) ([]time.Time, error)
	Teams(ctx context.Context, where access.Expr) ([]TeamRow, error)
	TeamStatusCounts(ctx context.Context, teamIDs []uint64, where access.Expr) ([]TeamStatusCount, error)
	TopEmployees(ctx context.Context, where access.Expr, limit int) ([]EmployeeRow, error)
	ActivityEvents(ctx context.Context, where access.Expr) ([]ActivityEvent, error)
}

type StatusCount struct {
	Status models.TaskStatus
	Count  int64
}

type TeamRow struct {
	ID          uint64
	Name        string
	MemberCount int64
}

type TeamStatusCount struct {
	TeamID uint64
	Status models.TaskStatus
	Count  int64
}

type EmployeeRow struct {
	ID         uint64
	Name       string
	Email      string
	Total      int64
	Completed  int64
	InProgress int64
	Pending    int64
}

type ActivityEvent struct {
	CreatedAt  time.Time
	ActionType models.ActionType
}
