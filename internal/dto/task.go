package dto

import (
	"time"

	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/utils"
)

// TaskDTO represents a task in API responses. The *_name fields are
// denormalized from the preloaded relations.
type TaskDTO struct {
	ID              uint64            `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Status          models.TaskStatus `json:"status"`
	AssignedTo      *uint64           `json:"assigned_to"`
	TeamID          *uint64           `json:"team_id"`
	CreatedBy       *uint64           `json:"created_by"`
	DueDate         *time.Time        `json:"due_date"`
	CompletedAt     *time.Time        `json:"completed_at"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	AssignedToName  *string           `json:"assigned_to_name"`
	AssignedToEmail *string           `json:"assigned_to_email"`
	CreatedByName   *string           `json:"created_by_name"`
	TeamName        *string           `json:"team_name"`
	Assignees       []UserRefDTO      `json:"assignees"`
}

// TaskListResponse represents a list of tasks. Pagination is present only
// when the client asked for a page.
type TaskListResponse struct {
	Tasks      []TaskDTO                 `json:"tasks"`
	Pagination *utils.PaginationResponse `json:"pagination,omitempty"`
}

type TaskResponse struct {
	Task TaskDTO `json:"task"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		AssignedTo:  task.AssignedTo,
		TeamID:      task.TeamID,
		CreatedBy:   task.CreatedBy,
		DueDate:     task.DueDate,
		CompletedAt: task.CompletedAt,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
		Assignees:   make([]UserRefDTO, 0, len(task.Assignments)),
	}

	if task.Assignee != nil {
		dto.AssignedToName = &task.Assignee.Name
		dto.AssignedToEmail = &task.Assignee.Email
	}
	if task.Creator != nil {
		dto.CreatedByName = &task.Creator.Name
	}
	if task.Team != nil {
		dto.TeamName = &task.Team.Name
	}

	for _, a := range task.Assignments {
		if a.User.ID == 0 {
			continue
		}
		dto.Assignees = append(dto.Assignees, toUserRef(a.User))
	}

	return dto
}

// ToTaskListResponse converts tasks to TaskListResponse; params is nil for
// an unpaginated listing
func ToTaskListResponse(tasks []models.Task, params *utils.PaginationParams, total int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}

	resp := TaskListResponse{Tasks: items}
	if params != nil {
		resp.Pagination = &utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		}
	}
	return resp
}
