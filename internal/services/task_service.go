package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/yukikurage/team-task-api/internal/access"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrTitleRequired        = errors.New("task title is required")
	ErrTitleEmpty           = errors.New("title cannot be empty")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrAssigneeNotInTeam    = errors.New("all assigned users must be members of the selected team")
	ErrTaskPermissionDenied = errors.New("access denied. You can only update tasks assigned to you")
)

// TaskService handles task business logic
type TaskService struct {
	taskRepo repository.TaskRepository
	teamRepo repository.TeamRepository
	userRepo repository.UserRepository
	activity *ActivityRecorder
	now      func() time.Time
}

// NewTaskService creates a new TaskService
func NewTaskService(
	taskRepo repository.TaskRepository,
	teamRepo repository.TeamRepository,
	userRepo repository.UserRepository,
	activity *ActivityRecorder,
) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		teamRepo: teamRepo,
		userRepo: userRepo,
		activity: activity,
		now:      time.Now,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Status     *models.TaskStatus
	TeamID     *uint64
	Pagination *utils.PaginationParams
}

// ListTasks returns the tasks visible to the actor, newest first.
func (s *TaskService) ListTasks(ctx context.Context, actor access.Actor, input ListTasksInput) ([]models.Task, int64, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}

	tasks, total, err := s.taskRepo.List(ctx, repository.TaskFilter{
		Scope:      access.TaskVisibility(actor),
		Status:     input.Status,
		TeamID:     input.TeamID,
		Pagination: input.Pagination,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// GetTask returns a task with related data
func (s *TaskService) GetTask(ctx context.Context, actor access.Actor, taskID uint64) (*models.Task, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !access.CanViewTask(actor, task.AssignedTo, task.AssigneeIDs()) {
		return nil, ErrForbidden
	}
	return task, nil
}

// CreateTaskInput represents input for creating a task. AssigneeIDs wins
// over the legacy AssignedTo when both are given.
type CreateTaskInput struct {
	Title       string
	Description string
	AssignedTo  *uint64
	AssigneeIDs []uint64
	TeamID      *uint64
	DueDate     *time.Time
}

// CreateTask validates team and assignees, then stores the task and its
// assignments together.
func (s *TaskService) CreateTask(ctx context.Context, actor access.Actor, input CreateTaskInput) (*models.Task, error) {
	if !access.CanManageTasks(actor) {
		return nil, ErrForbidden
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	if input.TeamID != nil {
		if err := s.authorizeTeam(ctx, actor, *input.TeamID); err != nil {
			return nil, err
		}
	}

	assigneeIDs := resolveAssignees(input.AssigneeIDs, input.AssignedTo)
	if err := s.validateAssignees(ctx, input.TeamID, assigneeIDs); err != nil {
		return nil, err
	}

	creatorID := actor.ID
	task := &models.Task{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      models.TaskStatusPending,
		AssignedTo:  primaryOf(assigneeIDs),
		TeamID:      input.TeamID,
		CreatedBy:   &creatorID,
		DueDate:     input.DueDate,
	}
	if err := s.taskRepo.Create(ctx, task, assigneeIDs); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	created, err := s.findTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("Created task %q", title)
	if created.Team != nil {
		desc += fmt.Sprintf(" in team %q", created.Team.Name)
	}
	if len(assigneeIDs) > 0 {
		desc += " and assigned to " + strings.Join(assigneeNames(created), ", ")
	}
	s.activity.Record(ctx, actor, Activity{
		Action:      models.ActionTaskCreated,
		Entity:      models.EntityTask,
		EntityID:    created.ID,
		Description: desc,
		Metadata: map[string]any{
			"task_id":      created.ID,
			"title":        title,
			"team_id":      created.TeamID,
			"assignee_ids": assigneeIDs,
		},
	})

	return created, nil
}

// UpdateTaskInput holds optional fields. AssigneeIDs, when non-nil,
// replaces the assignee set and wins over AssignedTo.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	AssignedTo  utils.Optional[uint64]
	AssigneeIDs *[]uint64
	TeamID      utils.Optional[uint64]
	DueDate     utils.Optional[time.Time]
}

// UpdateTask applies a partial update. Moving a task into a team is subject
// to the same manager restriction as creating one there.
func (s *TaskService) UpdateTask(ctx context.Context, actor access.Actor, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	if !access.CanManageTasks(actor) {
		return nil, ErrForbidden
	}

	before, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleEmpty
		}
		fields["title"] = title
	}
	if input.Description != nil {
		fields["description"] = strings.TrimSpace(*input.Description)
	}

	teamID := before.TeamID
	if input.TeamID.Set {
		if input.TeamID.Value != nil {
			if err := s.authorizeTeam(ctx, actor, *input.TeamID.Value); err != nil {
				return nil, err
			}
		}
		teamID = input.TeamID.Value
		fields["team_id"] = teamID
	}

	var assigneeIDs *[]uint64
	switch {
	case input.AssigneeIDs != nil:
		ids := dedupe(*input.AssigneeIDs)
		assigneeIDs = &ids
	case input.AssignedTo.Set:
		ids := resolveAssignees(nil, input.AssignedTo.Value)
		assigneeIDs = &ids
	}
	if assigneeIDs != nil {
		if err := s.validateAssignees(ctx, teamID, *assigneeIDs); err != nil {
			return nil, err
		}
		fields["assigned_to"] = primaryOf(*assigneeIDs)
	}

	if input.DueDate.Set {
		fields["due_date"] = input.DueDate.Value
	}

	if len(fields) == 0 {
		return nil, ErrNoFieldsToUpdate
	}

	if err := s.taskRepo.Update(ctx, taskID, fields, assigneeIDs); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	after, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if changes := taskChanges(before, after, input, assigneeIDs != nil); len(changes) > 0 {
		s.activity.Record(ctx, actor, Activity{
			Action:      models.ActionTaskUpdated,
			Entity:      models.EntityTask,
			EntityID:    taskID,
			Description: fmt.Sprintf("Updated task %q: %s", after.Title, strings.Join(changes, ", ")),
			Metadata: map[string]any{
				"task_id": taskID,
				"changes": changes,
			},
		})
	}

	return after, nil
}

// UpdateTaskStatus is the one mutation employees may perform, and only on
// tasks where they are the primary assignee.
func (s *TaskService) UpdateTaskStatus(ctx context.Context, actor access.Actor, taskID uint64, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !access.CanUpdateTaskStatus(actor, task.AssignedTo) {
		return nil, ErrTaskPermissionDenied
	}

	oldStatus := task.Status
	fields := map[string]any{"status": status}
	switch {
	case status != models.TaskStatusCompleted:
		fields["completed_at"] = nil
	case oldStatus != models.TaskStatusCompleted || task.CompletedAt == nil:
		fields["completed_at"] = s.now().UTC()
	}

	if err := s.taskRepo.Update(ctx, taskID, fields, nil); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}

	updated, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, actor, Activity{
		Action:      models.ActionTaskStatusUpdated,
		Entity:      models.EntityTask,
		EntityID:    taskID,
		Description: fmt.Sprintf("Changed task %q status from %s to %s", task.Title, oldStatus, status),
		Metadata: map[string]any{
			"task_id":    taskID,
			"old_status": oldStatus,
			"new_status": status,
		},
	})

	return updated, nil
}

// DeleteTask removes a task and its assignments.
func (s *TaskService) DeleteTask(ctx context.Context, actor access.Actor, taskID uint64) error {
	if !access.CanManageTasks(actor) {
		return ErrForbidden
	}

	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.activity.Record(ctx, actor, Activity{
		Action:      models.ActionTaskDeleted,
		Entity:      models.EntityTask,
		EntityID:    taskID,
		Description: fmt.Sprintf("Deleted task %q", task.Title),
		Metadata: map[string]any{
			"task_id": taskID,
			"title":   task.Title,
		},
	})
	return nil
}

func (s *TaskService) findTask(ctx context.Context, id uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// authorizeTeam requires the team to exist and, for managers, to be one
// they manage.
func (s *TaskService) authorizeTeam(ctx context.Context, actor access.Actor, teamID uint64) error {
	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to find team: %w", err)
	}
	if !access.CanWriteTeamTask(actor, team.ManagerID) {
		return ErrForbidden
	}
	return nil
}

// validateAssignees checks team membership first, then existence.
func (s *TaskService) validateAssignees(ctx context.Context, teamID *uint64, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}

	if teamID != nil {
		members, err := s.teamRepo.MemberIDs(ctx, *teamID)
		if err != nil {
			return fmt.Errorf("failed to list team members: %w", err)
		}
		for _, id := range ids {
			if !slices.Contains(members, id) {
				return ErrAssigneeNotInTeam
			}
		}
	}

	found, err := s.userRepo.ExistingIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to check users: %w", err)
	}
	for _, id := range ids {
		if !slices.Contains(found, id) {
			return fmt.Errorf("%w: user with ID %d not found", ErrUserNotFound, id)
		}
	}
	return nil
}

// resolveAssignees applies the precedence rule: a non-empty list wins,
// otherwise the legacy single assignee, otherwise nobody.
func resolveAssignees(list []uint64, legacy *uint64) []uint64 {
	if len(list) > 0 {
		return dedupe(list)
	}
	if legacy != nil {
		return []uint64{*legacy}
	}
	return []uint64{}
}

func primaryOf(ids []uint64) *uint64 {
	if len(ids) == 0 {
		return nil
	}
	id := ids[0]
	return &id
}

func assigneeNames(task *models.Task) []string {
	names := make([]string, 0, len(task.Assignments))
	for _, a := range task.Assignments {
		names = append(names, a.User.Name)
	}
	return names
}

func teamName(team *models.Team) string {
	if team == nil {
		return "None"
	}
	return team.Name
}

func taskChanges(before, after *models.Task, input UpdateTaskInput, assigneesTouched bool) []string {
	var changes []string
	if input.Title != nil && after.Title != before.Title {
		changes = append(changes, fmt.Sprintf("title: %q -> %q", before.Title, after.Title))
	}
	if input.Description != nil && after.Description != before.Description {
		changes = append(changes, "description updated")
	}
	if assigneesTouched {
		oldNames, newNames := assigneeNames(before), assigneeNames(after)
		if !slices.Equal(slices.Sorted(slices.Values(oldNames)), slices.Sorted(slices.Values(newNames))) {
			changes = append(changes, fmt.Sprintf("assignees: %s -> %s", joinOrNone(oldNames), joinOrNone(newNames)))
		}
	}
	if input.TeamID.Set && !sameID(before.TeamID, after.TeamID) {
		changes = append(changes, fmt.Sprintf("team: %s -> %s", teamName(before.Team), teamName(after.Team)))
	}
	if input.DueDate.Set && !sameTime(before.DueDate, after.DueDate) {
		changes = append(changes, "due date updated")
	}
	return changes
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, ", ")
}

func sameID(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
