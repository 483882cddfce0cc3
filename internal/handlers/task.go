package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-task-api/internal/dto"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/services"
	"github.com/yukikurage/team-task-api/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns the tasks visible to the current user.
// Can filter by status and team_id. Pagination applies only when page or
// limit is given.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var input services.ListTasksInput
	if s := c.Query("status"); s != "" {
		status := models.TaskStatus(s)
		input.Status = &status
	}
	if s := c.Query("team_id"); s != "" {
		teamID, err := strconv.ParseUint(s, 10, 64)
		if err != nil || teamID == 0 {
			apierrors.BadRequest(c, "Invalid team_id")
			return
		}
		input.TeamID = &teamID
	}
	if c.Query("page") != "" || c.Query("limit") != "" {
		params := utils.GetPaginationParams(c)
		input.Pagination = &params
	}

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), a, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, input.Pagination, total))
}

// GetTask returns a specific task
func (h *TaskHandler) GetTask(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	taskID, ok := idParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), a, taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TaskResponse{Task: dto.ToTaskDTO(*task)})
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	type CreateTaskRequest struct {
		Title           string      `json:"title" binding:"required"`
		Description     string      `json:"description"`
		AssignedTo      *uint64     `json:"assigned_to" binding:"omitempty,gt=0"`
		AssignedUserIDs []uint64    `json:"assigned_user_ids" binding:"omitempty,dive,gt=0"`
		TeamID          *uint64     `json:"team_id" binding:"omitempty,gt=0"`
		DueDate         *utils.Date `json:"due_date"`
	}

	a, ok := actor(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err)
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), a, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		AssigneeIDs: req.AssignedUserIDs,
		TeamID:      req.TeamID,
		DueDate:     req.DueDate.Ptr(),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.TaskResponse{Task: dto.ToTaskDTO(*task)})
}

// UpdateTask updates a task. Keys sent as null clear the field; absent keys
// leave it untouched.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	type UpdateTaskRequest struct {
		Title           *string                    `json:"title"`
		Description     *string                    `json:"description"`
		AssignedTo      utils.Optional[uint64]     `json:"assigned_to"`
		AssignedUserIDs *[]uint64                  `json:"assigned_user_ids"`
		TeamID          utils.Optional[uint64]     `json:"team_id"`
		DueDate         utils.Optional[utils.Date] `json:"due_date"`
	}

	a, ok := actor(c)
	if !ok {
		return
	}
	taskID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err)
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), a, taskID, services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		AssigneeIDs: req.AssignedUserIDs,
		TeamID:      req.TeamID,
		DueDate:     utils.OptionalTime(req.DueDate),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TaskResponse{Task: dto.ToTaskDTO(*task)})
}

// UpdateTaskStatus is the one mutation an employee may perform, and only on
// a task they are the primary assignee of.
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	type UpdateStatusRequest struct {
		Status models.TaskStatus `json:"status" binding:"required,oneof=pending in_progress completed cancelled"`
	}

	a, ok := actor(c)
	if !ok {
		return
	}
	taskID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err)
		return
	}

	task, err := h.taskService.UpdateTaskStatus(c.Request.Context(), a, taskID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TaskResponse{Task: dto.ToTaskDTO(*task)})
}

// DeleteTask deletes a task and its assignments
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	taskID, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), a, taskID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Task deleted successfully"})
}
