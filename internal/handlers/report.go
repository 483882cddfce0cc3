package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-task-api/internal/access"
	"github.com/yukikurage/team-task-api/internal/constants"
	"github.com/yukikurage/team-task-api/internal/dto"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/services"
	"github.com/yukikurage/team-task-api/internal/utils"
)

// reportFilters is the query shape shared by reports and activity logs.
type reportFilters struct {
	TeamID    *uint64    `form:"team_id" binding:"omitempty,gt=0"`
	TaskID    *uint64    `form:"task_id" binding:"omitempty,gt=0"`
	UserID    *uint64    `form:"user_id" binding:"omitempty,gt=0"`
	StartDate *time.Time `form:"start_date" time_format:"2006-01-02" time_utc:"1"`
	EndDate   *time.Time `form:"end_date" time_format:"2006-01-02" time_utc:"1"`
}

func (f reportFilters) query() services.ReportQuery {
	return services.ReportQuery{
		TeamID:    f.TeamID,
		TaskID:    f.TaskID,
		UserID:    f.UserID,
		StartDate: nonZero(f.StartDate),
		EndDate:   nonZero(f.EndDate),
	}
}

// filters converts the calendar day filters into a half-open range.
func (f reportFilters) filters() access.Filters {
	out := access.Filters{TeamID: f.TeamID, TaskID: f.TaskID, UserID: f.UserID}
	if start := nonZero(f.StartDate); start != nil {
		out.Start = start
	}
	if end := nonZero(f.EndDate); end != nil {
		next := end.AddDate(0, 0, 1)
		out.End = &next
	}
	return out
}

func nonZero(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	return t
}

type ReportHandler struct {
	reportService   *services.ReportService
	activityService *services.ActivityLogService
}

func NewReportHandler(reportService *services.ReportService, activityService *services.ActivityLogService) *ReportHandler {
	return &ReportHandler{
		reportService:   reportService,
		activityService: activityService,
	}
}

// GetReports returns the five chart aggregates for the caller's scope
func (h *ReportHandler) GetReports(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var filters reportFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		apierrors.ValidationFailed(c, err)
		return
	}

	report, err := h.reportService.Generate(c.Request.Context(), a, filters.query())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": report})
}

// ListActivityLogs returns activity entries newest first
func (h *ReportHandler) ListActivityLogs(c *gin.Context) {
	type ActivityLogQuery struct {
		EntityType *models.EntityType `form:"entity_type" binding:"omitempty,oneof=task team"`
		EntityID   *uint64            `form:"entity_id" binding:"omitempty,gt=0"`
		ActionType *models.ActionType `form:"action_type"`
	}

	a, ok := actor(c)
	if !ok {
		return
	}

	var q ActivityLogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		apierrors.ValidationFailed(c, err)
		return
	}
	var filters reportFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		apierrors.ValidationFailed(c, err)
		return
	}

	entries, total, err := h.activityService.List(c.Request.Context(), a, services.ActivityQuery{
		EntityType: q.EntityType,
		EntityID:   q.EntityID,
		ActionType: q.ActionType,
		Filters:    filters.filters(),
		Page:       utils.GetOffsetParams(c, constants.DefaultActivityLimit, constants.MaxActivityLimit),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToActivityLogListResponse(entries, total))
}
