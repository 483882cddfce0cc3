package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-task-api/internal/dto"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/services"
)

type TeamHandler struct {
	teamService *services.TeamService
}

func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// ListTeams returns every team with manager name and member count
func (h *TeamHandler) ListTeams(c *gin.Context) {
	teams, err := h.teamService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamListResponse(teams))
}

// GetTeam returns a team with its members
func (h *TeamHandler) GetTeam(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.teamService.Get(c.Request.Context(), a, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamDetailResponse(*detail.Team, detail.Members))
}

func (h *TeamHandler) CreateTeam(c *gin.Context) {
	type CreateTeamRequest struct {
		Name        string   `json:"name" binding:"required"`
		Description *string  `json:"description"`
		ManagerID   *uint64  `json:"manager_id" binding:"omitempty,gt=0"`
		MemberIDs   []uint64 `json:"member_ids" binding:"omitempty,dive,gt=0"`
	}

	a, ok := actor(c)
	if !ok {
		return
	}

	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err)
		return
	}

	team, err := h.teamService.Create(c.Request.Context(), a, services.CreateTeamInput{
		Name:        req.Name,
		Description: req.Description,
		ManagerID:   req.ManagerID,
		MemberIDs:   req.MemberIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.TeamResponse{Team: dto.ToTeamDTO(*team)})
}

func (h *TeamHandler) UpdateTeam(c *gin.Context) {
	type UpdateTeamRequest struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		ManagerID   *uint64 `json:"manager_id" binding:"omitempty,gt=0"`
	}

	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err)
		return
	}

	team, err := h.teamService.Update(c.Request.Context(), a, id, services.UpdateTeamInput{
		Name:        req.Name,
		Description: req.Description,
		ManagerID:   req.ManagerID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TeamResponse{Team: dto.ToTeamDTO(*team)})
}

func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.teamService.Delete(c.Request.Context(), a, id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Team deleted successfully"})
}

func (h *TeamHandler) AddMember(c *gin.Context) {
	type AddMemberRequest struct {
		UserID uint64 `json:"user_id" binding:"required,gt=0"`
	}

	a, ok := actor(c)
	if !ok {
		return
	}
	teamID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err)
		return
	}

	if err := h.teamService.AddMember(c.Request.Context(), a, teamID, req.UserID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Member added to team successfully"})
}

func (h *TeamHandler) RemoveMember(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	teamID, ok := idParam(c, "id")
	if !ok {
		return
	}
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}

	if err := h.teamService.RemoveMember(c.Request.Context(), a, teamID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Member removed from team successfully"})
}
