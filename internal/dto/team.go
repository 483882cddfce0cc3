package dto

import (
	"time"

	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
)

// TeamDTO represents a team in API responses
type TeamDTO struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	ManagerID    *uint64   `json:"manager_id"`
	ManagerName  *string   `json:"manager_name"`
	ManagerEmail *string   `json:"manager_email,omitempty"`
	MemberCount  *int64    `json:"member_count,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TeamMemberDTO is a member row of a team detail
type TeamMemberDTO struct {
	ID       uint64      `json:"id"`
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
	JoinedAt time.Time   `json:"joined_at"`
}

type TeamListResponse struct {
	Teams []TeamDTO `json:"teams"`
}

type TeamResponse struct {
	Team TeamDTO `json:"team"`
}

// TeamDetailResponse carries the team with its members
type TeamDetailResponse struct {
	Team    TeamDTO         `json:"team"`
	Members []TeamMemberDTO `json:"members"`
}

func ToTeamDTO(team models.Team) TeamDTO {
	dto := TeamDTO{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		ManagerID:   team.ManagerID,
		CreatedAt:   team.CreatedAt,
		UpdatedAt:   team.UpdatedAt,
	}
	if team.Manager != nil {
		dto.ManagerName = &team.Manager.Name
		dto.ManagerEmail = &team.Manager.Email
	}
	return dto
}

func ToTeamListResponse(teams []repository.TeamSummary) TeamListResponse {
	items := make([]TeamDTO, len(teams))
	for i, t := range teams {
		count := t.MemberCount
		items[i] = TeamDTO{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			ManagerID:   t.ManagerID,
			ManagerName: t.ManagerName,
			MemberCount: &count,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		}
	}
	return TeamListResponse{Teams: items}
}

func ToTeamDetailResponse(team models.Team, members []models.TeamMember) TeamDetailResponse {
	items := make([]TeamMemberDTO, 0, len(members))
	for _, m := range members {
		items = append(items, TeamMemberDTO{
			ID:       m.UserID,
			Email:    m.User.Email,
			Name:     m.User.Name,
			Role:     m.User.Role,
			JoinedAt: m.JoinedAt,
		})
	}
	return TeamDetailResponse{Team: ToTeamDTO(team), Members: items}
}
