package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/yukikurage/team-task-api/internal/access"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTeamNotFound       = errors.New("team not found")
	ErrTeamNameRequired   = errors.New("team name is required")
	ErrManagerNotFound    = errors.New("manager not found")
	ErrInvalidManagerRole = errors.New("manager must be an admin or manager role")
	ErrMemberNotFound     = errors.New("member not found in team")
)

// TeamService handles team business logic
type TeamService struct {
	teamRepo repository.TeamRepository
	userRepo repository.UserRepository
	activity *ActivityRecorder
}

// NewTeamService creates a new TeamService
func NewTeamService(teamRepo repository.TeamRepository, userRepo repository.UserRepository, activity *ActivityRecorder) *TeamService {
	return &TeamService{
		teamRepo: teamRepo,
		userRepo: userRepo,
		activity: activity,
	}
}

// List returns every team; all authenticated roles may list teams.
func (s *TeamService) List(ctx context.Context) ([]repository.TeamSummary, error) {
	teams, err := s.teamRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// TeamDetail is a team with its members.
type TeamDetail struct {
	Team    *models.Team
	Members []models.TeamMember
}

// Get returns a team with members. Employees may only open teams they
// belong to.
func (s *TeamService) Get(ctx context.Context, actor access.Actor, teamID uint64) (*TeamDetail, error) {
	team, err := s.findTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	if !actor.Privileged() {
		isMember, err := s.teamRepo.IsMember(ctx, teamID, actor.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check membership: %w", err)
		}
		if !access.CanViewTeamDetail(actor, isMember) {
			return nil, ErrForbidden
		}
	}
	members, err := s.teamRepo.ListMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return &TeamDetail{Team: team, Members: members}, nil
}

// CreateTeamInput represents input for creating a team
type CreateTeamInput struct {
	Name        string
	Description *string
	ManagerID   *uint64
	MemberIDs   []uint64
}

// Create creates a team. A manager who names no manager manages the new
// team; an admin is never auto-assigned.
func (s *TeamService) Create(ctx context.Context, actor access.Actor, input CreateTeamInput) (*models.Team, error) {
	if !access.CanCreateTeam(actor) {
		return nil, ErrForbidden
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	managerID := input.ManagerID
	if managerID == nil && actor.IsManager() {
		id := actor.ID
		managerID = &id
	}
	if managerID != nil {
		if err := s.checkManager(ctx, *managerID); err != nil {
			return nil, err
		}
	}

	memberIDs := dedupe(input.MemberIDs)
	if err := s.requireUsers(ctx, memberIDs); err != nil {
		return nil, err
	}

	team := &models.Team{
		Name:        name,
		Description: emptyToNil(input.Description),
		ManagerID:   managerID,
	}
	if err := s.teamRepo.Create(ctx, team, memberIDs); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	s.activity.Record(ctx, actor, Activity{
		Action:      models.ActionTeamCreated,
		Entity:      models.EntityTeam,
		EntityID:    team.ID,
		Description: fmt.Sprintf("Created team %q with %s", name, plural(len(memberIDs), "member")),
		Metadata: map[string]any{
			"team_id":      team.ID,
			"name":         name,
			"member_count": len(memberIDs),
		},
	})

	return team, nil
}

// UpdateTeamInput holds optional fields. An empty description clears it.
type UpdateTeamInput struct {
	Name        *string
	Description *string
	ManagerID   *uint64
}

// Update applies a partial update. Any admin or manager may update any team.
func (s *TeamService) Update(ctx context.Context, actor access.Actor, teamID uint64, input UpdateTeamInput) (*models.Team, error) {
	if !access.CanUpdateTeam(actor) {
		return nil, ErrForbidden
	}

	before, err := s.findTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	var changes []string

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrTeamNameRequired
		}
		fields["name"] = name
		if name != before.Name {
			changes = append(changes, fmt.Sprintf("name: %q -> %q", before.Name, name))
		}
	}
	if input.Description != nil {
		desc := emptyToNil(input.Description)
		fields["description"] = desc
		if derefString(desc) != derefString(before.Description) {
			changes = append(changes, "description updated")
		}
	}
	if input.ManagerID != nil {
		if err := s.checkManager(ctx, *input.ManagerID); err != nil {
			return nil, err
		}
		fields["manager_id"] = *input.ManagerID
		if before.ManagerID == nil || *before.ManagerID != *input.ManagerID {
			changes = append(changes, fmt.Sprintf("manager: %s -> %s",
				s.userName(ctx, before.ManagerID), s.userName(ctx, input.ManagerID)))
		}
	}
	if len(fields) == 0 {
		return nil, ErrNoFieldsToUpdate
	}

	if err := s.teamRepo.Update(ctx, teamID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to update team: %w", err)
	}

	team, err := s.findTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		s.activity.Record(ctx, actor, Activity{
			Action:      models.ActionTeamUpdated,
			Entity:      models.EntityTeam,
			EntityID:    teamID,
			Description: fmt.Sprintf("Updated team %q: %s", team.Name, strings.Join(changes, ", ")),
			Metadata: map[string]any{
				"team_id": teamID,
				"changes": changes,
			},
		})
	}

	return team, nil
}

// Delete removes a team. Its tasks are kept without a team.
func (s *TeamService) Delete(ctx context.Context, actor access.Actor, teamID uint64) error {
	if !access.CanDeleteTeam(actor) {
		return ErrForbidden
	}

	team, err := s.findTeam(ctx, teamID)
	if err != nil {
		return err
	}

	if err := s.teamRepo.Delete(ctx, teamID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to delete team: %w", err)
	}

	s.activity.Record(ctx, actor, Activity{
		Action:      models.ActionTeamDeleted,
		Entity:      models.EntityTeam,
		EntityID:    teamID,
		Description: fmt.Sprintf("Deleted team %q", team.Name),
		Metadata: map[string]any{
			"team_id": teamID,
			"name":    team.Name,
		},
	})
	return nil
}

// AddMember adds a user to a team. Adding an existing member succeeds
// without creating a second membership.
func (s *TeamService) AddMember(ctx context.Context, actor access.Actor, teamID, userID uint64) error {
	team, err := s.authorizeMembers(ctx, actor, teamID)
	if err != nil {
		return err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	added, err := s.teamRepo.AddMember(ctx, teamID, userID)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	if !added {
		return nil
	}

	s.activity.Record(ctx, actor, Activity{
		Action:      models.ActionTeamMemberAdded,
		Entity:      models.EntityTeam,
		EntityID:    teamID,
		Description: fmt.Sprintf("Added %s to team %q", user.Name, team.Name),
		Metadata:    memberMetadata(team, user.ID, user.Name),
	})
	return nil
}

func (s *TeamService) RemoveMember(ctx context.Context, actor access.Actor, teamID, userID uint64) error {
	team, err := s.authorizeMembers(ctx, actor, teamID)
	if err != nil {
		return err
	}

	userName := s.userName(ctx, &userID)

	removed, err := s.teamRepo.RemoveMember(ctx, teamID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if !removed {
		return ErrMemberNotFound
	}

	s.activity.Record(ctx, actor, Activity{
		Action:      models.ActionTeamMemberRemoved,
		Entity:      models.EntityTeam,
		EntityID:    teamID,
		Description: fmt.Sprintf("Removed %s from team %q", userName, team.Name),
		Metadata:    memberMetadata(team, userID, userName),
	})
	return nil
}

func (s *TeamService) authorizeMembers(ctx context.Context, actor access.Actor, teamID uint64) (*models.Team, error) {
	if !actor.Privileged() {
		return nil, ErrForbidden
	}
	team, err := s.findTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !access.CanManageMembers(actor, team.ManagerID) {
		return nil, ErrForbidden
	}
	return team, nil
}

func memberMetadata(team *models.Team, userID uint64, userName string) map[string]any {
	return map[string]any{
		"team_id":   team.ID,
		"user_id":   userID,
		"team_name": team.Name,
		"user_name": userName,
	}
}

func (s *TeamService) findTeam(ctx context.Context, id uint64) (*models.Team, error) {
	team, err := s.teamRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to find team: %w", err)
	}
	return team, nil
}

// checkManager requires an existing admin or manager.
func (s *TeamService) checkManager(ctx context.Context, id uint64) error {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrManagerNotFound
		}
		return fmt.Errorf("failed to find manager: %w", err)
	}
	if user.Role != models.RoleAdmin && user.Role != models.RoleManager {
		return ErrInvalidManagerRole
	}
	return nil
}

// requireUsers fails with ErrUserNotFound naming the first missing id.
func (s *TeamService) requireUsers(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
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

// userName is used for log descriptions only; lookups never fail the caller.
func (s *TeamService) userName(ctx context.Context, id *uint64) string {
	if id == nil {
		return "None"
	}
	user, err := s.userRepo.FindByID(ctx, *id)
	if err != nil {
		return "user"
	}
	return user.Name
}

func dedupe(ids []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
