package repository

import (
	"context"
	"time"

	"github.com/yukikurage/team-task-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTeamRepository is a GORM implementation of TeamRepository
type GormTeamRepository struct {
	db *gorm.DB
}

// NewTeamRepository creates a new TeamRepository
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &GormTeamRepository{db: db}
}

func (r *GormTeamRepository) Create(ctx context.Context, team *models.Team, memberIDs []uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(team).Error; err != nil {
			return err
		}
		return insertMembers(tx, team.ID, memberIDs)
	})
}

func insertMembers(tx *gorm.DB, teamID uint64, userIDs []uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	members := make([]models.TeamMember, 0, len(userIDs))
	for _, id := range userIDs {
		members = append(members, models.TeamMember{TeamID: teamID, UserID: id, JoinedAt: now})
	}
	return tx.Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&members).Error
}

func (r *GormTeamRepository) FindByID(ctx context.Context, id uint64) (*models.Team, error) {
	var team models.Team
	if err := r.db.WithContext(ctx).Preload("Manager").First(&team, id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *GormTeamRepository) List(ctx context.Context) ([]TeamSummary, error) {
	var teams []TeamSummary
	err := r.db.WithContext(ctx).Table("teams").
		Select(`teams.id, teams.name, teams.description, teams.manager_id,
			users.name AS manager_name,
			(SELECT COUNT(*) FROM team_members WHERE team_members.team_id = teams.id) AS member_count,
			teams.created_at, teams.updated_at`).
		Joins("LEFT JOIN users ON users.id = teams.manager_id").
		Order("teams.name ASC").
		Scan(&teams).Error
	return teams, err
}

func (r *GormTeamRepository) ListMembers(ctx context.Context, teamID uint64) ([]models.TeamMember, error) {
	var members []models.TeamMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("team_id = ?", teamID).
		Order("joined_at ASC").
		Find(&members).Error
	return members, err
}

func (r *GormTeamRepository) MemberIDs(ctx context.Context, teamID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&models.TeamMember{}).
		Where("team_id = ?", teamID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *GormTeamRepository) IsMember(ctx context.Context, teamID, userID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *GormTeamRepository) Update(ctx context.Context, id uint64, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Team{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a team. Its tasks survive without a team.
func (r *GormTeamRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", id).Delete(&models.TeamMember{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Task{}).Where("team_id = ?", id).Update("team_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Team{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *GormTeamRepository) AddMember(ctx context.Context, teamID, userID uint64) (bool, error) {
	member := models.TeamMember{TeamID: teamID, UserID: userID, JoinedAt: time.Now().UTC()}
	res := r.db.WithContext(ctx).Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&member)
	return res.RowsAffected > 0, res.Error
}

func (r *GormTeamRepository) RemoveMember(ctx context.Context, teamID, userID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&models.TeamMember{})
	return res.RowsAffected > 0, res.Error
}
