package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/team-task-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

var (
	// ErrOTPNotConsumed is returned when the stored OTP changed between the
	// check and the verifying update.
	ErrOTPNotConsumed = errors.New("user repository: otp no longer matches")

	errDetachMemberships = errors.New("user repository: remove team memberships failed")
	errDetachManager     = errors.New("user repository: clear team manager failed")
	errDetachAssignments = errors.New("user repository: remove task assignments failed")
	errDetachAssignee    = errors.New("user repository: reassign primary assignee failed")
	errDetachCreator     = errors.New("user repository: clear task creator failed")
	errDetachActivity    = errors.New("user repository: clear activity author failed")
	errDeleteUser        = errors.New("user repository: delete user failed")
)

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) ExistingIDs(ctx context.Context, ids []uint64) ([]uint64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uint64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id IN ?", ids).Pluck("id", &found).Error
	return found, err
}

func (r *GormUserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&users).Error
	return users, err
}

// Update applies fields in one transaction. A demotion to employee also
// clears manager_id on every team the user managed.
func (r *GormUserRepository) Update(ctx context.Context, id uint64, fields map[string]any) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if role, ok := fields["role"].(models.Role); ok && role == models.RoleEmployee {
			if err := tx.Model(&models.Team{}).Where("manager_id = ?", id).
				Update("manager_id", nil).Error; err != nil {
				return fmt.Errorf("%w: %v", errDetachManager, err)
			}
		}
		return nil
	})
}

// SetOTP overwrites any previous code, so only the latest OTP is live.
func (r *GormUserRepository) SetOTP(ctx context.Context, email, otp string, expiresAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Updates(map[string]any{"otp": otp, "otp_expires_at": expiresAt})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ConsumeOTP verifies the user and clears the code in one conditional
// update. A concurrent SetOTP makes it fail with ErrOTPNotConsumed.
func (r *GormUserRepository) ConsumeOTP(ctx context.Context, id uint64, otp string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND otp = ?", id, otp).
		Updates(map[string]any{
			"email_verified": true,
			"otp":            nil,
			"otp_expires_at": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOTPNotConsumed
	}
	return nil
}

func (r *GormUserRepository) SetGoogleID(ctx context.Context, id uint64, googleID string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("google_id", googleID).Error
}

// Delete removes a user atomically. Memberships and assignments are deleted;
// manager, creator and activity author references are nulled; tasks whose
// primary assignee was the user fall back to their next assignee.
func (r *GormUserRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.TeamMember{}).Error; err != nil {
			return fmt.Errorf("%w: %v", errDetachMemberships, err)
		}

		if err := tx.Model(&models.Team{}).Where("manager_id = ?", id).
			Update("manager_id", nil).Error; err != nil {
			return fmt.Errorf("%w: %v", errDetachManager, err)
		}

		if err := tx.Where("user_id = ?", id).Delete(&models.TaskAssignment{}).Error; err != nil {
			return fmt.Errorf("%w: %v", errDetachAssignments, err)
		}

		nextAssignee := tx.Model(&models.TaskAssignment{}).
			Select("task_assignments.user_id").
			Where("task_assignments.task_id = tasks.id").
			Order("task_assignments.position ASC").
			Limit(1)
		if err := tx.Model(&models.Task{}).Where("assigned_to = ?", id).
			Update("assigned_to", nextAssignee).Error; err != nil {
			return fmt.Errorf("%w: %v", errDetachAssignee, err)
		}

		if err := tx.Model(&models.Task{}).Where("created_by = ?", id).
			Update("created_by", nil).Error; err != nil {
			return fmt.Errorf("%w: %v", errDetachCreator, err)
		}

		if err := tx.Model(&models.ActivityLog{}).Where("user_id = ?", id).
			Update("user_id", nil).Error; err != nil {
			return fmt.Errorf("%w: %v", errDetachActivity, err)
		}

		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return fmt.Errorf("%w: %v", errDeleteUser, res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
