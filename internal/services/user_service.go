package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/team-task-api/internal/access"
	"github.com/yukikurage/team-task-api/internal/auth"
	"github.com/yukikurage/team-task-api/internal/constants"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrCannotDeleteSelf = errors.New("cannot delete your own account")
	ErrNoFieldsToUpdate = errors.New("no fields to update")
)

// UserService handles user administration.
type UserService struct {
	userRepo repository.UserRepository
	hasher   *auth.PasswordHasher
}

func NewUserService(userRepo repository.UserRepository, hasher *auth.PasswordHasher) *UserService {
	return &UserService{userRepo: userRepo, hasher: hasher}
}

func (s *UserService) List(ctx context.Context, actor access.Actor) ([]models.User, error) {
	if !access.CanListUsers(actor) {
		return nil, ErrForbidden
	}
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CreateUserInput is an admin-created account. It is verified on creation.
type CreateUserInput struct {
	Email    string
	Password string
	Name     string
	Role     models.Role
}

func (s *UserService) Create(ctx context.Context, actor access.Actor, input CreateUserInput) (*models.User, error) {
	if !access.CanAdminUsers(actor) {
		return nil, ErrForbidden
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	role := input.Role
	if role == "" {
		role = models.RoleEmployee
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	email := utils.NormalizeEmail(input.Email)
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:         email,
		PasswordHash:  &hash,
		Name:          name,
		Role:          role,
		EmailVerified: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, actor access.Actor, id uint64) (*models.User, error) {
	if !access.CanViewUser(actor, id) {
		return nil, ErrForbidden
	}
	return s.find(ctx, id)
}

// UpdateUserInput holds optional fields. Role changes are admin only.
type UpdateUserInput struct {
	Name *string
	Role *models.Role
}

func (s *UserService) Update(ctx context.Context, actor access.Actor, id uint64, input UpdateUserInput) (*models.User, error) {
	if !access.CanViewUser(actor, id) {
		return nil, ErrForbidden
	}

	fields := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		fields["name"] = name
	}
	if input.Role != nil {
		if !access.CanChangeRole(actor) {
			return nil, ErrForbidden
		}
		if !input.Role.Valid() {
			return nil, ErrInvalidRole
		}
		fields["role"] = *input.Role
	}
	if len(fields) == 0 {
		return nil, ErrNoFieldsToUpdate
	}

	if err := s.userRepo.Update(ctx, id, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return s.find(ctx, id)
}

// Delete removes a user and detaches everything that referenced them.
func (s *UserService) Delete(ctx context.Context, actor access.Actor, id uint64) error {
	if !access.CanAdminUsers(actor) {
		return ErrForbidden
	}
	if actor.ID == id {
		return ErrCannotDeleteSelf
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (s *UserService) find(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}
