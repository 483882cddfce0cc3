package dto

import (
	"time"

	"github.com/yukikurage/team-task-api/internal/models"
)

// UserDTO is the signed-in user as returned by the auth endpoints
type UserDTO struct {
	ID    uint64      `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  models.Role `json:"role"`
}

// UserDetailDTO represents a user in the user management endpoints
type UserDetailDTO struct {
	ID            uint64      `json:"id"`
	Email         string      `json:"email"`
	Name          string      `json:"name"`
	Role          models.Role `json:"role"`
	EmailVerified bool        `json:"email_verified"`
	CreatedAt     time.Time   `json:"created_at"`
}

// UserRefDTO is a user embedded in another resource
type UserRefDTO struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}
}

func ToUserDetailDTO(user models.User) UserDetailDTO {
	return UserDetailDTO{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Role:          user.Role,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
	}
}

func ToUserDetailList(users []models.User) []UserDetailDTO {
	items := make([]UserDetailDTO, len(users))
	for i, user := range users {
		items[i] = ToUserDetailDTO(user)
	}
	return items
}

func toUserRef(user models.User) UserRefDTO {
	return UserRefDTO{ID: user.ID, Name: user.Name, Email: user.Email}
}
