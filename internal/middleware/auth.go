package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-task-api/internal/access"
	"github.com/yukikurage/team-task-api/internal/auth"
	"github.com/yukikurage/team-task-api/internal/constants"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"gorm.io/gorm"
)

// UserLoader loads the user behind a verified token
type UserLoader interface {
	FindByID(ctx context.Context, id uint64) (*models.User, error)
}

// RequireAuth checks the bearer access token and loads the current user.
// The role is always read from the database, never from the token.
func RequireAuth(tokens *auth.TokenManager, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			apierrors.Unauthorized(c, "Access denied. No token provided.")
			c.Abort()
			return
		}

		claims, err := tokens.ParseAccess(strings.TrimSpace(raw))
		if err != nil {
			apierrors.UnauthorizedWithCode(c, apierrors.ErrCodeInvalidToken, "Invalid token")
			c.Abort()
			return
		}

		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				apierrors.UnauthorizedWithCode(c, apierrors.ErrCodeInvalidToken, "User not found")
			} else {
				apierrors.InternalError(c, "")
			}
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyUser, user)
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

// CurrentUser returns the user loaded by RequireAuth
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(constants.ContextKeyUser)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// CurrentActor returns the caller as seen by the access policy
func CurrentActor(c *gin.Context) (access.Actor, bool) {
	user, ok := CurrentUser(c)
	if !ok {
		return access.Actor{}, false
	}
	return access.ActorFor(user), true
}
