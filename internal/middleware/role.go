package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
)

// RequireRole lets the request through only for the listed roles. It must
// run after RequireAuth.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		if !slices.Contains(roles, user.Role) {
			apierrors.RespondWithError(c, http.StatusForbidden, apierrors.NewAPIError(
				apierrors.ErrCodeInsufficientPermissions,
				"Access denied. Insufficient permissions.",
			))
			c.Abort()
			return
		}

		c.Next()
	}
}
