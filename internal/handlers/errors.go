package handlers

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/yukikurage/team-task-api/internal/access"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/middleware"
	"github.com/yukikurage/team-task-api/internal/services"
)

var setupValidatorOnce sync.Once

// SetupValidator makes binding errors report JSON field names.
func SetupValidator() {
	setupValidatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(field.Tag.Get(tag), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return field.Name
		})
	})
}

// respondError maps service errors onto API errors. Anything unrecognized
// is attached to the context for the request logger and reported as 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrTaskPermissionDenied),
		errors.Is(err, services.ErrInvalidSecretKey):
		apierrors.Forbidden(c, capitalize(err.Error()))

	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrPasswordNotSet),
		errors.Is(err, services.ErrEmailNotVerified):
		apierrors.UnauthorizedWithCode(c, apierrors.ErrCodeInvalidCredentials, capitalize(err.Error()))

	case errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrInvalidGoogleToken):
		apierrors.UnauthorizedWithCode(c, apierrors.ErrCodeInvalidToken, capitalize(err.Error()))

	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrManagerNotFound),
		errors.Is(err, services.ErrMemberNotFound):
		apierrors.NotFound(c, capitalize(err.Error()))

	case errors.Is(err, services.ErrEmailTaken):
		apierrors.Conflict(c, capitalize(err.Error()))

	case errors.Is(err, services.ErrSecretKeyRequired),
		errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrNameRequired),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrAlreadyVerified),
		errors.Is(err, services.ErrInvalidOTP),
		errors.Is(err, services.ErrOTPExpired),
		errors.Is(err, services.ErrCannotDeleteSelf),
		errors.Is(err, services.ErrNoFieldsToUpdate),
		errors.Is(err, services.ErrTeamNameRequired),
		errors.Is(err, services.ErrInvalidManagerRole),
		errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleEmpty),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrAssigneeNotInTeam),
		errors.Is(err, services.ErrInvalidDateRange):
		apierrors.BadRequest(c, capitalize(err.Error()))

	case errors.Is(err, services.ErrEmailDelivery):
		_ = c.Error(err)
		apierrors.DependencyFailed(c, "Failed to send OTP email. Please try again.")

	case errors.Is(err, services.ErrGoogleNotConfigured):
		apierrors.ServiceUnavailable(c, capitalize(err.Error()))

	default:
		_ = c.Error(err)
		apierrors.InternalError(c, "")
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// actor returns the authenticated caller, writing a 401 when RequireAuth
// did not run.
func actor(c *gin.Context) (access.Actor, bool) {
	a, ok := middleware.CurrentActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
	}
	return a, ok
}

func idParam(c *gin.Context, name string) (uint64, bool) {
	id, ok := middleware.IDParam(c, name)
	if !ok {
		apierrors.BadRequest(c, "Invalid "+name)
	}
	return id, ok
}
