package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/team-task-api/internal/auth"
	"github.com/yukikurage/team-task-api/internal/middleware"
	"github.com/yukikurage/team-task-api/internal/mocks"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/services"
	"github.com/yukikurage/team-task-api/internal/testutil"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	SetupValidator()
}

// apiEnv is a router wired like the real server, on an isolated database.
type apiEnv struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	tokens *auth.TokenManager
	mailer *mocks.MockMailer

	admin    *models.User
	manager  *models.User
	employee *models.User
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	db := testutil.NewDB(t)
	mailer := mocks.NewMockMailer(gomock.NewController(t))
	tokens := auth.NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	log := zap.NewNop()

	userRepo := repository.NewUserRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	recorder := services.NewActivityRecorder(activityRepo, log)

	authHandler := NewAuthHandler(services.NewAuthService(userRepo, hasher, tokens, mailer, nil, services.AuthSettings{
		AdminSecretKey:   "admin-key",
		ManagerSecretKey: "manager-key",
		OTPTTL:           10 * time.Minute,
	}, log))
	userHandler := NewUserHandler(services.NewUserService(userRepo, hasher))
	teamHandler := NewTeamHandler(services.NewTeamService(teamRepo, userRepo, recorder))
	taskHandler := NewTaskHandler(services.NewTaskService(repository.NewTaskRepository(db), teamRepo, userRepo, recorder))
	reportHandler := NewReportHandler(
		services.NewReportService(repository.NewReportRepository(db)),
		services.NewActivityLogService(activityRepo),
	)

	requireAuth := middleware.RequireAuth(tokens, userRepo)
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleManager)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	r := gin.New()
	api := r.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.POST("/signup", authHandler.Signup)
	authRoutes.POST("/signup-verify-otp", authHandler.SignupVerifyOTP)
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.POST("/google", authHandler.Google)
	authRoutes.POST("/send-otp", authHandler.SendOTP)
	authRoutes.POST("/verify-otp", authHandler.VerifyOTP)
	authRoutes.POST("/refresh", authHandler.Refresh)
	authRoutes.GET("/me", requireAuth, authHandler.GetCurrentUser)

	tasks := api.Group("/tasks", requireAuth)
	tasks.GET("", taskHandler.ListTasks)
	tasks.POST("", staff, taskHandler.CreateTask)
	tasks.GET("/:id", taskHandler.GetTask)
	tasks.PUT("/:id", staff, taskHandler.UpdateTask)
	tasks.DELETE("/:id", staff, taskHandler.DeleteTask)
	tasks.PATCH("/:id/status", taskHandler.UpdateTaskStatus)

	teams := api.Group("/teams", requireAuth)
	teams.GET("", teamHandler.ListTeams)
	teams.POST("", staff, teamHandler.CreateTeam)
	teams.GET("/:id", teamHandler.GetTeam)
	teams.PUT("/:id", staff, teamHandler.UpdateTeam)
	teams.DELETE("/:id", adminOnly, teamHandler.DeleteTeam)
	teams.POST("/:id/members", staff, teamHandler.AddMember)
	teams.DELETE("/:id/members/:userId", staff, teamHandler.RemoveMember)

	users := api.Group("/users", requireAuth)
	users.GET("", staff, userHandler.ListUsers)
	users.POST("", adminOnly, userHandler.CreateUser)
	users.GET("/:id", userHandler.GetUser)
	users.PUT("/:id", userHandler.UpdateUser)
	users.DELETE("/:id", adminOnly, userHandler.DeleteUser)

	api.GET("/reports", requireAuth, staff, reportHandler.GetReports)
	api.GET("/activity-logs", requireAuth, staff, reportHandler.ListActivityLogs)

	return &apiEnv{
		t:        t,
		db:       db,
		router:   r,
		tokens:   tokens,
		mailer:   mailer,
		admin:    testutil.CreateUser(t, db, "admin", models.RoleAdmin),
		manager:  testutil.CreateUser(t, db, "manager", models.RoleManager),
		employee: testutil.CreateUser(t, db, "employee", models.RoleEmployee),
	}
}

// do sends a request as user, or anonymously when user is nil. body may be
// a raw string or any JSON-encodable value.
func (e *apiEnv) do(method, path string, user *models.User, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		pair, err := e.tokens.IssuePair(user.ID)
		require.NoError(e.t, err)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"details"`
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}
