// Package server assembles the HTTP surface: middleware, routes, CORS and
// the listener lifecycle.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/yukikurage/team-task-api/internal/auth"
	"github.com/yukikurage/team-task-api/internal/config"
	"github.com/yukikurage/team-task-api/internal/constants"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/handlers"
	"github.com/yukikurage/team-task-api/internal/metrics"
	"github.com/yukikurage/team-task-api/internal/middleware"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/services"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Options are the collaborators the router is built from. Google may be
// nil, in which case Google sign-in answers 503.
type Options struct {
	Config  *config.Config
	DB      *gorm.DB
	Log     *zap.Logger
	Mailer  services.Mailer
	Google  services.IdentityVerifier
	Metrics *metrics.Metrics
	Hasher  *auth.PasswordHasher
}

// NewRouter wires repositories, services and handlers into a gin engine
// wrapped in CORS.
func NewRouter(opts Options) http.Handler {
	cfg := opts.Config
	handlers.SetupValidator()

	hasher := opts.Hasher
	if hasher == nil {
		hasher = auth.NewPasswordHasher(0)
	}
	tokens := auth.NewTokenManager(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	userRepo := repository.NewUserRepository(opts.DB)
	teamRepo := repository.NewTeamRepository(opts.DB)
	taskRepo := repository.NewTaskRepository(opts.DB)
	activityRepo := repository.NewActivityLogRepository(opts.DB)
	recorder := services.NewActivityRecorder(activityRepo, opts.Log)

	authService := services.NewAuthService(userRepo, hasher, tokens, opts.Mailer, opts.Google, services.AuthSettings{
		AdminSecretKey:   cfg.Auth.AdminSecretKey,
		ManagerSecretKey: cfg.Auth.ManagerSecretKey,
		OTPTTL:           cfg.Auth.OTPTTL,
	}, opts.Log)
	userService := services.NewUserService(userRepo, hasher)
	teamService := services.NewTeamService(teamRepo, userRepo, recorder)
	taskService := services.NewTaskService(taskRepo, teamRepo, userRepo, recorder)
	reportService := services.NewReportService(repository.NewReportRepository(opts.DB))
	activityService := services.NewActivityLogService(activityRepo)

	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	teamHandler := handlers.NewTeamHandler(teamService)
	taskHandler := handlers.NewTaskHandler(taskService)
	reportHandler := handlers.NewReportHandler(reportService, activityService)
	healthHandler := handlers.NewHealthHandler(opts.DB, opts.Log)

	r := gin.New()
	r.Use(middleware.Recovery(opts.Log))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(opts.Log))
	if opts.Metrics != nil {
		r.Use(middleware.Metrics(opts.Metrics))
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	r.GET("/health", healthHandler.Health)

	requireAuth := middleware.RequireAuth(tokens, userRepo)
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleManager)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	withID := middleware.RequireIDParams("id")

	api := r.Group("/api")
	{
		api.GET("/health", healthHandler.Health)

		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/signup", authHandler.Signup)
			authRoutes.POST("/signup-verify-otp", authHandler.SignupVerifyOTP)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/google", authHandler.Google)
			authRoutes.POST("/google-verify-otp", authHandler.GoogleVerifyOTP)
			authRoutes.POST("/send-otp", authHandler.SendOTP)
			authRoutes.POST("/verify-otp", authHandler.VerifyOTP)
			authRoutes.POST("/refresh", authHandler.Refresh)
			authRoutes.GET("/me", requireAuth, authHandler.GetCurrentUser)
		}

		tasks := api.Group("/tasks", requireAuth)
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", staff, taskHandler.CreateTask)
			tasks.GET("/:id", withID, taskHandler.GetTask)
			tasks.PUT("/:id", withID, staff, taskHandler.UpdateTask)
			tasks.DELETE("/:id", withID, staff, taskHandler.DeleteTask)
			tasks.PATCH("/:id/status", withID, taskHandler.UpdateTaskStatus)
		}

		teams := api.Group("/teams", requireAuth)
		{
			teams.GET("", teamHandler.ListTeams)
			teams.POST("", staff, teamHandler.CreateTeam)
			teams.GET("/:id", withID, teamHandler.GetTeam)
			teams.PUT("/:id", withID, staff, teamHandler.UpdateTeam)
			teams.DELETE("/:id", withID, adminOnly, teamHandler.DeleteTeam)
			teams.POST("/:id/members", withID, staff, teamHandler.AddMember)
			teams.DELETE("/:id/members/:userId", middleware.RequireIDParams("id", "userId"), staff, teamHandler.RemoveMember)
		}

		users := api.Group("/users", requireAuth)
		{
			users.GET("", staff, userHandler.ListUsers)
			users.POST("", adminOnly, userHandler.CreateUser)
			users.GET("/:id", withID, userHandler.GetUser)
			users.PUT("/:id", withID, userHandler.UpdateUser)
			users.DELETE("/:id", withID, adminOnly, userHandler.DeleteUser)
		}

		api.GET("/reports", requireAuth, staff, reportHandler.GetReports)
		api.GET("/activity-logs", requireAuth, staff, reportHandler.ListActivityLogs)
	}

	r.NoRoute(spaFallback(cfg.Server.StaticDir))

	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", constants.HeaderRequestID},
		ExposedHeaders:   []string{constants.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	})(r)
}

// spaFallback serves the built frontend for non-API paths, falling back to
// index.html so client-side routes resolve. Without a static dir every
// unmatched path is a JSON 404.
func spaFallback(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if dir == "" || strings.HasPrefix(path, "/api/") || c.Request.Method != http.MethodGet {
			apierrors.NotFound(c, "Route not found")
			return
		}

		file := filepath.Join(dir, filepath.Clean("/"+path))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		c.File(filepath.Join(dir, "index.html"))
	}
}

// Run serves handler until ctx is cancelled, then drains in-flight
// requests for at most ShutdownTimeout.
func Run(ctx context.Context, cfg config.ServerConfig, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown started")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return err
		}
		return nil
	})
	return g.Wait()
}
