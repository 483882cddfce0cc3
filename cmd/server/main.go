package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/yukikurage/team-task-api/internal/auth"
	"github.com/yukikurage/team-task-api/internal/config"
	"github.com/yukikurage/team-task-api/internal/database"
	"github.com/yukikurage/team-task-api/internal/email"
	"github.com/yukikurage/team-task-api/internal/logger"
	"github.com/yukikurage/team-task-api/internal/metrics"
	"github.com/yukikurage/team-task-api/internal/server"
	"github.com/yukikurage/team-task-api/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var configFile string

func main() {
	root := &cobra.Command{
		Use:          "team-task-api",
		Short:        "Role based task and team management API",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a config file (yaml, json or toml)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE:  runServe,
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema and record its version",
		RunE:  runMigrate,
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration and opens the logger and database
func bootstrap() (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Log, !cfg.IsRelease())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		log.Error("failed to connect to database", zap.Error(err))
		return nil, nil, nil, err
	}
	return cfg, log, db, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	_, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer database.Close(db)

	if err := database.Migrate(db, log); err != nil {
		log.Error("failed to run migrations", zap.Error(err))
		return err
	}
	log.Info("migrations applied")
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer database.Close(db)

	gin.SetMode(cfg.Server.Mode)

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, log); err != nil {
			log.Error("failed to run migrations", zap.Error(err))
			return err
		}
	} else if err := database.CheckSchemaVersion(db); err != nil {
		log.Error("database schema is not ready, run the migrate command", zap.Error(err))
		return err
	}

	mailer, err := email.NewService(cfg.Email, cfg.Auth.OTPTTL, log)
	if err != nil {
		log.Error("failed to initialize email service", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var google services.IdentityVerifier
	if cfg.Auth.GoogleClientID != "" {
		google = auth.NewGoogleVerifier(ctx, cfg.Auth.GoogleClientID)
	} else {
		log.Info("google sign-in disabled, no client id configured")
	}

	handler := server.NewRouter(server.Options{
		Config:  cfg,
		DB:      db,
		Log:     log,
		Mailer:  mailer,
		Google:  google,
		Metrics: metrics.New(),
	})

	if err := server.Run(ctx, cfg.Server, handler, log); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}
