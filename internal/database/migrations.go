package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/team-task-api/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SchemaVersion is bumped whenever Migrate changes the schema.
const SchemaVersion = 1

var (
	ErrSchemaMissing  = errors.New("database schema is not initialized; run the migrate command")
	ErrSchemaOutdated = errors.New("database schema is outdated; run the migrate command")
)

// Models lists every table managed by Migrate in dependency order.
func Models() []any {
	return []any{
		&models.User{},
		&models.Team{},
		&models.TeamMember{},
		&models.Task{},
		&models.TaskAssignment{},
		&models.ActivityLog{},
		&models.SchemaVersion{},
	}
}

// Migrate creates or updates every table, adds secondary indexes and records
// the schema version.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := AddIndexes(db, log); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	version := models.SchemaVersion{ID: 1, Version: SchemaVersion, AppliedAt: time.Now().UTC()}
	if err := db.Save(&version).Error; err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	log.Info("database migrations completed", zap.Int("schema_version", SchemaVersion))
	return nil
}

// AddIndexes adds composite indexes used by the report and listing queries.
func AddIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		{"tasks", "idx_tasks_team_status", "team_id, status"},
		{"tasks", "idx_tasks_completed_at", "completed_at"},
		{"tasks", "idx_tasks_due_date", "due_date"},
		{"task_assignments", "idx_task_assignments_user_task", "user_id, task_id"},
		{"activity_logs", "idx_activity_logs_user_created", "user_id, created_at"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.table, idx.name) {
			log.Debug("index already exists", zap.String("index", idx.name))
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
		log.Info("created index", zap.String("index", idx.name), zap.String("table", idx.table))
	}

	return nil
}

// CheckSchemaVersion verifies that Migrate has been run against db.
func CheckSchemaVersion(db *gorm.DB) error {
	if !db.Migrator().HasTable(&models.SchemaVersion{}) {
		return ErrSchemaMissing
	}

	var current models.SchemaVersion
	if err := db.First(&current, 1).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSchemaMissing
		}
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current.Version < SchemaVersion {
		return fmt.Errorf("%w: have %d, need %d", ErrSchemaOutdated, current.Version, SchemaVersion)
	}
	return nil
}
