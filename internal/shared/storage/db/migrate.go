package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsDir = "migrations"

var (
	gooseOnce sync.Once
	gooseErr  error
)

func setupGoose() error {
	gooseOnce.Do(func() {
		goose.SetBaseFS(migrationFiles)
		gooseErr = goose.SetDialect("postgres")
	})
	return gooseErr
}

// RunMigrations applies the embedded documents, usage and profile_skills
// migrations. A nil database is a no-op so in-memory setups can call it.
func RunMigrations(ctx context.Context, database *sql.DB) error {
	if database == nil {
		return nil
	}
	if err := setupGoose(); err != nil {
		return fmt.Errorf("goose setup: %w", err)
	}
	if err := goose.UpContext(ctx, database, migrationsDir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// MigrationVersion reports the latest applied migration.
func MigrationVersion(ctx context.Context, database *sql.DB) (int64, error) {
	if err := setupGoose(); err != nil {
		return 0, fmt.Errorf("goose setup: %w", err)
	}
	return goose.GetDBVersionContext(ctx, database)
}
