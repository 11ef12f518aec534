package main

// Apply the embedded schema migrations:
//   go run ./cmd/migrate

import (
	"context"
	"log"
	"os"

	"skills-backend/internal/shared/config"
	"skills-backend/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Printf("DATABASE_URL is required")
		os.Exit(1)
	}
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		log.Printf("failed to run migrations: %v", err)
		os.Exit(1)
	}
	version, err := db.MigrationVersion(ctx, sqlDB)
	if err != nil {
		log.Printf("failed to read migration version: %v", err)
		os.Exit(1)
	}
	log.Printf("migrations applied, version=%d", version)
}
