package db

import (
	"context"
	"io/fs"
	"strings"
	"testing"
)

func TestRunMigrationsNilDatabase(t *testing.T) {
	if err := RunMigrations(context.Background(), nil); err != nil {
		t.Fatalf("expected nil database to be a no-op, got %v", err)
	}
}

func TestEmbeddedMigrationsCoverTables(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, migrationsDir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	var all strings.Builder
	for _, e := range entries {
		body, err := fs.ReadFile(migrationFiles, migrationsDir+"/"+e.Name())
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		if !strings.Contains(string(body), "-- +goose Up") {
			t.Fatalf("%s lacks a goose Up section", e.Name())
		}
		all.Write(body)
	}
	for _, table := range []string{"documents", "usage", "profile_skills"} {
		if !strings.Contains(all.String(), "CREATE TABLE IF NOT EXISTS "+table) {
			t.Fatalf("no migration creates %s", table)
		}
	}
}
