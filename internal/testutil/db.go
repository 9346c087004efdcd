// Package testutil provides helpers shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fleetworks/depot/pkg/config"
	"fleetworks/depot/pkg/storage"

	"github.com/jmoiron/sqlx"
)

// DatabaseConfig returns a SQLite configuration pointing at a fresh file in
// a per-test temporary directory.
func DatabaseConfig(t testing.TB) config.DatabaseConfig {
	t.Helper()
	return config.DatabaseConfig{
		Driver:          storage.DriverSQLite3,
		DSN:             filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		WALMode:         true,
		BusyTimeout:     5 * time.Second,
	}
}

// NewDB opens a migrated SQLite database that is closed when the test ends.
func NewDB(t testing.TB) *sqlx.DB {
	t.Helper()

	ctx := context.Background()
	db, err := storage.Open(ctx, DatabaseConfig(t))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := storage.Migrate(ctx, db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}
