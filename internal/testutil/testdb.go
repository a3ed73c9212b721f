// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/sqliteshim"

	"event-in/internal/config"
	"event-in/internal/database"
	"event-in/internal/database/migrations"
)

// NewSQLite returns an in-memory SQLite database holding the current schema.
// It is closed when the test ends.
func NewSQLite(t testing.TB) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	bunDB := database.Wrap(sqldb, config.DatabaseConfig{Driver: database.DriverSQLite})
	t.Cleanup(func() { bunDB.Close() })

	schema, err := migrations.Schema(database.DriverSQLite)
	if err != nil {
		t.Fatalf("Failed to load schema: %v", err)
	}
	if _, err := bunDB.ExecContext(context.Background(), schema); err != nil {
		t.Fatalf("Failed to create events table: %v", err)
	}
	return bunDB
}
