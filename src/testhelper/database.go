// Package testhelper provides a database connection for tests that
// need a live PostgreSQL instance. Tests skip when none is reachable.
package testhelper

import (
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// SetupTestDB connects to the test database. The returned cleanup
// closes the connection.
func SetupTestDB(t *testing.T) (*bun.DB, func()) {
	t.Helper()

	host := envOr("PG_DB_HOST", "127.0.0.1")
	port := envOr("PG_DB_PORT", "5432")
	user := envOr("PG_DB_USER", "postgres")
	password := envOr("PG_DB_PASSWORD", "!ChangeMe!")
	name := envOr("PG_DB_NAME", "cvesearch_test")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithTimeout(10*time.Second)))
	db := bun.NewDB(sqldb, pgdialect.New())

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("Skipping test due to database connection error: %v", err)
		return nil, func() {}
	}

	return db, func() { db.Close() }
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
