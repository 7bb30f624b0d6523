// Package pgtest provides shared setup for postgres store integration
// tests. Suites skip unless TEST_DATABASE_URL points at a disposable
// database; the schema is applied once per process and tables are
// truncated between tests.
package pgtest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"certis/migrations"
)

const envURL = "TEST_DATABASE_URL"

var (
	mu         sync.Mutex
	shared     *sql.DB
	migrateErr error
)

// Connect returns a connection to the test database, applying migrations
// on first use. The test is skipped when TEST_DATABASE_URL is unset.
func Connect(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv(envURL)
	if url == "" {
		t.Skipf("%s not set, skipping postgres integration test", envURL)
	}

	mu.Lock()
	defer mu.Unlock()

	if shared == nil && migrateErr == nil {
		db, err := sql.Open("pgx", url)
		if err != nil {
			migrateErr = fmt.Errorf("open test database: %w", err)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				migrateErr = fmt.Errorf("ping test database: %w", err)
			} else if err := migrations.Apply(ctx, db); err != nil {
				migrateErr = fmt.Errorf("apply migrations: %w", err)
			} else {
				shared = db
			}
		}
	}
	if migrateErr != nil {
		t.Fatalf("connect test database: %v", migrateErr)
	}
	return shared
}

// Truncate empties the given tables between tests.
func Truncate(t *testing.T, db *sql.DB, tables ...string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := "TRUNCATE TABLE " + strings.Join(tables, ", ")
	if _, err := db.ExecContext(ctx, query); err != nil {
		t.Fatalf("truncate %s: %v", strings.Join(tables, ", "), err)
	}
}
