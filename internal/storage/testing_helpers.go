package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kyleking/gem-support/internal/config"
)

// SampleSchema creates a users table and a posts table referencing it.
// The statements run unchanged on DuckDB and SQLite.
var SampleSchema = []string{
	`CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		email VARCHAR(191) NOT NULL UNIQUE,
		name VARCHAR(50),
		role VARCHAR(20) DEFAULT 'member'
	)`,
	`CREATE TABLE posts (
		id INTEGER PRIMARY KEY,
		user_id INTEGER REFERENCES users(id),
		title VARCHAR(120) NOT NULL,
		price DECIMAL(8,2)
	)`,
}

// TestDBConfig returns a database config pointing at a fresh file under a
// test temp directory
func TestDBConfig(t *testing.T, driver string) config.DatabaseConfig {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	if driver == "libsql" {
		path = "file:" + path
	}

	return config.DatabaseConfig{
		Driver:         driver,
		DSN:            path,
		MaxConnections: 1,
		QueryTimeout:   "10s",
	}
}

// NewTestDB opens a temporary database for driver and runs statements
// against it. Returns the source and a cleanup function that should be
// deferred.
func NewTestDB(t *testing.T, driver string, statements ...string) (*SQLSource, func()) {
	t.Helper()

	opened, err := OpenSQL(context.Background(), TestDBConfig(t, driver))
	if err != nil {
		t.Fatalf("failed to open %s test database: %v", driver, err)
	}

	source := opened.(*SQLSource)

	for _, stmt := range statements {
		if _, err := source.DB().Exec(stmt); err != nil {
			source.Close()
			t.Fatalf("failed to run test statement: %v", err)
		}
	}

	cleanup := func() {
		if err := source.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	}

	return source, cleanup
}
