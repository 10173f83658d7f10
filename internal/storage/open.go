// Package storage opens schema sources for the configured database driver.
package storage

import (
	"context"
	"database/sql"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb" // DuckDB driver
	_ "github.com/mattn/go-sqlite3"     // SQLite driver
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/kyleking/gem-support/internal/config"
	"github.com/kyleking/gem-support/internal/errors"
	"github.com/kyleking/gem-support/internal/schema"
)

const defaultPingTimeout = 10 * time.Second

// Opener connects to a database and returns a schema source for it
type Opener func(ctx context.Context, cfg config.DatabaseConfig) (schema.Source, error)

var (
	openersMu sync.RWMutex
	openers   = map[string]Opener{}
)

func init() {
	for driver := range dialects {
		Register(driver, OpenSQL)
	}
}

// Register makes an opener available under a driver name. Registering the
// same name twice replaces the earlier opener.
func Register(driver string, opener Opener) {
	openersMu.Lock()
	defer openersMu.Unlock()

	openers[driver] = opener
}

// Drivers lists the registered driver names
func Drivers() []string {
	openersMu.RLock()
	defer openersMu.RUnlock()

	return slices.Sorted(maps.Keys(openers))
}

// Open connects using the opener registered for cfg.Driver
func Open(ctx context.Context, cfg config.DatabaseConfig) (schema.Source, error) {
	openersMu.RLock()
	opener, ok := openers[cfg.Driver]
	openersMu.RUnlock()

	if !ok {
		return nil, errors.NewUnsupportedDriverError(cfg.Driver, Drivers())
	}

	return opener(ctx, cfg)
}

// OpenSQL opens a database/sql backed source for duckdb, sqlite3 or libsql
func OpenSQL(ctx context.Context, cfg config.DatabaseConfig) (schema.Source, error) {
	pool, err := PoolSettingsFromConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "invalid database pool settings")
	}

	dsn, err := prepareDSN(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, errors.NewDatabaseError(err, cfg.Driver)
	}

	pool.apply(db)

	pingTimeout := pool.QueryTimeout
	if pingTimeout <= 0 {
		pingTimeout = defaultPingTimeout
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.NewDatabaseError(err, cfg.Driver)
	}

	source, err := NewSQLSource(db, cfg.Driver, cfg.Schema, pool.QueryTimeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return source, nil
}

// prepareDSN expands local paths and creates their parent directory.
// Remote libsql URLs pass through untouched.
func prepareDSN(driver, dsn string) (string, error) {
	if driver == "libsql" && isRemoteURL(dsn) {
		return dsn, nil
	}

	path := strings.TrimPrefix(dsn, "file:")
	if path == "" || path == ":memory:" {
		return dsn, nil
	}

	path = config.ExpandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeFileSystem, "failed to create database directory")
	}

	if driver == "libsql" {
		return "file:" + path, nil
	}

	return path, nil
}

func isRemoteURL(dsn string) bool {
	for _, scheme := range []string{"libsql://", "https://", "http://", "wss://", "ws://"} {
		if strings.HasPrefix(dsn, scheme) {
			return true
		}
	}

	return false
}

