package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kyleking/gem-support/internal/config"
)

// PoolSettings are the parsed connection pool limits for a source
type PoolSettings struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	QueryTimeout    time.Duration
}

// PoolSettingsFromConfig parses the duration strings of cfg
func PoolSettingsFromConfig(cfg config.DatabaseConfig) (PoolSettings, error) {
	settings := PoolSettings{
		MaxOpenConns: cfg.MaxConnections,
		MaxIdleConns: cfg.MaxIdleConns,
	}

	durations := []struct {
		name  string
		value string
		dest  *time.Duration
	}{
		{"conn_max_lifetime", cfg.ConnMaxLifetime, &settings.ConnMaxLifetime},
		{"conn_max_idle_time", cfg.ConnMaxIdleTime, &settings.ConnMaxIdleTime},
		{"query_timeout", cfg.QueryTimeout, &settings.QueryTimeout},
	}

	for _, d := range durations {
		if d.value == "" {
			continue
		}

		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return PoolSettings{}, fmt.Errorf("invalid %s: %w", d.name, err)
		}

		*d.dest = parsed
	}

	return settings, nil
}

// apply configures the pool of db
func (p PoolSettings) apply(db *sql.DB) {
	if p.MaxOpenConns > 0 {
		db.SetMaxOpenConns(p.MaxOpenConns)
	}

	if p.MaxIdleConns > 0 {
		db.SetMaxIdleConns(p.MaxIdleConns)
	}

	db.SetConnMaxLifetime(p.ConnMaxLifetime)
	db.SetConnMaxIdleTime(p.ConnMaxIdleTime)
}
