// Package postgres reads schema metadata from PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kyleking/gem-support/internal/config"
	"github.com/kyleking/gem-support/internal/errors"
	"github.com/kyleking/gem-support/internal/schema"
	"github.com/kyleking/gem-support/internal/storage"
)

const (
	// DriverName is the config driver value served by this package
	DriverName    = "postgres"
	defaultSchema = "public"
)

func init() {
	storage.Register(DriverName, Open)
}

// Source implements schema.Source for PostgreSQL
type Source struct {
	pool    *pgxpool.Pool
	schema  string
	timeout time.Duration
}

// ParsePoolConfig builds a pgx pool config from the database settings
func ParsePoolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, storage.PoolSettings, error) {
	settings, err := storage.PoolSettingsFromConfig(cfg)
	if err != nil {
		return nil, storage.PoolSettings{}, errors.Wrap(err, errors.ErrTypeConfig, "invalid database pool settings")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, storage.PoolSettings{}, errors.Wrap(err, errors.ErrTypeConfig, "failed to parse postgres dsn")
	}

	if settings.MaxOpenConns > 0 {
		// pgx counts connections in an int32
		poolCfg.MaxConns = int32(min(settings.MaxOpenConns, math.MaxInt32))
	}

	if settings.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = settings.ConnMaxLifetime
	}

	if settings.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = settings.ConnMaxIdleTime
	}

	return poolCfg, settings, nil
}

// Open connects a pool and verifies it with a ping
func Open(ctx context.Context, cfg config.DatabaseConfig) (schema.Source, error) {
	poolCfg, settings, err := ParsePoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.NewDatabaseError(err, DriverName)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.NewDatabaseError(err, DriverName)
	}

	return New(pool, cfg.Schema, settings.QueryTimeout), nil
}

// New wraps an existing pool. An empty schemaName means "public".
func New(pool *pgxpool.Pool, schemaName string, timeout time.Duration) *Source {
	if schemaName == "" {
		schemaName = defaultSchema
	}

	return &Source{pool: pool, schema: schemaName, timeout: timeout}
}

// Schema returns the schema that lookups are scoped to
func (s *Source) Schema() string {
	return s.schema
}

func (s *Source) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, s.timeout)
}

func (s *Source) TableExists(ctx context.Context, table string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var count int64
	if err := s.pool.QueryRow(ctx, queryTableExists, s.schema, table).Scan(&count); err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}

	return count > 0, nil
}

func (s *Source) ColumnNames(ctx context.Context, table string) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	names, err := s.queryStrings(ctx, queryColumnNames, s.schema, table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}

	return names, nil
}

func (s *Source) ListTables(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tables, err := s.queryStrings(ctx, queryListTables, s.schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	return tables, nil
}

func (s *Source) ColumnRows(ctx context.Context, table string) ([]schema.ColumnRow, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, queryColumnRows, s.schema, table)
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}
	defer rows.Close()

	var result []schema.ColumnRow

	for rows.Next() {
		var (
			row      schema.ColumnRow
			position int64
			rank     *int64
		)

		if err := rows.Scan(
			&row.TableName, &row.ColumnName, &position, &row.DataType,
			&rank, &row.IsNullable, &row.Default, &row.CharacterMaximumLength,
			&row.ColumnType, &row.Comment, &row.Extra,
		); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}

		row.OrdinalPosition = int(position)
		row.DataType = strings.ToLower(row.DataType)
		row.ColumnType = strings.ToLower(row.ColumnType)

		if rank != nil {
			row.ColumnKey = schema.KeyKindByRank(*rank)
		}

		result = append(result, row)
	}

	return result, rows.Err()
}

func (s *Source) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string

	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}

		values = append(values, value)
	}

	return values, rows.Err()
}

// Close closes the connection pool
func (s *Source) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}

	return nil
}
