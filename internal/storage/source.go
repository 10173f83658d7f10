package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kyleking/gem-support/internal/schema"
)

// SQLSource reads schema metadata through database/sql
type SQLSource struct {
	db      *sql.DB
	driver  string
	dialect dialect
	schema  string
	timeout time.Duration
}

// NewSQLSource wraps an open handle. schemaName defaults to the dialect's
// default schema and is ignored by dialects without schemas.
func NewSQLSource(db *sql.DB, driver, schemaName string, timeout time.Duration) (*SQLSource, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	if schemaName == "" {
		schemaName = d.defaultSchema
	}

	return &SQLSource{
		db:      db,
		driver:  driver,
		dialect: d,
		schema:  schemaName,
		timeout: timeout,
	}, nil
}

// DB exposes the underlying handle
func (s *SQLSource) DB() *sql.DB {
	return s.db
}

// Driver returns the database/sql driver name
func (s *SQLSource) Driver() string {
	return s.driver
}

// Schema returns the schema that lookups are scoped to
func (s *SQLSource) Schema() string {
	return s.schema
}

func (s *SQLSource) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, s.timeout)
}

// args prefixes the schema name for dialects that scope by schema
func (s *SQLSource) args(args ...any) []any {
	if !s.dialect.usesSchema {
		return args
	}

	return append([]any{s.schema}, args...)
}

func (s *SQLSource) TableExists(ctx context.Context, table string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var count int64
	if err := s.db.QueryRowContext(ctx, s.dialect.tableExists, s.args(table)...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}

	return count > 0, nil
}

func (s *SQLSource) ColumnNames(ctx context.Context, table string) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	names, err := s.queryStrings(ctx, s.dialect.columnNames, s.args(table)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w", table, err)
	}

	return names, nil
}

func (s *SQLSource) ListTables(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tables, err := s.queryStrings(ctx, s.dialect.listTables, s.args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	return tables, nil
}

func (s *SQLSource) ColumnRows(ctx context.Context, table string) ([]schema.ColumnRow, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var args []any
	if s.dialect.usesSchema {
		args = []any{s.schema, s.schema, table, table}
	} else {
		args = []any{table, table}
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.columnRows, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer rows.Close()

	var result []schema.ColumnRow

	for rows.Next() {
		var (
			row      schema.ColumnRow
			position int64
			declared sql.NullString
			rank     sql.NullInt64
			nullable sql.NullString
			dflt     sql.NullString
			maxLen   sql.NullInt64
		)

		if err := rows.Scan(
			&row.TableName, &row.ColumnName, &position, &declared,
			&rank, &nullable, &dflt, &maxLen,
		); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}

		row.OrdinalPosition = int(position)
		row.DataType, row.ColumnType = splitType(declared.String)
		row.ColumnKey = schema.KeyKindByRank(rank.Int64)
		row.IsNullable = nullable.String

		if dflt.Valid {
			row.Default = &dflt.String
		}

		if maxLen.Valid {
			row.CharacterMaximumLength = &maxLen.Int64
		}

		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read column metadata: %w", err)
	}

	// release the connection before the key query on single-connection pools
	rows.Close()

	if s.dialect.keyRanks != "" && len(result) > 0 {
		if err := s.applyKeyRanks(ctx, table, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// applyKeyRanks fills in unique and foreign key kinds where no stronger
// key is already recorded
func (s *SQLSource) applyKeyRanks(ctx context.Context, table string, result []schema.ColumnRow) error {
	rows, err := s.db.QueryContext(ctx, s.dialect.keyRanks, table, table, table, table)
	if err != nil {
		return fmt.Errorf("failed to query key metadata: %w", err)
	}
	defer rows.Close()

	type columnRef struct{ table, column string }

	ranks := make(map[columnRef]int64)

	for rows.Next() {
		var (
			ref  columnRef
			rank int64
		)

		if err := rows.Scan(&ref.table, &ref.column, &rank); err != nil {
			return fmt.Errorf("failed to scan key metadata: %w", err)
		}

		if current, ok := ranks[ref]; !ok || rank < current {
			ranks[ref] = rank
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read key metadata: %w", err)
	}

	for i := range result {
		rank, ok := ranks[columnRef{result[i].TableName, result[i].ColumnName}]
		if ok && result[i].ColumnKey == schema.KeyNone {
			result[i].ColumnKey = schema.KeyKindByRank(rank)
		}
	}

	return nil
}

func (s *SQLSource) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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

// Close closes the database connection
func (s *SQLSource) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}
