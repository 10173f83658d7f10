package schema

import (
	"context"
	"strings"
	"time"

	"github.com/kyleking/gem-support/internal/arrutil"
	"github.com/kyleking/gem-support/internal/cache"
	"github.com/kyleking/gem-support/internal/logging"
)

// DefaultKeyPrefix starts every cache key the Inspector writes
const DefaultKeyPrefix = "gem_"

// Inspector answers schema questions from a Source, memoizing each answer
// when a cache and a positive lifetime are configured.
// Errors from the source and the cache are returned unchanged.
type Inspector struct {
	source Source
	store  cache.Cache
	ttl    time.Duration
	prefix string
	logger *logging.Logger
}

// Option configures an Inspector
type Option func(*Inspector)

// WithCache memoizes results in store for days. Zero or negative days
// disables caching.
func WithCache(store cache.Cache, days int) Option {
	return func(in *Inspector) {
		in.store = store
		in.ttl = TTL(days)
	}
}

// WithKeyPrefix replaces DefaultKeyPrefix
func WithKeyPrefix(prefix string) Option {
	return func(in *Inspector) {
		in.prefix = prefix
	}
}

// WithLogger sets the logger used for cache decisions
func WithLogger(logger *logging.Logger) Option {
	return func(in *Inspector) {
		if logger != nil {
			in.logger = logger
		}
	}
}

// NewInspector creates an Inspector over source
func NewInspector(source Source, opts ...Option) *Inspector {
	in := &Inspector{
		source: source,
		prefix: DefaultKeyPrefix,
		logger: logging.Discard(),
	}

	for _, opt := range opts {
		opt(in)
	}

	return in
}

// TTL converts a cache lifetime in days to a duration
func TTL(days int) time.Duration {
	if days <= 0 {
		return 0
	}

	return time.Duration(days) * 24 * time.Hour
}

// Caching reports whether results are memoized
func (in *Inspector) Caching() bool {
	return in.store != nil && in.ttl > 0
}

// TTL returns the cache lifetime, zero when caching is disabled
func (in *Inspector) TTL() time.Duration {
	if !in.Caching() {
		return 0
	}

	return in.ttl
}

// HasTable reports whether table exists
func (in *Inspector) HasTable(ctx context.Context, table string) (bool, error) {
	return remember(ctx, in, in.prefix+table+"_table_exists", func(ctx context.Context) (bool, error) {
		return in.source.TableExists(ctx, table)
	})
}

// HasColumn reports whether table has column. A "table." qualifier on
// column is ignored and names compare case-insensitively.
func (in *Inspector) HasColumn(ctx context.Context, table, column string) (bool, error) {
	column = strings.ReplaceAll(column, table+".", "")
	key := in.prefix + table + "_table_has_column_" + column

	return remember(ctx, in, key, func(ctx context.Context) (bool, error) {
		columns, err := in.source.ColumnNames(ctx, table)
		if err != nil {
			return false, err
		}

		return arrutil.ContainsFold(column, columns), nil
	})
}

// AllTables lists every table in the configured schema
func (in *Inspector) AllTables(ctx context.Context) ([]string, error) {
	return remember(ctx, in, in.prefix+"db_all_tables", func(ctx context.Context) ([]string, error) {
		tables, err := in.source.ListTables(ctx)
		if err != nil {
			return nil, err
		}

		if tables == nil {
			tables = []string{}
		}

		return tables, nil
	})
}

// TableColumnsInfo describes the columns of one table. An unknown table
// yields an empty mapping.
func (in *Inspector) TableColumnsInfo(ctx context.Context, table string) (TableColumns, error) {
	key := in.prefix + table + "_table_columns_info"

	return remember(ctx, in, key, func(ctx context.Context) (TableColumns, error) {
		rows, err := in.source.ColumnRows(ctx, table)
		if err != nil {
			return nil, err
		}

		columns := make(TableColumns, len(rows))
		for _, row := range rows {
			columns[row.ColumnName] = row.Column()
		}

		return columns, nil
	})
}

// DBStructure describes every table in the configured schema using a
// single metadata query
func (in *Inspector) DBStructure(ctx context.Context) (Structure, error) {
	key := in.prefix + "db_all_table_columns_info"

	return remember(ctx, in, key, func(ctx context.Context) (Structure, error) {
		rows, err := in.source.ColumnRows(ctx, "")
		if err != nil {
			return nil, err
		}

		structure := make(Structure)
		for _, row := range rows {
			columns, ok := structure[row.TableName]
			if !ok {
				columns = make(TableColumns)
				structure[row.TableName] = columns
			}

			columns[row.ColumnName] = row.Column()
		}

		return structure, nil
	})
}

// remember runs fn through the cache when caching is enabled
func remember[T any](
	ctx context.Context,
	in *Inspector,
	key string,
	fn func(context.Context) (T, error),
) (T, error) {
	logger := in.logger.WithField("key", key)

	if !in.Caching() {
		logger.Debug("schema cache disabled, querying source")
		return fn(ctx)
	}

	computed := false
	value, err := cache.Remember(ctx, in.store, key, in.ttl, func(ctx context.Context) (T, error) {
		computed = true
		return fn(ctx)
	})

	if err == nil {
		logger.WithField("cached", !computed).Debug("schema lookup resolved")
	}

	return value, err
}
