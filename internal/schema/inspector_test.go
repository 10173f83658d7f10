package schema_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/gem-support/internal/cache"
	"github.com/kyleking/gem-support/internal/logging"
	"github.com/kyleking/gem-support/internal/schema"
	"github.com/kyleking/gem-support/internal/testutil"
)

func newCachedInspector(t *testing.T, source schema.Source) (*schema.Inspector, *testutil.CountingCache) {
	t.Helper()

	store := testutil.NewCountingCache(cache.NewMemoryCache(time.Hour))

	return schema.NewInspector(source, schema.WithCache(store, testutil.TestCacheDays)), store
}

func TestInspectorHasTable(t *testing.T) {
	ctx := testutil.Context(t)
	source := testutil.NewSchemaSource(testutil.WithTables("empty"))
	inspector, store := newCachedInspector(t, source)

	for range 3 {
		exists, err := inspector.HasTable(ctx, "users")
		require.NoError(t, err)
		assert.True(t, exists)
	}

	exists, err := inspector.HasTable(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = inspector.HasTable(ctx, "empty")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.Equal(t, 3, source.GetCallCount("TableExists"), "one query per distinct table")
	assert.Equal(t, 1, store.Sets("gem_users_table_exists"))
	assert.Equal(t, 3, store.Gets("gem_users_table_exists"))
}

func TestInspectorHasColumn(t *testing.T) {
	ctx := testutil.Context(t)
	source := testutil.NewSchemaSource()
	inspector, store := newCachedInspector(t, source)

	tests := []struct {
		column   string
		expected bool
	}{
		{"email", true},
		{"users.email", true},
		{"EMAIL", true},
		{"password", false},
	}

	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			has, err := inspector.HasColumn(ctx, "users", tt.column)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, has)
		})
	}

	// "email" and "users.email" share one key
	assert.Equal(t, 2, store.Gets("gem_users_table_has_column_email"))
	assert.Equal(t, 1, store.Sets("gem_users_table_has_column_email"))
	assert.Equal(t, 3, source.GetCallCount("ColumnNames"))
}

func TestInspectorAllTables(t *testing.T) {
	ctx := testutil.Context(t)
	source := testutil.NewSchemaSource()
	inspector, _ := newCachedInspector(t, source)

	first, err := inspector.AllTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"posts", "users"}, first)

	second, err := inspector.AllTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, source.GetCallCount("ListTables"))
}

func TestInspectorAllTablesEmpty(t *testing.T) {
	inspector := schema.NewInspector(testutil.NewMockSource())

	tables, err := inspector.AllTables(testutil.Context(t))
	require.NoError(t, err)
	assert.NotNil(t, tables)
	assert.Empty(t, tables)
}

func TestInspectorTableColumnsInfo(t *testing.T) {
	ctx := testutil.Context(t)
	source := testutil.NewSchemaSource()
	inspector, _ := newCachedInspector(t, source)

	columns, err := inspector.TableColumnsInfo(ctx, "users")
	require.NoError(t, err)
	require.Len(t, columns, 4)

	id := columns["id"]
	assert.Equal(t, schema.KeyPrimary, id.Key)
	assert.True(t, id.Unsigned)
	assert.Equal(t, "auto_increment", id.Extra)
	assert.Nil(t, id.Length)

	email := columns["email"]
	require.NotNil(t, email.Length)
	assert.Equal(t, 191, *email.Length)
	assert.Equal(t, schema.KeyUnique, email.Key)

	name := columns["name"]
	assert.True(t, name.IsNullable)
	require.NotNil(t, name.Length)
	assert.Equal(t, 50, *name.Length)

	role := columns["role"]
	assert.Nil(t, role.Length)
	require.NotNil(t, role.Default)
	assert.Equal(t, "member", *role.Default)

	// Second call decodes the cached copy
	cached, err := inspector.TableColumnsInfo(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, columns, cached)
	assert.Equal(t, 1, source.GetCallCount("ColumnRows"))

	unknown, err := inspector.TableColumnsInfo(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, unknown)
}

func TestInspectorDBStructure(t *testing.T) {
	ctx := testutil.Context(t)
	source := testutil.NewSchemaSource()
	inspector, store := newCachedInspector(t, source)

	structure, err := inspector.DBStructure(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"posts", "users"}, structure.Tables())
	assert.Len(t, structure["users"], 4)
	assert.Len(t, structure["posts"], 3)
	assert.Equal(t, schema.KeyMulti, structure["posts"]["user_id"].Key)
	assert.Equal(t, "gross", structure["posts"]["price"].Comment)
	assert.Nil(t, structure["posts"]["price"].Length)

	_, err = inspector.DBStructure(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, source.GetCallCount("ColumnRows"), "whole schema is read in one query")
	assert.Equal(t, []string{"gem_db_all_table_columns_info"}, store.Keys())
}

func TestInspectorCacheTTL(t *testing.T) {
	ctx := testutil.Context(t)
	inspector, store := newCachedInspector(t, testutil.NewSchemaSource())

	_, err := inspector.HasTable(ctx, "users")
	require.NoError(t, err)

	expected := time.Duration(testutil.TestCacheDays*86400) * time.Second
	assert.Equal(t, expected, store.TTL("gem_users_table_exists"))
	assert.Equal(t, expected, inspector.TTL())
	assert.True(t, inspector.Caching())
}

func TestInspectorCachingDisabled(t *testing.T) {
	ctx := testutil.Context(t)

	tests := []struct {
		name string
		opts []schema.Option
	}{
		{"no cache", nil},
		{"zero days", []schema.Option{schema.WithCache(cache.NewMemoryCache(time.Hour), 0)}},
		{"negative days", []schema.Option{schema.WithCache(cache.NewMemoryCache(time.Hour), -3)}},
		{"nil store", []schema.Option{schema.WithCache(nil, 7)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := testutil.NewSchemaSource()
			inspector := schema.NewInspector(source, tt.opts...)

			for range 3 {
				_, err := inspector.AllTables(ctx)
				require.NoError(t, err)
			}

			assert.Equal(t, 3, source.GetCallCount("ListTables"))
			assert.False(t, inspector.Caching())
			assert.Zero(t, inspector.TTL())
		})
	}
}

func TestInspectorErrorsPropagate(t *testing.T) {
	ctx := testutil.Context(t)
	boom := errors.New("connection reset by peer")

	source := testutil.NewSchemaSource(
		testutil.WithError("TableExists", boom),
		testutil.WithError("ColumnNames", boom),
		testutil.WithError("ListTables", boom),
		testutil.WithError("ColumnRows", boom),
	)
	inspector, store := newCachedInspector(t, source)

	_, err := inspector.HasTable(ctx, "users")
	assert.Same(t, boom, err)

	_, err = inspector.HasColumn(ctx, "users", "id")
	assert.Same(t, boom, err)

	_, err = inspector.AllTables(ctx)
	assert.Same(t, boom, err)

	_, err = inspector.TableColumnsInfo(ctx, "users")
	assert.Same(t, boom, err)

	_, err = inspector.DBStructure(ctx)
	assert.Same(t, boom, err)

	assert.Empty(t, store.Keys(), "failures are never cached")

	// Uncached inspectors return the same error
	_, err = schema.NewInspector(source).HasTable(ctx, "users")
	assert.Same(t, boom, err)
}

func TestInspectorServesCacheWhenSourceFails(t *testing.T) {
	ctx := testutil.Context(t)
	boom := errors.New("database went away")

	source := testutil.NewSchemaSource(testutil.WithErrorAfter("ListTables", 1, boom))
	inspector, _ := newCachedInspector(t, source)

	_, err := inspector.AllTables(ctx)
	require.NoError(t, err)

	tables, err := inspector.AllTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"posts", "users"}, tables)

	_, err = schema.NewInspector(source).AllTables(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestInspectorKeyPrefix(t *testing.T) {
	ctx := testutil.Context(t)
	store := testutil.NewCountingCache(cache.NewMemoryCache(time.Hour))
	inspector := schema.NewInspector(
		testutil.NewSchemaSource(),
		schema.WithCache(store, 1),
		schema.WithKeyPrefix("app_"),
	)

	_, err := inspector.HasColumn(ctx, "users", "users.id")
	require.NoError(t, err)
	_, err = inspector.TableColumnsInfo(ctx, "posts")
	require.NoError(t, err)

	assert.Equal(t, []string{"app_posts_table_columns_info", "app_users_table_has_column_id"}, store.Keys())
}

func TestInspectorLogsCacheDecisions(t *testing.T) {
	ctx := testutil.Context(t)

	var buf bytes.Buffer
	logger := logging.New(&buf, logging.DebugLevel, "text")

	uncached := schema.NewInspector(testutil.NewSchemaSource(), schema.WithLogger(logger))
	_, err := uncached.HasTable(ctx, "users")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "schema cache disabled")
	assert.Contains(t, buf.String(), "key=gem_users_table_exists")

	buf.Reset()

	cached := schema.NewInspector(
		testutil.NewSchemaSource(),
		schema.WithLogger(logger),
		schema.WithCache(cache.NewMemoryCache(time.Hour), 1),
	)
	_, err = cached.HasTable(ctx, "users")
	require.NoError(t, err)
	_, err = cached.HasTable(ctx, "users")
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "cached=false")
	assert.Contains(t, buf.String(), "cached=true")
}

func TestInspectorConcurrentLookups(t *testing.T) {
	ctx := testutil.Context(t)
	inspector, _ := newCachedInspector(t, testutil.NewSchemaSource())

	testutil.RunConcurrent(t, testutil.TestWorkers, func(_ int) {
		exists, err := inspector.HasTable(ctx, "posts")
		assert.NoError(t, err)
		assert.True(t, exists)

		columns, err := inspector.TableColumnsInfo(ctx, "posts")
		assert.NoError(t, err)
		assert.Len(t, columns, 3)
	})
}
