package testutil

import "github.com/kyleking/gem-support/internal/schema"

// RowOption is a functional option for configuring test column rows
type RowOption func(*schema.ColumnRow)

// WithType sets the data type and full column type
func WithType(dataType, columnType string) RowOption {
	return func(r *schema.ColumnRow) {
		r.DataType = dataType
		r.ColumnType = columnType
	}
}

// WithKey sets the key classification
func WithKey(kind schema.KeyKind) RowOption {
	return func(r *schema.ColumnRow) {
		r.ColumnKey = kind
	}
}

// Nullable marks the column nullable
func Nullable() RowOption {
	return func(r *schema.ColumnRow) {
		r.IsNullable = "YES"
	}
}

// WithDefault sets the column default
func WithDefault(value string) RowOption {
	return func(r *schema.ColumnRow) {
		r.Default = &value
	}
}

// WithMaxLength sets the explicit character maximum length
func WithMaxLength(length int64) RowOption {
	return func(r *schema.ColumnRow) {
		r.CharacterMaximumLength = &length
	}
}

// WithExtra sets the extra attributes
func WithExtra(extra string) RowOption {
	return func(r *schema.ColumnRow) {
		r.Extra = extra
	}
}

// WithComment sets the column comment
func WithComment(comment string) RowOption {
	return func(r *schema.ColumnRow) {
		r.Comment = comment
	}
}

// NewTestRow creates a column row with integer defaults and applies opts
func NewTestRow(table, column string, position int, opts ...RowOption) schema.ColumnRow {
	row := schema.ColumnRow{
		TableName:       table,
		ColumnName:      column,
		OrdinalPosition: position,
		DataType:        "int",
		ColumnType:      "int",
		IsNullable:      "NO",
	}

	for _, opt := range opts {
		opt(&row)
	}

	return row
}

// UsersTableRows returns the rows of a small users table
func UsersTableRows() []schema.ColumnRow {
	return []schema.ColumnRow{
		NewTestRow(TestUsersTable, "id", 1,
			WithType("bigint", "bigint unsigned"), WithKey(schema.KeyPrimary), WithExtra("auto_increment")),
		NewTestRow(TestUsersTable, "email", 2,
			WithType("varchar", "varchar(191)"), WithMaxLength(191), WithKey(schema.KeyUnique)),
		NewTestRow(TestUsersTable, "name", 3,
			WithType("varchar", "varchar(50)"), Nullable()),
		NewTestRow(TestUsersTable, "role", 4,
			WithType("enum", "enum('admin','member')"), WithDefault("member")),
	}
}

// PostsTableRows returns the rows of a posts table referencing users
func PostsTableRows() []schema.ColumnRow {
	return []schema.ColumnRow{
		NewTestRow(TestPostsTable, "id", 1, WithKey(schema.KeyPrimary)),
		NewTestRow(TestPostsTable, "user_id", 2, WithKey(schema.KeyMulti)),
		NewTestRow(TestPostsTable, "price", 3, WithType("decimal", "decimal(8,2)"), WithComment("gross")),
	}
}

// NewSchemaSource returns a mock source holding the users and posts tables
func NewSchemaSource(opts ...MockOption) *MockSource {
	opts = append([]MockOption{
		WithRows(UsersTableRows()...),
		WithRows(PostsTableRows()...),
	}, opts...)

	return NewMockSource(opts...)
}
