// Package schema answers table and column questions about a database,
// memoizing the answers in a cache whose lifetime is configured per
// environment.
package schema

import (
	"context"
	"strings"
)

// Source is a database that can describe its own schema. Implementations
// scope every call to one configured schema or database name.
type Source interface {
	// TableExists reports whether table exists.
	TableExists(ctx context.Context, table string) (bool, error)

	// ColumnNames lists the columns of table in ordinal order.
	ColumnNames(ctx context.Context, table string) ([]string, error)

	// ListTables lists base tables in name order.
	ListTables(ctx context.Context) ([]string, error)

	// ColumnRows returns information_schema style rows for table, or for
	// every table when table is empty.
	ColumnRows(ctx context.Context, table string) ([]ColumnRow, error)

	Close() error
}

// ColumnRow is one row of column metadata as a source reports it
type ColumnRow struct {
	TableName              string
	ColumnName             string
	OrdinalPosition        int
	DataType               string
	ColumnKey              KeyKind
	IsNullable             string // YES or NO
	Default                *string
	Extra                  string
	ColumnType             string
	Comment                string
	CharacterMaximumLength *int64
}

// Column converts the row into a descriptor
func (r ColumnRow) Column() Column {
	return Column{
		Position:   r.OrdinalPosition,
		DataType:   r.DataType,
		Key:        r.ColumnKey,
		IsNullable: strings.EqualFold(r.IsNullable, "YES"),
		Default:    r.Default,
		Extra:      r.Extra,
		ColumnType: r.ColumnType,
		Comment:    r.Comment,
		Unsigned:   strings.Contains(r.ColumnType, "unsigned"),
		Length:     DetectLength(r.DataType, r.ColumnType, r.CharacterMaximumLength),
	}
}
