package storage

import (
	"fmt"
	"strings"
)

// dialect holds the metadata queries for one family of databases.
// Queries take the schema name first when usesSchema is set.
type dialect struct {
	name          string
	defaultSchema string
	usesSchema    bool
	tableExists   string
	listTables    string
	columnNames   string
	// columnRows must select, in order: table, column, ordinal position,
	// declared type, key rank, nullability, default, max length
	columnRows string
	// keyRanks, when set, lists (table, column, rank) for unique and
	// foreign keys that columnRows cannot see
	keyRanks string
}

// informationSchema covers databases with ANSI information_schema views
var informationSchema = dialect{
	name:          "information_schema",
	defaultSchema: "main",
	usesSchema:    true,
	tableExists: `
		SELECT count(*)
		FROM information_schema.tables
		WHERE table_schema = ?
		  AND table_name = ?
		  AND table_type = 'BASE TABLE'`,
	listTables: `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ?
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`,
	columnNames: `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = ?
		  AND table_name = ?
		ORDER BY ordinal_position`,
	columnRows: `
		SELECT
			c.table_name,
			c.column_name,
			c.ordinal_position,
			c.data_type,
			k.key_rank,
			c.is_nullable,
			c.column_default,
			c.character_maximum_length
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT ku.table_name, ku.column_name,
				min(CASE tc.constraint_type
					WHEN 'PRIMARY KEY' THEN 1
					WHEN 'UNIQUE' THEN 2
					WHEN 'FOREIGN KEY' THEN 3
				END) AS key_rank
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage ku
				ON tc.constraint_name = ku.constraint_name
				AND tc.table_schema = ku.table_schema
				AND tc.table_name = ku.table_name
			WHERE tc.table_schema = ?
			GROUP BY ku.table_name, ku.column_name
		) k ON k.table_name = c.table_name AND k.column_name = c.column_name
		WHERE c.table_schema = ?
		  AND (? = '' OR c.table_name = ?)
		ORDER BY c.table_name, c.ordinal_position`,
}

// sqlitePragma covers SQLite and libSQL, which expose metadata through
// table-valued pragma functions
var sqlitePragma = dialect{
	name: "sqlite_pragma",
	tableExists: `
		SELECT count(*)
		FROM sqlite_master
		WHERE type = 'table'
		  AND name = ?`,
	listTables: `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name`,
	columnNames: `
		SELECT name
		FROM pragma_table_info(?)
		ORDER BY cid`,
	columnRows: `
		SELECT
			m.name,
			p.name,
			p.cid + 1,
			p.type,
			CASE WHEN p.pk > 0 THEN 1 END,
			CASE WHEN p."notnull" = 1 OR p.pk > 0 THEN 'NO' ELSE 'YES' END,
			p.dflt_value,
			NULL
		FROM sqlite_master m
		JOIN pragma_table_info(m.name) p
		WHERE m.type = 'table'
		  AND m.name NOT LIKE 'sqlite_%'
		  AND (? = '' OR m.name = ?)
		ORDER BY m.name, p.cid`,
	keyRanks: `
		SELECT m.name, ii.name, 2
		FROM sqlite_master m
		JOIN pragma_index_list(m.name) il
		JOIN pragma_index_info(il.name) ii
		WHERE m.type = 'table'
		  AND il."unique" = 1
		  AND il.origin != 'pk'
		  AND (? = '' OR m.name = ?)
		UNION ALL
		SELECT m.name, fk."from", 3
		FROM sqlite_master m
		JOIN pragma_foreign_key_list(m.name) fk
		WHERE m.type = 'table'
		  AND (? = '' OR m.name = ?)`,
}

var dialects = map[string]dialect{
	"duckdb":  informationSchema,
	"sqlite3": sqlitePragma,
	"libsql":  sqlitePragma,
}

func dialectFor(driver string) (dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("no metadata dialect for driver %q", driver)
	}

	return d, nil
}

// splitType turns a declared type such as "VARCHAR(50)" into the data type
// "varchar" and the column type "varchar(50)"
func splitType(declared string) (dataType, columnType string) {
	columnType = strings.ToLower(strings.TrimSpace(declared))
	dataType = columnType

	if i := strings.IndexAny(dataType, "( "); i >= 0 {
		dataType = dataType[:i]
	}

	return dataType, columnType
}
