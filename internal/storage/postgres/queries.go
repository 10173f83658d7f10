package postgres

const (
	queryTableExists = `
		SELECT count(*)
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_name = $2
		  AND table_type = 'BASE TABLE'`

	queryListTables = `
		SELECT table_name::text
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	queryColumnNames = `
		SELECT column_name::text
		FROM information_schema.columns
		WHERE table_schema = $1
		  AND table_name = $2
		ORDER BY ordinal_position`

	queryColumnRows = `
		SELECT
			c.table_name::text,
			c.column_name::text,
			c.ordinal_position::int8,
			c.data_type::text,
			k.key_rank,
			c.is_nullable::text,
			c.column_default::text,
			c.character_maximum_length::int8,
			format_type(a.atttypid, a.atttypmod),
			COALESCE(col_description(a.attrelid, a.attnum), ''),
			CASE
				WHEN c.is_identity = 'YES' OR c.column_default LIKE 'nextval(%' THEN 'auto_increment'
				ELSE ''
			END
		FROM information_schema.columns c
		JOIN pg_catalog.pg_namespace n ON n.nspname = c.table_schema
		JOIN pg_catalog.pg_class cl ON cl.relname = c.table_name AND cl.relnamespace = n.oid
		JOIN pg_catalog.pg_attribute a ON a.attrelid = cl.oid AND a.attname = c.column_name
		LEFT JOIN (
			SELECT ku.table_name, ku.column_name,
				min(CASE tc.constraint_type
					WHEN 'PRIMARY KEY' THEN 1
					WHEN 'UNIQUE' THEN 2
					WHEN 'FOREIGN KEY' THEN 3
				END)::int8 AS key_rank
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage ku
				ON tc.constraint_name = ku.constraint_name
				AND tc.table_schema = ku.table_schema
				AND tc.table_name = ku.table_name
			WHERE tc.table_schema = $1
			GROUP BY ku.table_name, ku.column_name
		) k ON k.table_name = c.table_name AND k.column_name = c.column_name
		WHERE c.table_schema = $1
		  AND ($2::text = '' OR c.table_name = $2::text)
		ORDER BY c.table_name, c.ordinal_position`
)
