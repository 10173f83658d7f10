package schema

import (
	"strings"

	"github.com/kyleking/gem-support/internal/strutil"
)

type aliasKind int

const (
	aliasNone aliasKind = iota
	aliasBare
	aliasPrefix
)

// Alias selects the AS clause QualifyColumn appends
type Alias struct {
	kind   aliasKind
	prefix string
}

// NoAlias leaves the qualified column without an AS clause
func NoAlias() Alias { return Alias{} }

// BareAlias aliases the column to its own name: "users.id as id"
func BareAlias() Alias { return Alias{kind: aliasBare} }

// PrefixAlias aliases the column to prefix_column: "users.id as u_id".
// An empty prefix behaves like NoAlias.
func PrefixAlias(prefix string) Alias {
	if prefix == "" {
		return NoAlias()
	}

	return Alias{kind: aliasPrefix, prefix: prefix}
}

// QualifyColumn makes column start with exactly one "table." and appends
// the alias, if any
func QualifyColumn(table, column string, alias Alias) string {
	qualifier := table + "."
	for strings.HasPrefix(column, qualifier) {
		column = strings.TrimPrefix(column, qualifier)
	}

	column = qualifier + column

	if alias.kind == aliasNone {
		return column
	}

	name, _ := strutil.AfterOccurrence(column, ".", strutil.LastOccurrence, true)

	if alias.kind == aliasBare {
		return column + " as " + name
	}

	return column + " as " + alias.prefix + "_" + name
}

// QualifyColumns applies QualifyColumn to each column, keeping order
func QualifyColumns(table string, columns []string, alias Alias) []string {
	qualified := make([]string, len(columns))
	for i, column := range columns {
		qualified[i] = QualifyColumn(table, column, alias)
	}

	return qualified
}
