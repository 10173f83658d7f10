package schema

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/kyleking/gem-support/internal/strutil"
)

// KeyKind classifies a column's participation in keys
type KeyKind string

const (
	KeyNone    KeyKind = ""
	KeyPrimary KeyKind = "PRI"
	KeyUnique  KeyKind = "UNI"
	KeyMulti   KeyKind = "MUL"
)

// Constraint ranks used by metadata queries; lower ranks win
const (
	RankPrimary = 1
	RankUnique  = 2
	RankForeign = 3
)

// KeyKindByRank maps the strongest constraint on a column to its key kind
func KeyKindByRank(rank int64) KeyKind {
	switch rank {
	case RankPrimary:
		return KeyPrimary
	case RankUnique:
		return KeyUnique
	case RankForeign:
		return KeyMulti
	default:
		return KeyNone
	}
}

// Column describes one database column
type Column struct {
	Position   int     `json:"position"    yaml:"position"`
	DataType   string  `json:"data_type"   yaml:"data_type"`
	Key        KeyKind `json:"key"         yaml:"key"`
	IsNullable bool    `json:"is_nullable" yaml:"is_nullable"`
	Default    *string `json:"default"     yaml:"default"`
	Extra      string  `json:"extra"       yaml:"extra"`
	ColumnType string  `json:"column_type" yaml:"column_type"`
	Comment    string  `json:"comment"     yaml:"comment"`
	Unsigned   bool    `json:"unsigned"    yaml:"unsigned"`
	Length     *int    `json:"length"      yaml:"length"`
}

// TableColumns maps column names to descriptors for one table
type TableColumns map[string]Column

// NamedColumn pairs a descriptor with its column name
type NamedColumn struct {
	Name string
	Column
}

// Ordered returns the columns sorted by ordinal position, then name
func (tc TableColumns) Ordered() []NamedColumn {
	ordered := make([]NamedColumn, 0, len(tc))
	for name, column := range tc {
		ordered = append(ordered, NamedColumn{Name: name, Column: column})
	}

	slices.SortFunc(ordered, func(a, b NamedColumn) int {
		return cmp.Or(cmp.Compare(a.Position, b.Position), cmp.Compare(a.Name, b.Name))
	})

	return ordered
}

// Structure maps table names to their columns
type Structure map[string]TableColumns

// Tables returns the table names in sorted order
func (s Structure) Tables() []string {
	tables := make([]string, 0, len(s))
	for table := range s {
		tables = append(tables, table)
	}

	slices.Sort(tables)

	return tables
}

// DetectLength derives a column length from the reported type.
//
// enum and set columns never have a length. Otherwise the token between the
// first "(" and last ")" of columnType is compared with charMaxLength: equal
// values win, a non-numeric token means no length, and an explicit
// charMaxLength is preferred over the token.
func DetectLength(dataType, columnType string, charMaxLength *int64) *int {
	switch strings.ToLower(dataType) {
	case "enum", "set":
		return nil
	}

	hasLengthInfo := strings.Contains(columnType, "(") && strings.Contains(columnType, ")")
	explicit := charMaxLength != nil && *charMaxLength != 0

	if !hasLengthInfo && !explicit {
		return nil
	}

	var token string
	if hasLengthInfo {
		token, _ = strutil.Between(columnType, "(", ")")
		token = strings.TrimSpace(token)
	}

	parsed, err := strconv.Atoi(token)
	numeric := token != "" && err == nil

	if explicit && numeric && int64(parsed) == *charMaxLength {
		return &parsed
	}

	if token != "" && !numeric {
		return nil
	}

	if explicit {
		length := int(*charMaxLength)
		return &length
	}

	if numeric {
		return &parsed
	}

	return nil
}
