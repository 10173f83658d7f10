package formatter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/kyleking/gem-support/internal/cache"
	"github.com/kyleking/gem-support/internal/config"
	"github.com/kyleking/gem-support/internal/schema"
	"github.com/kyleking/gem-support/internal/strutil"
)

func newTestFormatter(format OutputFormat) *Formatter {
	// A buffer is not a terminal, so styles render as plain text
	return NewFormatter(&bytes.Buffer{}, format)
}

func sampleColumns() schema.TableColumns {
	member := "member"
	length := 191

	return schema.TableColumns{
		"id": {
			Position: 1, DataType: "bigint", ColumnType: "bigint unsigned",
			Key: schema.KeyPrimary, Extra: "auto_increment", Unsigned: true,
		},
		"email": {
			Position: 2, DataType: "varchar", ColumnType: "varchar(191)",
			Key: schema.KeyUnique, Length: &length,
		},
		"role": {
			Position: 3, DataType: "enum", ColumnType: "enum('admin','member')",
			IsNullable: true, Default: &member, Comment: "access level",
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected OutputFormat
		wantErr  bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}

			if got != tt.expected {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFormatColumnsTable(t *testing.T) {
	out, err := newTestFormatter(FormatTable).FormatColumns("users", sampleColumns())
	if err != nil {
		t.Fatalf("FormatColumns failed: %v", err)
	}

	lines := strings.Split(out, "\n")
	if len(lines) != 5 {
		t.Fatalf("expected title, header and 3 rows, got %d lines:\n%s", len(lines), out)
	}

	if lines[0] != "users" {
		t.Errorf("expected table title, got %q", lines[0])
	}

	expectedFields := [][]string{
		{"#", "COLUMN", "TYPE", "KEY", "NULL", "DEFAULT", "LENGTH", "EXTRA", "COMMENT"},
		{"1", "id", "bigint", "unsigned", "PRI", "NO", "-", "-", "auto_increment", "-"},
		{"2", "email", "varchar(191)", "UNI", "NO", "-", "191", "-", "-"},
		{"3", "role", "enum('admin','member')", "-", "YES", "member", "-", "-", "access", "level"},
	}

	for i, expected := range expectedFields {
		got := strings.Fields(lines[i+1])
		if strings.Join(got, " ") != strings.Join(expected, " ") {
			t.Errorf("line %d = %q, want fields %v", i+1, lines[i+1], expected)
		}
	}

	// Columns line up under their headers
	typeCol := strings.Index(lines[1], "TYPE")
	if strings.Index(lines[3], "varchar(191)") != typeCol {
		t.Errorf("TYPE column misaligned:\n%s", out)
	}
}

func TestFormatColumnsEmpty(t *testing.T) {
	out, err := newTestFormatter(FormatTable).FormatColumns("missing", schema.TableColumns{})
	if err != nil {
		t.Fatalf("FormatColumns failed: %v", err)
	}

	if out != "missing: no columns" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestFormatColumnsJSON(t *testing.T) {
	out, err := newTestFormatter(FormatJSON).FormatColumns("users", sampleColumns())
	if err != nil {
		t.Fatalf("FormatColumns failed: %v", err)
	}

	var decoded schema.TableColumns
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid json: %v\n%s", err, out)
	}

	if decoded["email"].Length == nil || *decoded["email"].Length != 191 {
		t.Errorf("email length not preserved: %+v", decoded["email"])
	}

	if !strings.Contains(out, `"column_type": "bigint unsigned"`) {
		t.Errorf("expected snake case keys in:\n%s", out)
	}
}

func TestFormatStructureYAML(t *testing.T) {
	structure := schema.Structure{"users": sampleColumns(), "posts": {"id": {Position: 1, DataType: "integer"}}}

	out, err := newTestFormatter(FormatYAML).FormatStructure(structure)
	if err != nil {
		t.Fatalf("FormatStructure failed: %v", err)
	}

	var decoded map[string]map[string]map[string]any
	if err := yaml.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid yaml: %v\n%s", err, out)
	}

	if decoded["users"]["role"]["default"] != "member" {
		t.Errorf("expected role default in yaml, got %v", decoded["users"]["role"])
	}

	if decoded["posts"]["id"]["data_type"] != "integer" {
		t.Errorf("expected posts.id data_type, got %v", decoded["posts"]["id"])
	}
}

func TestFormatStructureTable(t *testing.T) {
	structure := schema.Structure{"users": sampleColumns(), "accounts": {"id": {Position: 1, ColumnType: "integer"}}}

	out, err := newTestFormatter(FormatTable).FormatStructure(structure)
	if err != nil {
		t.Fatalf("FormatStructure failed: %v", err)
	}

	accounts := strings.Index(out, "accounts\n")
	users := strings.Index(out, "users\n")

	if accounts < 0 || users < 0 || accounts > users {
		t.Errorf("expected tables in name order:\n%s", out)
	}

	empty, _ := newTestFormatter(FormatTable).FormatStructure(schema.Structure{})
	if empty != "no tables" {
		t.Errorf("unexpected empty output %q", empty)
	}
}

func TestFormatList(t *testing.T) {
	out, err := newTestFormatter(FormatTable).FormatList("Tables", []string{"posts", "users"})
	if err != nil {
		t.Fatalf("FormatList failed: %v", err)
	}

	if out != "Tables\nposts\nusers" {
		t.Errorf("unexpected list output %q", out)
	}

	out, _ = newTestFormatter(FormatJSON).FormatList("Tables", nil)
	if out != "[]" {
		t.Errorf("nil list should encode as empty array, got %q", out)
	}

	out, _ = newTestFormatter(FormatTable).FormatList("Tables", nil)
	if out != "Tables: none" {
		t.Errorf("unexpected empty list output %q", out)
	}
}

func TestFormatValue(t *testing.T) {
	out, _ := newTestFormatter(FormatTable).FormatValue("exists", true)
	if out != "exists: true" {
		t.Errorf("unexpected value output %q", out)
	}

	out, _ = newTestFormatter(FormatJSON).FormatValue("exists", false)
	if strings.Join(strings.Fields(out), "") != `{"exists":false}` {
		t.Errorf("unexpected json value output %q", out)
	}
}

func TestFormatPositions(t *testing.T) {
	positions := strutil.Positions("a-b-c", "-", true)

	out, err := newTestFormatter(FormatTable).FormatPositions(positions)
	if err != nil {
		t.Fatalf("FormatPositions failed: %v", err)
	}

	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got:\n%s", out)
	}

	if strings.Join(strings.Fields(lines[2]), " ") != "2 3" {
		t.Errorf("second occurrence row = %q", lines[2])
	}

	out, _ = newTestFormatter(FormatJSON).FormatPositions(positions)

	var entries []PositionEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("invalid json: %v", err)
	}

	if len(entries) != 2 || entries[0] != (PositionEntry{Occurrence: 1, Position: 1}) {
		t.Errorf("unexpected entries %+v", entries)
	}

	out, _ = newTestFormatter(FormatTable).FormatPositions(strutil.Positions("abc", "z", true))
	if out != "no occurrences" {
		t.Errorf("unexpected empty output %q", out)
	}
}

func TestFormatStats(t *testing.T) {
	stats := &cache.Stats{TotalEntries: 3, TotalSize: 2048, Hits: 3, Misses: 1, HitRate: 0.75, MissRate: 0.25}

	out, err := newTestFormatter(FormatTable).FormatStats(stats)
	if err != nil {
		t.Fatalf("FormatStats failed: %v", err)
	}

	for _, expected := range []string{"Entries: 3", "Size: 2.0 KiB", "3 hits, 1 misses (75.0% hit rate)"} {
		if !strings.Contains(out, expected) {
			t.Errorf("expected %q in:\n%s", expected, out)
		}
	}

	out, _ = newTestFormatter(FormatYAML).FormatStats(stats)
	if !strings.Contains(out, "hit_rate: 0.75") {
		t.Errorf("expected yaml keys in:\n%s", out)
	}
}

func TestFormatConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Environment = "local"
	cfg.Schema.CacheDays = map[string]int{"local": 2}

	out, err := newTestFormatter(FormatTable).FormatConfig(cfg)
	if err != nil {
		t.Fatalf("FormatConfig failed: %v", err)
	}

	for _, expected := range []string{"Environment:", "local", "Schema cache:", "2 days", "Key prefix:", "gem_"} {
		if !strings.Contains(out, expected) {
			t.Errorf("expected %q in:\n%s", expected, out)
		}
	}

	cfg.Environment = "production"
	out, _ = newTestFormatter(FormatTable).FormatConfig(cfg)

	if !strings.Contains(out, "disabled") {
		t.Errorf("expected caching disabled for production:\n%s", out)
	}

	out, _ = newTestFormatter(FormatJSON).FormatConfig(cfg)
	if !strings.Contains(out, `"key_prefix": "gem_"`) {
		t.Errorf("expected json config keys in:\n%s", out)
	}
}

func TestHumanBytes(t *testing.T) {
	tests := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1024:            "1.0 KiB",
		5 * 1024 * 1024: "5.0 MiB",
	}

	for input, expected := range tests {
		if got := humanBytes(input); got != expected {
			t.Errorf("humanBytes(%d) = %q, want %q", input, got, expected)
		}
	}
}
