package formatter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/kyleking/gem-support/internal/cache"
	"github.com/kyleking/gem-support/internal/config"
	"github.com/kyleking/gem-support/internal/schema"
	"github.com/kyleking/gem-support/internal/strutil"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// Formats lists the accepted output formats
var Formats = []OutputFormat{FormatTable, FormatJSON, FormatYAML}

// ParseFormat validates a user supplied format name. Empty means table.
func ParseFormat(name string) (OutputFormat, error) {
	if name == "" {
		return FormatTable, nil
	}

	for _, format := range Formats {
		if strings.EqualFold(name, string(format)) {
			return format, nil
		}
	}

	return "", fmt.Errorf("unknown output format %q (must be table, json, or yaml)", name)
}

const missing = "-"

// Formatter renders command results for the terminal
type Formatter struct {
	format OutputFormat
	header lipgloss.Style
	key    lipgloss.Style
	muted  lipgloss.Style
}

// NewFormatter creates a formatter whose colors follow the capabilities of w
func NewFormatter(w io.Writer, format OutputFormat) *Formatter {
	renderer := lipgloss.NewRenderer(w)

	return &Formatter{
		format: format,
		header: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#8B5CF6")),
		key:    renderer.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		muted:  renderer.NewStyle().Foreground(lipgloss.Color("#6B7280")),
	}
}

// Format returns the configured output format
func (f *Formatter) Format() OutputFormat {
	return f.format
}

// encode renders v for the structured formats. ok is false for tables.
func (f *Formatter) encode(v any) (string, bool, error) {
	switch f.format {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", true, fmt.Errorf("failed to encode json: %w", err)
		}

		return string(data), true, nil
	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return "", true, fmt.Errorf("failed to encode yaml: %w", err)
		}

		return strings.TrimSuffix(string(data), "\n"), true, nil
	default:
		return "", false, nil
	}
}

// FormatColumns renders the columns of one table in ordinal order
func (f *Formatter) FormatColumns(table string, columns schema.TableColumns) (string, error) {
	if out, ok, err := f.encode(columns); ok {
		return out, err
	}

	if len(columns) == 0 {
		return f.muted.Render(fmt.Sprintf("%s: no columns", table)), nil
	}

	return f.header.Render(table) + "\n" + f.columnTable(columns), nil
}

// FormatStructure renders every table of the database in name order
func (f *Formatter) FormatStructure(structure schema.Structure) (string, error) {
	if out, ok, err := f.encode(structure); ok {
		return out, err
	}

	if len(structure) == 0 {
		return f.muted.Render("no tables"), nil
	}

	sections := make([]string, 0, len(structure))
	for _, table := range structure.Tables() {
		sections = append(sections, f.header.Render(table)+"\n"+f.columnTable(structure[table]))
	}

	return strings.Join(sections, "\n\n"), nil
}

func (f *Formatter) columnTable(columns schema.TableColumns) string {
	headers := []string{"#", "COLUMN", "TYPE", "KEY", "NULL", "DEFAULT", "LENGTH", "EXTRA", "COMMENT"}

	ordered := columns.Ordered()
	rows := make([][]string, 0, len(ordered))

	for _, column := range ordered {
		rows = append(rows, []string{
			strconv.Itoa(column.Position),
			column.Name,
			orMissing(column.ColumnType),
			orMissing(string(column.Key)),
			yesNo(column.IsNullable),
			orMissing(deref(column.Default)),
			lengthString(column.Length),
			orMissing(column.Extra),
			orMissing(column.Comment),
		})
	}

	return f.renderTable(headers, rows)
}

// FormatList renders a titled list of names
func (f *Formatter) FormatList(title string, items []string) (string, error) {
	if items == nil {
		items = []string{}
	}

	if out, ok, err := f.encode(items); ok {
		return out, err
	}

	if len(items) == 0 {
		return f.muted.Render(fmt.Sprintf("%s: none", title)), nil
	}

	return f.header.Render(title) + "\n" + strings.Join(items, "\n"), nil
}

// FormatValue renders a single labelled answer such as a boolean check
func (f *Formatter) FormatValue(label string, value any) (string, error) {
	if out, ok, err := f.encode(map[string]any{label: value}); ok {
		return out, err
	}

	return fmt.Sprintf("%s: %v", f.key.Render(label), value), nil
}

// PositionEntry is one row of a rendered position table
type PositionEntry struct {
	Occurrence int `json:"occurrence" yaml:"occurrence"`
	Position   int `json:"position"   yaml:"position"`
}

// FormatPositions renders the ordinal to offset mapping of a search
func (f *Formatter) FormatPositions(positions strutil.PositionTable) (string, error) {
	entries := make([]PositionEntry, 0, positions.Len())
	for _, ordinal := range positions.Ordinals() {
		offset, _ := positions.At(ordinal)
		entries = append(entries, PositionEntry{Occurrence: ordinal, Position: offset})
	}

	if out, ok, err := f.encode(entries); ok {
		return out, err
	}

	if len(entries) == 0 {
		return f.muted.Render("no occurrences"), nil
	}

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{strconv.Itoa(entry.Occurrence), strconv.Itoa(entry.Position)})
	}

	return f.renderTable([]string{"OCCURRENCE", "POSITION"}, rows), nil
}

// FormatStats renders cache statistics
func (f *Formatter) FormatStats(stats *cache.Stats) (string, error) {
	if out, ok, err := f.encode(stats); ok {
		return out, err
	}

	lines := []string{
		f.header.Render("Cache"),
		fmt.Sprintf("%s %d", f.key.Render("Entries:"), stats.TotalEntries),
		fmt.Sprintf("%s %s", f.key.Render("Size:"), humanBytes(stats.TotalSize)),
		fmt.Sprintf("%s %d hits, %d misses (%.1f%% hit rate)",
			f.key.Render("Lookups:"), stats.Hits, stats.Misses, stats.HitRate*100),
	}

	return strings.Join(lines, "\n"), nil
}

// FormatConfig renders the effective configuration
func (f *Formatter) FormatConfig(cfg *config.Config) (string, error) {
	if out, ok, err := f.encode(cfg); ok {
		return out, err
	}

	days, cached := cfg.CacheDays(cfg.Environment)
	cacheLine := "disabled"

	if cached {
		cacheLine = fmt.Sprintf("%d days", days)
	}

	pairs := [][2]string{
		{"Environment", cfg.Environment},
		{"Driver", cfg.Database.Driver},
		{"DSN", cfg.Database.DSN},
		{"Schema", orMissing(cfg.Database.Schema)},
		{"Query timeout", cfg.Database.QueryTimeout},
		{"Schema cache", cacheLine},
		{"Key prefix", cfg.Schema.KeyPrefix},
		{"Cache store", cfg.Cache.Store},
		{"Cache directory", cfg.Cache.Directory},
		{"Log level", cfg.Logging.Level},
		{"Log format", cfg.Logging.Format},
	}

	width := 0
	for _, pair := range pairs {
		width = max(width, len(pair[0])+1)
	}

	lines := []string{f.header.Render("Configuration")}
	for _, pair := range pairs {
		label := fmt.Sprintf("%-*s", width, pair[0]+":")
		lines = append(lines, f.key.Render(label)+" "+pair[1])
	}

	return strings.Join(lines, "\n"), nil
}

// renderTable aligns rows under bold headers using display widths
func (f *Formatter) renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder

	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = f.header.Render(pad(h, widths[i]))
	}

	b.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))

	for _, row := range rows {
		b.WriteString("\n")

		for i, cell := range row {
			cells[i] = pad(cell, widths[i])
		}

		b.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
	}

	return b.String()
}

func pad(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}

	return s
}

func orMissing(s string) string {
	if s == "" {
		return missing
	}

	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}

	return "NO"
}

func lengthString(length *int) string {
	if length == nil {
		return missing
	}

	return strconv.Itoa(*length)
}

// humanBytes formats a byte count with binary units
func humanBytes(n int64) string {
	const unit = 1024

	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
