package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Kurukshetran/nl2sql/internal/database"
	"github.com/Kurukshetran/nl2sql/internal/errors"
	"github.com/Kurukshetran/nl2sql/internal/types"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
)

// MaxCellWidth bounds a single rendered cell in table output
const MaxCellWidth = 60

// Formatter renders query results, SQL and schema listings for the terminal
type Formatter struct {
	now func() time.Time
}

// NewFormatter creates a new formatter instance
func NewFormatter() *Formatter {
	return &Formatter{now: time.Now}
}

// ParseFormat validates a format name, defaulting to table
func ParseFormat(name string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(name)) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	}

	return "", errors.Newf(errors.ErrTypeValidation, "unknown output format %q", name).
		WithSuggestion("Use 'table' or 'json'")
}

// FormatSQL renders generated SQL under a heading
func (f *Formatter) FormatSQL(sql string) string {
	return "Generated SQL:\n" + strings.TrimSpace(sql)
}

// FormatResult renders the rows of an executed query
func (f *Formatter) FormatResult(result *database.Result, format OutputFormat) (string, error) {
	if format == FormatJSON {
		return f.formatResultJSON(result)
	}

	return f.formatResultTable(result), nil
}

func (f *Formatter) formatResultTable(result *database.Result) string {
	if result == nil || len(result.Columns) == 0 {
		return "Query returned no columns"
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(result.Columns, "\t"))

	rule := make([]string, len(result.Columns))
	for i, col := range result.Columns {
		rule[i] = strings.Repeat("-", max(len(col), 3))
	}
	fmt.Fprintln(w, strings.Join(rule, "\t"))

	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = truncate(formatValue(v), MaxCellWidth)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}

	_ = w.Flush()

	fmt.Fprintf(&buf, "\n(%s", pluralize(len(result.Rows), "row"))
	if result.Truncated {
		buf.WriteString(", truncated")
	}
	if result.Duration > 0 {
		fmt.Fprintf(&buf, ", %s", result.Duration.Round(time.Millisecond))
	}
	buf.WriteString(")")

	return buf.String()
}

func (f *Formatter) formatResultJSON(result *database.Result) (string, error) {
	records := []map[string]any{}

	if result != nil {
		for _, row := range result.Rows {
			record := make(map[string]any, len(result.Columns))
			for i, col := range result.Columns {
				if i < len(row) {
					record[col] = row[i]
				}
			}
			records = append(records, record)
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrTypeInternal, "failed to encode result")
	}

	return string(data), nil
}

// FormatSchema lists every table in the enriched schema, or only table when
// it is not empty
func (f *Formatter) FormatSchema(enriched *types.EnrichedSchema, table string) (string, error) {
	if table != "" {
		info, ok := enriched.Tables[table]
		if !ok {
			return "", errors.Newf(errors.ErrTypeNotFound, "table %q is not in the digested schema", table).
				WithSuggestion("Run 'nl2sql schema' to list known tables")
		}

		return f.formatTable(table, info), nil
	}

	var b strings.Builder

	generated := "?"
	if !enriched.Metadata.GeneratedAt.IsZero() {
		generated = f.humanizeAge(enriched.Metadata.GeneratedAt)
	}

	fmt.Fprintf(&b, "Database: %s\n", enriched.Metadata.Database)
	fmt.Fprintf(&b, "Generated: %s\n", generated)
	fmt.Fprintf(&b, "Tables: %d\n", len(enriched.Tables))

	for _, name := range enriched.TableNames() {
		b.WriteString("\n")
		b.WriteString(f.formatTable(name, enriched.Tables[name]))
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

func (f *Formatter) formatTable(name string, info types.TableInfo) string {
	var b strings.Builder

	description := info.Description
	if description == "" {
		description = "-"
	}

	fmt.Fprintf(&b, "Table: %s\n", name)
	fmt.Fprintf(&b, "Description: %s\n", description)
	b.WriteString("Columns:\n")

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	for _, col := range info.Schema.Columns {
		var attrs []string
		if col.PrimaryKey {
			attrs = append(attrs, "PRIMARY KEY")
		}
		if !col.Nullable {
			attrs = append(attrs, "NOT NULL")
		}
		if col.Default != nil {
			attrs = append(attrs, "DEFAULT "+*col.Default)
		}

		fmt.Fprintf(w, "  %s\t%s\t%s\n", col.Name, col.Type, strings.Join(attrs, " "))
	}

	_ = w.Flush()
	b.WriteString(buf.String())

	if len(info.Schema.ForeignKeys) > 0 {
		b.WriteString("Relationships:\n")

		for _, fk := range info.Schema.ForeignKeys {
			fmt.Fprintf(&b, "  %s -> %s(%s)\n",
				strings.Join(fk.ConstrainedColumns, ", "),
				fk.ReferredTable,
				strings.Join(fk.ReferredColumns, ", "),
			)
		}
	}

	if len(info.Schema.Indexes) > 0 {
		b.WriteString("Indexes:\n")

		for _, idx := range info.Schema.Indexes {
			unique := ""
			if idx.Unique {
				unique = " UNIQUE"
			}

			fmt.Fprintf(&b, "  %s (%s)%s\n", idx.Name, strings.Join(idx.Columns, ", "), unique)
		}
	}

	return b.String()
}

// DigestSummary describes the outcome of a digest run
type DigestSummary struct {
	TablesProcessed int
	IgnoredPatterns []string
	FromCache       bool
	CachePath       string
	IndexPath       string
	Duration        time.Duration
}

// FormatDigestSummary renders a digest summary
func (f *Formatter) FormatDigestSummary(s DigestSummary) string {
	source := "introspected and described"
	if s.FromCache {
		source = "loaded from cache"
	}

	patterns := "-"
	if len(s.IgnoredPatterns) > 0 {
		sorted := slices.Clone(s.IgnoredPatterns)
		slices.Sort(sorted)
		patterns = strings.Join(sorted, ", ")
	}

	lines := []string{
		"Schema digest complete",
		fmt.Sprintf("Tables indexed: %d (%s)", s.TablesProcessed, source),
		"Ignored patterns: " + patterns,
		"Enriched schema: " + s.CachePath,
		"Embedding index: " + s.IndexPath,
	}

	if s.Duration > 0 {
		lines = append(lines, "Took: "+s.Duration.Round(time.Millisecond).String())
	}

	return strings.Join(lines, "\n")
}

// FormatLastDigest renders when the index was last built
func (f *Formatter) FormatLastDigest(completedAt time.Time, tables int) string {
	return fmt.Sprintf("Last digest: %s, %s", f.humanizeAge(completedAt), pluralize(tables, "table"))
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")

	runes := []rune(s)
	if len(runes) <= width {
		return s
	}

	return string(runes[:width-3]) + "..."
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}

	return fmt.Sprintf("%d %ss", n, noun)
}

// humanizeAge converts a time to a human-readable age string
func (f *Formatter) humanizeAge(t time.Time) string {
	if t.IsZero() {
		return "?"
	}

	duration := f.now().Sub(t)
	days := int(duration.Hours() / 24)

	switch {
	case duration < time.Hour:
		return "just now"
	case days < 1:
		return pluralize(int(duration.Hours()), "hour") + " ago"
	case days == 1:
		return "1 day ago"
	case days < 30:
		return fmt.Sprintf("%d days ago", days)
	case days < 365:
		months := days / 30
		if months == 1 {
			return "1 month ago"
		}

		return fmt.Sprintf("%d months ago", months)
	}

	years := days / 365
	if years == 1 {
		return "1 year ago"
	}

	return fmt.Sprintf("%d years ago", years)
}
