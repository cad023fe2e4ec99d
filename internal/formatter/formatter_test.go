package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kurukshetran/nl2sql/internal/database"
	"github.com/Kurukshetran/nl2sql/internal/errors"
	"github.com/Kurukshetran/nl2sql/internal/testutil"
	"github.com/Kurukshetran/nl2sql/internal/types"
)

func fixedFormatter(now time.Time) *Formatter {
	return &Formatter{now: func() time.Time { return now }}
}

func TestFormatter_FormatResultTable(t *testing.T) {
	formatter := NewFormatter()

	result := &database.Result{
		Columns: []string{"id", "name"},
		Rows: [][]any{
			{int64(1), "Ada"},
			{int64(2), nil},
		},
	}

	out, err := formatter.FormatResult(result, FormatTable)
	require.NoError(t, err)

	expected := "id   name\n" +
		"---  ----\n" +
		"1    Ada\n" +
		"2    NULL\n" +
		"\n(2 rows)"
	assert.Equal(t, expected, out)
}

func TestFormatter_FormatResultTableFooter(t *testing.T) {
	formatter := NewFormatter()

	result := &database.Result{
		Columns:   []string{"total"},
		Rows:      [][]any{{12.5}},
		Duration:  1500 * time.Microsecond,
		Truncated: true,
	}

	out, err := formatter.FormatResult(result, FormatTable)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "(1 row, truncated, 2ms)"), out)
	assert.Contains(t, out, "12.5")
}

func TestFormatter_FormatResultEmpty(t *testing.T) {
	out, err := NewFormatter().FormatResult(&database.Result{}, FormatTable)
	require.NoError(t, err)
	assert.Equal(t, "Query returned no columns", out)

	out, err = NewFormatter().FormatResult(&database.Result{Columns: []string{"id"}, Rows: [][]any{}}, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestFormatter_FormatResultJSON(t *testing.T) {
	result := &database.Result{
		Columns: []string{"id", "name"},
		Rows:    [][]any{{1, "Ada"}},
	}

	out, err := NewFormatter().FormatResult(result, FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id": 1, "name": "Ada"}]`, out)
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, "NULL"},
		{"string", "hello", "hello"},
		{"bytes", []byte("raw"), "raw"},
		{"time", ts, "2024-03-01T12:00:00Z"},
		{"float", 3.25, "3.25"},
		{"bool", true, "true"},
		{"int", int64(42), "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.value))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate("a\nb", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "héllo", truncate("héllo", 5))
}

func TestFormatter_FormatSQL(t *testing.T) {
	assert.Equal(t, "Generated SQL:\nSELECT 1", NewFormatter().FormatSQL("  SELECT 1\n"))
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, format)

	_, err = ParseFormat("yaml")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestFormatter_FormatSchema(t *testing.T) {
	now := time.Date(2024, 9, 14, 12, 0, 0, 0, time.UTC)
	formatter := fixedFormatter(now)

	enriched := testutil.EnrichedFromCandidates(testutil.ShopCandidates())
	enriched.Metadata.GeneratedAt = now.Add(-3 * 24 * time.Hour)

	out, err := formatter.FormatSchema(enriched, "")
	require.NoError(t, err)

	assert.Contains(t, out, "Database: "+testutil.TestDatabaseURL)
	assert.Contains(t, out, "Generated: 3 days ago")
	assert.Contains(t, out, "Tables: 3")
	assert.Contains(t, out, "Table: Orders\nDescription: Orders placed by customers, with totals\nColumns:\n")
	assert.Contains(t, out, "Relationships:\n  customer_id -> Customers(id)\n")

	// tables listed by name
	assert.Less(t, strings.Index(out, "Table: Customers"), strings.Index(out, "Table: Orders"))
	assert.Less(t, strings.Index(out, "Table: Orders"), strings.Index(out, "Table: Products"))
}

func TestFormatter_FormatSchemaSingleTable(t *testing.T) {
	def := "now()"
	candidate := testutil.NewTestCandidate("Events",
		testutil.WithDescription(""),
		testutil.WithColumns(
			testutil.PrimaryKeyColumn("id", "integer"),
			types.Column{Name: "created_at", Type: "timestamp", Nullable: false, Default: &def},
		),
	)
	candidate.Schema.Indexes = []types.Index{{Name: "events_created_idx", Columns: []string{"created_at"}, Unique: true}}
	enriched := testutil.EnrichedFromCandidates([]types.TableCandidate{candidate})

	out, err := NewFormatter().FormatSchema(enriched, "Events")
	require.NoError(t, err)

	assert.Contains(t, out, "Description: -\n")
	assert.Contains(t, out, "PRIMARY KEY NOT NULL")
	assert.Contains(t, out, "NOT NULL DEFAULT now()")
	assert.Contains(t, out, "Indexes:\n  events_created_idx (created_at) UNIQUE\n")
	assert.NotContains(t, out, "Relationships:")

	_, err = NewFormatter().FormatSchema(enriched, "events")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
}

func TestFormatter_FormatDigestSummary(t *testing.T) {
	out := NewFormatter().FormatDigestSummary(DigestSummary{
		TablesProcessed: 4,
		IgnoredPatterns: []string{"tmp_*", "audit_*"},
		CachePath:       ".cache/enriched_schema.json",
		IndexPath:       ".cache/schema_index.duckdb",
		Duration:        2 * time.Second,
	})

	assert.Equal(t, "Schema digest complete\n"+
		"Tables indexed: 4 (introspected and described)\n"+
		"Ignored patterns: audit_*, tmp_*\n"+
		"Enriched schema: .cache/enriched_schema.json\n"+
		"Embedding index: .cache/schema_index.duckdb\n"+
		"Took: 2s", out)

	cached := NewFormatter().FormatDigestSummary(DigestSummary{TablesProcessed: 1, FromCache: true})
	assert.Contains(t, cached, "Tables indexed: 1 (loaded from cache)")
	assert.Contains(t, cached, "Ignored patterns: -")
}

func TestFormatter_HumanizeAge(t *testing.T) {
	now := time.Date(2024, 9, 14, 12, 0, 0, 0, time.UTC)
	formatter := fixedFormatter(now)

	tests := []struct {
		name string
		time time.Time
		want string
	}{
		{"zero", time.Time{}, "?"},
		{"minutes", now.Add(-10 * time.Minute), "just now"},
		{"one hour", now.Add(-90 * time.Minute), "1 hour ago"},
		{"hours", now.Add(-5 * time.Hour), "5 hours ago"},
		{"one day", now.Add(-30 * time.Hour), "1 day ago"},
		{"days", now.Add(-10 * 24 * time.Hour), "10 days ago"},
		{"one month", now.Add(-40 * 24 * time.Hour), "1 month ago"},
		{"months", now.Add(-100 * 24 * time.Hour), "3 months ago"},
		{"one year", now.Add(-400 * 24 * time.Hour), "1 year ago"},
		{"years", now.Add(-800 * 24 * time.Hour), "2 years ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatter.humanizeAge(tt.time))
		})
	}
}

func TestFormatter_FormatLastDigest(t *testing.T) {
	now := time.Date(2024, 9, 14, 12, 0, 0, 0, time.UTC)

	out := fixedFormatter(now).FormatLastDigest(now.Add(-2*24*time.Hour), 1)
	assert.Equal(t, "Last digest: 2 days ago, 1 table", out)
}
