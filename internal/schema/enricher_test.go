package schema

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kurukshetran/nl2sql/internal/cache"
	"github.com/Kurukshetran/nl2sql/internal/errors"
	"github.com/Kurukshetran/nl2sql/internal/logging"
	"github.com/Kurukshetran/nl2sql/internal/testutil"
	"github.com/Kurukshetran/nl2sql/internal/types"
)

func shopTables() map[string]types.TableSchema {
	tables := map[string]types.TableSchema{}
	for _, c := range testutil.ShopCandidates() {
		tables[c.TableName] = c.Schema
	}

	def := "now()"
	tables["Orders"].Columns[3].Default = &def

	tables["temp_import"] = types.TableSchema{
		Columns: []types.Column{testutil.NullableColumn("payload", "jsonb")},
	}

	return tables
}

func newTestEnricher(t *testing.T, service *testutil.MockCompletionService) (*Enricher, *cache.FileCache) {
	t.Helper()

	store, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)

	enricher := NewEnricher(
		testutil.NewMockInspector(shopTables()),
		service,
		store,
		IgnorePatterns{"temp_*"},
		testutil.TestDatabaseURL,
		logging.Discard(),
	)
	enricher.now = func() time.Time {
		return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	}

	return enricher, store
}

func TestTableContext(t *testing.T) {
	def := "0"
	schema := types.TableSchema{
		Columns: []types.Column{
			{Name: "id", Type: "integer", PrimaryKey: true},
			{Name: "customer_id", Type: "integer"},
			{Name: "total", Type: "numeric", Nullable: true, Default: &def},
			{Name: "note", Type: "text", Nullable: true},
		},
		ForeignKeys: []types.ForeignKey{
			{ConstrainedColumns: []string{"customer_id"}, ReferredTable: "Customers", ReferredColumns: []string{"id"}},
		},
	}

	expected := `Table: Orders
Columns:
- id (integer) NOT NULL PRIMARY KEY
- customer_id (integer) NOT NULL
- total (numeric) DEFAULT 0
- note (text)

Relationships:
- References Customers (id)
`

	assert.Equal(t, expected, TableContext("Orders", schema))
}

func TestProcessSchema(t *testing.T) {
	service := testutil.NewMockCompletionService(
		testutil.WithRule("Table: Customers", "  People who buy things.  "),
		testutil.WithRule("Table: Orders", "Purchases."),
		testutil.WithRule("Table: Products", "Things for sale."),
	)
	enricher, store := newTestEnricher(t, service)

	enriched, err := enricher.ProcessSchema(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Customers", "Orders", "Products"}, enriched.TableNames())
	assert.Equal(t, "People who buy things.", enriched.Tables["Customers"].Description)
	assert.Equal(t, []string{"temp_*"}, enriched.Metadata.IgnoredPatterns)
	assert.Equal(t, testutil.TestDatabaseURL, enriched.Metadata.Database)
	assert.Equal(t, 3, service.CallCount())

	calls := service.Calls()
	assert.Contains(t, calls[1].UserPrompt, "DEFAULT now()")
	assert.Contains(t, calls[1].UserPrompt, "- References Customers (id)")
	assert.True(t, strings.HasPrefix(calls[0].SystemPrompt, "You are a database expert."))

	cached, err := LoadEnriched(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, enriched.TableNames(), cached.TableNames())
	assert.True(t, cached.Metadata.GeneratedAt.Equal(enriched.Metadata.GeneratedAt))
}

func TestProcessSchemaLLMFailure(t *testing.T) {
	service := testutil.NewMockCompletionService(
		testutil.WithRule("Table: Customers", "ok"),
		testutil.WithRuleError("Table: Orders", fmt.Errorf("rate limited")),
	)
	enricher, store := newTestEnricher(t, service)

	_, err := enricher.ProcessSchema(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeLLM))

	_, err = LoadEnriched(context.Background(), store)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
}

func TestExtractSchemaInspectorFailure(t *testing.T) {
	inspector := testutil.NewMockInspector(shopTables())
	inspector.SetError("tables", fmt.Errorf("connection refused"))

	store, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)

	enricher := NewEnricher(inspector, testutil.NewMockCompletionService(), store, nil, "", logging.Discard())

	_, err = enricher.ExtractSchema(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeDatabase))
}

func TestExtractSchemaSkipsIgnored(t *testing.T) {
	enricher, _ := newTestEnricher(t, testutil.NewMockCompletionService())

	schemas, err := enricher.ExtractSchema(context.Background())
	require.NoError(t, err)

	assert.Len(t, schemas, 3)
	assert.NotContains(t, schemas, "temp_import")
	assert.True(t, enricher.ShouldProcessTable("Customers"))
	assert.False(t, enricher.ShouldProcessTable("TEMP_other"))
}

func TestLoadOrProcess(t *testing.T) {
	service := testutil.NewMockCompletionService(testutil.WithRule("Table:", "described"))
	enricher, _ := newTestEnricher(t, service)
	ctx := context.Background()

	first, fromCache, err := enricher.LoadOrProcess(ctx, false)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Len(t, first.Tables, 3)
	assert.Equal(t, 3, service.CallCount())

	_, fromCache, err = enricher.LoadOrProcess(ctx, false)
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, 3, service.CallCount())

	_, fromCache, err = enricher.LoadOrProcess(ctx, true)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 6, service.CallCount())
}

func TestLoadEnrichedMissing(t *testing.T) {
	store, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)

	_, err = LoadEnriched(context.Background(), store)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	assert.NotEmpty(t, errors.SuggestionsFor(err))
}
