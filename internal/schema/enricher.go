package schema

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/Kurukshetran/nl2sql/internal/cache"
	"github.com/Kurukshetran/nl2sql/internal/errors"
	"github.com/Kurukshetran/nl2sql/internal/llm"
	"github.com/Kurukshetran/nl2sql/internal/logging"
	"github.com/Kurukshetran/nl2sql/internal/types"
)

const enrichmentSystemPrompt = `You are a database expert. Analyze the provided table schema and generate a detailed description including:
1. The purpose of the table
2. Explanation of key columns
3. Relationships with other tables
4. Common business use cases
Be concise but comprehensive.`

// TableInspector reads structure from the target database
type TableInspector interface {
	TableNames(ctx context.Context) ([]string, error)
	TableSchema(ctx context.Context, table string) (types.TableSchema, error)
}

// Enricher extracts the database schema and describes each table with a
// language model
type Enricher struct {
	inspector   TableInspector
	service     llm.Service
	cache       cache.Cache
	ignore      IgnorePatterns
	databaseURL string
	logger      *slog.Logger
	now         func() time.Time
}

// NewEnricher creates an Enricher. databaseURL is recorded in the cached
// metadata and should already be redacted.
func NewEnricher(
	inspector TableInspector,
	service llm.Service,
	store cache.Cache,
	ignore IgnorePatterns,
	databaseURL string,
	logger *slog.Logger,
) *Enricher {
	return &Enricher{
		inspector:   inspector,
		service:     service,
		cache:       store,
		ignore:      ignore,
		databaseURL: databaseURL,
		logger:      logging.OrDefault(logger),
		now:         time.Now,
	}
}

// ShouldProcessTable reports whether table escapes every ignore pattern
func (e *Enricher) ShouldProcessTable(table string) bool {
	if pattern, ok := e.ignore.Match(table); ok {
		e.logger.Info("Skipping table",
			slog.String("table", table),
			slog.String("pattern", pattern),
		)

		return false
	}

	return true
}

// ExtractSchema inspects every table not excluded by the ignore patterns
func (e *Enricher) ExtractSchema(ctx context.Context) (map[string]types.TableSchema, error) {
	names, err := e.inspector.TableNames(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to list tables")
	}

	schemas := make(map[string]types.TableSchema, len(names))

	for _, name := range names {
		if !e.ShouldProcessTable(name) {
			continue
		}

		tableSchema, err := e.inspector.TableSchema(ctx, name)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to inspect table %s", name)
		}

		schemas[name] = tableSchema
	}

	return schemas, nil
}

// TableContext renders the schema of one table for the enrichment prompt
func TableContext(table string, schema types.TableSchema) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Table: %s\n", table)
	b.WriteString("Columns:\n")

	for _, col := range schema.Columns {
		var attrs []string
		if !col.Nullable {
			attrs = append(attrs, "NOT NULL")
		}
		if col.PrimaryKey {
			attrs = append(attrs, "PRIMARY KEY")
		}
		if col.Default != nil {
			attrs = append(attrs, "DEFAULT "+*col.Default)
		}

		line := fmt.Sprintf("- %s (%s)", col.Name, col.Type)
		if len(attrs) > 0 {
			line += " " + strings.Join(attrs, " ")
		}

		b.WriteString(line + "\n")
	}

	if len(schema.ForeignKeys) > 0 {
		b.WriteString("\nRelationships:\n")

		for _, fk := range schema.ForeignKeys {
			fmt.Fprintf(&b, "- References %s (%s)\n", fk.ReferredTable, strings.Join(fk.ReferredColumns, ", "))
		}
	}

	return b.String()
}

// DescribeTable asks the language model for a description of one table
func (e *Enricher) DescribeTable(ctx context.Context, table string, schema types.TableSchema) (string, error) {
	reply, err := e.service.Complete(ctx, enrichmentSystemPrompt, TableContext(table, schema))
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrTypeLLM, "failed to describe table %s", table)
	}

	return strings.TrimSpace(reply), nil
}

// ProcessSchema extracts and describes the schema, then replaces the cached copy
func (e *Enricher) ProcessSchema(ctx context.Context) (*types.EnrichedSchema, error) {
	e.logger.InfoContext(ctx, "Starting schema enrichment")

	schemas, err := e.ExtractSchema(ctx)
	if err != nil {
		return nil, err
	}

	enriched := &types.EnrichedSchema{
		Metadata: types.SchemaMetadata{
			GeneratedAt:     e.now().UTC(),
			Database:        e.databaseURL,
			IgnoredPatterns: append([]string{}, e.ignore...),
		},
		Tables: make(map[string]types.TableInfo, len(schemas)),
	}

	for _, name := range slices.Sorted(maps.Keys(schemas)) {
		e.logger.InfoContext(ctx, "Enriching table", slog.String("table", name))

		description, err := e.DescribeTable(ctx, name, schemas[name])
		if err != nil {
			return nil, err
		}

		enriched.Tables[name] = types.TableInfo{
			Schema:      schemas[name],
			Description: description,
		}
	}

	if err := cache.SaveEnrichedSchema(ctx, e.cache, enriched); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to cache enriched schema")
	}

	e.logger.InfoContext(ctx, "Schema enrichment completed", slog.Int("tables", len(enriched.Tables)))

	return enriched, nil
}

// LoadOrProcess returns the cached enriched schema unless refresh is set or
// no cache exists. The boolean reports whether the cache was used.
func (e *Enricher) LoadOrProcess(ctx context.Context, refresh bool) (*types.EnrichedSchema, bool, error) {
	if !refresh {
		enriched, err := LoadEnriched(ctx, e.cache)
		if err == nil {
			e.logger.InfoContext(ctx, "Using cached enriched schema", slog.Int("tables", len(enriched.Tables)))
			return enriched, true, nil
		}

		if !errors.IsType(err, errors.ErrTypeNotFound) {
			return nil, false, err
		}
	}

	enriched, err := e.ProcessSchema(ctx)

	return enriched, false, err
}

// LoadEnriched reads the enriched schema written by the last digest
func LoadEnriched(ctx context.Context, store cache.Cache) (*types.EnrichedSchema, error) {
	enriched, err := cache.LoadEnrichedSchema(ctx, store)
	if err != nil {
		if stderrors.Is(err, cache.ErrNotFound) {
			return nil, errors.New(errors.ErrTypeNotFound, "no enriched schema found").
				WithSuggestion("Run 'nl2sql digest' to inspect the database first")
		}

		return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to load enriched schema")
	}

	return enriched, nil
}
