package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Kurukshetran/nl2sql/internal/errors"
	"github.com/Kurukshetran/nl2sql/internal/llm"
	"github.com/Kurukshetran/nl2sql/internal/logging"
	"github.com/Kurukshetran/nl2sql/internal/types"
)

const generatorSystemPrompt = `You are a SQL expert. Using the following schema, generate a SQL query for the user's request.
The query should be efficient and use proper joins when necessary.

%s

Important notes:
1. Some table names are case-sensitive. Use the exact table names as shown above.
2. Generate ONLY the SQL query without any markdown formatting or explanation.
3. Do not include ` + "```sql or ```" + ` markers.
4. For PostgreSQL, use NOW() - INTERVAL '1 month' for date arithmetic.
5. Do not include trailing commas in column lists.
6. Use table aliases for better readability (e.g., emp for employee).
7. Ensure proper SQL syntax, especially in SELECT clause.
8. Use LEFT JOINs when joining optional tables to preserve main records.`

// Generator produces SQL for one chunk of tables
type Generator struct {
	service llm.Service
	logger  *slog.Logger
}

// NewGenerator creates a Generator
func NewGenerator(service llm.Service, logger *slog.Logger) *Generator {
	return &Generator{service: service, logger: logging.OrDefault(logger)}
}

// SchemaBlock describes the chunk's tables for the generation prompt
func SchemaBlock(tables []types.TableCandidate) string {
	var b strings.Builder

	for _, t := range tables {
		fmt.Fprintf(&b, "\nTable: %s\n", QuoteIdentifier(t.TableName))
		fmt.Fprintf(&b, "Description: %s\n", t.Description)
		b.WriteString("Columns:\n")

		for _, col := range t.Schema.Columns {
			line := fmt.Sprintf("- %s (%s)", col.Name, col.Type)
			if !col.Nullable {
				line += " NOT NULL"
			}
			if col.PrimaryKey {
				line += " PRIMARY KEY"
			}
			b.WriteString(line + "\n")
		}

		if len(t.Schema.ForeignKeys) > 0 {
			b.WriteString("\nForeign Keys:\n")

			for _, fk := range t.Schema.ForeignKeys {
				fmt.Fprintf(&b, "- %s -> %s(%s)\n",
					strings.Join(fk.ConstrainedColumns, ", "),
					QuoteIdentifier(fk.ReferredTable),
					strings.Join(fk.ReferredColumns, ", "),
				)
			}
		}
	}

	return b.String()
}

// Generate returns normalized SQL answering question from the chunk's tables.
// A reply with no SQL is ErrTypeGeneration; transport failures pass through.
func (g *Generator) Generate(ctx context.Context, chunk Chunk, question string) (string, error) {
	systemPrompt := fmt.Sprintf(generatorSystemPrompt, SchemaBlock(chunk.Tables))

	reply, err := complete(ctx, g.service, StageGenerate, systemPrompt, question)
	if err != nil {
		return "", err
	}

	cleaned := CleanSQL(reply)
	if !cleaned.OK() {
		return "", errors.Wrapf(cleaned.Err, errors.ErrTypeGeneration, "chunk %d produced no SQL", chunk.Index)
	}

	sql := NormalizeQuery(cleaned.Value, chunk.TableNames())

	g.logger.DebugContext(ctx, "Generated SQL",
		slog.Int("chunk", chunk.Index),
		slog.String("sql", sql),
	)

	return sql, nil
}
