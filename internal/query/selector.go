package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Kurukshetran/nl2sql/internal/llm"
	"github.com/Kurukshetran/nl2sql/internal/logging"
	"github.com/Kurukshetran/nl2sql/internal/types"
)

const selectorSystemPrompt = `You are a database expert. Analyze the provided tables and their relevance scores.
Return only the table names that are truly relevant, ordered by importance.
Format: table1,table2,table3
Note: Preserve the exact case of table names.`

// Selector asks the completion service which candidate tables matter for a
// question
type Selector struct {
	service llm.Service
	logger  *slog.Logger
}

// NewSelector creates a Selector
func NewSelector(service llm.Service, logger *slog.Logger) *Selector {
	return &Selector{service: service, logger: logging.OrDefault(logger)}
}

func selectorContext(candidates []types.TableCandidate, question string) string {
	var b strings.Builder

	b.WriteString("Given the following tables and their relevance scores, analyze which ones are most appropriate for the query:\n\n")

	for _, c := range candidates {
		fmt.Fprintf(&b, "Table: %s\n", QuoteIdentifier(c.TableName))
		fmt.Fprintf(&b, "Relevance Score: %g\n", c.SimilarityScore)
		fmt.Fprintf(&b, "Description: %s\n\n", c.Description)
	}

	fmt.Fprintf(&b, "Question: %s\n", question)

	return b.String()
}

// SelectRelevant returns the candidates named in the model's reply, in
// their original order. Names must match exactly, case included.
func (s *Selector) SelectRelevant(
	ctx context.Context,
	candidates []types.TableCandidate,
	question string,
) ([]types.TableCandidate, error) {
	reply, err := complete(ctx, s.service, StageSelect, selectorSystemPrompt, selectorContext(candidates, question))
	if err != nil {
		return nil, err
	}

	result := ParseTableList(reply)
	if !result.OK() {
		s.logger.WarnContext(ctx, "Relevance reply had no table names", slog.String("reply", reply))
		return []types.TableCandidate{}, nil
	}

	keep := make(map[string]bool, len(result.Value))
	for _, name := range result.Value {
		keep[name] = true
	}

	selected := []types.TableCandidate{}
	for _, c := range candidates {
		if keep[c.TableName] {
			selected = append(selected, c)
		}
	}

	s.logger.DebugContext(ctx, "Selected relevant tables",
		slog.Int("candidates", len(candidates)),
		slog.Int("selected", len(selected)),
		slog.Any("tables", result.Value),
	)

	return selected, nil
}
