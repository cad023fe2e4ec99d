package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Kurukshetran/nl2sql/internal/errors"
	"github.com/Kurukshetran/nl2sql/internal/logging"
	"github.com/Kurukshetran/nl2sql/internal/storage"
	"github.com/Kurukshetran/nl2sql/internal/types"
)

// DefaultTopK is the number of tables returned by a similarity search
const DefaultTopK = 3

// Index is the part of the vector store the manager needs
type Index interface {
	ReplaceTables(ctx context.Context, docs []storage.TableDocument) error
	SearchByEmbedding(ctx context.Context, queryEmbedding []float32, limit int) ([]types.TableCandidate, error)
}

// Manager embeds table descriptions and questions and queries the index
type Manager struct {
	provider Provider
	index    Index
	logger   *slog.Logger
}

// NewManager creates a Manager over the given provider and index
func NewManager(provider Provider, index Index, logger *slog.Logger) *Manager {
	return &Manager{
		provider: provider,
		index:    index,
		logger:   logging.OrDefault(logger),
	}
}

// DocumentText is the text embedded for one table
func DocumentText(tableName, description string) string {
	return fmt.Sprintf("Table: %s\n%s", tableName, description)
}

// IsEnabled returns whether the manager's provider is enabled
func (m *Manager) IsEnabled() bool {
	return m.provider != nil && m.provider.IsEnabled()
}

// IndexSchema embeds every enriched table and replaces the index contents
func (m *Manager) IndexSchema(ctx context.Context, enriched *types.EnrichedSchema) (int, error) {
	if !m.IsEnabled() {
		return 0, errors.New(errors.ErrTypeConfig, "embedding provider is disabled").
			WithSuggestion("Set OPENAI_API_KEY to enable table embeddings")
	}

	now := time.Now().UTC()
	names := enriched.TableNames()
	docs := make([]storage.TableDocument, 0, len(names))

	for _, name := range names {
		info := enriched.Tables[name]
		text := DocumentText(name, info.Description)

		vector, err := m.provider.GenerateEmbedding(ctx, text)
		if err != nil {
			return 0, errors.Wrapf(err, errors.ErrTypeLLM, "failed to embed table %s", name)
		}

		docs = append(docs, storage.TableDocument{
			ID:          uuid.New().String(),
			TableName:   name,
			Description: info.Description,
			Document:    text,
			Schema:      info.Schema,
			Embedding:   vector,
			IndexedAt:   now,
		})

		m.logger.DebugContext(ctx, "Embedded table",
			slog.String("table", name),
			slog.Int("dimensions", len(vector)),
		)
	}

	if err := m.index.ReplaceTables(ctx, docs); err != nil {
		return 0, errors.Wrap(err, errors.ErrTypeDatabase, "failed to store table embeddings")
	}

	m.logger.InfoContext(ctx, "Indexed schema", slog.Int("tables", len(docs)))

	return len(docs), nil
}

// FindRelevantTables returns up to topK tables most similar to question,
// highest similarity first
func (m *Manager) FindRelevantTables(
	ctx context.Context,
	question string,
	topK int,
) ([]types.TableCandidate, error) {
	if !m.IsEnabled() {
		return nil, errors.New(errors.ErrTypeConfig, "embedding provider is disabled").
			WithSuggestion("Set OPENAI_API_KEY to enable table embeddings")
	}

	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := m.provider.GenerateEmbedding(ctx, question)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeLLM, "failed to embed question")
	}

	candidates, err := m.index.SearchByEmbedding(ctx, vector, topK)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "similarity search failed")
	}

	m.logger.DebugContext(ctx, "Similarity search finished",
		slog.Int("top_k", topK),
		slog.Int("candidates", len(candidates)),
	)

	return candidates, nil
}
