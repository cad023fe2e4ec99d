package storage

import (
	"context"
	"time"

	"github.com/Kurukshetran/nl2sql/internal/types"
)

// VectorStore defines the operations on the table embedding index
type VectorStore interface {
	Initialize(ctx context.Context) error
	ReplaceTables(ctx context.Context, docs []TableDocument) error
	SearchByEmbedding(ctx context.Context, queryEmbedding []float32, limit int) ([]types.TableCandidate, error)
	ListTables(ctx context.Context) ([]TableDocument, error)
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

// TableDocument is one indexed table
type TableDocument struct {
	ID          string            `json:"id"`
	TableName   string            `json:"table_name"`
	Description string            `json:"description"`
	Document    string            `json:"document"`
	Schema      types.TableSchema `json:"schema"`
	Embedding   []float32         `json:"embedding,omitempty"`
	IndexedAt   time.Time         `json:"indexed_at"`
}

// EnrichedFromDocuments rebuilds an enriched schema from indexed tables.
// Metadata is left empty except for the newest index time.
func EnrichedFromDocuments(docs []TableDocument) *types.EnrichedSchema {
	enriched := &types.EnrichedSchema{Tables: make(map[string]types.TableInfo, len(docs))}

	for _, doc := range docs {
		enriched.Tables[doc.TableName] = types.TableInfo{
			Schema:      doc.Schema,
			Description: doc.Description,
		}

		if doc.IndexedAt.After(enriched.Metadata.GeneratedAt) {
			enriched.Metadata.GeneratedAt = doc.IndexedAt
		}
	}

	return enriched
}

// Stats represents index statistics
type Stats struct {
	TotalTables   int       `json:"total_tables"`
	LastIndexedAt time.Time `json:"last_indexed_at"`
	Dimensions    int       `json:"dimensions"`
	IndexSizeMB   float64   `json:"index_size_mb"`
}

// DigestRun records one schema digest
type DigestRun struct {
	ID              string    `json:"id"`
	DatabaseURL     string    `json:"database_url"`
	TableCount      int       `json:"table_count"`
	IgnoredPatterns []string  `json:"ignored_patterns"`
	StartedAt       time.Time `json:"started_at"`
}
