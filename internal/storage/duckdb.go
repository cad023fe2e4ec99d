package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	"github.com/Kurukshetran/nl2sql/internal/types"
)

// DuckDBStore implements the VectorStore interface using DuckDB
type DuckDBStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewDuckDBStore opens (or creates) the index database at dbPath
func NewDuckDBStore(dbPath string) (*DuckDBStore, error) {
	if dbPath != "" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	// DuckDB allows a single writer per file.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping index database: %w", err)
	}

	return &DuckDBStore{
		db:     db,
		path:   dbPath,
		logger: slog.Default(),
	}, nil
}

// WithLogger sets the logger used for migration messages
func (s *DuckDBStore) WithLogger(logger *slog.Logger) *DuckDBStore {
	if logger != nil {
		s.logger = logger
	}

	return s
}

// Initialize creates the index schema using migrations
func (s *DuckDBStore) Initialize(ctx context.Context) error {
	return NewMigrationManager(s.db).WithLogger(s.logger).MigrateUp(ctx)
}

// ReplaceTables drops every indexed table and stores docs in its place
func (s *DuckDBStore) ReplaceTables(ctx context.Context, docs []TableDocument) error {
	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		if seen[doc.TableName] {
			return fmt.Errorf("duplicate table in index: %s", doc.TableName)
		}

		seen[doc.TableName] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM table_embeddings"); err != nil {
		return fmt.Errorf("failed to clear table embeddings: %w", err)
	}

	insertSQL := `
	INSERT INTO table_embeddings (
		id, table_name, description, document, schema_json, embedding, dimensions, indexed_at
	) VALUES (?, ?, ?, ?, ?, CAST(? AS FLOAT[]), ?, ?)`

	now := time.Now().UTC()

	for _, doc := range docs {
		id := doc.ID
		if id == "" {
			id = uuid.New().String()
		}

		schemaJSON, err := json.Marshal(doc.Schema)
		if err != nil {
			return fmt.Errorf("failed to marshal schema for %s: %w", doc.TableName, err)
		}

		indexedAt := doc.IndexedAt
		if indexedAt.IsZero() {
			indexedAt = now
		}

		_, err = tx.ExecContext(ctx, insertSQL,
			id,
			doc.TableName,
			doc.Description,
			doc.Document,
			string(schemaJSON),
			vectorLiteral(doc.Embedding),
			len(doc.Embedding),
			indexedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert table %s: %w", doc.TableName, err)
		}
	}

	return tx.Commit()
}

// SearchByEmbedding returns up to limit tables ordered by cosine similarity
func (s *DuckDBStore) SearchByEmbedding(
	ctx context.Context,
	queryEmbedding []float32,
	limit int,
) ([]types.TableCandidate, error) {
	if len(queryEmbedding) == 0 {
		return nil, fmt.Errorf("query embedding is empty")
	}

	if limit <= 0 {
		limit = 3
	}

	query := `
	SELECT table_name, description, schema_json,
		list_cosine_similarity(embedding, CAST(? AS FLOAT[])) AS score
	FROM table_embeddings
	WHERE dimensions = ?
	ORDER BY score DESC, table_name ASC
	LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, vectorLiteral(queryEmbedding), len(queryEmbedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search table embeddings: %w", err)
	}
	defer rows.Close()

	var candidates []types.TableCandidate

	for rows.Next() {
		var (
			candidate   types.TableCandidate
			description sql.NullString
			schemaJSON  sql.NullString
			score       sql.NullFloat64
		)

		if err := rows.Scan(&candidate.TableName, &description, &schemaJSON, &score); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}

		candidate.Description = description.String
		candidate.SimilarityScore = score.Float64

		if schemaJSON.Valid && schemaJSON.String != "" {
			if err := json.Unmarshal([]byte(schemaJSON.String), &candidate.Schema); err != nil {
				return nil, fmt.Errorf("failed to decode schema for %s: %w", candidate.TableName, err)
			}
		}

		candidates = append(candidates, candidate)
	}

	return candidates, rows.Err()
}

// ListTables returns every indexed table without its embedding
func (s *DuckDBStore) ListTables(ctx context.Context) ([]TableDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, table_name, description, document, schema_json, indexed_at
	FROM table_embeddings
	ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list table embeddings: %w", err)
	}
	defer rows.Close()

	var docs []TableDocument

	for rows.Next() {
		var (
			doc         TableDocument
			description sql.NullString
			document    sql.NullString
			schemaJSON  sql.NullString
		)

		if err := rows.Scan(&doc.ID, &doc.TableName, &description, &document, &schemaJSON, &doc.IndexedAt); err != nil {
			return nil, fmt.Errorf("failed to scan table embedding: %w", err)
		}

		doc.Description = description.String
		doc.Document = document.String

		if schemaJSON.Valid && schemaJSON.String != "" {
			if err := json.Unmarshal([]byte(schemaJSON.String), &doc.Schema); err != nil {
				return nil, fmt.Errorf("failed to decode schema for %s: %w", doc.TableName, err)
			}
		}

		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// GetStats returns index statistics
func (s *DuckDBStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	var (
		lastIndexed sql.NullTime
		dimensions  sql.NullInt64
	)

	err := s.db.QueryRowContext(ctx, `
	SELECT COUNT(*), MAX(indexed_at), MAX(dimensions) FROM table_embeddings`,
	).Scan(&stats.TotalTables, &lastIndexed, &dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to get index stats: %w", err)
	}

	if lastIndexed.Valid {
		stats.LastIndexedAt = lastIndexed.Time
	}

	stats.Dimensions = int(dimensions.Int64)

	if s.path != "" {
		if info, err := os.Stat(s.path); err == nil {
			stats.IndexSizeMB = float64(info.Size()) / (1024 * 1024)
		}
	}

	return stats, nil
}

// RecordDigestRun stores a summary of one digest run
func (s *DuckDBStore) RecordDigestRun(ctx context.Context, run DigestRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	patterns, err := json.Marshal(run.IgnoredPatterns)
	if err != nil {
		return fmt.Errorf("failed to marshal ignored patterns: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO digest_runs (id, database_url, table_count, ignored_patterns, started_at)
	VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.DatabaseURL, run.TableCount, string(patterns), run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record digest run: %w", err)
	}

	return nil
}

// LastDigestRun returns the most recent digest run, or nil when none was recorded
func (s *DuckDBStore) LastDigestRun(ctx context.Context) (*DigestRun, error) {
	var (
		run      DigestRun
		url      sql.NullString
		patterns sql.NullString
	)

	err := s.db.QueryRowContext(ctx, `
	SELECT id, database_url, table_count, ignored_patterns, started_at
	FROM digest_runs
	ORDER BY started_at DESC
	LIMIT 1`,
	).Scan(&run.ID, &url, &run.TableCount, &patterns, &run.StartedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query digest runs: %w", err)
	}

	run.DatabaseURL = url.String

	if patterns.Valid && patterns.String != "" {
		if err := json.Unmarshal([]byte(patterns.String), &run.IgnoredPatterns); err != nil {
			return nil, fmt.Errorf("failed to decode ignored patterns: %w", err)
		}
	}

	return &run, nil
}

// Path returns the database file path
func (s *DuckDBStore) Path() string {
	return s.path
}

// Close closes the database connection
func (s *DuckDBStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

// vectorLiteral renders a vector as a DuckDB list literal, e.g. [0.1,0.2]
func vectorLiteral(v []float32) string {
	var sb strings.Builder

	sb.WriteByte('[')

	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}

		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}

	sb.WriteByte(']')

	return sb.String()
}
