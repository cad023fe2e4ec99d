package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Kurukshetran/nl2sql/internal/types"
)

// EnrichedSchemaKey names the cached enriched schema document
const EnrichedSchemaKey = "enriched_schema"

const documentExt = ".json"

// ErrNotFound is returned when a cached document does not exist
var ErrNotFound = errors.New("cache miss: document not found")

// Cache defines the interface for local document caching operations
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
}

// FileCache stores named JSON documents in a directory
type FileCache struct {
	directory string
	mu        sync.RWMutex
}

// NewFileCache creates a new file-based cache rooted at directory
func NewFileCache(directory string) (*FileCache, error) {
	if strings.HasPrefix(directory, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}

		directory = filepath.Join(home, directory[2:])
	}

	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileCache{directory: directory}, nil
}

// Directory returns the cache root
func (c *FileCache) Directory() string {
	return c.directory
}

// Path returns the file path for a cache key
func (c *FileCache) Path(key string) string {
	return filepath.Join(c.directory, key+documentExt)
}

// Get retrieves a document from the cache
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, err := os.ReadFile(c.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to read cache document: %w", err)
	}

	return data, nil
}

// Set writes a document atomically, replacing any previous version
func (c *FileCache) Set(ctx context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	target := c.Path(key)

	tmp, err := os.CreateTemp(c.directory, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return fmt.Errorf("failed to write cache document: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close cache document: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache document: %w", err)
	}

	return nil
}

// LoadJSON decodes a cached document into a value of type T
func LoadJSON[T any](ctx context.Context, c Cache, key string) (*T, error) {
	data, err := c.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("failed to parse cached %s: %w", key, err)
	}

	return &value, nil
}

// SaveJSON encodes value as indented JSON and stores it under key
func SaveJSON(ctx context.Context, c Cache, key string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	return c.Set(ctx, key, data)
}

// LoadEnrichedSchema reads the cached enriched schema
func LoadEnrichedSchema(ctx context.Context, c Cache) (*types.EnrichedSchema, error) {
	schema, err := LoadJSON[types.EnrichedSchema](ctx, c, EnrichedSchemaKey)
	if err != nil {
		return nil, err
	}

	if schema.Tables == nil {
		schema.Tables = map[string]types.TableInfo{}
	}

	return schema, nil
}

// SaveEnrichedSchema replaces the cached enriched schema
func SaveEnrichedSchema(ctx context.Context, c Cache, schema *types.EnrichedSchema) error {
	return SaveJSON(ctx, c, EnrichedSchemaKey, schema)
}
