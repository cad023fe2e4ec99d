package storage

import (
	"context"
	"path/filepath"
	"testing"
)

// NewTestStore creates an initialized index in a temporary directory.
// The store is closed when the test finishes.
func NewTestStore(t *testing.T) *DuckDBStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test_index.duckdb")

	store, err := NewDuckDBStore(dbPath)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	if err := store.Initialize(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to initialize test store: %v", err)
	}

	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close test store: %v", err)
		}
	})

	return store
}

// NewTestStoreWithTables creates a test index pre-seeded with docs
func NewTestStoreWithTables(t *testing.T, docs []TableDocument) *DuckDBStore {
	t.Helper()

	store := NewTestStore(t)
	if err := store.ReplaceTables(context.Background(), docs); err != nil {
		t.Fatalf("failed to seed test store: %v", err)
	}

	return store
}
