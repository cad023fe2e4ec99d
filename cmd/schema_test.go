package cmd

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kurukshetran/nl2sql/internal/cache"
	"github.com/Kurukshetran/nl2sql/internal/errors"
	"github.com/Kurukshetran/nl2sql/internal/storage"
	"github.com/Kurukshetran/nl2sql/internal/testutil"
)

func newSchemaCache(t *testing.T) *cache.FileCache {
	t.Helper()

	store, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)

	return store
}

func TestRunSchema(t *testing.T) {
	ctx := context.Background()
	store := newSchemaCache(t)
	require.NoError(t, cache.SaveEnrichedSchema(ctx, store, testutil.EnrichedFromCandidates(testutil.ShopCandidates())))

	last := &storage.DigestRun{StartedAt: time.Now().Add(-2 * time.Hour), TableCount: 3}

	var out bytes.Buffer
	require.NoError(t, runSchema(ctx, store, nil, last, "", &out))

	output := out.String()
	assert.Contains(t, output, "Tables: 3")
	assert.Contains(t, output, "Table: Customers")
	assert.Contains(t, output, "Relationships:\n  customer_id -> Customers(id)")
	assert.Contains(t, output, "Last digest: 2 hours ago, 3 tables")
}

func TestRunSchema_SingleTable(t *testing.T) {
	ctx := context.Background()
	store := newSchemaCache(t)
	require.NoError(t, cache.SaveEnrichedSchema(ctx, store, testutil.EnrichedFromCandidates(testutil.ShopCandidates())))

	var out bytes.Buffer
	require.NoError(t, runSchema(ctx, store, nil, nil, "Products", &out))

	assert.Contains(t, out.String(), "Table: Products\nDescription: Product catalog\n")
	assert.NotContains(t, out.String(), "Table: Customers")

	err := runSchema(ctx, store, nil, nil, "Invoices", &out)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
}

func TestRunSchema_NotDigested(t *testing.T) {
	var out bytes.Buffer
	err := runSchema(context.Background(), newSchemaCache(t), nil, nil, "", &out)

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	assert.Contains(t, errors.SuggestionsFor(err)[0], "nl2sql digest")
}

type fakeLister struct {
	docs []storage.TableDocument
	err  error
}

func (f fakeLister) ListTables(context.Context) ([]storage.TableDocument, error) {
	return f.docs, f.err
}

func TestRunSchema_FallsBackToIndex(t *testing.T) {
	docs := []storage.TableDocument{
		{TableName: "Orders", Description: "Orders placed by customers", IndexedAt: time.Now()},
		{TableName: "Customers", Description: "Customer accounts"},
	}

	var out bytes.Buffer
	require.NoError(t, runSchema(context.Background(), newSchemaCache(t), fakeLister{docs: docs}, nil, "", &out))

	output := out.String()
	assert.Contains(t, output, "Tables: 2")
	assert.Contains(t, output, "Table: Orders\nDescription: Orders placed by customers\n")
	assert.Contains(t, output, "Table: Customers")
}

func TestRunSchema_IndexFallbackFailures(t *testing.T) {
	tests := []struct {
		name     string
		lister   fakeLister
		wantType errors.ErrorType
	}{
		{name: "empty index", lister: fakeLister{}, wantType: errors.ErrTypeNotFound},
		{name: "index unreadable", lister: fakeLister{err: fmt.Errorf("database is locked")}, wantType: errors.ErrTypeDatabase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := runSchema(context.Background(), newSchemaCache(t), tt.lister, nil, "", &out)

			require.Error(t, err)
			assert.Equal(t, tt.wantType, errors.GetType(err))
		})
	}
}
