package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kurukshetran/nl2sql/internal/errors"
	"github.com/Kurukshetran/nl2sql/internal/logging"
	"github.com/Kurukshetran/nl2sql/internal/testutil"
)

func TestSchemaBlock(t *testing.T) {
	block := SchemaBlock(testutil.ShopCandidates()[:2])

	assert.Contains(t, block, "\nTable: \"Customers\"\nDescription: Customer accounts with contact details\nColumns:\n")
	assert.Contains(t, block, "- id (integer) NOT NULL PRIMARY KEY\n")
	assert.Contains(t, block, "- name (text) NOT NULL\n")
	assert.Contains(t, block, "- email (text)\n")
	assert.Contains(t, block, "\nForeign Keys:\n- customer_id -> \"Customers\"(id)\n")
}

func TestGenerator_Generate(t *testing.T) {
	service := testutil.NewMockCompletionService(testutil.WithReplies(
		"```sql\nSELECT name, email,\nFROM customers\n```",
	))
	generator := NewGenerator(service, logging.Discard())
	chunk := Chunk{Index: 0, Tables: testutil.ShopCandidates()[:1]}

	sql, err := generator.Generate(context.Background(), chunk, testutil.TestQuestion)
	require.NoError(t, err)
	assert.Equal(t, "SELECT name, email\nFROM \"Customers\"", sql)

	calls := service.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, testutil.TestQuestion, calls[0].UserPrompt)
	assert.Contains(t, calls[0].SystemPrompt, `Table: "Customers"`)
	assert.NotContains(t, calls[0].SystemPrompt, "%s")
}

func TestGenerator_GenerateEmptyReply(t *testing.T) {
	service := testutil.NewMockCompletionService(testutil.WithReplies("```"))
	generator := NewGenerator(service, logging.Discard())

	_, err := generator.Generate(context.Background(), Chunk{Index: 3, Tables: testutil.NewTestCandidates(1)}, "q")

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeGeneration))
	assert.Contains(t, err.Error(), "chunk 3")
}
