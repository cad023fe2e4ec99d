package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableSchemaColumnsKeepOrder(t *testing.T) {
	def := "now()"
	schema := TableSchema{
		Columns: []Column{
			{Name: "id", Type: "integer", PrimaryKey: true},
			{Name: "created_at", Type: "timestamp", Nullable: true, Default: &def},
			{Name: "amount", Type: "numeric"},
		},
		PrimaryKey: []string{"id"},
	}

	data, err := json.Marshal(schema)
	require.NoError(t, err)

	var decoded TableSchema
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.Len(t, decoded.Columns, 3)
	assert.Equal(t, "id", decoded.Columns[0].Name)
	assert.Equal(t, "created_at", decoded.Columns[1].Name)
	assert.Equal(t, "amount", decoded.Columns[2].Name)
	require.NotNil(t, decoded.Columns[1].Default)
	assert.Equal(t, "now()", *decoded.Columns[1].Default)

	col, ok := decoded.Column("amount")
	assert.True(t, ok)
	assert.Equal(t, "numeric", col.Type)

	_, ok = decoded.Column("missing")
	assert.False(t, ok)
}

func TestEnrichedSchemaTableNames(t *testing.T) {
	enriched := &EnrichedSchema{
		Tables: map[string]TableInfo{
			"Orders":     {},
			"Customers":  {},
			"line_items": {},
		},
	}

	assert.Equal(t, []string{"Customers", "Orders", "line_items"}, enriched.TableNames())
}
