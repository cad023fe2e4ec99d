package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTableList(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{name: "plain list", raw: "Customers,Orders", want: []string{"Customers", "Orders"}},
		{name: "spaces and quotes", raw: ` "Customers" , Orders `, want: []string{"Customers", "Orders"}},
		{name: "keeps case", raw: "employee_Records", want: []string{"employee_Records"}},
		{name: "skips empty entries", raw: "Orders,,", want: []string{"Orders"}},
		{name: "empty reply", raw: "  ", wantErr: true},
		{name: "only commas", raw: ",,", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseTableList(tt.raw)
			assert.Equal(t, tt.raw, result.Raw)

			if tt.wantErr {
				assert.False(t, result.OK())
				assert.Empty(t, result.ValueOr(nil))
				return
			}

			require.True(t, result.OK())
			assert.Equal(t, tt.want, result.Value)
		})
	}
}

func TestParseConfidence(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    float64
		wantErr bool
	}{
		{name: "in range", raw: "0.85", want: 0.85},
		{name: "surrounding whitespace", raw: "  0.4\n", want: 0.4},
		{name: "clamps high", raw: "1.5", want: 1},
		{name: "clamps low", raw: "-0.2", want: 0},
		{name: "words", raw: "very confident", wantErr: true},
		{name: "nan", raw: "NaN", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseConfidence(tt.raw)

			if tt.wantErr {
				assert.False(t, result.OK())
				assert.Equal(t, 0.0, result.ValueOr(0))
				return
			}

			require.True(t, result.OK())
			assert.InDelta(t, tt.want, result.Value, 1e-9)
		})
	}
}

func TestCleanSQL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "strips sql fence",
			raw:  "```sql\nSELECT id FROM orders\n```",
			want: "SELECT id FROM orders",
		},
		{
			name: "strips bare fence",
			raw:  "```\nSELECT 1\n```",
			want: "SELECT 1",
		},
		{
			name: "drops comma before from",
			raw:  "SELECT id, total,\nFROM orders",
			want: "SELECT id, total\nFROM orders",
		},
		{
			name: "drops comma before lowercase group by",
			raw:  "SELECT a, count(*) AS n FROM t WHERE x = 1, group  by a",
			want: "SELECT a, count(*) AS n FROM t WHERE x = 1 group  by a",
		},
		{
			name: "keeps commas inside select list",
			raw:  "SELECT id, total FROM orders ORDER BY id",
			want: "SELECT id, total FROM orders ORDER BY id",
		},
		{
			name: "keeps comma before column named fromage",
			raw:  "SELECT id, fromage FROM cheese",
			want: "SELECT id, fromage FROM cheese",
		},
		{name: "empty fence", raw: "```sql\n```", wantErr: true},
		{name: "blank", raw: " \n ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanSQL(tt.raw)

			if tt.wantErr {
				assert.False(t, result.OK())
				return
			}

			require.True(t, result.OK())
			assert.Equal(t, tt.want, result.Value)
		})
	}
}
