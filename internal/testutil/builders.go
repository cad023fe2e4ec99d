package testutil

import (
	"fmt"

	"github.com/Kurukshetran/nl2sql/internal/types"
)

// CandidateOption is a functional option for configuring test candidates
type CandidateOption func(*types.TableCandidate)

// WithScore sets the similarity score
func WithScore(score float64) CandidateOption {
	return func(c *types.TableCandidate) {
		c.SimilarityScore = score
	}
}

// WithDescription sets the table description
func WithDescription(desc string) CandidateOption {
	return func(c *types.TableCandidate) {
		c.Description = desc
	}
}

// WithColumns replaces the table columns. Primary key columns are recorded
// in the schema's primary key as well.
func WithColumns(cols ...types.Column) CandidateOption {
	return func(c *types.TableCandidate) {
		c.Schema.Columns = cols
		c.Schema.PrimaryKey = nil

		for _, col := range cols {
			if col.PrimaryKey {
				c.Schema.PrimaryKey = append(c.Schema.PrimaryKey, col.Name)
			}
		}
	}
}

// WithForeignKey adds a foreign key from columns to referred(referredColumns)
func WithForeignKey(columns []string, referred string, referredColumns []string) CandidateOption {
	return func(c *types.TableCandidate) {
		c.Schema.ForeignKeys = append(c.Schema.ForeignKeys, types.ForeignKey{
			ConstrainedColumns: columns,
			ReferredTable:      referred,
			ReferredColumns:    referredColumns,
		})
	}
}

// PrimaryKeyColumn returns a NOT NULL primary key column
func PrimaryKeyColumn(name, typ string) types.Column {
	return types.Column{Name: name, Type: typ, PrimaryKey: true}
}

// RequiredColumn returns a NOT NULL column
func RequiredColumn(name, typ string) types.Column {
	return types.Column{Name: name, Type: typ}
}

// NullableColumn returns a nullable column
func NullableColumn(name, typ string) types.Column {
	return types.Column{Name: name, Type: typ, Nullable: true}
}

// NewTestCandidate creates a table candidate with an id primary key and
// applies any provided options
func NewTestCandidate(name string, opts ...CandidateOption) types.TableCandidate {
	candidate := types.TableCandidate{
		TableName:       name,
		Description:     TestDescription,
		SimilarityScore: TestSimilarity,
		Schema: types.TableSchema{
			Columns:     []types.Column{PrimaryKeyColumn("id", "integer")},
			PrimaryKey:  []string{"id"},
			ForeignKeys: []types.ForeignKey{},
			Indexes:     []types.Index{},
		},
	}

	for _, opt := range opts {
		opt(&candidate)
	}

	return candidate
}

// NewTestCandidates creates n candidates named Table01, Table02, ...
func NewTestCandidates(n int) []types.TableCandidate {
	candidates := make([]types.TableCandidate, n)
	for i := range n {
		candidates[i] = NewTestCandidate(
			fmt.Sprintf("Table%02d", i+1),
			WithScore(1.0-float64(i)/float64(n+1)),
		)
	}

	return candidates
}

// ShopCandidates returns the Customers, Orders and Products tables of a small
// store schema with scores 0.9, 0.85 and 0.2
func ShopCandidates() []types.TableCandidate {
	return []types.TableCandidate{
		NewTestCandidate("Customers",
			WithScore(0.9),
			WithDescription("Customer accounts with contact details"),
			WithColumns(
				PrimaryKeyColumn("id", "integer"),
				RequiredColumn("name", "text"),
				NullableColumn("email", "text"),
			),
		),
		NewTestCandidate("Orders",
			WithScore(0.85),
			WithDescription("Orders placed by customers, with totals"),
			WithColumns(
				PrimaryKeyColumn("id", "integer"),
				RequiredColumn("customer_id", "integer"),
				NullableColumn("total", "numeric"),
				NullableColumn("created_at", "timestamp"),
			),
			WithForeignKey([]string{"customer_id"}, "Customers", []string{"id"}),
		),
		NewTestCandidate("Products",
			WithScore(0.2),
			WithDescription("Product catalog"),
			WithColumns(
				PrimaryKeyColumn("id", "integer"),
				RequiredColumn("title", "text"),
				NullableColumn("price", "numeric"),
			),
		),
	}
}

// EnrichedFromCandidates builds an enriched schema holding the candidates
func EnrichedFromCandidates(candidates []types.TableCandidate) *types.EnrichedSchema {
	enriched := &types.EnrichedSchema{
		Metadata: types.SchemaMetadata{
			Database:        TestDatabaseURL,
			IgnoredPatterns: []string{},
		},
		Tables: make(map[string]types.TableInfo, len(candidates)),
	}

	for _, c := range candidates {
		enriched.Tables[c.TableName] = types.TableInfo{
			Schema:      c.Schema,
			Description: c.Description,
		}
	}

	return enriched
}
