package types

import (
	"slices"
	"time"
)

// Column represents a database column
type Column struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Nullable   bool    `json:"nullable"`
	PrimaryKey bool    `json:"primary_key"`
	Default    *string `json:"default,omitempty"`
}

// ForeignKey represents one foreign key constraint
type ForeignKey struct {
	Name               string   `json:"name,omitempty"`
	ConstrainedColumns []string `json:"constrained_columns"`
	ReferredTable      string   `json:"referred_table"`
	ReferredColumns    []string `json:"referred_columns"`
}

// Index represents a database index
type Index struct {
	Name       string   `json:"name"`
	Columns    []string `json:"columns"`
	Unique     bool     `json:"unique"`
	Definition string   `json:"definition,omitempty"`
}

// TableSchema is the structural description of one table. Columns keep
// their ordinal order.
type TableSchema struct {
	Columns     []Column     `json:"columns"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
	PrimaryKey  []string     `json:"primary_key"`
	Indexes     []Index      `json:"indexes"`
}

// Column returns the named column, if present
func (s TableSchema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}

	return Column{}, false
}

// TableCandidate is a table proposed by the similarity search for a question
type TableCandidate struct {
	TableName       string      `json:"table_name"`
	Description     string      `json:"description"`
	Schema          TableSchema `json:"schema"`
	SimilarityScore float64     `json:"similarity_score"`
}

// TableInfo is one enriched table entry
type TableInfo struct {
	Schema      TableSchema `json:"schema"`
	Description string      `json:"description"`
}

// SchemaMetadata records how an enriched schema was produced
type SchemaMetadata struct {
	GeneratedAt     time.Time `json:"generated_at"`
	Database        string    `json:"database_url"`
	IgnoredPatterns []string  `json:"ignored_patterns"`
}

// EnrichedSchema is the cached result of a digest run
type EnrichedSchema struct {
	Metadata SchemaMetadata       `json:"metadata"`
	Tables   map[string]TableInfo `json:"tables"`
}

// TableNames returns the enriched table names, sorted
func (e *EnrichedSchema) TableNames() []string {
	names := make([]string, 0, len(e.Tables))
	for name := range e.Tables {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}
