package query

import (
	"slices"

	"github.com/Kurukshetran/nl2sql/internal/types"
)

// Default token budget for one generation request
const (
	DefaultMaxTokens      = 4000
	DefaultTokensPerTable = 800
)

// Planner splits candidate tables into chunks that fit the token budget.
// Every table is assumed to cost TokensPerTable.
type Planner struct {
	MaxTokens      int
	TokensPerTable int
}

// NewPlanner creates a Planner, substituting defaults for non-positive values
func NewPlanner(maxTokens, tokensPerTable int) Planner {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if tokensPerTable <= 0 {
		tokensPerTable = DefaultTokensPerTable
	}

	return Planner{MaxTokens: maxTokens, TokensPerTable: tokensPerTable}
}

// TablesPerChunk is max(1, MaxTokens / TokensPerTable)
func (p Planner) TablesPerChunk() int {
	if p.TokensPerTable <= 0 {
		return 1
	}

	return max(1, p.MaxTokens/p.TokensPerTable)
}

// Plan copies candidates into contiguous chunks without reordering
func (p Planner) Plan(candidates []types.TableCandidate) []Chunk {
	size := p.TablesPerChunk()
	chunks := make([]Chunk, 0, (len(candidates)+size-1)/size)

	for start := 0; start < len(candidates); start += size {
		end := min(start+size, len(candidates))
		chunks = append(chunks, Chunk{
			Index:  len(chunks),
			Tables: slices.Clone(candidates[start:end]),
		})
	}

	return chunks
}
