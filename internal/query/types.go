package query

import (
	"context"
	"time"

	"github.com/Kurukshetran/nl2sql/internal/llm"
	"github.com/Kurukshetran/nl2sql/internal/observability"
	"github.com/Kurukshetran/nl2sql/internal/types"
)

// Pipeline stages, used to label completion metrics
const (
	StageSelect   = "select"
	StageGenerate = "generate"
	StageEvaluate = "evaluate"
)

// Chunk is a bounded group of candidate tables sent together in one
// generation request
type Chunk struct {
	Index  int                    `json:"index"`
	Tables []types.TableCandidate `json:"tables"`
}

// TableNames returns the stored names of the chunk's tables
func (c Chunk) TableNames() []string {
	names := make([]string, len(c.Tables))
	for i, t := range c.Tables {
		names[i] = t.TableName
	}

	return names
}

// CandidateQuery is SQL generated for one chunk with its confidence score
type CandidateQuery struct {
	SQL        string  `json:"sql"`
	Confidence float64 `json:"confidence"`
	Chunk      Chunk   `json:"chunk"`
}

func complete(
	ctx context.Context,
	service llm.Service,
	stage, systemPrompt, userPrompt string,
) (string, error) {
	start := time.Now()
	reply, err := service.Complete(ctx, systemPrompt, userPrompt)
	observability.ObserveCompletion(stage, err, time.Since(start))

	return reply, err
}
