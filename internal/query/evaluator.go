package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Kurukshetran/nl2sql/internal/errors"
	"github.com/Kurukshetran/nl2sql/internal/llm"
	"github.com/Kurukshetran/nl2sql/internal/logging"
	"github.com/Kurukshetran/nl2sql/internal/observability"
	"github.com/Kurukshetran/nl2sql/internal/types"
)

const evaluatorSystemPrompt = `You are a SQL expert. Evaluate the confidence score
(0.0 to 1.0) of the generated SQL query based on:
1. Query completeness
2. Proper table usage and case sensitivity
3. Correct joins
4. Appropriate filtering
Return only the numeric score.`

// Evaluator scores generated SQL and picks the best candidate across chunks
type Evaluator struct {
	service   llm.Service
	generator *Generator
	logger    *slog.Logger
}

// NewEvaluator creates an Evaluator that generates with generator
func NewEvaluator(service llm.Service, generator *Generator, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		service:   service,
		generator: generator,
		logger:    logging.OrDefault(logger),
	}
}

func evaluatorContext(sql, question string, tables []types.TableCandidate) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Original question: %s\n", question)
	fmt.Fprintf(&b, "Generated SQL: %s\n\n", sql)
	b.WriteString("Available tables:\n")

	for _, t := range tables {
		fmt.Fprintf(&b, "- %s\n", QuoteIdentifier(t.TableName))
	}

	return b.String()
}

// Evaluate returns the model's confidence in sql, within [0, 1]. An
// unreadable score is 0 and not an error.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	sql, question string,
	tables []types.TableCandidate,
) (float64, error) {
	reply, err := complete(ctx, e.service, StageEvaluate, evaluatorSystemPrompt, evaluatorContext(sql, question, tables))
	if err != nil {
		return 0, err
	}

	score := ParseConfidence(reply)
	if !score.OK() {
		observability.ObserveScoreParseFailure()
		e.logger.WarnContext(ctx, "Unreadable confidence score", slog.String("reply", reply))
	}

	confidence := score.ValueOr(0)
	observability.ObserveConfidence(confidence)

	return confidence, nil
}

// Candidates generates and scores SQL for every chunk in order. Chunks whose
// reply holds no SQL are skipped.
func (e *Evaluator) Candidates(ctx context.Context, chunks []Chunk, question string) ([]CandidateQuery, error) {
	var candidates []CandidateQuery

	for _, chunk := range chunks {
		sql, err := e.generator.Generate(ctx, chunk, question)
		if err != nil {
			if errors.IsType(err, errors.ErrTypeGeneration) {
				e.logger.WarnContext(ctx, "Skipping chunk without SQL", slog.Int("chunk", chunk.Index))
				continue
			}

			return nil, err
		}

		confidence, err := e.Evaluate(ctx, sql, question, chunk.Tables)
		if err != nil {
			return nil, err
		}

		e.logger.DebugContext(ctx, "Scored candidate",
			slog.Int("chunk", chunk.Index),
			slog.Float64("confidence", confidence),
		)

		candidates = append(candidates, CandidateQuery{SQL: sql, Confidence: confidence, Chunk: chunk})
	}

	return candidates, nil
}

// SelectBest returns the SQL to run. A single chunk is generated and returned
// unscored. Across several chunks the first candidate with the highest
// confidence above zero wins.
func (e *Evaluator) SelectBest(ctx context.Context, chunks []Chunk, question string) (string, error) {
	switch len(chunks) {
	case 0:
		return "", errors.NewNoRelevantTablesError(question)
	case 1:
		sql, err := e.generator.Generate(ctx, chunks[0], question)
		if err != nil && errors.IsType(err, errors.ErrTypeGeneration) {
			return "", errors.NewGenerationError(err)
		}

		return sql, err
	}

	candidates, err := e.Candidates(ctx, chunks, question)
	if err != nil {
		return "", err
	}

	best, ok := pickBest(candidates)
	if !ok {
		return "", errors.NewGenerationError(fmt.Errorf("no candidate scored above zero across %d chunks", len(chunks)))
	}

	e.logger.InfoContext(ctx, "Selected best candidate",
		slog.Int("chunk", best.Chunk.Index),
		slog.Float64("confidence", best.Confidence),
	)

	return best.SQL, nil
}

func pickBest(candidates []CandidateQuery) (CandidateQuery, bool) {
	var (
		best  CandidateQuery
		found bool
	)

	for _, c := range candidates {
		if c.Confidence > best.Confidence {
			best = c
			found = true
		}
	}

	return best, found
}
