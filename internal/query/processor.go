package query

import (
	"context"
	"log/slog"

	"github.com/Kurukshetran/nl2sql/internal/errors"
	"github.com/Kurukshetran/nl2sql/internal/llm"
	"github.com/Kurukshetran/nl2sql/internal/logging"
	"github.com/Kurukshetran/nl2sql/internal/observability"
	"github.com/Kurukshetran/nl2sql/internal/types"
)

// Processor turns a question and its similar tables into one SQL query
type Processor struct {
	selector  *Selector
	planner   Planner
	evaluator *Evaluator
	logger    *slog.Logger
}

// NewProcessor wires the pipeline stages around one completion service
func NewProcessor(service llm.Service, planner Planner, logger *slog.Logger) *Processor {
	logger = logging.OrDefault(logger)
	generator := NewGenerator(service, logger)

	return &Processor{
		selector:  NewSelector(service, logger),
		planner:   planner,
		evaluator: NewEvaluator(service, generator, logger),
		logger:    logger,
	}
}

// Planner returns the chunk planner in use
func (p *Processor) Planner() Planner {
	return p.planner
}

// GenerateSQL filters candidates, plans chunks and returns the best query
func (p *Processor) GenerateSQL(
	ctx context.Context,
	question string,
	candidates []types.TableCandidate,
) (string, error) {
	if len(candidates) == 0 {
		observability.ObservePipeline(observability.OutcomeNoRelevantTables)
		return "", errors.NewNoRelevantTablesError(question)
	}

	var relevant []types.TableCandidate

	err := logging.Operation(ctx, p.logger, "select_relevant_tables", func() error {
		var err error
		relevant, err = p.selector.SelectRelevant(ctx, candidates, question)
		return err
	})
	if err != nil {
		observability.ObservePipeline(observability.OutcomeError)
		return "", stageError(ctx, err, "relevance selection failed")
	}

	if len(relevant) == 0 {
		observability.ObservePipeline(observability.OutcomeNoRelevantTables)
		return "", errors.NewNoRelevantTablesError(question)
	}

	chunks := p.planner.Plan(relevant)
	observability.ObserveChunks(len(chunks))

	logging.FromContext(ctx, p.logger).InfoContext(ctx, "Planned schema chunks",
		slog.Int("relevant_tables", len(relevant)),
		slog.Int("chunks", len(chunks)),
		slog.Int("tables_per_chunk", p.planner.TablesPerChunk()),
	)

	var sql string

	err = logging.Operation(ctx, p.logger, "select_best_query", func() error {
		var err error
		sql, err = p.evaluator.SelectBest(ctx, chunks, question)
		return err
	})
	if err != nil {
		switch errors.GetType(err) {
		case errors.ErrTypeGeneration:
			observability.ObservePipeline(observability.OutcomeGenerationFailed)
			return "", err
		case errors.ErrTypeNoRelevantTables:
			observability.ObservePipeline(observability.OutcomeNoRelevantTables)
			return "", err
		}

		observability.ObservePipeline(observability.OutcomeError)
		return "", stageError(ctx, err, "query generation failed")
	}

	observability.ObservePipeline(observability.OutcomeOK)

	return sql, nil
}

// stageError keeps the type of a structured cause. Untyped causes count as
// completion failures unless ctx is already done.
func stageError(ctx context.Context, err error, message string) error {
	errType := errors.GetType(err)
	if errType == errors.ErrTypeInternal && ctx.Err() == nil {
		errType = errors.ErrTypeLLM
	}

	return errors.Wrap(err, errType, message)
}
