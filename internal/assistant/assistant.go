package assistant

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Kurukshetran/nl2sql/internal/database"
	"github.com/Kurukshetran/nl2sql/internal/errors"
	"github.com/Kurukshetran/nl2sql/internal/logging"
	"github.com/Kurukshetran/nl2sql/internal/observability"
	"github.com/Kurukshetran/nl2sql/internal/types"
)

// TableFinder ranks indexed tables by similarity to a question
type TableFinder interface {
	FindRelevantTables(ctx context.Context, question string, topK int) ([]types.TableCandidate, error)
}

// SQLGenerator turns a question and candidate tables into SQL
type SQLGenerator interface {
	GenerateSQL(ctx context.Context, question string, candidates []types.TableCandidate) (string, error)
}

// QueryExecutor runs SQL against the target database
type QueryExecutor interface {
	Execute(ctx context.Context, query string) (*database.Result, error)
}

// Answer is everything produced for one question
type Answer struct {
	RequestID  string                 `json:"request_id"`
	Question   string                 `json:"question"`
	SQL        string                 `json:"sql"`
	Candidates []types.TableCandidate `json:"candidates"`
	Result     *database.Result       `json:"result,omitempty"`
}

// Executed reports whether the SQL was run
func (a *Answer) Executed() bool {
	return a.Result != nil
}

type askOptions struct {
	topK   int
	dryRun bool
}

// AskOption adjusts a single Ask call
type AskOption func(*askOptions)

// WithTopK overrides the number of tables fetched by similarity search
func WithTopK(topK int) AskOption {
	return func(o *askOptions) {
		if topK > 0 {
			o.topK = topK
		}
	}
}

// DryRun generates SQL without executing it
func DryRun() AskOption {
	return func(o *askOptions) {
		o.dryRun = true
	}
}

// Assistant answers questions end to end
type Assistant struct {
	finder    TableFinder
	generator SQLGenerator
	executor  QueryExecutor
	topK      int
	logger    *slog.Logger
}

// New creates an Assistant. executor may be nil when every call is a dry run.
func New(finder TableFinder, generator SQLGenerator, executor QueryExecutor, topK int, logger *slog.Logger) *Assistant {
	return &Assistant{
		finder:    finder,
		generator: generator,
		executor:  executor,
		topK:      topK,
		logger:    logging.OrDefault(logger),
	}
}

// Ask finds candidate tables, generates SQL and runs it. When execution
// fails the returned Answer still carries the attempted SQL.
func (a *Assistant) Ask(ctx context.Context, question string, opts ...AskOption) (*Answer, error) {
	options := askOptions{topK: a.topK}
	for _, opt := range opts {
		opt(&options)
	}

	answer := &Answer{
		RequestID: uuid.NewString(),
		Question:  question,
	}

	ctx = logging.ContextWithRequestID(ctx, answer.RequestID)
	logger := logging.FromContext(ctx, a.logger)

	if question == "" {
		return answer, errors.New(errors.ErrTypeValidation, "question must not be empty")
	}

	candidates, err := a.finder.FindRelevantTables(ctx, question, options.topK)
	if err != nil {
		return answer, err
	}
	answer.Candidates = candidates

	logger.InfoContext(ctx, "Found candidate tables", slog.Int("candidates", len(candidates)))

	sql, err := a.generator.GenerateSQL(ctx, question, candidates)
	if err != nil {
		return answer, err
	}
	answer.SQL = sql

	if options.dryRun {
		return answer, nil
	}

	if a.executor == nil {
		return answer, errors.New(errors.ErrTypeConfig, "no database connection for query execution")
	}

	start := time.Now()
	result, err := a.executor.Execute(ctx, sql)
	observability.ObserveExecution(err, time.Since(start))

	if err != nil {
		logger.ErrorContext(ctx, "Query execution failed",
			slog.String("sql", sql),
			slog.Any("error", err),
		)

		if !errors.IsType(err, errors.ErrTypeExecution) {
			err = errors.Wrap(err, errors.ErrTypeExecution, "query execution failed")
		}

		return answer, err
	}

	answer.Result = result

	logger.InfoContext(ctx, "Answered question",
		slog.Int("rows", len(result.Rows)),
		slog.Duration("duration", result.Duration),
	)

	return answer, nil
}
