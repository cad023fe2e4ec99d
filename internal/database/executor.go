package database

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/Kurukshetran/nl2sql/internal/errors"
	"github.com/Kurukshetran/nl2sql/internal/logging"
)

// Result holds the rows returned by an executed query
type Result struct {
	Columns   []string      `json:"columns"`
	Rows      [][]any       `json:"rows"`
	Duration  time.Duration `json:"duration"`
	Truncated bool          `json:"truncated"`
}

// Executor runs generated SQL against the target database
type Executor struct {
	db      *sql.DB
	timeout time.Duration
	maxRows int
	logger  *slog.Logger
}

// NewExecutor creates an Executor. A zero timeout or maxRows means unlimited.
func NewExecutor(db *sql.DB, timeout time.Duration, maxRows int, logger *slog.Logger) *Executor {
	return &Executor{
		db:      db,
		timeout: timeout,
		maxRows: maxRows,
		logger:  logging.OrDefault(logger),
	}
}

// WithMaxRows returns a copy of the executor with a different row limit
func (e *Executor) WithMaxRows(maxRows int) *Executor {
	clone := *e
	clone.maxRows = maxRows

	return &clone
}

// Execute runs query and collects its rows. Failures are ErrTypeExecution.
func (e *Executor) Execute(ctx context.Context, query string) (*Result, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeExecution, "query execution failed")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeExecution, "failed to read result columns")
	}

	result := &Result{Columns: columns, Rows: [][]any{}}

	for rows.Next() {
		if e.maxRows > 0 && len(result.Rows) >= e.maxRows {
			result.Truncated = true
			break
		}

		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeExecution, "failed to scan result row")
		}

		result.Rows = append(result.Rows, normalizeValues(values))
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeExecution, "query execution failed")
	}

	result.Duration = time.Since(start)

	e.logger.DebugContext(ctx, "Executed query",
		slog.Int("rows", len(result.Rows)),
		slog.Bool("truncated", result.Truncated),
		slog.Duration("duration", result.Duration),
	)

	return result, nil
}

func normalizeValues(values []any) []any {
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}

	return values
}
