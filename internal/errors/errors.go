package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrTypeNoRelevantTables ErrorType = "no_relevant_tables"
	ErrTypeGeneration       ErrorType = "generation"
	ErrTypeExecution        ErrorType = "execution"
	ErrTypeLLM              ErrorType = "llm"
	ErrTypeDatabase         ErrorType = "database"
	ErrTypeValidation       ErrorType = "validation"
	ErrTypeNotFound         ErrorType = "not_found"
	ErrTypeConfig           ErrorType = "config"
	ErrTypeNetwork          ErrorType = "network"
	ErrTypeFileSystem       ErrorType = "filesystem"
	ErrTypeInternal         ErrorType = "internal"
)

// Error represents a structured error with type and optional suggestions
type Error struct {
	Type        ErrorType
	Message     string
	Cause       error
	Suggestions []string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithSuggestion adds a suggestion for resolving the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// New creates a new structured error
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new structured error with formatted message
func Newf(errType ErrorType, format string, args ...any) *Error {
	return New(errType, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with formatted message
func Wrapf(err error, errType ErrorType, format string, args ...any) *Error {
	return Wrap(err, errType, fmt.Sprintf(format, args...))
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type == errType
	}

	return false
}

// GetType returns the error type if it's a structured error
func GetType(err error) ErrorType {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type
	}

	return ErrTypeInternal
}

// exitCodes groups error types into process exit statuses. Anything
// unlisted exits with 1.
var exitCodes = map[ErrorType]int{
	ErrTypeConfig:           2,
	ErrTypeValidation:       2,
	ErrTypeNoRelevantTables: 3,
	ErrTypeGeneration:       3,
	ErrTypeExecution:        4,
	ErrTypeDatabase:         5,
	ErrTypeLLM:              6,
	ErrTypeNetwork:          6,
}

// ExitCode maps err to the status the CLI exits with. nil maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	if code, ok := exitCodes[GetType(err)]; ok {
		return code
	}

	return 1
}

// SuggestionsFor collects suggestions from the first structured error in the chain
func SuggestionsFor(err error) []string {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Suggestions
	}

	return nil
}

// NewConfigError creates a configuration error with suggestions
func NewConfigError(message, field string) *Error {
	err := New(ErrTypeConfig, message)
	if field != "" {
		err.Message = fmt.Sprintf("%s (field: %s)", message, field)
	}

	return err.
		WithSuggestion("Check your configuration file and .env syntax").
		WithSuggestion("Run with --help to see valid configuration options")
}

// NewNoRelevantTablesError reports that relevance filtering left nothing to query
func NewNoRelevantTablesError(question string) *Error {
	return Newf(ErrTypeNoRelevantTables, "no relevant tables found for the query %q", question).
		WithSuggestion("Rephrase the question using terms from your table descriptions").
		WithSuggestion("Run 'nl2sql digest --refresh' if the schema changed")
}

// NewGenerationError reports that no chunk produced a usable query
func NewGenerationError(cause error) *Error {
	return Wrap(cause, ErrTypeGeneration, "failed to generate SQL")
}
