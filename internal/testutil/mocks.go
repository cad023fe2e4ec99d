package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Kurukshetran/nl2sql/internal/types"
)

// CompletionCall records one prompt pair sent to MockCompletionService
type CompletionCall struct {
	SystemPrompt string
	UserPrompt   string
}

type completionRule struct {
	match   string
	replies []string
	err     error
	used    int
}

// MockCompletionService implements llm.Service with scripted replies
type MockCompletionService struct {
	mu sync.Mutex

	rules    []*completionRule
	queue    []string
	err      error
	calls    []CompletionCall
	injector *ErrorInjector
}

// CompletionOption is a functional option for configuring MockCompletionService
type CompletionOption func(*MockCompletionService)

// WithReplies queues replies returned in order when no rule matches
func WithReplies(replies ...string) CompletionOption {
	return func(m *MockCompletionService) {
		m.queue = append(m.queue, replies...)
	}
}

// WithRule answers prompts containing match with replies in order. The last
// reply repeats once the list is used up.
func WithRule(match string, replies ...string) CompletionOption {
	return func(m *MockCompletionService) {
		m.rules = append(m.rules, &completionRule{match: match, replies: replies})
	}
}

// WithRuleError fails prompts containing match
func WithRuleError(match string, err error) CompletionOption {
	return func(m *MockCompletionService) {
		m.rules = append(m.rules, &completionRule{match: match, err: err})
	}
}

// WithCompletionError fails every call
func WithCompletionError(err error) CompletionOption {
	return func(m *MockCompletionService) {
		m.err = err
	}
}

// WithErrorInjector consults injector under the key "complete" on every call
func WithErrorInjector(injector *ErrorInjector) CompletionOption {
	return func(m *MockCompletionService) {
		m.injector = injector
	}
}

// NewMockCompletionService creates a mock completion service with the given options
func NewMockCompletionService(opts ...CompletionOption) *MockCompletionService {
	mock := &MockCompletionService{}

	for _, opt := range opts {
		opt(mock)
	}

	return mock
}

// Complete returns the scripted reply for the prompt pair
func (m *MockCompletionService) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, CompletionCall{SystemPrompt: systemPrompt, UserPrompt: userPrompt})

	if m.err != nil {
		return "", m.err
	}

	if m.injector != nil {
		if err := m.injector.ShouldError("complete"); err != nil {
			return "", err
		}
	}

	prompt := systemPrompt + "\n" + userPrompt

	for _, rule := range m.rules {
		if !strings.Contains(prompt, rule.match) {
			continue
		}

		if rule.err != nil {
			return "", rule.err
		}

		idx := min(rule.used, len(rule.replies)-1)
		rule.used++

		return rule.replies[idx], nil
	}

	if len(m.queue) == 0 {
		return "", fmt.Errorf("no scripted reply for prompt: %.60q", userPrompt)
	}

	reply := m.queue[0]
	m.queue = m.queue[1:]

	return reply, nil
}

// Calls returns a copy of the recorded calls
func (m *MockCompletionService) Calls() []CompletionCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]CompletionCall(nil), m.calls...)
}

// CallCount returns the number of Complete calls
func (m *MockCompletionService) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.calls)
}

// MockInspector implements schema.TableInspector over fixed table schemas
type MockInspector struct {
	mu sync.RWMutex

	tables     map[string]types.TableSchema
	errors     map[string]error
	callCounts map[string]int
}

// NewMockInspector creates an inspector serving tables
func NewMockInspector(tables map[string]types.TableSchema) *MockInspector {
	return &MockInspector{
		tables:     tables,
		errors:     make(map[string]error),
		callCounts: make(map[string]int),
	}
}

// SetError makes the named table, or "tables" for the listing, fail
func (m *MockInspector) SetError(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[key] = err
}

// TableNames returns the configured table names, sorted
func (m *MockInspector) TableNames(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCounts["TableNames"]++

	if err, exists := m.errors["tables"]; exists {
		return nil, err
	}

	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}

	sort.Strings(names)

	return names, nil
}

// TableSchema returns the configured schema for table
func (m *MockInspector) TableSchema(_ context.Context, table string) (types.TableSchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCounts["TableSchema"]++

	if err, exists := m.errors[table]; exists {
		return types.TableSchema{}, err
	}

	schema, ok := m.tables[table]
	if !ok {
		return types.TableSchema{}, fmt.Errorf("table %s does not exist", table)
	}

	return schema, nil
}

// GetCallCount returns the number of times a method was called
func (m *MockInspector) GetCallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callCounts[method]
}

// ErrorInjector provides systematic error injection for testing
type ErrorInjector struct {
	errors map[string]error
	counts map[string]int
	mu     sync.Mutex
}

// NewErrorInjector creates a new error injector
func NewErrorInjector() *ErrorInjector {
	return &ErrorInjector{
		errors: make(map[string]error),
		counts: make(map[string]int),
	}
}

// InjectError configures an error to be returned for a specific key
func (e *ErrorInjector) InjectError(key string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errors[key] = err
}

// InjectErrorAfterN configures an error to be returned after N successful calls
func (e *ErrorInjector) InjectErrorAfterN(key string, n int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errors[fmt.Sprintf("%s:after:%d", key, n)] = err
}

// ShouldError checks if an error should be returned for the given key
func (e *ErrorInjector) ShouldError(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.counts[key]++

	if err, exists := e.errors[key]; exists {
		return err
	}

	prefix := key + ":after:"
	for k, err := range e.errors {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok {
			continue
		}

		var n int
		if _, scanErr := fmt.Sscanf(rest, "%d", &n); scanErr == nil && e.counts[key] > n {
			return err
		}
	}

	return nil
}

// GetCount returns the number of times a key was checked
func (e *ErrorInjector) GetCount(key string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counts[key]
}

// Reset clears all error configurations and counts
func (e *ErrorInjector) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errors = make(map[string]error)
	e.counts = make(map[string]int)
}
