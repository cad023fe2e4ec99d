package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kurukshetran/nl2sql/internal/assistant"
	"github.com/Kurukshetran/nl2sql/internal/database"
	"github.com/Kurukshetran/nl2sql/internal/errors"
	"github.com/Kurukshetran/nl2sql/internal/formatter"
	"github.com/Kurukshetran/nl2sql/internal/testutil"
)

type fakeAsker struct {
	answer  *assistant.Answer
	err     error
	gotOpts int
}

func (a *fakeAsker) Ask(_ context.Context, _ string, opts ...assistant.AskOption) (*assistant.Answer, error) {
	a.gotOpts = len(opts)
	return a.answer, a.err
}

func TestRunAsk(t *testing.T) {
	asker := &fakeAsker{answer: &assistant.Answer{
		Question:   testutil.TestQuestion,
		SQL:        `SELECT name FROM "Customers" LIMIT 5`,
		Candidates: testutil.ShopCandidates(),
		Result: &database.Result{
			Columns: []string{"name"},
			Rows:    [][]any{{"Ada"}},
		},
	}}

	var out bytes.Buffer
	err := runAsk(context.Background(), asker, testutil.TestQuestion, askOptions{format: formatter.FormatTable}, &out)
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "Generated SQL:\nSELECT name FROM \"Customers\" LIMIT 5\n")
	assert.Contains(t, output, "name\n----\nAda\n")
	assert.Contains(t, output, "(1 row)")
	assert.NotContains(t, output, "Candidate tables:")
	assert.Zero(t, asker.gotOpts)
}

func TestRunAsk_VerboseDryRun(t *testing.T) {
	asker := &fakeAsker{answer: &assistant.Answer{
		SQL:        `SELECT * FROM "Orders"`,
		Candidates: testutil.ShopCandidates()[:2],
	}}

	var out bytes.Buffer
	err := runAsk(context.Background(), asker, testutil.TestQuestion, askOptions{
		topK:    5,
		dryRun:  true,
		verbose: true,
		format:  formatter.FormatTable,
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, "Candidate tables:\n"+
		"  Customers (0.900)\n"+
		"  Orders (0.850)\n"+
		"\n"+
		"Generated SQL:\nSELECT * FROM \"Orders\"\n", out.String())
	assert.Equal(t, 2, asker.gotOpts)
}

func TestRunAsk_ExecutionFailureShowsSQL(t *testing.T) {
	asker := &fakeAsker{
		answer: &assistant.Answer{SQL: `SELECT * FROM "Missing"`},
		err:    errors.New(errors.ErrTypeExecution, "relation does not exist"),
	}

	var out bytes.Buffer
	err := runAsk(context.Background(), asker, testutil.TestQuestion, askOptions{}, &out)

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeExecution))
	assert.Contains(t, out.String(), `SELECT * FROM "Missing"`)
}

func TestRunAsk_NoSQL(t *testing.T) {
	asker := &fakeAsker{
		answer: &assistant.Answer{},
		err:    errors.NewNoRelevantTablesError(testutil.TestQuestion),
	}

	var out bytes.Buffer
	err := runAsk(context.Background(), asker, testutil.TestQuestion, askOptions{}, &out)

	require.Error(t, err)
	assert.Equal(t, errors.ErrTypeNoRelevantTables, errors.GetType(err))
	assert.Empty(t, out.String())
}

func TestRunAsk_JSON(t *testing.T) {
	asker := &fakeAsker{answer: &assistant.Answer{
		SQL:    "SELECT 1 AS one",
		Result: &database.Result{Columns: []string{"one"}, Rows: [][]any{{1}}},
	}}

	var out bytes.Buffer
	err := runAsk(context.Background(), asker, "q", askOptions{format: formatter.FormatJSON}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"one": 1`)
}
