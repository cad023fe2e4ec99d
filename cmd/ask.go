package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/Kurukshetran/nl2sql/internal/assistant"
	"github.com/Kurukshetran/nl2sql/internal/database"
	"github.com/Kurukshetran/nl2sql/internal/errors"
	"github.com/Kurukshetran/nl2sql/internal/formatter"
	"github.com/Kurukshetran/nl2sql/internal/llm"
	"github.com/Kurukshetran/nl2sql/internal/observability"
	"github.com/Kurukshetran/nl2sql/internal/query"
)

func AskCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a question by generating and running SQL",
		ArgsUsage: " <question>",
		Description: `Finds the tables most similar to the question, generates SQL over them and runs
it against the configured database.

Examples:
  nl2sql ask "list top 5 customers by revenue"
  nl2sql ask --dry-run "how many orders were placed last month"
  nl2sql ask --top-k 8 --max-rows 20 --format json "products never ordered"`,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "top-k", Usage: "Number of similar tables to consider (default from NL2SQL_TOP_K)"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Print the generated SQL without running it"},
			&cli.IntFlag{Name: "max-rows", Usage: "Maximum number of rows to fetch (default from NL2SQL_MAX_ROWS)"},
			&cli.StringFlag{Name: "format", Value: string(formatter.FormatTable), Usage: "Result format: table or json"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			question := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
			if question == "" {
				return errors.New(errors.ErrTypeValidation, "a question is required").
					WithSuggestion(`Run 'nl2sql ask "<question>"'`)
			}

			format, err := formatter.ParseFormat(cmd.String("format"))
			if err != nil {
				return err
			}

			ctx, rt, err := newRuntime(ctx, cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			opts := askOptions{
				topK:    int(cmd.Int("top-k")),
				maxRows: int(cmd.Int("max-rows")),
				dryRun:  cmd.Bool("dry-run"),
				format:  format,
				verbose: rt.cfg.Debug.Verbose,
			}

			return runAskCommand(ctx, rt, question, opts, os.Stdout)
		},
	}
}

type askOptions struct {
	topK    int
	maxRows int
	dryRun  bool
	format  formatter.OutputFormat
	verbose bool
}

// Asker answers a question end to end
type Asker interface {
	Ask(ctx context.Context, question string, opts ...assistant.AskOption) (*assistant.Answer, error)
}

func runAskCommand(ctx context.Context, rt *runtime, question string, opts askOptions, out io.Writer) error {
	cfg := rt.cfg
	logger := rt.log()

	client, err := newCompletionClient(cfg, llm.GenerationConfig(cfg.LLM))
	if err != nil {
		return err
	}

	index, err := openIndex(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer index.Close()

	stats, err := index.GetStats(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to read embedding index")
	}

	if stats.TotalTables == 0 {
		return errors.New(errors.ErrTypeNotFound, "the embedding index is empty").
			WithSuggestion("Run 'nl2sql digest' to index the database schema")
	}

	observability.SetIndexedTables(stats.TotalTables)

	manager, err := newEmbeddingManager(cfg, index, logger)
	if err != nil {
		return err
	}

	planner := query.NewPlanner(cfg.Pipeline.MaxTokens, cfg.Pipeline.TokensPerTable)
	processor := query.NewProcessor(client, planner, logger)

	var executor assistant.QueryExecutor

	if !opts.dryRun {
		db, err := openTargetDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		maxRows := cfg.Pipeline.MaxRows
		if opts.maxRows > 0 {
			maxRows = opts.maxRows
		}

		executor = database.NewExecutor(db, cfg.QueryTimeout(), maxRows, logger)
	}

	a := assistant.New(manager, processor, executor, cfg.Pipeline.TopK, logger)

	return runAsk(ctx, a, question, opts, out)
}

func runAsk(ctx context.Context, asker Asker, question string, opts askOptions, out io.Writer) error {
	var askOpts []assistant.AskOption
	if opts.topK > 0 {
		askOpts = append(askOpts, assistant.WithTopK(opts.topK))
	}
	if opts.dryRun {
		askOpts = append(askOpts, assistant.DryRun())
	}

	f := formatter.NewFormatter()

	answer, err := asker.Ask(ctx, question, askOpts...)

	if answer != nil && opts.verbose && len(answer.Candidates) > 0 {
		fmt.Fprintln(out, "Candidate tables:")
		for _, c := range answer.Candidates {
			fmt.Fprintf(out, "  %s (%.3f)\n", c.TableName, c.SimilarityScore)
		}
		fmt.Fprintln(out)
	}

	if answer != nil && answer.SQL != "" {
		fmt.Fprintln(out, f.FormatSQL(answer.SQL))
	}

	if err != nil {
		if answer != nil && answer.SQL != "" {
			fmt.Fprintln(out)
		}

		return err
	}

	if !answer.Executed() {
		return nil
	}

	rendered, err := f.FormatResult(answer.Result, opts.format)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, rendered)

	return nil
}
