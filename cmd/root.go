package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/Kurukshetran/nl2sql/internal/config"
	"github.com/Kurukshetran/nl2sql/internal/errors"
)

var version = "dev"

var (
	globalStringFlags = []string{"log-level", "log-format", "cache-dir", "ignore-file", "metrics-addr"}
	globalBoolFlags   = []string{"verbose", "debug"}
)

// NewApp builds the nl2sql command tree
func NewApp() *cli.Command {
	return &cli.Command{
		Name:    "nl2sql",
		Usage:   "Ask questions of a PostgreSQL database in natural language",
		Version: version,
		Description: `nl2sql inspects a PostgreSQL schema, describes every table with a language
model and indexes the descriptions as embeddings. Questions are answered by finding
the most similar tables, generating SQL over them and running it.

Run 'nl2sql digest' once per schema change, then 'nl2sql ask "<question>"'.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Usage: "Log level: debug, info, warn, error"},
			&cli.StringFlag{Name: "log-format", Usage: "Log format: text or json"},
			&cli.BoolFlag{Name: "verbose", Usage: "Show candidate tables and timings"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
			&cli.StringFlag{Name: "cache-dir", Usage: "Directory for the enriched schema cache"},
			&cli.StringFlag{Name: "ignore-file", Usage: "Path of the table ignore file"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "Serve Prometheus metrics on this address while running"},
		},
		Commands: []*cli.Command{
			DigestCommand(),
			AskCommand(),
			SchemaCommand(),
			ConfigCommand(),
		},
	}
}

// Execute runs the CLI with the process arguments
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewApp().Run(ctx, os.Args)
	if err != nil {
		printError(os.Stderr, err)
	}

	return err
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	suggestions := errors.SuggestionsFor(err)
	if len(suggestions) == 0 {
		return
	}

	fmt.Fprintln(w, "\nSuggestions:")

	for _, s := range suggestions {
		fmt.Fprintf(w, "  - %s\n", s)
	}
}

// flagOverrides collects the global flags given on the command line
func flagOverrides(cmd *cli.Command) map[string]any {
	overrides := make(map[string]any)

	for _, name := range globalStringFlags {
		if cmd.IsSet(name) {
			overrides[name] = cmd.String(name)
		}
	}

	for _, name := range globalBoolFlags {
		if cmd.IsSet(name) {
			overrides[name] = cmd.Bool(name)
		}
	}

	return overrides
}

type configKey struct{}

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func getConfigFromContext(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(configKey{}).(*config.Config)
	return cfg
}
