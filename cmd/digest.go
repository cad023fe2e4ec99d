package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v3"

	"github.com/Kurukshetran/nl2sql/internal/cache"
	"github.com/Kurukshetran/nl2sql/internal/database"
	"github.com/Kurukshetran/nl2sql/internal/errors"
	"github.com/Kurukshetran/nl2sql/internal/formatter"
	"github.com/Kurukshetran/nl2sql/internal/llm"
	"github.com/Kurukshetran/nl2sql/internal/observability"
	"github.com/Kurukshetran/nl2sql/internal/schema"
	"github.com/Kurukshetran/nl2sql/internal/storage"
	"github.com/Kurukshetran/nl2sql/internal/types"
)

func DigestCommand() *cli.Command {
	return &cli.Command{
		Name:  "digest",
		Usage: "Inspect the database schema, describe its tables and build the embedding index",
		Description: `Reads every table of the configured schema that is not excluded by the ignore
file, asks the language model for a description of each and stores the descriptions
as embeddings for similarity search.

The enriched schema is cached; pass --refresh to inspect the database again.
When the ignore file does not exist a default one is created and the command stops
so it can be reviewed first.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "refresh", Usage: "Ignore the cached enriched schema"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, rt, err := newRuntime(ctx, cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			return runDigestCommand(ctx, rt, cmd.Bool("refresh"), os.Stdout)
		},
	}
}

// SchemaLoader produces the enriched schema for a digest
type SchemaLoader interface {
	LoadOrProcess(ctx context.Context, refresh bool) (*types.EnrichedSchema, bool, error)
}

// SchemaIndexer stores enriched tables for similarity search
type SchemaIndexer interface {
	IndexSchema(ctx context.Context, enriched *types.EnrichedSchema) (int, error)
}

// DigestRecorder keeps a history of digest runs
type DigestRecorder interface {
	RecordDigestRun(ctx context.Context, run storage.DigestRun) error
}

// progress reports the current digest step
type progress interface {
	Update(message string)
	Stop()
}

type spinnerProgress struct {
	s *spinner.Spinner
}

func newSpinnerProgress(w io.Writer) *spinnerProgress {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Start()

	return &spinnerProgress{s: s}
}

func (p *spinnerProgress) Update(message string) {
	p.s.Lock()
	p.s.Suffix = " " + message
	p.s.Unlock()
}

func (p *spinnerProgress) Stop() {
	p.s.Stop()
}

type logProgress struct {
	logger *slog.Logger
}

func (p logProgress) Update(message string) {
	p.logger.Info(message)
}

func (p logProgress) Stop() {}

type digestDeps struct {
	loader    SchemaLoader
	indexer   SchemaIndexer
	recorder  DigestRecorder
	ignore    schema.IgnorePatterns
	cachePath string
	indexPath string
	dbURL     string
	progress  progress
}

func runDigestCommand(ctx context.Context, rt *runtime, refresh bool, out io.Writer) error {
	cfg := rt.cfg
	logger := rt.log()

	created, err := schema.CreateDefaultIgnoreFile(cfg.Cache.IgnoreFile)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to create ignore file")
	}

	if created {
		fmt.Fprintf(out, "Created default ignore file at %s\n", cfg.Cache.IgnoreFile)
		fmt.Fprintln(out, "Review the patterns and run 'nl2sql digest' again.")

		return nil
	}

	ignore, err := schema.LoadIgnorePatterns(cfg.Cache.IgnoreFile)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to read ignore file")
	}

	db, err := openTargetDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	client, err := newCompletionClient(cfg, llm.EnrichmentConfig(cfg.LLM))
	if err != nil {
		return err
	}

	schemaCache, err := openSchemaCache(cfg)
	if err != nil {
		return err
	}

	index, err := openIndex(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer index.Close()

	manager, err := newEmbeddingManager(cfg, index, logger)
	if err != nil {
		return err
	}

	inspector := database.NewInspector(db, cfg.Database.Schema, logger)
	enricher := schema.NewEnricher(inspector, client, schemaCache, ignore, cfg.RedactedDatabaseURL(), logger)

	var p progress = logProgress{logger: logger}
	if !cfg.Debug.Verbose && !cfg.Debug.Enabled {
		p = newSpinnerProgress(os.Stderr)
	}

	return runDigest(ctx, digestDeps{
		loader:    enricher,
		indexer:   manager,
		recorder:  index,
		ignore:    ignore,
		cachePath: schemaCache.Path(cache.EnrichedSchemaKey),
		indexPath: index.Path(),
		dbURL:     cfg.RedactedDatabaseURL(),
		progress:  p,
	}, refresh, out)
}

func runDigest(ctx context.Context, deps digestDeps, refresh bool, out io.Writer) error {
	start := time.Now()

	deps.progress.Update("Describing schema tables...")

	enriched, fromCache, err := deps.loader.LoadOrProcess(ctx, refresh)
	if err != nil {
		deps.progress.Stop()
		return err
	}

	if len(enriched.Tables) == 0 {
		deps.progress.Stop()
		return errors.New(errors.ErrTypeNotFound, "no tables left to index").
			WithSuggestion("Check the schema name and the patterns in the ignore file")
	}

	deps.progress.Update(fmt.Sprintf("Embedding %d tables...", len(enriched.Tables)))

	count, err := deps.indexer.IndexSchema(ctx, enriched)
	if err != nil {
		deps.progress.Stop()
		return err
	}

	observability.SetIndexedTables(count)

	if err := deps.recorder.RecordDigestRun(ctx, storage.DigestRun{
		DatabaseURL:     deps.dbURL,
		TableCount:      count,
		IgnoredPatterns: deps.ignore,
		StartedAt:       start.UTC(),
	}); err != nil {
		deps.progress.Stop()
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to record digest run")
	}

	deps.progress.Stop()

	fmt.Fprintln(out, formatter.NewFormatter().FormatDigestSummary(formatter.DigestSummary{
		TablesProcessed: count,
		IgnoredPatterns: deps.ignore,
		FromCache:       fromCache,
		CachePath:       deps.cachePath,
		IndexPath:       deps.indexPath,
		Duration:        time.Since(start),
	}))

	return nil
}
