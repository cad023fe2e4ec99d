package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/Kurukshetran/nl2sql/internal/cache"
	"github.com/Kurukshetran/nl2sql/internal/errors"
	"github.com/Kurukshetran/nl2sql/internal/formatter"
	"github.com/Kurukshetran/nl2sql/internal/schema"
	"github.com/Kurukshetran/nl2sql/internal/storage"
)

func SchemaCommand() *cli.Command {
	return &cli.Command{
		Name:        "schema",
		Usage:       "Show the digested schema",
		Description: `List the tables recorded by the last digest with their descriptions, columns and relationships. Pass a table name to show only that table.`,
		ArgsUsage:   " [table]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() > 1 {
				return fmt.Errorf("expected at most 1 argument, got %d", args.Len())
			}

			ctx, rt, err := newRuntime(ctx, cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			schemaCache, err := openSchemaCache(rt.cfg)
			if err != nil {
				return err
			}

			var (
				last  *storage.DigestRun
				index TableLister
			)

			if _, statErr := os.Stat(rt.cfg.Cache.IndexPath); statErr == nil {
				store, err := openIndex(ctx, rt.cfg, rt.log())
				if err != nil {
					return err
				}
				defer store.Close()

				last, err = store.LastDigestRun(ctx)
				if err != nil {
					return err
				}

				index = store
			}

			return runSchema(ctx, schemaCache, index, last, args.First(), os.Stdout)
		},
	}
}

// TableLister reads the tables held by the embedding index
type TableLister interface {
	ListTables(ctx context.Context) ([]storage.TableDocument, error)
}

// runSchema prints the cached enriched schema. Without a cached schema it
// falls back to the tables stored in index, which may be nil.
func runSchema(
	ctx context.Context,
	store cache.Cache,
	index TableLister,
	last *storage.DigestRun,
	table string,
	out io.Writer,
) error {
	enriched, err := schema.LoadEnriched(ctx, store)
	if err != nil {
		if index == nil || !errors.IsType(err, errors.ErrTypeNotFound) {
			return err
		}

		docs, listErr := index.ListTables(ctx)
		if listErr != nil {
			return errors.Wrap(listErr, errors.ErrTypeDatabase, "failed to list indexed tables")
		}

		if len(docs) == 0 {
			return err
		}

		enriched = storage.EnrichedFromDocuments(docs)
	}

	f := formatter.NewFormatter()

	rendered, err := f.FormatSchema(enriched, table)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, rendered)

	if last != nil && table == "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, f.FormatLastDigest(last.StartedAt, last.TableCount))
	}

	return nil
}
