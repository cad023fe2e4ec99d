package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/Kurukshetran/nl2sql/internal/config"
	"github.com/Kurukshetran/nl2sql/internal/errors"
)

func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:        "config",
		Usage:       "Display the active configuration",
		Description: `Show the current active configuration including all settings from file, environment variables, and command-line flags. Secrets are masked.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, rt, err := newRuntime(ctx, cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			return RunConfigWithConfig(getConfigFromContext(ctx), os.Stdout)
		},
	}
}

// RunConfigWithConfig prints cfg to w with credentials masked
func RunConfigWithConfig(cfg *config.Config, w io.Writer) error {
	if cfg == nil {
		return errors.NewConfigError("failed to load configuration", "")
	}

	apiKey := "(not set)"
	if cfg.LLM.APIKey != "" {
		apiKey = "(set)"
	}

	databaseURL := cfg.RedactedDatabaseURL()
	if databaseURL == "" {
		databaseURL = "(not set)"
	}

	fmt.Fprintln(w, "====================")
	fmt.Fprintln(w, "Active Configuration:")

	fmt.Fprintln(w, "\nDatabase:")
	fmt.Fprintf(w, "  URL: %s\n", databaseURL)
	fmt.Fprintf(w, "  Schema: %s\n", cfg.Database.Schema)
	fmt.Fprintf(w, "  Max Connections: %d\n", cfg.Database.MaxConnections)
	fmt.Fprintf(w, "  Query Timeout: %s\n", cfg.Database.QueryTimeout)

	fmt.Fprintln(w, "\nLLM:")
	fmt.Fprintf(w, "  Provider: %s\n", cfg.LLM.Provider)
	fmt.Fprintf(w, "  Model: %s\n", cfg.LLM.Model)
	fmt.Fprintf(w, "  Enrichment Model: %s\n", cfg.LLM.EnrichmentModel)
	fmt.Fprintf(w, "  API Key: %s\n", apiKey)

	if cfg.LLM.BaseURL != "" {
		fmt.Fprintf(w, "  Base URL: %s\n", cfg.LLM.BaseURL)
	}

	fmt.Fprintf(w, "  Timeout: %s\n", cfg.LLM.Timeout)

	fmt.Fprintln(w, "\nEmbedding:")
	fmt.Fprintf(w, "  Provider: %s\n", cfg.Embedding.Provider)
	fmt.Fprintf(w, "  Model: %s\n", cfg.Embedding.Model)
	fmt.Fprintf(w, "  Dimensions: %d\n", cfg.Embedding.Dimensions)

	fmt.Fprintln(w, "\nPipeline:")
	fmt.Fprintf(w, "  Max Tokens: %d\n", cfg.Pipeline.MaxTokens)
	fmt.Fprintf(w, "  Tokens Per Table: %d\n", cfg.Pipeline.TokensPerTable)
	fmt.Fprintf(w, "  Top K: %d\n", cfg.Pipeline.TopK)
	fmt.Fprintf(w, "  Max Rows: %d\n", cfg.Pipeline.MaxRows)

	fmt.Fprintln(w, "\nCache:")
	fmt.Fprintf(w, "  Directory: %s\n", cfg.Cache.Directory)
	fmt.Fprintf(w, "  Index: %s\n", cfg.Cache.IndexPath)
	fmt.Fprintf(w, "  Ignore File: %s\n", cfg.Cache.IgnoreFile)

	fmt.Fprintln(w, "\nLogging:")
	fmt.Fprintf(w, "  Level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(w, "  Format: %s\n", cfg.Logging.Format)
	fmt.Fprintf(w, "  Output: %s\n", cfg.Logging.Output)

	if cfg.Logging.Output == "file" {
		fmt.Fprintf(w, "  File: %s\n", cfg.Logging.File)
	}

	fmt.Fprintf(w, "  Add Source: %t\n", cfg.Logging.AddSource)

	fmt.Fprintln(w, "\nDebug:")
	fmt.Fprintf(w, "  Enabled: %t\n", cfg.Debug.Enabled)
	fmt.Fprintf(w, "  Verbose: %t\n", cfg.Debug.Verbose)

	if cfg.Debug.MetricsAddr != "" {
		fmt.Fprintf(w, "  Metrics Address: %s\n", cfg.Debug.MetricsAddr)
	}

	// Show raw JSON if debug is enabled
	if cfg.Debug.Enabled {
		fmt.Fprintln(w, "\nRaw Configuration (JSON):")
		fmt.Fprintln(w, "==========================")

		redacted := *cfg
		redacted.Database.URL = cfg.RedactedDatabaseURL()

		jsonData, err := json.MarshalIndent(redacted, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}

		fmt.Fprintln(w, string(jsonData))
	}

	return nil
}
