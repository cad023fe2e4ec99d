package cmd

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/Kurukshetran/nl2sql/internal/cache"
	"github.com/Kurukshetran/nl2sql/internal/config"
	"github.com/Kurukshetran/nl2sql/internal/database"
	"github.com/Kurukshetran/nl2sql/internal/embedding"
	"github.com/Kurukshetran/nl2sql/internal/errors"
	"github.com/Kurukshetran/nl2sql/internal/llm"
	"github.com/Kurukshetran/nl2sql/internal/logging"
	"github.com/Kurukshetran/nl2sql/internal/observability"
	"github.com/Kurukshetran/nl2sql/internal/storage"
)

const shutdownTimeout = 5 * time.Second

// runtime holds the process-wide state a command runs with
type runtime struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *observability.MetricsServer
}

// newRuntime loads configuration, installs the logger and starts the
// metrics server when an address is configured
func newRuntime(ctx context.Context, cmd *cli.Command) (context.Context, *runtime, error) {
	cfg, err := config.LoadConfigWithOverrides(flagOverrides(cmd))
	if err != nil {
		return ctx, nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to load configuration").
			WithSuggestion("Check NL2SQL_* environment variables and the config file")
	}

	cfg.ExpandAllPaths()

	if err := cfg.EnsureDirectories(); err != nil {
		return ctx, nil, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to create cache directories")
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return ctx, nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to initialize logging")
	}
	logger.Install()

	rt := &runtime{cfg: cfg, logger: logger}

	if cfg.Debug.MetricsAddr != "" {
		rt.metrics, err = observability.StartMetricsServer(cfg.Debug.MetricsAddr, logger.Logger)
		if err != nil {
			_ = logger.Close()
			return ctx, nil, errors.Wrap(err, errors.ErrTypeNetwork, "failed to start metrics server")
		}
	}

	return withConfig(ctx, cfg), rt, nil
}

// Close stops the metrics server and closes the log file
func (r *runtime) Close() {
	if r.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := r.metrics.Shutdown(ctx); err != nil {
			r.logger.Warn("Metrics server shutdown failed", slog.Any("error", err))
		}
	}

	_ = r.logger.Close()
}

func (r *runtime) log() *slog.Logger {
	return r.logger.Logger
}

func openIndex(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage.DuckDBStore, error) {
	store, err := storage.NewDuckDBStoreFromConfig(&cfg.Cache)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to open embedding index")
	}

	store = store.WithLogger(logger)

	if err := store.Initialize(ctx); err != nil {
		_ = store.Close()
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to migrate embedding index")
	}

	return store, nil
}

func openSchemaCache(cfg *config.Config) (*cache.FileCache, error) {
	store, err := cache.NewFileCache(cfg.Cache.Directory)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to open schema cache")
	}

	return store, nil
}

func openTargetDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, errors.NewConfigError(err.Error(), "DATABASE_URL")
	}

	db, err := database.Open(ctx, database.ConfigFromSettings(cfg.Database))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to connect to "+cfg.RedactedDatabaseURL()).
			WithSuggestion("Check that DATABASE_URL points at a reachable PostgreSQL server")
	}

	return db, nil
}

func newCompletionClient(cfg *config.Config, settings llm.Config) (*llm.Client, error) {
	if err := cfg.RequireLLM(); err != nil {
		return nil, errors.NewConfigError(err.Error(), "OPENAI_API_KEY")
	}

	client, err := llm.NewConfiguredClient(settings)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to configure completion client")
	}

	return client, nil
}

func newEmbeddingManager(cfg *config.Config, index embedding.Index, logger *slog.Logger) (*embedding.Manager, error) {
	provider, err := embedding.NewProvider(embedding.ConfigFromSettings(cfg.Embedding, cfg.LLM.APIKey))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to configure embedding provider")
	}

	manager := embedding.NewManager(provider, index, logger)
	if !manager.IsEnabled() {
		return nil, errors.New(errors.ErrTypeConfig, "embedding provider is disabled").
			WithSuggestion("Set OPENAI_API_KEY and NL2SQL_EMBEDDING_PROVIDER=openai")
	}

	return manager, nil
}
