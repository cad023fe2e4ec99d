package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Kurukshetran/nl2sql/internal/config"
)

const pingTimeout = 5 * time.Second

// DBConfig holds connection pool settings for the target database
type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ConfigFromSettings builds a DBConfig from application settings
func ConfigFromSettings(settings config.DatabaseConfig) DBConfig {
	lifetime, err := time.ParseDuration(settings.ConnMaxLifetime)
	if err != nil {
		lifetime = 0
	}

	return DBConfig{
		DSN:             settings.URL,
		MaxOpenConns:    settings.MaxConnections,
		MaxIdleConns:    settings.MaxIdleConns,
		ConnMaxLifetime: lifetime,
	}
}

// Open connects to the target Postgres database through the pgx driver
func Open(ctx context.Context, cfg DBConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}
