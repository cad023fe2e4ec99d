package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// Migration is one versioned change to the index schema
type Migration struct {
	Version     int
	Description string
	Up          string
	Down        string
}

// MigrationStatus reports whether a migration has been applied to the index
type MigrationStatus struct {
	Version     int       `json:"version"`
	Description string    `json:"description"`
	Applied     bool      `json:"applied"`
	AppliedAt   time.Time `json:"applied_at,omitempty"`
}

var indexMigrations = []Migration{
	{
		Version:     1,
		Description: "Create table embeddings",
		Up: `
			CREATE TABLE IF NOT EXISTS table_embeddings (
				id VARCHAR PRIMARY KEY,
				table_name VARCHAR NOT NULL,
				description TEXT,
				document TEXT,
				schema_json TEXT,
				embedding FLOAT[],
				dimensions INTEGER,
				indexed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);`,
		Down: `DROP TABLE IF EXISTS table_embeddings;`,
	},
	{
		Version:     2,
		Description: "Record digest runs",
		Up: `
			CREATE TABLE IF NOT EXISTS digest_runs (
				id VARCHAR PRIMARY KEY,
				database_url VARCHAR,
				table_count INTEGER,
				ignored_patterns TEXT,
				started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);`,
		Down: `DROP TABLE IF EXISTS digest_runs;`,
	},
}

const createMigrationTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	description VARCHAR NOT NULL,
	applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

// MigrationManager applies and rolls back index migrations
type MigrationManager struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewMigrationManager creates a new migration manager
func NewMigrationManager(db *sql.DB) *MigrationManager {
	return &MigrationManager{db: db, logger: slog.Default()}
}

// WithLogger sets the logger used to report applied migrations
func (m *MigrationManager) WithLogger(logger *slog.Logger) *MigrationManager {
	if logger != nil {
		m.logger = logger
	}

	return m
}

// GetMigrations returns every known migration, oldest first
func (m *MigrationManager) GetMigrations() []Migration {
	return slices.Clone(indexMigrations)
}

// InitializeMigrationTable creates the migration tracking table
func (m *MigrationManager) InitializeMigrationTable(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, createMigrationTable); err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	return nil
}

// appliedAt maps each applied version to the time it was applied
func (m *MigrationManager) appliedAt(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)

	for rows.Next() {
		var (
			version int
			at      sql.NullTime
		)

		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}

		applied[version] = at.Time
	}

	return applied, rows.Err()
}

// GetAppliedMigrations returns the applied versions in ascending order
func (m *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]int, error) {
	applied, err := m.appliedAt(ctx)
	if err != nil {
		return nil, err
	}

	versions := make([]int, 0, len(applied))
	for version := range applied {
		versions = append(versions, version)
	}

	slices.Sort(versions)

	return versions, nil
}

func (m *MigrationManager) isApplied(ctx context.Context, version int) (bool, error) {
	var count int

	err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}

	return count > 0, nil
}

// inTx runs the migration statement and its bookkeeping in one transaction
func (m *MigrationManager) inTx(ctx context.Context, statement, bookkeeping string, args ...any) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, statement); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, bookkeeping, args...); err != nil {
		return fmt.Errorf("failed to update schema_migrations: %w", err)
	}

	return tx.Commit()
}

// ApplyMigration applies a single migration that has not been applied yet
func (m *MigrationManager) ApplyMigration(ctx context.Context, migration Migration) error {
	applied, err := m.isApplied(ctx, migration.Version)
	if err != nil {
		return err
	}

	if applied {
		return fmt.Errorf("migration %d already applied", migration.Version)
	}

	err = m.inTx(ctx, migration.Up,
		"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
		migration.Version, migration.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
	}

	return nil
}

// RollbackMigration reverts a single applied migration
func (m *MigrationManager) RollbackMigration(ctx context.Context, migration Migration) error {
	applied, err := m.isApplied(ctx, migration.Version)
	if err != nil {
		return err
	}

	if !applied {
		return fmt.Errorf("migration %d not applied", migration.Version)
	}

	err = m.inTx(ctx, migration.Down,
		"DELETE FROM schema_migrations WHERE version = ?",
		migration.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to rollback migration %d: %w", migration.Version, err)
	}

	return nil
}

// MigrateUp applies all pending migrations
func (m *MigrationManager) MigrateUp(ctx context.Context) error {
	if err := m.InitializeMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.appliedAt(ctx)
	if err != nil {
		return err
	}

	for _, migration := range indexMigrations {
		if _, ok := applied[migration.Version]; ok {
			continue
		}

		m.logger.Debug("Applying index migration",
			slog.Int("version", migration.Version),
			slog.String("description", migration.Description),
		)

		if err := m.ApplyMigration(ctx, migration); err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown rolls back every applied migration newer than targetVersion
func (m *MigrationManager) MigrateDown(ctx context.Context, targetVersion int) error {
	versions, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	byVersion := make(map[int]Migration, len(indexMigrations))
	for _, migration := range indexMigrations {
		byVersion[migration.Version] = migration
	}

	for _, version := range slices.Backward(versions) {
		if version <= targetVersion {
			break
		}

		migration, ok := byVersion[version]
		if !ok {
			return fmt.Errorf("migration %d not found", version)
		}

		m.logger.Debug("Rolling back index migration", slog.Int("version", version))

		if err := m.RollbackMigration(ctx, migration); err != nil {
			return err
		}
	}

	return nil
}

// GetMigrationStatus returns the status of every known migration by version
func (m *MigrationManager) GetMigrationStatus(ctx context.Context) (map[int]MigrationStatus, error) {
	if err := m.InitializeMigrationTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.appliedAt(ctx)
	if err != nil {
		return nil, err
	}

	status := make(map[int]MigrationStatus, len(indexMigrations))

	for _, migration := range indexMigrations {
		at, ok := applied[migration.Version]
		status[migration.Version] = MigrationStatus{
			Version:     migration.Version,
			Description: migration.Description,
			Applied:     ok,
			AppliedAt:   at,
		}
	}

	return status, nil
}
