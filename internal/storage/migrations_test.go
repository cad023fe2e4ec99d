package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/marcboeker/go-duckdb"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("duckdb", filepath.Join(t.TempDir(), "migrations.duckdb"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestMigrateUp(t *testing.T) {
	db := openTestDB(t)
	manager := NewMigrationManager(db)
	ctx := context.Background()

	require.NoError(t, manager.MigrateUp(ctx))

	applied, err := manager.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, applied)

	var columnCount int
	err = db.QueryRow(`
		SELECT COUNT(*) FROM information_schema.columns
		WHERE table_name = 'table_embeddings' AND column_name IN ('embedding', 'schema_json', 'dimensions')
	`).Scan(&columnCount)
	require.NoError(t, err)
	assert.Equal(t, 3, columnCount)

	// Running again is a no-op.
	require.NoError(t, manager.MigrateUp(ctx))
}

func TestApplyMigrationTwice(t *testing.T) {
	db := openTestDB(t)
	manager := NewMigrationManager(db)
	ctx := context.Background()

	require.NoError(t, manager.MigrateUp(ctx))

	err := manager.ApplyMigration(ctx, manager.GetMigrations()[0])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already applied")
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	manager := NewMigrationManager(db)
	ctx := context.Background()

	require.NoError(t, manager.MigrateUp(ctx))
	require.NoError(t, manager.MigrateDown(ctx, 1))

	status, err := manager.GetMigrationStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status[1].Applied)
	assert.False(t, status[1].AppliedAt.IsZero())
	assert.False(t, status[2].Applied)
	assert.True(t, status[2].AppliedAt.IsZero())

	var exists bool
	err = db.QueryRow(`
		SELECT COUNT(*) > 0 FROM information_schema.tables WHERE table_name = 'digest_runs'
	`).Scan(&exists)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRollbackUnappliedMigration(t *testing.T) {
	db := openTestDB(t)
	manager := NewMigrationManager(db)
	ctx := context.Background()

	require.NoError(t, manager.InitializeMigrationTable(ctx))

	err := manager.RollbackMigration(ctx, manager.GetMigrations()[1])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not applied")
}
