package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Kurukshetran/nl2sql/internal/logging"
	"github.com/Kurukshetran/nl2sql/internal/types"
)

// DefaultSchema is the Postgres schema inspected when none is configured
const DefaultSchema = "public"

const listTablesQuery = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = $1 AND table_type = 'BASE TABLE'
ORDER BY table_name`

const listColumnsQuery = `
SELECT column_name, data_type, is_nullable, column_default
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`

const primaryKeyQuery = `
SELECT kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_schema = tc.constraint_schema
 AND kcu.constraint_name = tc.constraint_name
WHERE tc.constraint_type = 'PRIMARY KEY'
  AND tc.table_schema = $1
  AND tc.table_name = $2
ORDER BY kcu.ordinal_position`

// foreignKeysQuery pairs conkey and confkey positionally. Constraint names
// are only unique per table, so rows are keyed on the owning relation.
const foreignKeysQuery = `
SELECT c.conname, a.attname, rt.relname, ra.attname
FROM pg_constraint c
JOIN pg_class t ON t.oid = c.conrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
JOIN pg_class rt ON rt.oid = c.confrelid
JOIN LATERAL unnest(c.conkey, c.confkey) WITH ORDINALITY AS k(attnum, refattnum, ord) ON true
JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = k.attnum
JOIN pg_attribute ra ON ra.attrelid = c.confrelid AND ra.attnum = k.refattnum
WHERE c.contype = 'f' AND n.nspname = $1 AND t.relname = $2
ORDER BY c.conname, k.ord`

const indexesQuery = `
SELECT i.relname, ix.indisunique, pg_get_indexdef(ix.indexrelid), a.attname
FROM pg_index ix
JOIN pg_class t ON t.oid = ix.indrelid
JOIN pg_class i ON i.oid = ix.indexrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord) ON true
JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
WHERE n.nspname = $1 AND t.relname = $2 AND NOT ix.indisprimary
ORDER BY i.relname, k.ord`

// Inspector reads table structure from the Postgres catalogs
type Inspector struct {
	db     *sql.DB
	schema string
	logger *slog.Logger
}

// NewInspector creates an Inspector for the given Postgres schema
func NewInspector(db *sql.DB, schema string, logger *slog.Logger) *Inspector {
	if schema == "" {
		schema = DefaultSchema
	}

	return &Inspector{db: db, schema: schema, logger: logging.OrDefault(logger)}
}

// TableNames lists base tables with the case reported by the catalog
func (i *Inspector) TableNames(ctx context.Context) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, listTablesQuery, i.schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	return names, nil
}

// TableSchema returns the columns, keys and indexes of one table
func (i *Inspector) TableSchema(ctx context.Context, table string) (types.TableSchema, error) {
	var schema types.TableSchema

	pk, err := i.primaryKey(ctx, table)
	if err != nil {
		return schema, err
	}

	columns, err := i.columns(ctx, table, pk)
	if err != nil {
		return schema, err
	}

	fks, err := i.foreignKeys(ctx, table)
	if err != nil {
		return schema, err
	}

	indexes, err := i.indexes(ctx, table)
	if err != nil {
		return schema, err
	}

	schema.Columns = columns
	schema.PrimaryKey = pk
	schema.ForeignKeys = fks
	schema.Indexes = indexes

	i.logger.DebugContext(ctx, "Inspected table",
		slog.String("table", table),
		slog.Int("columns", len(columns)),
		slog.Int("foreign_keys", len(fks)),
	)

	return schema, nil
}

func (i *Inspector) primaryKey(ctx context.Context, table string) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, primaryKeyQuery, i.schema, table)
	if err != nil {
		return nil, fmt.Errorf("primary key of %s: %w", table, err)
	}
	defer rows.Close()

	pk := []string{}
	for rows.Next() {
		var column string
		if err := rows.Scan(&column); err != nil {
			return nil, fmt.Errorf("scan primary key of %s: %w", table, err)
		}
		pk = append(pk, column)
	}

	return pk, rows.Err()
}

func (i *Inspector) columns(ctx context.Context, table string, pk []string) ([]types.Column, error) {
	rows, err := i.db.QueryContext(ctx, listColumnsQuery, i.schema, table)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	defer rows.Close()

	inPK := make(map[string]bool, len(pk))
	for _, c := range pk {
		inPK[c] = true
	}

	var columns []types.Column
	for rows.Next() {
		var (
			name, dataType, nullable string
			def                      sql.NullString
		)
		if err := rows.Scan(&name, &dataType, &nullable, &def); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}

		col := types.Column{
			Name:       name,
			Type:       dataType,
			Nullable:   nullable == "YES",
			PrimaryKey: inPK[name],
		}
		if def.Valid {
			value := def.String
			col.Default = &value
		}

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

func (i *Inspector) foreignKeys(ctx context.Context, table string) ([]types.ForeignKey, error) {
	rows, err := i.db.QueryContext(ctx, foreignKeysQuery, i.schema, table)
	if err != nil {
		return nil, fmt.Errorf("foreign keys of %s: %w", table, err)
	}
	defer rows.Close()

	fks := []types.ForeignKey{}
	for rows.Next() {
		var name, column, referredTable, referredColumn string
		if err := rows.Scan(&name, &column, &referredTable, &referredColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key of %s: %w", table, err)
		}

		// Rows of one constraint arrive together.
		if n := len(fks); n > 0 && fks[n-1].Name == name {
			fks[n-1].ConstrainedColumns = append(fks[n-1].ConstrainedColumns, column)
			fks[n-1].ReferredColumns = append(fks[n-1].ReferredColumns, referredColumn)
			continue
		}

		fks = append(fks, types.ForeignKey{
			Name:               name,
			ConstrainedColumns: []string{column},
			ReferredTable:      referredTable,
			ReferredColumns:    []string{referredColumn},
		})
	}

	return fks, rows.Err()
}

func (i *Inspector) indexes(ctx context.Context, table string) ([]types.Index, error) {
	rows, err := i.db.QueryContext(ctx, indexesQuery, i.schema, table)
	if err != nil {
		return nil, fmt.Errorf("indexes of %s: %w", table, err)
	}
	defer rows.Close()

	indexes := []types.Index{}
	for rows.Next() {
		var (
			name, definition, column string
			unique                   bool
		)
		if err := rows.Scan(&name, &unique, &definition, &column); err != nil {
			return nil, fmt.Errorf("scan index of %s: %w", table, err)
		}

		if n := len(indexes); n > 0 && indexes[n-1].Name == name {
			indexes[n-1].Columns = append(indexes[n-1].Columns, column)
			continue
		}

		indexes = append(indexes, types.Index{
			Name:       name,
			Columns:    []string{column},
			Unique:     unique,
			Definition: definition,
		})
	}

	return indexes, rows.Err()
}
