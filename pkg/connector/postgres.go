package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tarsy-labs/sqlagent-core/pkg/models"
)

// PostgresConnector is the production Connector, backed by a pgxpool
// pool the caller owns and closes.
type PostgresConnector struct {
	pool *pgxpool.Pool
}

// NewPostgresConnector wraps an existing pool.
func NewPostgresConnector(pool *pgxpool.Pool) *PostgresConnector {
	return &PostgresConnector{pool: pool}
}

const listTablesSQL = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
ORDER BY table_name`

// ListTables implements Connector.
func (c *PostgresConnector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := c.pool.Query(ctx, listTablesSQL)
	if err != nil {
		return nil, fmt.Errorf("connector: list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("connector: scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

const describeTableSQL = `
SELECT c.column_name, c.data_type, c.is_nullable = 'YES',
       COALESCE(col_description(format('%I.%I', c.table_schema, c.table_name)::regclass::oid, c.ordinal_position), '')
FROM information_schema.columns c
WHERE c.table_schema = 'public' AND c.table_name = $1
ORDER BY c.ordinal_position`

// DescribeTable implements Connector.
func (c *PostgresConnector) DescribeTable(ctx context.Context, table string) (*models.TableDef, error) {
	rows, err := c.pool.Query(ctx, describeTableSQL, table)
	if err != nil {
		return nil, fmt.Errorf("connector: describe table %s: %w", table, err)
	}
	defer rows.Close()

	def := &models.TableDef{Name: table}
	for rows.Next() {
		var col models.ColumnDef
		if err := rows.Scan(&col.Name, &col.DataType, &col.Nullable, &col.Comment); err != nil {
			return nil, fmt.Errorf("connector: scan column for %s: %w", table, err)
		}
		def.Columns = append(def.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(def.Columns) == 0 {
		return nil, ErrTableNotFound
	}
	return def, nil
}

// Execute implements Connector. The statement runs under whichever of
// ctx's deadline or timeout elapses first.
func (c *PostgresConnector) Execute(ctx context.Context, sql string, timeout time.Duration) (*models.Table, error) {
	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rows, err := c.pool.Query(qctx, sql)
	if err != nil {
		return nil, fmt.Errorf("connector: execute: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = string(f.Name)
	}

	table := &models.Table{Columns: columns}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("connector: scan row: %w", err)
		}
		table.Rows = append(table.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return table, nil
}
