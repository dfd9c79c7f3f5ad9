package connector

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// TestPostgresConnectorAgainstRealDatabase exercises ListTables,
// DescribeTable, and Execute against a throwaway container. Skipped
// under -short since it pulls and starts a real Postgres image.
func TestPostgresConnectorAgainstRealDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers integration test in -short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("sqlagent_test"),
		postgres.WithUsername("sqlagent"),
		postgres.WithPassword("sqlagent"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	defer pool.Close()

	const setup = `CREATE TABLE users (id serial PRIMARY KEY, name text NOT NULL, email text)`
	if _, err := pool.Exec(ctx, setup); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := pool.Exec(ctx, `COMMENT ON COLUMN users.email IS 'contact address'`); err != nil {
		t.Fatalf("set column comment: %v", err)
	}
	if _, err := pool.Exec(ctx, `INSERT INTO users (name, email) VALUES ('ada', 'ada@example.com')`); err != nil {
		t.Fatalf("seed row: %v", err)
	}

	c := NewPostgresConnector(pool)

	tables, err := c.ListTables(ctx)
	if err != nil {
		t.Fatalf("list tables: %v", err)
	}
	if len(tables) != 1 || tables[0] != "users" {
		t.Fatalf("unexpected tables: %v", tables)
	}

	def, err := c.DescribeTable(ctx, "users")
	if err != nil {
		t.Fatalf("describe table: %v", err)
	}
	if len(def.Columns) != 3 || def.Columns[0].Name != "id" {
		t.Fatalf("unexpected columns: %+v", def.Columns)
	}
	if def.Columns[2].Name != "email" || def.Columns[2].Comment != "contact address" {
		t.Fatalf("expected email column comment to round-trip, got: %+v", def.Columns[2])
	}
	if def.Columns[1].Comment != "" {
		t.Fatalf("expected name column to have no comment, got: %q", def.Columns[1].Comment)
	}

	result, err := c.Execute(ctx, "SELECT name, email FROM users ORDER BY id", 5*time.Second)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0][0] != "ada" {
		t.Fatalf("unexpected result: %+v", result.Rows)
	}

	if _, err := c.DescribeTable(ctx, "missing"); err != ErrTableNotFound {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}
}
