// Package schema implements the Schema Catalog (spec §4.3, C3): the
// cached, deterministically-rendered view of the target database's
// tables that the SQL Agent grounds its generation prompts on.
package schema

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tarsy-labs/sqlagent-core/pkg/cache"
	"github.com/tarsy-labs/sqlagent-core/pkg/connector"
)

// Catalog caches table lists and DDL snapshots over the Cache Layer and
// collapses concurrent refreshes of the same table into one connector
// call via singleflight — the same pattern steveyegge-beads uses to
// collapse concurrent compaction calls, applied here to schema refresh.
type Catalog struct {
	conn connector.Connector
	c    cache.Cache
	ttl  time.Duration
	sf   singleflight.Group
}

// NewCatalog builds a Catalog over a Connector and Cache.
func NewCatalog(conn connector.Connector, c cache.Cache, ttl time.Duration) *Catalog {
	return &Catalog{conn: conn, c: c, ttl: ttl}
}

const tablesListKey = "__tables__"

// Tables returns every table name known to the target database, sorted
// case-insensitively for a stable prompt ordering across refreshes.
func (cat *Catalog) Tables(ctx context.Context) ([]string, error) {
	if raw, ok, err := cat.c.Get(ctx, cache.NamespaceSchema, tablesListKey); err == nil && ok {
		return strings.Split(string(raw), "\n"), nil
	}

	v, err, _ := cat.sf.Do("tables", func() (any, error) {
		names, err := cat.conn.ListTables(ctx)
		if err != nil {
			return nil, fmt.Errorf("schema: list tables: %w", err)
		}
		sort.Slice(names, func(i, j int) bool {
			return strings.ToLower(names[i]) < strings.ToLower(names[j])
		})
		if putErr := cat.c.Put(ctx, cache.NamespaceSchema, tablesListKey, []byte(strings.Join(names, "\n")), cat.ttl); putErr != nil {
			slog.Warn("schema: cache table list failed", "error", putErr)
		}
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// DDL returns the rendered CREATE TABLE statement for one table,
// refreshing from the connector on a cache miss. Only a fully rendered
// snapshot is ever cached, so the catalog never serves a
// partially-written entry. Refresh deletes the cached snapshot before
// any re-describe, so a describe failure after a Refresh surfaces as an
// error; no earlier snapshot is served in its place.
func (cat *Catalog) DDL(ctx context.Context, table string) (string, error) {
	key := cache.SchemaKey(table)
	if raw, ok, err := cat.c.Get(ctx, cache.NamespaceSchema, key); err == nil && ok {
		return string(raw), nil
	}

	v, err, _ := cat.sf.Do("ddl:"+table, func() (any, error) {
		ddl, refreshErr := cat.buildDDL(ctx, table)
		if refreshErr != nil {
			return "", refreshErr
		}
		if putErr := cat.c.Put(ctx, cache.NamespaceSchema, key, []byte(ddl), cat.ttl); putErr != nil {
			slog.Warn("schema: cache DDL failed", "table", table, "error", putErr)
		}
		return ddl, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (cat *Catalog) buildDDL(ctx context.Context, table string) (string, error) {
	def, err := cat.conn.DescribeTable(ctx, table)
	if err != nil {
		return "", fmt.Errorf("schema: describe %s: %w", table, err)
	}
	return renderDDL(def), nil
}

// Refresh invalidates the DDL snapshot for table, forcing the next DDL
// call to re-describe it from the connector.
func (cat *Catalog) Refresh(ctx context.Context, table string) error {
	return cat.c.Invalidate(ctx, cache.NamespaceSchema, cache.SchemaKey(table))
}

// RefreshAll invalidates the table list and every currently known
// table's DDL — used by the Scheduler's periodic full refresh.
func (cat *Catalog) RefreshAll(ctx context.Context) error {
	names, err := cat.Tables(ctx)
	if err != nil {
		return err
	}
	if err := cat.c.Invalidate(ctx, cache.NamespaceSchema, tablesListKey); err != nil {
		return err
	}
	for _, name := range names {
		if err := cat.Refresh(ctx, name); err != nil {
			return err
		}
	}
	return nil
}
