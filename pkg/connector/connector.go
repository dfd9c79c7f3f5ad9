// Package connector is the Database Connector (spec §4.4): the only
// component in the core that ever touches the target, caller-owned SQL
// database. It is read-only by contract — it introspects the target's
// catalog but never migrates or writes to it, unlike pkg/models which
// owns no schema of its own.
package connector

import (
	"context"
	"time"

	"github.com/tarsy-labs/sqlagent-core/pkg/models"
)

// Connector is the narrow surface the Schema Catalog and SQL Agent
// depend on. A production Connector (PostgresConnector) and a
// deterministic test double both implement it.
type Connector interface {
	// ListTables returns every base table name visible to the configured
	// credentials, in the database's own catalog order.
	ListTables(ctx context.Context) ([]string, error)

	// DescribeTable returns the DDL snapshot for one table. Returns
	// ErrTableNotFound if the table does not exist or is not visible.
	DescribeTable(ctx context.Context, table string) (*models.TableDef, error)

	// Execute runs a single read-only statement with a hard deadline and
	// returns its result set. The deadline is enforced independently of
	// ctx's own deadline — Execute uses whichever is sooner.
	Execute(ctx context.Context, sql string, timeout time.Duration) (*models.Table, error)
}
