package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/tarsy-labs/sqlagent-core/pkg/models"
)

// Fake is an in-memory Connector double used by unit tests across the
// module (schema, sqlagent) that need deterministic table listings and
// query results without a live database.
type Fake struct {
	Tables map[string]*models.TableDef
	// Results maps a SQL string verbatim to the Table it should return.
	// Any unmapped statement returns ErrNoFakeResult.
	Results map[string]*models.Table
	// ExecErr, if set, is returned by Execute for every call instead of a
	// result — used to exercise failure classification paths.
	ExecErr error
}

// ErrNoFakeResult is returned by Fake.Execute for a statement the test
// did not register a result for.
var ErrNoFakeResult = fmt.Errorf("connector: no fake result registered for statement")

// NewFake builds an empty Fake connector.
func NewFake() *Fake {
	return &Fake{Tables: map[string]*models.TableDef{}, Results: map[string]*models.Table{}}
}

// ListTables implements Connector.
func (f *Fake) ListTables(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(f.Tables))
	for name := range f.Tables {
		names = append(names, name)
	}
	return names, nil
}

// DescribeTable implements Connector.
func (f *Fake) DescribeTable(_ context.Context, table string) (*models.TableDef, error) {
	def, ok := f.Tables[table]
	if !ok {
		return nil, ErrTableNotFound
	}
	return def, nil
}

// Execute implements Connector.
func (f *Fake) Execute(_ context.Context, sql string, _ time.Duration) (*models.Table, error) {
	if f.ExecErr != nil {
		return nil, f.ExecErr
	}
	result, ok := f.Results[sql]
	if !ok {
		return nil, ErrNoFakeResult
	}
	return result, nil
}
