package connector

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tarsy-labs/sqlagent-core/pkg/models"
)

// ErrTableNotFound is returned by DescribeTable for an unknown or
// invisible table.
var ErrTableNotFound = errors.New("connector: table not found")

// pgErrorClassToKind maps the Postgres error class (the first two
// characters of SQLSTATE) to the taxonomy the Agent reports. Unlisted
// classes fall through to ErrorKindSQLExecutionFailed — conservative,
// since an unrecognized SQLSTATE is still the database rejecting the
// statement, not an infrastructure failure.
var pgErrorClassToKind = map[string]models.ErrorKind{
	"28": models.ErrorKindInternalError, // invalid authorization
	"53": models.ErrorKindOverloaded,    // insufficient resources
	"57": models.ErrorKindOverloaded,    // operator intervention (query cancelled, admin shutdown)
}

// ClassifyExecError turns a raw error from Execute into the error
// taxonomy the Agent attaches to a failed Job, following the
// connection-vs-protocol-vs-timeout split of the teacher's MCP recovery
// classifier.
func ClassifyExecError(err error) models.ErrorKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrorKindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return models.ErrorKindInternalError
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return models.ErrorKindTimeout
		}
		return models.ErrorKindSQLExecutionFailed
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "08") {
			// connection_exception — the database itself is unreachable.
			return models.ErrorKindSQLExecutionFailed
		}
		if kind, ok := pgErrorClassToKind[pgErr.Code[:2]]; ok {
			return kind
		}
		return models.ErrorKindSQLExecutionFailed
	}

	if isConnectionError(err) {
		return models.ErrorKindSQLExecutionFailed
	}
	// Anything else is still the statement failing against the database,
	// not an internal fault of the core itself.
	return models.ErrorKindSQLExecutionFailed
}

func isConnectionError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection reset", "broken pipe", "no such host", "connection closed"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
