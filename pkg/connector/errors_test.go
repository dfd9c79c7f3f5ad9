package connector

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tarsy-labs/sqlagent-core/pkg/models"
)

func TestClassifyExecErrorDeadlineExceeded(t *testing.T) {
	if got := ClassifyExecError(context.DeadlineExceeded); got != models.ErrorKindTimeout {
		t.Fatalf("got %q, want timeout", got)
	}
}

func TestClassifyExecErrorConnectionException(t *testing.T) {
	err := &pgconn.PgError{Code: "08006"}
	if got := ClassifyExecError(err); got != models.ErrorKindSQLExecutionFailed {
		t.Fatalf("got %q, want sql_execution_failed", got)
	}
}

func TestClassifyExecErrorInsufficientResources(t *testing.T) {
	err := &pgconn.PgError{Code: "53300"}
	if got := ClassifyExecError(err); got != models.ErrorKindOverloaded {
		t.Fatalf("got %q, want overloaded", got)
	}
}

func TestClassifyExecErrorUnknownSyntaxFallsBackToExecutionFailed(t *testing.T) {
	err := &pgconn.PgError{Code: "42601"}
	if got := ClassifyExecError(err); got != models.ErrorKindSQLExecutionFailed {
		t.Fatalf("got %q, want sql_execution_failed", got)
	}
}

func TestClassifyExecErrorNilIsEmpty(t *testing.T) {
	if got := ClassifyExecError(nil); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestClassifyExecErrorConnectionRefusedString(t *testing.T) {
	err := errors.New("dial tcp: connection refused")
	if got := ClassifyExecError(err); got != models.ErrorKindSQLExecutionFailed {
		t.Fatalf("got %q, want sql_execution_failed", got)
	}
}
