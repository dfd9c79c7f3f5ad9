package correction

import (
	"context"
	"testing"
	"time"

	"github.com/tarsy-labs/sqlagent-core/pkg/connector"
	"github.com/tarsy-labs/sqlagent-core/pkg/llm"
	"github.com/tarsy-labs/sqlagent-core/pkg/models"
)

func TestRunSucceedsOnFirstTry(t *testing.T) {
	conn := connector.NewFake()
	conn.Results["SELECT 1"] = &models.Table{Columns: []string{"?column?"}, Rows: [][]any{{int64(1)}}}
	g := NewGraph(conn, llm.NewStub(), 3, time.Second)

	out := g.Run(context.Background(), "SELECT 1", "CREATE TABLE t (id int);")
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if out.Corrected {
		t.Fatal("first-try success should not be marked corrected")
	}
	if len(out.Table.Rows) != 1 {
		t.Fatalf("unexpected table: %+v", out.Table)
	}
}

func TestRunStripsCodeFenceAsLocalHeuristic(t *testing.T) {
	conn := connector.NewFake()
	conn.Results["SELECT 1"] = &models.Table{Columns: []string{"?column?"}}
	g := NewGraph(conn, llm.NewStub(), 3, time.Second)

	out := g.Run(context.Background(), "```sql\nSELECT 1;\n```", "")
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if out.SQL != "SELECT 1" {
		t.Fatalf("expected fence-stripped sql, got %q", out.SQL)
	}
}

func TestRunCorrectsAfterFailureUsingLM(t *testing.T) {
	conn := connector.NewFake()
	conn.Results["SELECT id FROM users"] = &models.Table{Columns: []string{"id"}, Rows: [][]any{{int64(1)}}}
	g := NewGraph(conn, llm.NewStub("SELECT id FROM users"), 3, time.Second)

	out := g.Run(context.Background(), "SELECT id FROM usrs", "CREATE TABLE users (id int);")
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if !out.Corrected {
		t.Fatal("expected Corrected to be true after LM repair")
	}
	if out.SQL != "SELECT id FROM users" {
		t.Fatalf("unexpected corrected sql: %q", out.SQL)
	}
}

func TestRunExhaustsAttemptsAndReturnsClassifiedError(t *testing.T) {
	conn := connector.NewFake()
	// No results registered — every execute fails with ErrNoFakeResult.
	g := NewGraph(conn, llm.NewStub("SELECT still wrong"), 2, time.Second)

	out := g.Run(context.Background(), "SELECT wrong", "")
	if out.Err == nil {
		t.Fatal("expected a terminal error")
	}
	if out.ErrorKind != models.ErrorKindSQLExecutionFailed {
		t.Fatalf("expected sql_execution_failed, got %q", out.ErrorKind)
	}
}

func TestRunWithZeroMaxAttemptsSkipsCorrectionEntirely(t *testing.T) {
	conn := connector.NewFake()
	// No results registered — the initial execute fails with ErrNoFakeResult.
	g := NewGraph(conn, llm.NewStub("SELECT still wrong"), 0, time.Second)

	out := g.Run(context.Background(), "SELECT wrong", "")
	if out.Err == nil {
		t.Fatal("expected a terminal error")
	}
	if out.ErrorKind != models.ErrorKindSQLExecutionFailed {
		t.Fatalf("expected sql_execution_failed, got %q", out.ErrorKind)
	}
	if out.Corrected {
		t.Fatal("zero max attempts must never report a correction")
	}
}

func TestApplyLocalHeuristicsRejectsWriteStatements(t *testing.T) {
	for _, sql := range []string{"DELETE FROM users", "DROP TABLE users", "update users set x=1"} {
		if got := applyLocalHeuristics(sql); got != "" {
			t.Fatalf("expected write statement %q to be rejected, got %q", sql, got)
		}
	}
}

func TestApplyLocalHeuristicsTrimsTrailingSemicolon(t *testing.T) {
	if got := applyLocalHeuristics("SELECT 1;"); got != "SELECT 1" {
		t.Fatalf("got %q", got)
	}
}
