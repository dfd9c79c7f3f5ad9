// Package correction implements the Correction Graph (spec §4.6, C5):
// the bounded retry loop that gives a failing SQL statement a limited
// number of chances to repair itself before the Job is failed outright.
package correction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tarsy-labs/sqlagent-core/pkg/connector"
	"github.com/tarsy-labs/sqlagent-core/pkg/llm"
	"github.com/tarsy-labs/sqlagent-core/pkg/models"
)

// DefaultMaxAttempts is the number of LM-assisted correction rounds
// after the initial execution failure (spec §4.6).
const DefaultMaxAttempts = 3

// Graph drives SQL from a failing first attempt through up to
// MaxAttempts correction rounds, applying cheap local heuristics first
// (which never consume an attempt) and falling back to the LM.
type Graph struct {
	conn           connector.Connector
	lm             llm.Completer
	maxAttempts    int
	executeTimeout time.Duration
}

// NewGraph builds a Graph over a Connector and Completer. maxAttempts
// of 0 means no correction rounds at all: the first execution failure
// surfaces immediately as SQLExecutionFailed. Negative values are
// treated the same as 0. Callers that want the spec's default rather
// than an explicit zero should pass DefaultMaxAttempts themselves.
func NewGraph(conn connector.Connector, lm llm.Completer, maxAttempts int, executeTimeout time.Duration) *Graph {
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	return &Graph{conn: conn, lm: lm, maxAttempts: maxAttempts, executeTimeout: executeTimeout}
}

// Outcome is the Graph's result: either a successful table from a
// (possibly corrected) statement, or the last attempted SQL alongside
// the classified error it failed with.
type Outcome struct {
	SQL       string
	Table     *models.Table
	Corrected bool
	ErrorKind models.ErrorKind
	Err       error
}

// Run attempts sql against the connector, correcting and retrying on
// failure up to MaxAttempts times. ddl is the rendered schema context
// handed to the LM for each correction round.
func (g *Graph) Run(ctx context.Context, sql string, ddl string) Outcome {
	current := applyLocalHeuristics(sql)
	corrected := current != sql

	table, err := g.conn.Execute(ctx, current, g.executeTimeout)
	if err == nil {
		return Outcome{SQL: current, Table: table, Corrected: corrected}
	}

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		slog.Warn("correction: execution failed, requesting repair", "attempt", attempt, "error", err)

		fixed, lmErr := g.requestFix(ctx, current, err.Error(), ddl)
		if lmErr != nil {
			return Outcome{SQL: current, ErrorKind: models.ErrorKindSQLExecutionFailed, Err: err}
		}
		fixed = applyLocalHeuristics(fixed)
		if fixed == "" || fixed == current {
			// No progress possible; stop spending attempts.
			break
		}
		current = fixed
		corrected = true

		table, err = g.conn.Execute(ctx, current, g.executeTimeout)
		if err == nil {
			return Outcome{SQL: current, Table: table, Corrected: corrected}
		}
	}

	return Outcome{SQL: current, Corrected: corrected, ErrorKind: connector.ClassifyExecError(err), Err: err}
}

const correctionSystemPrompt = `You repair a single failing SQL statement. You are given the statement, the database error it produced, and the relevant table DDL. Reply with ONLY the corrected SQL statement, no explanation, no markdown fences.`

func (g *Graph) requestFix(ctx context.Context, sql, execError, ddl string) (string, error) {
	userPrompt := fmt.Sprintf("Statement:\n%s\n\nError:\n%s\n\nSchema:\n%s", sql, execError, ddl)
	return g.lm.Complete(ctx, correctionSystemPrompt, userPrompt, 0)
}

// applyLocalHeuristics strips markdown code fences and surrounding
// whitespace, and rejects DDL/DML statements outright by returning an
// empty string — these never count against the attempt budget since
// they run before any LM call.
func applyLocalHeuristics(sql string) string {
	s := strings.TrimSpace(sql)
	s = strings.TrimPrefix(s, "```sql")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ";")

	if s == "" {
		return ""
	}
	if isWriteStatement(s) {
		return ""
	}
	return s
}

var writeVerbs = []string{"insert", "update", "delete", "drop", "alter", "create", "truncate", "grant", "revoke"}

// isWriteStatement rejects any statement whose first keyword is a
// DDL/DML verb — the core is read-only by contract (spec §4.4).
func isWriteStatement(sql string) bool {
	fields := strings.Fields(strings.ToLower(sql))
	if len(fields) == 0 {
		return false
	}
	first := fields[0]
	for _, verb := range writeVerbs {
		if first == verb {
			return true
		}
	}
	return false
}
