package queue

import (
	"strings"

	"github.com/tarsy-labs/sqlagent-core/pkg/models"
)

// ClassifyPool routes a question to a capacity tier by a cheap
// word-count heuristic: short questions are assumed to resolve to
// single-table lookups (simple), mid-length ones to joins or
// aggregates (standard), and long or multi-clause questions to
// multi-step analysis (complex). The classifier never blocks the
// pipeline on a real cost estimate — it is a best-effort routing hint,
// not a correctness boundary.
func ClassifyPool(question string) models.Pool {
	words := len(strings.Fields(question))
	switch {
	case words <= 8:
		return models.PoolSimple
	case words <= 20:
		return models.PoolStandard
	default:
		return models.PoolComplex
	}
}
