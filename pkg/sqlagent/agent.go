// Package sqlagent implements the SQL Agent (spec §4.6, C6): the
// pipeline that turns one natural-language question into an executed,
// summarized, suggestion-bearing answer.
package sqlagent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tarsy-labs/sqlagent-core/pkg/cache"
	"github.com/tarsy-labs/sqlagent-core/pkg/correction"
	"github.com/tarsy-labs/sqlagent-core/pkg/llm"
	"github.com/tarsy-labs/sqlagent-core/pkg/models"
	"github.com/tarsy-labs/sqlagent-core/pkg/schema"
	"github.com/tarsy-labs/sqlagent-core/pkg/session"
)

// Config controls the pipeline's cache TTLs and budget.
type Config struct {
	AnswerCacheTTL     time.Duration
	SuggestionCacheTTL time.Duration
	HistoryLimit       int
	ExecuteTimeout     time.Duration
	MaxCorrectionTries int
}

// Defaults mirrors spec §6's SQL Agent configuration.
func Defaults() Config {
	return Config{
		AnswerCacheTTL:     5 * time.Minute,
		SuggestionCacheTTL: 5 * time.Minute,
		HistoryLimit:       10,
		ExecuteTimeout:     20 * time.Second,
		MaxCorrectionTries: correction.DefaultMaxAttempts,
	}
}

// Agent wires the Schema Catalog, LM Client, Correction Graph, and
// Conversation Memory into the nine-stage answer pipeline.
type Agent struct {
	catalog *schema.Catalog
	lm      llm.Completer
	graph   *correction.Graph
	memory  *session.Memory
	cache   cache.Cache
	cfg     Config
}

// New builds an Agent.
func New(catalog *schema.Catalog, lmClient llm.Completer, graph *correction.Graph, memory *session.Memory, c cache.Cache, cfg Config) *Agent {
	return &Agent{catalog: catalog, lm: lmClient, graph: graph, memory: memory, cache: c, cfg: cfg}
}

// Answer runs the full pipeline for one Job and returns its answer, or
// a *models.KindError classifying why it could not be answered.
func (a *Agent) Answer(ctx context.Context, job *models.Job) (*models.AnswerPayload, error) {
	// 1. Load conversation context.
	history, err := a.memory.Recent(ctx, job.SessionID, a.cfg.HistoryLimit)
	if err != nil {
		slog.Warn("sqlagent: loading history failed, proceeding without it", "error", err)
	}
	historyDigest := session.HistoryDigest(history)
	normalized := cache.NormalizeQuestion(job.Question)

	// 2. Answer cache check.
	answerKey := cache.AnswerKey(normalized, historyDigest)
	if raw, ok, err := a.cache.Get(ctx, cache.NamespaceAnswer, answerKey); err == nil && ok {
		var payload models.AnswerPayload
		if json.Unmarshal(raw, &payload) == nil {
			return &payload, nil
		}
	}

	// 3. Choose relevant tables.
	allTables, err := a.catalog.Tables(ctx)
	if err != nil {
		return nil, models.NewKindError(models.ErrorKindInternalError, "", fmt.Errorf("list tables: %w", err))
	}
	chosen, err := a.chooseTables(ctx, job.Question, allTables)
	if err != nil {
		return nil, err
	}
	if len(chosen) == 0 {
		return nil, models.NewKindError(models.ErrorKindNoRelevantTables, "", nil)
	}

	// 4. Fetch DDL for chosen tables.
	ddl, err := a.combinedDDL(ctx, chosen)
	if err != nil {
		return nil, models.NewKindError(models.ErrorKindInternalError, "", err)
	}

	// 5. Generate SQL.
	sql, err := a.generateSQL(ctx, job.Question, ddl, history)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(sql) == "" {
		return nil, models.NewKindError(models.ErrorKindSQLSynthesisFailed, "", nil)
	}

	// 6. Execute, correcting on failure.
	outcome := a.graph.Run(ctx, sql, ddl)
	if outcome.Err != nil {
		return nil, models.NewKindError(outcome.ErrorKind, "", outcome.Err)
	}

	// 7. Summarize the result, unless the soft deadline has already
	// passed — in which case skip straight to a best-effort payload
	// instead of spending another LM round-trip the hard deadline may
	// not leave room for.
	var summary string
	var suggestions []string
	if models.SoftDeadlineExceeded(ctx) {
		slog.Warn("sqlagent: soft deadline exceeded, returning partial result", "job_id", job.ID)
		summary = fmt.Sprintf("Found %d row(s). (partial result: time budget reached before summarization)", len(outcome.Table.Rows))
	} else {
		summary, err = a.formatSummary(ctx, job.Question, outcome.Table)
		if err != nil {
			return nil, err
		}

		// 8. Suggest follow-ups — skipped under the same soft-deadline
		// check, since this stage is the cheapest one to drop.
		if !models.SoftDeadlineExceeded(ctx) {
			suggestions, err = a.suggestFollowups(ctx, job.Question, summary)
			if err != nil {
				return nil, err
			}
		}
	}

	payload := &models.AnswerPayload{
		SQL:               outcome.SQL,
		Summary:           summary,
		Table:             *outcome.Table,
		Suggestions:       suggestions,
		CorrectionApplied: outcome.Corrected,
	}

	// 9. Persist: append conversation memory, then cache the answer under
	// the key derived from the history as it now stands, so asking the
	// same question again in this session hits the answer cache.
	if appendErr := a.memory.Append(ctx, job.SessionID, job.Question, payload.SQL, payload.Summary); appendErr != nil {
		slog.Warn("sqlagent: appending session history failed", "error", appendErr)
	}
	if updated, err := a.memory.Recent(ctx, job.SessionID, a.cfg.HistoryLimit); err == nil {
		answerKey = cache.AnswerKey(normalized, session.HistoryDigest(updated))
	}
	if raw, err := json.Marshal(payload); err == nil {
		if putErr := a.cache.Put(ctx, cache.NamespaceAnswer, answerKey, raw, a.cfg.AnswerCacheTTL); putErr != nil {
			slog.Warn("sqlagent: caching answer failed", "error", putErr)
		}
	}

	return payload, nil
}

type tablesResponse struct {
	Tables []string `json:"tables"`
}

func (a *Agent) chooseTables(ctx context.Context, question string, catalog []string) ([]string, error) {
	userPrompt := fmt.Sprintf("Question: %s\n\nCatalog: %s", question, strings.Join(catalog, ", "))
	raw, err := a.lm.Complete(ctx, chooseTablesSystemPrompt, userPrompt, 0)
	if err != nil {
		return nil, classifyLMStageError(err)
	}
	var resp tablesResponse
	if !decode(raw, &resp) {
		// Defensive fallback: treat the raw text as a comma/whitespace
		// separated list of table names and keep only known ones.
		return intersectKnown(splitLoose(raw), catalog), nil
	}
	return intersectKnown(resp.Tables, catalog), nil
}

func (a *Agent) combinedDDL(ctx context.Context, tables []string) (string, error) {
	var b strings.Builder
	for _, t := range tables {
		ddl, err := a.catalog.DDL(ctx, t)
		if err != nil {
			return "", fmt.Errorf("ddl for %s: %w", t, err)
		}
		b.WriteString(ddl)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String()), nil
}

type sqlResponse struct {
	SQL string `json:"sql"`
}

func (a *Agent) generateSQL(ctx context.Context, question, ddl string, history []session.HistoryEntry) (string, error) {
	userPrompt := fmt.Sprintf("Schema:\n%s\n\n%sQuestion: %s", ddl, historyBlock(history), question)
	raw, err := a.lm.Complete(ctx, generateSQLSystemPrompt, userPrompt, 0)
	if err != nil {
		return "", classifyLMStageError(err)
	}
	var resp sqlResponse
	if !decode(raw, &resp) {
		// Defensive fallback: the model answered with bare SQL text
		// instead of the requested JSON envelope.
		return strings.TrimSpace(raw), nil
	}
	return resp.SQL, nil
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

// summaryRowSampleLimit bounds how many rows are serialized into the
// format-results prompt. The LM only needs enough of the result to
// summarize it truthfully, not the whole table.
const summaryRowSampleLimit = 50

func (a *Agent) formatSummary(ctx context.Context, question string, table *models.Table) (string, error) {
	userPrompt := fmt.Sprintf(
		"Question: %s\n\nColumns: %s\nRow count: %d\nRows:\n%s",
		question, strings.Join(table.Columns, ", "), len(table.Rows), renderRowSample(table, summaryRowSampleLimit),
	)
	raw, err := a.lm.Complete(ctx, formatSummarySystemPrompt, userPrompt, 0.3)
	if err != nil {
		return "", classifyLMStageError(err)
	}
	var resp summaryResponse
	if !decode(raw, &resp) {
		return strings.TrimSpace(raw), nil
	}
	return resp.Summary, nil
}

type suggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

func (a *Agent) suggestFollowups(ctx context.Context, question, summary string) ([]string, error) {
	key := cache.SuggestionKey(question, cache.Digest(summary))
	if raw, ok, err := a.cache.Get(ctx, cache.NamespaceSuggestion, key); err == nil && ok {
		var suggestions []string
		if json.Unmarshal(raw, &suggestions) == nil {
			return suggestions, nil
		}
	}

	userPrompt := fmt.Sprintf("Question: %s\n\nAnswer summary: %s", question, summary)
	raw, err := a.lm.Complete(ctx, suggestionsSystemPrompt, userPrompt, 0.5)
	if err != nil {
		return nil, classifyLMStageError(err)
	}
	var resp suggestionsResponse
	if !decode(raw, &resp) {
		// Defensive fallback: a malformed envelope just means no
		// suggestions, not a failed job — the answer itself is sound.
		return nil, nil
	}
	suggestions := resp.Suggestions
	if len(suggestions) > 5 {
		suggestions = suggestions[:5]
	}
	if encoded, err := json.Marshal(suggestions); err == nil {
		if putErr := a.cache.Put(ctx, cache.NamespaceSuggestion, key, encoded, a.cfg.SuggestionCacheTTL); putErr != nil {
			slog.Warn("sqlagent: caching suggestions failed", "error", putErr)
		}
	}
	return suggestions, nil
}

// classifyLMStageError surfaces a Completer failure as the KindError
// it already carries (Timeout, LMUnavailable, ...) rather than
// collapsing every stage's failure into the same generic kind. The LM
// Client classifies every error it returns, so this only has to guard
// against a caller-supplied Completer (tests, future adapters) that
// doesn't.
func classifyLMStageError(err error) error {
	var kindErr *models.KindError
	if errors.As(err, &kindErr) {
		return kindErr
	}
	return models.NewKindError(models.ErrorKindInternalError, "", err)
}

// renderRowSample serializes up to limit rows of a table as a compact
// text block so the LM can ground its output in the actual data
// instead of the shape alone. A truncation notice is appended when rows
// were dropped.
func renderRowSample(table *models.Table, limit int) string {
	if table == nil || len(table.Rows) == 0 {
		return "(no rows)"
	}
	rows := table.Rows
	truncated := false
	if len(rows) > limit {
		rows = rows[:limit]
		truncated = true
	}
	var b strings.Builder
	for _, row := range rows {
		parts := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				parts[i] = "NULL"
				continue
			}
			parts[i] = fmt.Sprintf("%v", v)
		}
		b.WriteString(strings.Join(parts, " | "))
		b.WriteString("\n")
	}
	if truncated {
		fmt.Fprintf(&b, "... (%d more row(s) not shown)\n", len(table.Rows)-limit)
	}
	return strings.TrimRight(b.String(), "\n")
}

func historyBlock(history []session.HistoryEntry) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Prior conversation:\n")
	for _, h := range history {
		fmt.Fprintf(&b, "Q: %s\nSQL: %s\nA: %s\n", h.Question, h.SQL, h.Summary)
	}
	b.WriteString("\n")
	return b.String()
}

func intersectKnown(candidates, known []string) []string {
	knownSet := make(map[string]bool, len(known))
	for _, k := range known {
		knownSet[k] = true
	}
	var out []string
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if knownSet[c] {
			out = append(out, c)
		}
	}
	return out
}

func splitLoose(text string) []string {
	replacer := strings.NewReplacer(",", " ", "\n", " ", "\t", " ")
	return strings.Fields(replacer.Replace(text))
}
