package session

import (
	"context"

	"github.com/tarsy-labs/sqlagent-core/pkg/cache"
)

// Memory is the Conversation Memory contract (spec §4.2, C2): append,
// recent, clear. It is a thin wrapper over Store — the distinction from
// the Session Store is one of role (C2 is the Agent-facing contract,
// C10 is the cross-process persistence it is built on), not of storage.
type Memory struct {
	store *Store
}

// NewMemory adapts a Store into the Memory contract.
func NewMemory(store *Store) *Memory {
	return &Memory{store: store}
}

// Append pushes back a new (question, sql, summary) entry. A
// partially-failed LM call must not reach this call at all — that
// invariant is enforced by the Agent, which only calls Append in its
// final "Persist" stage after the full pipeline has produced a summary.
func (m *Memory) Append(ctx context.Context, sessionID, question, sql, summary string) error {
	if sessionID == "" {
		return nil
	}
	return m.store.Append(ctx, sessionID, question, sql, summary)
}

// Recent returns up to k entries in insertion order, newest last.
func (m *Memory) Recent(ctx context.Context, sessionID string, k int) ([]HistoryEntry, error) {
	if sessionID == "" {
		return nil, nil
	}
	return m.store.Recent(ctx, sessionID, k)
}

// Clear drops all history for a session.
func (m *Memory) Clear(ctx context.Context, sessionID string) error {
	return m.store.Clear(ctx, sessionID)
}

// HistoryDigest computes the session_history_digest input to the answer
// cache key (spec §4.1): the hash of the last N Q/A pairs, N ≤
// history_limit.
func HistoryDigest(entries []HistoryEntry) string {
	parts := make([]string, 0, len(entries)*2)
	for _, e := range entries {
		parts = append(parts, e.Question, e.SQL)
	}
	return cache.Digest(parts...)
}
