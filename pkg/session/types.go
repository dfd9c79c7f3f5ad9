// Package session implements the Conversation Memory contract (spec §4.2,
// C2) and the Session Store that persists it across processes (spec
// §4.9, C10). Both are thin facades over pkg/cache with a dedicated
// namespace — no in-process map that could diverge across workers
// (design note in spec §9: "Conversation history as module-level
// dictionary → persisted, keyed store").
package session

import "time"

// HistoryEntry is one (question, sql, summary) triple appended to a
// session's ordered history (spec §3, Session).
type HistoryEntry struct {
	Question   string    `json:"question"`
	SQL        string    `json:"sql"`
	Summary    string    `json:"summary"`
	AppendedAt time.Time `json:"appended_at"`
}

// Session is the persisted, bounded-length conversation history for one
// caller-supplied session ID.
type Session struct {
	ID        string         `json:"id"`
	History   []HistoryEntry `json:"history"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Recent returns up to k entries in insertion order, newest last — the
// contract required by spec §4.2.
func (s *Session) Recent(k int) []HistoryEntry {
	if k <= 0 || len(s.History) == 0 {
		return nil
	}
	if k > len(s.History) {
		k = len(s.History)
	}
	start := len(s.History) - k
	out := make([]HistoryEntry, k)
	copy(out, s.History[start:])
	return out
}
