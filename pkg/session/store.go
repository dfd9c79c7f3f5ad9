package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tarsy-labs/sqlagent-core/pkg/cache"
)

// Store is the Session Store (C10): it persists Session state through the
// Cache Layer under the dedicated "session" namespace and refreshes the
// session's TTL on every access, per spec §3 ("A session's TTL ... is
// refreshed on every access").
type Store struct {
	cache        cache.Cache
	ttl          time.Duration
	historyLimit int
}

// NewStore creates a Session Store backed by the given cache.
func NewStore(c cache.Cache, ttl time.Duration, historyLimit int) *Store {
	return &Store{cache: c, ttl: ttl, historyLimit: historyLimit}
}

// Get loads a session, returning a fresh empty Session if none exists yet
// (a session is created lazily by its first append, not by a separate
// create operation — the spec has no explicit session-creation contract).
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	raw, ok, err := s.cache.Get(ctx, cache.NamespaceSession, sessionID)
	if err != nil || !ok {
		return &Session{ID: sessionID}, nil
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		// A corrupt cache entry is treated like a miss — the cache is never
		// a correctness dependency (spec §4.1).
		return &Session{ID: sessionID}, nil
	}
	return &sess, nil
}

// Save persists the session and refreshes its TTL.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = time.Now()
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sess.ID, err)
	}
	return s.cache.Put(ctx, cache.NamespaceSession, sess.ID, raw, s.ttl)
}

// Clear removes all history for a session.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	return s.cache.Invalidate(ctx, cache.NamespaceSession, sessionID)
}

// Append pushes a new history entry, truncating the head once the
// session exceeds historyLimit (spec §3: "caps at history_limit ...
// appending entry h+1 drops the oldest, not the newest" — spec §8).
// Single-writer-per-interaction: the caller (the worker running the Job
// for this session) must serialize its own call, but concurrent Jobs in
// different sessions never contend since each session is its own cache
// entry.
func (s *Store) Append(ctx context.Context, sessionID, question, sql, summary string) error {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	sess.History = append(sess.History, HistoryEntry{
		Question:   question,
		SQL:        sql,
		Summary:    summary,
		AppendedAt: time.Now(),
	})
	if len(sess.History) > s.historyLimit {
		sess.History = sess.History[len(sess.History)-s.historyLimit:]
	}
	return s.Save(ctx, sess)
}

// Recent returns up to k history entries for a session, refreshing TTL.
func (s *Store) Recent(ctx context.Context, sessionID string, k int) ([]HistoryEntry, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(sess.History) > 0 {
		// Touch the TTL even on a read-only access.
		_ = s.Save(ctx, sess)
	}
	return sess.Recent(k), nil
}
