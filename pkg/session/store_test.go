package session

import (
	"context"
	"testing"
	"time"

	"github.com/tarsy-labs/sqlagent-core/pkg/cache"
)

func TestStoreGetMissReturnsEmptySession(t *testing.T) {
	s := NewStore(cache.NewMemCache(), time.Hour, 10)
	sess, err := s.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.ID != "sess-1" || len(sess.History) != 0 {
		t.Fatalf("expected empty session, got %+v", sess)
	}
}

func TestStoreAppendThenRecentRoundTrips(t *testing.T) {
	ctx := context.Background()
	s := NewStore(cache.NewMemCache(), time.Hour, 10)

	if err := s.Append(ctx, "sess-1", "How many users?", "SELECT count(*) FROM users", "42 users."); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := s.Recent(ctx, "sess-1", 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0].Question != "How many users?" || got[0].SQL != "SELECT count(*) FROM users" || got[0].Summary != "42 users." {
		t.Fatalf("unexpected entry: %+v", got[0])
	}
}

func TestStoreAppendOverflowDropsOldestNotNewest(t *testing.T) {
	ctx := context.Background()
	s := NewStore(cache.NewMemCache(), time.Hour, 2)

	for i, q := range []string{"q1", "q2", "q3"} {
		if err := s.Append(ctx, "sess-1", q, "sql", "summary"); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	got, err := s.Recent(ctx, "sess-1", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected history capped at 2, got %d", len(got))
	}
	if got[0].Question != "q2" || got[1].Question != "q3" {
		t.Fatalf("expected oldest dropped, newest kept, got %+v", got)
	}
}

func TestStoreRecentOrdersNewestLast(t *testing.T) {
	ctx := context.Background()
	s := NewStore(cache.NewMemCache(), time.Hour, 10)

	for _, q := range []string{"first", "second", "third"} {
		if err := s.Append(ctx, "sess-1", q, "sql", "summary"); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.Recent(ctx, "sess-1", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 || got[0].Question != "second" || got[1].Question != "third" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestStoreClearRemovesHistory(t *testing.T) {
	ctx := context.Background()
	s := NewStore(cache.NewMemCache(), time.Hour, 10)

	if err := s.Append(ctx, "sess-1", "q", "sql", "summary"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Clear(ctx, "sess-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, err := s.Recent(ctx, "sess-1", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty history after clear, got %+v", got)
	}
}

func TestStoreCorruptEntryTreatedAsMiss(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemCache()
	if err := c.Put(ctx, cache.NamespaceSession, "sess-1", []byte("not json"), time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}
	s := NewStore(c, time.Hour, 10)

	sess, err := s.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sess.History) != 0 {
		t.Fatalf("expected corrupt entry to behave like a miss, got %+v", sess)
	}
}
