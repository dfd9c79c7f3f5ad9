package resultstore

import (
	"context"
	"testing"
	"time"

	"github.com/tarsy-labs/sqlagent-core/pkg/cache"
	"github.com/tarsy-labs/sqlagent-core/pkg/models"
)

func TestWriteThenGetRoundTrips(t *testing.T) {
	ctx := context.Background()
	s := NewStore(cache.NewMemCache(), time.Minute, time.Hour)

	record := models.Pending("job-1", "how many users?").Running(time.Now())
	if err := s.Write(ctx, record); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, ok, err := s.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if got.State != models.JobRunning {
		t.Fatalf("got state %q", got.State)
	}
}

func TestGetMissReturnsFalse(t *testing.T) {
	s := NewStore(cache.NewMemCache(), time.Minute, time.Hour)
	_, ok, err := s.Get(context.Background(), "no-such-job")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected miss")
	}
}

func TestWriteTerminalUsesTerminalTTL(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemCache()
	s := NewStore(c, time.Millisecond, time.Hour)

	record := models.Pending("job-1", "how many users?").Succeeded(&models.AnswerPayload{SQL: "SELECT 1"})
	if err := s.Write(ctx, record); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	_, ok, err := s.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected terminal record to survive past the (shorter) running TTL")
	}
}
