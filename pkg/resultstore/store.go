// Package resultstore implements the Result Store (spec §4.9, C9): the
// cache-backed record of a Job's current and terminal state, readable
// by any process while the Dispatcher worker is still writing it.
package resultstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tarsy-labs/sqlagent-core/pkg/cache"
	"github.com/tarsy-labs/sqlagent-core/pkg/models"
)

// Store is a thin Cache Layer facade under the dedicated "result"
// namespace. A record stays writable while Running and gets a longer
// TTL once it reaches a terminal state, so a slow poller still sees the
// answer well after the Job finished.
type Store struct {
	cache       cache.Cache
	runningTTL  time.Duration
	terminalTTL time.Duration
}

// NewStore builds a Result Store.
func NewStore(c cache.Cache, runningTTL, terminalTTL time.Duration) *Store {
	return &Store{cache: c, runningTTL: runningTTL, terminalTTL: terminalTTL}
}

// Write persists a ResultRecord, choosing the TTL by whether the
// record's state is terminal.
func (s *Store) Write(ctx context.Context, record *models.ResultRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("resultstore: marshal record %s: %w", record.JobID, err)
	}
	ttl := s.runningTTL
	if record.Terminal() {
		ttl = s.terminalTTL
	}
	return s.cache.Put(ctx, cache.NamespaceResult, record.JobID, raw, ttl)
}

// Get fetches a Job's current result, returning ok=false if unknown or
// expired — spec §4.9's ErrorKindUnknownJob boundary for polling a
// nonexistent or expired Job lives one layer up, in the caller that
// maps a miss here to that error kind.
func (s *Store) Get(ctx context.Context, jobID string) (*models.ResultRecord, bool, error) {
	raw, ok, err := s.cache.Get(ctx, cache.NamespaceResult, jobID)
	if err != nil || !ok {
		return nil, false, err
	}
	var record models.ResultRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, false, fmt.Errorf("resultstore: corrupt record %s: %w", jobID, err)
	}
	return &record, true, nil
}
