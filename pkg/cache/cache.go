// Package cache implements the keyed, TTL'd blob store (spec §4.1, C1)
// that every other component in the core treats as a best-effort,
// never-a-correctness-dependency layer: a miss is never fatal, writes are
// fire-and-forget, and backend unavailability degrades silently to an
// all-miss, all-discard mode.
package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Namespaces partition keys by the kind of thing cached. Each namespace
// gets its own hit/miss counters (spec §4.1: "Metrics record hit/miss
// counts per namespace").
const (
	NamespaceLMResponse = "lm_response"
	NamespaceAnswer     = "answer"
	NamespaceSchema     = "schema"
	NamespaceSuggestion = "suggestion"
	NamespaceSession    = "session"
	NamespaceResult     = "result"
	NamespaceLock       = "lock"
)

// Cache is the contract every collaborator in the core depends on:
// get/put/invalidate over an opaque namespace+key, each call best-effort.
type Cache interface {
	// Get returns the stored bytes and true on a hit, or (nil, false, nil)
	// on a clean miss. A backend error is also reported as a miss (ok=false)
	// with the error returned for logging — callers must never treat a
	// non-nil error here as fatal.
	Get(ctx context.Context, namespace, key string) (value []byte, ok bool, err error)

	// Put stores value under (namespace, key) with the given TTL.
	// Fire-and-forget: callers should not block application logic on its
	// error return beyond logging.
	Put(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error

	// Invalidate removes (namespace, key) immediately, used by the Schema
	// Catalog to drop a stale DDL snapshot.
	Invalidate(ctx context.Context, namespace, key string) error

	// Stats returns current hit/miss counters per namespace.
	Stats() map[string]NamespaceStats
}

// NamespaceStats is a snapshot of hit/miss counts for one namespace.
type NamespaceStats struct {
	Hits   int64
	Misses int64
}

// RedisCache is the production Cache backend: a single redis.Client shared
// across all namespaces, keys qualified as "session:<key>",
// "result:<key>", "lock:<key>", and "cache:<namespace>:<key>" for the
// generic cache namespaces, matching the persisted state layout in spec §6.
type RedisCache struct {
	client *redis.Client
	stats  map[string]*counters
}

type counters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisCache wraps an existing redis client. The caller owns the
// client's lifecycle (created from config.RedisConfig.URL).
func NewRedisCache(client *redis.Client) *RedisCache {
	c := &RedisCache{
		client: client,
		stats:  make(map[string]*counters),
	}
	for _, ns := range []string{
		NamespaceLMResponse, NamespaceAnswer, NamespaceSchema,
		NamespaceSuggestion, NamespaceSession, NamespaceResult, NamespaceLock,
	} {
		c.stats[ns] = &counters{}
	}
	return c
}

func qualify(namespace, key string) string {
	switch namespace {
	case NamespaceSession, NamespaceResult, NamespaceLock:
		return namespace + ":" + key
	}
	return "cache:" + namespace + ":" + key
}

func (c *RedisCache) counterFor(namespace string) *counters {
	if ctr, ok := c.stats[namespace]; ok {
		return ctr
	}
	// Unknown namespace used ad hoc; track it anyway rather than panic.
	ctr := &counters{}
	c.stats[namespace] = ctr
	return ctr
}

// Get implements Cache. Redis errors (including redis.Nil) degrade to a
// miss; only genuine backend unavailability is logged.
func (c *RedisCache) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	ctr := c.counterFor(namespace)
	val, err := c.client.Get(ctx, qualify(namespace, key)).Bytes()
	if err != nil {
		ctr.misses.Add(1)
		if err == redis.Nil {
			return nil, false, nil
		}
		slog.Warn("cache backend unavailable, degrading to miss", "namespace", namespace, "error", err)
		return nil, false, err
	}
	ctr.hits.Add(1)
	return val, true, nil
}

// Put implements Cache.
func (c *RedisCache) Put(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, qualify(namespace, key), value, ttl).Err(); err != nil {
		slog.Warn("cache write failed, discarding", "namespace", namespace, "error", err)
		return err
	}
	return nil
}

// Invalidate implements Cache.
func (c *RedisCache) Invalidate(ctx context.Context, namespace, key string) error {
	if err := c.client.Del(ctx, qualify(namespace, key)).Err(); err != nil {
		slog.Warn("cache invalidate failed", "namespace", namespace, "error", err)
		return err
	}
	return nil
}

// Stats implements Cache.
func (c *RedisCache) Stats() map[string]NamespaceStats {
	out := make(map[string]NamespaceStats, len(c.stats))
	for ns, ctr := range c.stats {
		out[ns] = NamespaceStats{Hits: ctr.hits.Load(), Misses: ctr.misses.Load()}
	}
	return out
}

// SetNX acquires the Redis-backed advisory lock used by the Scheduler
// (spec §4.8) to elect a single coordinator among replicas. Returns true
// if the lock was acquired by this call.
func (c *RedisCache) SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, qualify(NamespaceLock, key), value, ttl).Result()
	if err != nil {
		slog.Warn("advisory lock acquisition failed", "key", key, "error", err)
		return false, err
	}
	return ok, nil
}
