package cache

import (
	"context"
	"sync"
	"time"
)

// MemCache is an in-process Cache implementation used by unit tests across
// the module (memory, schema, llm, sqlagent, resultstore, scheduler) so
// they can exercise real cache semantics — TTL expiry, namespace
// isolation, hit/miss counting — without a live Redis instance.
type MemCache struct {
	mu    sync.Mutex
	items map[string]entry
	stats map[string]*NamespaceStats
}

type entry struct {
	value   []byte
	expires time.Time
}

// NewMemCache creates an empty in-process cache.
func NewMemCache() *MemCache {
	return &MemCache{
		items: make(map[string]entry),
		stats: make(map[string]*NamespaceStats),
	}
}

func (m *MemCache) statsFor(namespace string) *NamespaceStats {
	s, ok := m.stats[namespace]
	if !ok {
		s = &NamespaceStats{}
		m.stats[namespace] = s
	}
	return s
}

// Get implements Cache.
func (m *MemCache) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.statsFor(namespace)
	e, ok := m.items[qualify(namespace, key)]
	if !ok || (!e.expires.IsZero() && time.Now().After(e.expires)) {
		stats.Misses++
		return nil, false, nil
	}
	stats.Hits++
	cp := make([]byte, len(e.value))
	copy(cp, e.value)
	return cp, true, nil
}

// Put implements Cache.
func (m *MemCache) Put(_ context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	m.items[qualify(namespace, key)] = entry{value: cp, expires: expires}
	return nil
}

// Invalidate implements Cache.
func (m *MemCache) Invalidate(_ context.Context, namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, qualify(namespace, key))
	return nil
}

// Stats implements Cache.
func (m *MemCache) Stats() map[string]NamespaceStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]NamespaceStats, len(m.stats))
	for ns, s := range m.stats {
		out[ns] = *s
	}
	return out
}

// SetNX mirrors RedisCache.SetNX for scheduler election tests.
func (m *MemCache) SetNX(_ context.Context, key string, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	qk := qualify(NamespaceLock, key)
	if e, ok := m.items[qk]; ok && (e.expires.IsZero() || time.Now().Before(e.expires)) {
		return false, nil
	}
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	m.items[qk] = entry{value: []byte(value), expires: expires}
	return true, nil
}
