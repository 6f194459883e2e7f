package api

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// DefaultTTL is the cache lifetime applied when [CacheOptions.TTL] is zero.
const DefaultTTL = 30 * time.Second

// defaultSweepInterval bounds cache memory growth independent of read
// traffic: expired entries that are never re-read are still removed.
const defaultSweepInterval = 5 * time.Minute

// CacheOptions controls caching behaviour for a single request.
type CacheOptions struct {
	// TTL is how long a successful response stays servable from cache.
	// Zero means [DefaultTTL].
	TTL time.Duration

	// SkipCache excludes the request from caching and deduplication
	// even if it is a GET. Use it for reads that must always hit the
	// backend.
	SkipCache bool
}

// cacheEntry is a cached response body. expiry is always after
// timestamp; an entry whose expiry has passed is never returned to a
// caller (checked on read, and removed by the periodic sweep).
type cacheEntry struct {
	data      []byte
	timestamp time.Time
	expiry    time.Time
}

// responseCache is the TTL-based response store keyed by
// "{method}:{endpoint}:{body}".
type responseCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

func newResponseCache(now func() time.Time) *responseCache {
	return &responseCache{
		entries: make(map[string]cacheEntry),
		now:     now,
	}
}

// cacheKey builds the cache key for a request. The body participates so
// that parameterised reads of the same endpoint do not collide.
func cacheKey(method, endpoint string, body []byte) string {
	if method == "" {
		method = http.MethodGet
	}
	return fmt.Sprintf("%s:%s:%s", method, endpoint, body)
}

// get returns the cached data for key if a fresh entry exists.
func (rc *responseCache) get(key string) ([]byte, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	entry, ok := rc.entries[key]
	if !ok {
		return nil, false
	}
	if !rc.now().Before(entry.expiry) {
		delete(rc.entries, key)
		return nil, false
	}
	return entry.data, true
}

// put stores a successful response under key with the given lifetime.
func (rc *responseCache) put(key string, data []byte, ttl time.Duration) {
	now := rc.now()
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.entries[key] = cacheEntry{
		data:      data,
		timestamp: now,
		expiry:    now.Add(ttl),
	}
}

// invalidate deletes every entry whose key contains pattern as a
// substring. An empty pattern clears the whole cache.
func (rc *responseCache) invalidate(pattern string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if pattern == "" {
		rc.entries = make(map[string]cacheEntry)
		return
	}
	for key := range rc.entries {
		if strings.Contains(key, pattern) {
			delete(rc.entries, key)
		}
	}
}

// sweep removes all expired entries and returns how many were dropped.
func (rc *responseCache) sweep() int {
	now := rc.now()
	rc.mu.Lock()
	defer rc.mu.Unlock()

	removed := 0
	for key, entry := range rc.entries {
		if !now.Before(entry.expiry) {
			delete(rc.entries, key)
			removed++
		}
	}
	return removed
}

// len returns the number of stored entries, expired or not.
func (rc *responseCache) len() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.entries)
}
