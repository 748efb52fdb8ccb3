package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Cache keys for the server metadata that is expensive to fetch.
const (
	CacheKeyDescribe    = "describe"
	CacheKeyCollections = "collections"
)

// DefaultCacheTTL is the maximum age at which cached server metadata is
// served without a refresh attempt. Callers may override it per key.
const DefaultCacheTTL = 24 * time.Hour

// FetchFunc performs the live request behind a cache refresh. It is the only
// suspension point in the registry; everything else is in-memory.
type FetchFunc func(ctx context.Context) (json.RawMessage, error)

// CacheEntry is one cached metadata document with its fetch time.
type CacheEntry struct {
	Value     json.RawMessage `json:"value"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// ServerCache holds the TTL-gated metadata of one server, keyed by document
// kind. It is persisted as part of the server definition.
type ServerCache struct {
	Entries map[string]CacheEntry `json:"entries,omitempty"`
}

// Clone returns a deep copy of the cache.
func (c ServerCache) Clone() ServerCache {
	if len(c.Entries) == 0 {
		return ServerCache{}
	}
	entries := make(map[string]CacheEntry, len(c.Entries))
	for key, entry := range c.Entries {
		value := make(json.RawMessage, len(entry.Value))
		copy(value, entry.Value)
		entries[key] = CacheEntry{Value: value, FetchedAt: entry.FetchedAt}
	}
	return ServerCache{Entries: entries}
}

// Get returns the entry for key, expired or not.
func (c ServerCache) Get(key string) (CacheEntry, bool) {
	entry, ok := c.Entries[key]
	return entry, ok
}

// GetOrRefresh returns the cached value for key, refreshing it through fetch
// when the entry is missing or older than ttl. When the refresh fails and a
// stale entry exists, the stale value is returned unchanged: slightly old
// data beats a transient network failure. The boolean result reports whether
// the cache was modified and needs to be re-persisted.
func (c *ServerCache) GetOrRefresh(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) (json.RawMessage, bool, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	now := time.Now()
	entry, ok := c.Entries[key]
	if ok && now.Sub(entry.FetchedAt) <= ttl {
		return entry.Value, false, nil
	}

	value, err := fetch(ctx)
	if err != nil {
		if ok {
			return entry.Value, false, nil
		}
		return nil, false, err
	}

	fetchedAt := now
	if ok && fetchedAt.Before(entry.FetchedAt) {
		// Clock went backwards; keep timestamps monotonic per key.
		fetchedAt = entry.FetchedAt
	}
	if c.Entries == nil {
		c.Entries = make(map[string]CacheEntry)
	}
	c.Entries[key] = CacheEntry{Value: value, FetchedAt: fetchedAt}
	return value, true, nil
}
