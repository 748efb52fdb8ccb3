package domain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServerCache_FreshEntrySkipsFetch(t *testing.T) {
	cache := ServerCache{Entries: map[string]CacheEntry{
		CacheKeyCollections: {Value: json.RawMessage(`["s2"]`), FetchedAt: time.Now()},
	}}

	calls := 0
	value, changed, err := cache.GetOrRefresh(context.Background(), CacheKeyCollections, time.Hour, func(context.Context) (json.RawMessage, error) {
		calls++
		return json.RawMessage(`["other"]`), nil
	})
	require.NoError(t, err)
	require.False(t, changed)
	require.Zero(t, calls)
	require.JSONEq(t, `["s2"]`, string(value))
}

func TestServerCache_ExpiredEntryRefreshesOnce(t *testing.T) {
	old := time.Now().Add(-25 * time.Hour)
	cache := ServerCache{Entries: map[string]CacheEntry{
		CacheKeyDescribe: {Value: json.RawMessage(`{"v":1}`), FetchedAt: old},
	}}

	calls := 0
	value, changed, err := cache.GetOrRefresh(context.Background(), CacheKeyDescribe, DefaultCacheTTL, func(context.Context) (json.RawMessage, error) {
		calls++
		return json.RawMessage(`{"v":2}`), nil
	})
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, 1, calls)
	require.JSONEq(t, `{"v":2}`, string(value))

	entry, ok := cache.Get(CacheKeyDescribe)
	require.True(t, ok)
	require.True(t, entry.FetchedAt.After(old))
}

func TestServerCache_StaleValueOnFetchFailure(t *testing.T) {
	old := time.Now().Add(-48 * time.Hour)
	cache := ServerCache{Entries: map[string]CacheEntry{
		CacheKeyCollections: {Value: json.RawMessage(`["stale"]`), FetchedAt: old},
	}}

	value, changed, err := cache.GetOrRefresh(context.Background(), CacheKeyCollections, DefaultCacheTTL, func(context.Context) (json.RawMessage, error) {
		return nil, errors.New("connection refused")
	})
	require.NoError(t, err)
	require.False(t, changed)
	require.JSONEq(t, `["stale"]`, string(value))

	// The stale entry itself is left untouched.
	entry, ok := cache.Get(CacheKeyCollections)
	require.True(t, ok)
	require.True(t, entry.FetchedAt.Equal(old))
}

func TestServerCache_MissingEntryPropagatesFailure(t *testing.T) {
	var cache ServerCache

	fetchErr := errors.New("timeout")
	_, changed, err := cache.GetOrRefresh(context.Background(), CacheKeyDescribe, 0, func(context.Context) (json.RawMessage, error) {
		return nil, fetchErr
	})
	require.ErrorIs(t, err, fetchErr)
	require.False(t, changed)
}

func TestServerCache_MissingEntryFetchesAndStores(t *testing.T) {
	var cache ServerCache

	value, changed, err := cache.GetOrRefresh(context.Background(), CacheKeyCollections, 0, func(context.Context) (json.RawMessage, error) {
		return json.RawMessage(`["s1","s2"]`), nil
	})
	require.NoError(t, err)
	require.True(t, changed)
	require.JSONEq(t, `["s1","s2"]`, string(value))

	entry, ok := cache.Get(CacheKeyCollections)
	require.True(t, ok)
	require.WithinDuration(t, time.Now(), entry.FetchedAt, time.Minute)
}

func TestServerCache_CloneIsDeep(t *testing.T) {
	cache := ServerCache{Entries: map[string]CacheEntry{
		CacheKeyDescribe: {Value: json.RawMessage(`{"a":1}`), FetchedAt: time.Now()},
	}}

	clone := cache.Clone()
	clone.Entries[CacheKeyDescribe] = CacheEntry{Value: json.RawMessage(`{"a":2}`)}

	entry, ok := cache.Get(CacheKeyDescribe)
	require.True(t, ok)
	require.JSONEq(t, `{"a":1}`, string(entry.Value))
}
