package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheUpsert(t *testing.T) {
	cache := NewCache()
	nfen := NewNormalizedFENMust(StartingFEN)

	_, ok := cache.Lookup(nfen)
	require.False(t, ok)

	shallow := Analysis{Position: nfen, Depth: 4, Score: 0.1, BestMove: "e2e4", Nodes: 10}
	cache.Upsert(shallow)

	got, ok := cache.Lookup(nfen)
	require.True(t, ok)
	require.Equal(t, shallow, got)

	deep := Analysis{Position: nfen, Depth: 8, Score: 0.3, BestMove: "d2d4", Nodes: 100}
	cache.Upsert(deep)

	got, ok = cache.Lookup(nfen)
	require.True(t, ok)
	require.Equal(t, deep, got)

	// A shallower result must not replace a deeper one.
	cache.Upsert(shallow)

	got, ok = cache.Lookup(nfen)
	require.True(t, ok)
	require.Equal(t, deep, got)
}

func TestCacheBulkUpsertAndGetMissing(t *testing.T) {
	cache := NewCache()

	start := NewNormalizedFENMust(StartingFEN)
	kings := NewNormalizedFENMust("4k3/8/8/8/8/8/8/4K3 w - - 0 1")

	cache.BulkUpsert([]Analysis{
		{Position: start, Depth: 4, Score: 0.1, BestMove: "e2e4", Nodes: 10},
	})
	require.Equal(t, 1, cache.Len())

	missing := cache.GetMissing([]NormalizedFEN{start, kings})
	require.Equal(t, []NormalizedFEN{kings}, missing)
}
