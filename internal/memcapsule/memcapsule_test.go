package memcapsule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RejectsUnknownCapsule(t *testing.T) {
	s := NewInMemoryStore()
	_, err := s.Store(context.Background(), "not-a-capsule", "hello", nil)
	assert.Error(t, err)
}

func TestSemanticSearch_ExcludesContentWithNoTokenOverlap(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	mustStore(t, s, MarketCache, "Will the Fed cut rates in March?")
	mustStore(t, s, MarketCache, "Who will win the presidential election?")

	results, err := s.SemanticSearch(ctx, MarketCache, "Fed rate cut decision", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestTextSearch_ExcludesContentWithNoKeywordHits(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	mustStore(t, s, CategoryIndex, "politics elections president")
	mustStore(t, s, CategoryIndex, "sports football championship")

	results, err := s.TextSearch(ctx, CategoryIndex, "president elections", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "politics elections president", results[0].Content)
}

func TestRecent_OrdersNewestFirst(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	_ = mustStore(t, s, TrackedMarkets, "first")
	second := mustStore(t, s, TrackedMarkets, "second")
	// Force a deterministic order since StoredAt may tie at nanosecond
	// resolution on fast hardware.
	s.mu.Lock()
	s.memories[TrackedMarkets][0].StoredAt = s.memories[TrackedMarkets][1].StoredAt.Add(-1)
	s.mu.Unlock()

	results, err := s.Recent(ctx, TrackedMarkets, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, second, results[0].ID)
}

func mustStore(t *testing.T, s *InMemoryStore, capsule, content string) string {
	t.Helper()
	id, err := s.Store(context.Background(), capsule, content, nil)
	require.NoError(t, err)
	return id
}
