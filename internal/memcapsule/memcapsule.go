// Package memcapsule defines the persistence contract for named memory
// capsules (market-cache, tracked-markets, market-mappings, category-index)
// and ships an in-memory reference implementation. The core engine works
// fully without a Store wired in; callers that want durable recall across
// process restarts hold one explicitly.
package memcapsule

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/artemgubar/predictive-market-federation/internal/errs"
	"github.com/artemgubar/predictive-market-federation/internal/match"
)

// Capsule names recognized by Store implementations.
const (
	MarketCache    = "market-cache"
	TrackedMarkets = "tracked-markets"
	MarketMappings = "market-mappings"
	CategoryIndex  = "category-index"
)

// Capsules is the closed set of valid capsule names.
var Capsules = map[string]bool{
	MarketCache:    true,
	TrackedMarkets: true,
	MarketMappings: true,
	CategoryIndex:  true,
}

// Memory is one stored record inside a capsule.
type Memory struct {
	ID       string
	Capsule  string
	Content  string
	Metadata map[string]any
	StoredAt time.Time
}

// Store stores and recalls text content within named capsules. Semantic
// and text search are distinct retrieval modes over the same content:
// SemanticSearch ranks by token-overlap similarity (this implementation's
// stand-in for embedding similarity), TextSearch ranks by raw keyword
// match count.
type Store interface {
	Store(ctx context.Context, capsule, content string, metadata map[string]any) (string, error)
	SemanticSearch(ctx context.Context, capsule, query string, topK int) ([]Memory, error)
	TextSearch(ctx context.Context, capsule, query string, topK int) ([]Memory, error)
	Recent(ctx context.Context, capsule string, limit int) ([]Memory, error)
}

// InMemoryStore is a Store backed by per-capsule slices. Safe for
// concurrent use.
type InMemoryStore struct {
	mu       sync.RWMutex
	memories map[string][]Memory
}

// NewInMemoryStore builds an empty Store over the four named capsules.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{memories: make(map[string][]Memory)}
}

func validateCapsule(capsule string) error {
	if !Capsules[capsule] {
		return errs.NewInvalidArgumentError("unknown capsule: %s", capsule)
	}
	return nil
}

// Store appends content to a capsule and returns its generated ID.
func (s *InMemoryStore) Store(ctx context.Context, capsule, content string, metadata map[string]any) (string, error) {
	if err := validateCapsule(capsule); err != nil {
		return "", err
	}
	m := Memory{
		ID:       uuid.NewString(),
		Capsule:  capsule,
		Content:  content,
		Metadata: metadata,
		StoredAt: time.Now(),
	}
	s.mu.Lock()
	s.memories[capsule] = append(s.memories[capsule], m)
	s.mu.Unlock()
	return m.ID, nil
}

// SemanticSearch ranks stored content by title-style token-set similarity
// to query, built on the same Jaccard similarity the cross-platform
// matcher uses.
func (s *InMemoryStore) SemanticSearch(ctx context.Context, capsule, query string, topK int) ([]Memory, error) {
	if err := validateCapsule(capsule); err != nil {
		return nil, err
	}
	queryTokens := match.Tokenize(match.NormalizeTitle(query))

	s.mu.RLock()
	items := append([]Memory(nil), s.memories[capsule]...)
	s.mu.RUnlock()

	type scored struct {
		memory Memory
		score  float64
	}
	ranked := make([]scored, 0, len(items))
	for _, m := range items {
		sim := match.JaccardSimilarity(queryTokens, match.Tokenize(match.NormalizeTitle(m.Content)))
		if sim > 0 {
			ranked = append(ranked, scored{memory: m, score: sim})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	out := make([]Memory, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.memory)
	}
	return truncate(out, topK), nil
}

// TextSearch ranks stored content by raw query-token match count, a
// simplified stand-in for BM25 keyword search.
func (s *InMemoryStore) TextSearch(ctx context.Context, capsule, query string, topK int) ([]Memory, error) {
	if err := validateCapsule(capsule); err != nil {
		return nil, err
	}
	queryTokens := match.Tokenize(match.NormalizeTitle(query))

	s.mu.RLock()
	items := append([]Memory(nil), s.memories[capsule]...)
	s.mu.RUnlock()

	type scored struct {
		memory Memory
		hits   int
	}
	ranked := make([]scored, 0, len(items))
	for _, m := range items {
		contentTokens := match.Tokenize(match.NormalizeTitle(m.Content))
		hits := 0
		for t := range queryTokens {
			if _, ok := contentTokens[t]; ok {
				hits++
			}
		}
		if hits > 0 {
			ranked = append(ranked, scored{memory: m, hits: hits})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].hits > ranked[j].hits })

	out := make([]Memory, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.memory)
	}
	return truncate(out, topK), nil
}

// Recent returns the most recently stored memories in a capsule, newest
// first.
func (s *InMemoryStore) Recent(ctx context.Context, capsule string, limit int) ([]Memory, error) {
	if err := validateCapsule(capsule); err != nil {
		return nil, err
	}
	s.mu.RLock()
	items := append([]Memory(nil), s.memories[capsule]...)
	s.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool { return items[i].StoredAt.After(items[j].StoredAt) })
	return truncate(items, limit), nil
}

func truncate(items []Memory, n int) []Memory {
	if n <= 0 || n >= len(items) {
		return items
	}
	return items[:n]
}
