// Package match decides whether two markets on different platforms
// describe the same underlying question.
package match

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/artemgubar/predictive-market-federation/internal/schema"
)

var nonWord = regexp.MustCompile(`[^\w\s]+`)

var stopWords = map[string]bool{
	"will": true, "the": true, "a": true, "an": true, "by": true,
	"in": true, "on": true, "to": true, "be": true, "is": true, "of": true,
}

// NormalizeTitle lowercases, strips non-word characters, and collapses
// whitespace for consistent token comparison.
func NormalizeTitle(title string) string {
	s := strings.ToLower(title)
	s = nonWord.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Tokenize splits a normalized title into a stopword-filtered token set,
// deduplicated (Jaccard operates on sets, not multisets).
func Tokenize(normalized string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, w := range strings.Fields(normalized) {
		if stopWords[w] || w == "" {
			continue
		}
		tokens[w] = struct{}{}
	}
	return tokens
}

// JaccardSimilarity computes |A∩B| / |A∪B|. An empty set on either side
// yields 0, per the matcher contract (not the convention sim(∅,∅)=1).
func JaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// TitleSimilarity normalizes, tokenizes, and scores two titles in one call.
// This is the contracted similarity function: reimplementations must
// produce the same score for the same input (spec.md §4.2).
func TitleSimilarity(a, b string) float64 {
	return JaccardSimilarity(
		Tokenize(NormalizeTitle(a)),
		Tokenize(NormalizeTitle(b)),
	)
}

// Result is the outcome of matching a target market against one candidate.
type Result struct {
	MarketA    schema.Market
	MarketB    schema.Market
	Confidence float64
	MatchType  string // "manual" or "text"
}

// Matcher holds the manual-mapping relation and performs confidence
// scoring between a target market and a set of candidates.
type Matcher struct {
	mu      sync.RWMutex
	manual  map[string]map[string]struct{}
}

// New creates an empty Matcher.
func New() *Matcher {
	return &Matcher{manual: make(map[string]map[string]struct{})}
}

// AddManualMapping declares idA and idB equivalent. The relation is
// symmetric (adding (A,B) also makes (B,A) match) but not transitive.
func (m *Matcher) AddManualMapping(idA, idB string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.manual[idA] == nil {
		m.manual[idA] = make(map[string]struct{})
	}
	if m.manual[idB] == nil {
		m.manual[idB] = make(map[string]struct{})
	}
	m.manual[idA][idB] = struct{}{}
	m.manual[idB][idA] = struct{}{}
}

func (m *Matcher) isManualMatch(idA, idB string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.manual[idA][idB]
	return ok
}

// FindMatches returns candidates whose confidence against target meets
// minConfidence, sorted by confidence descending. Self-matches (same ID)
// are always excluded. Manual mappings short-circuit to confidence 1.0.
func (m *Matcher) FindMatches(target schema.Market, candidates []schema.Market, minConfidence float64) []Result {
	var results []Result
	targetID := target.ID()

	for _, candidate := range candidates {
		candidateID := candidate.ID()
		if candidateID == targetID {
			continue
		}

		if m.isManualMatch(targetID, candidateID) {
			results = append(results, Result{
				MarketA: target, MarketB: candidate,
				Confidence: 1.0, MatchType: "manual",
			})
			continue
		}

		confidence := TitleSimilarity(target.Title, candidate.Title)
		if confidence >= minConfidence {
			results = append(results, Result{
				MarketA: target, MarketB: candidate,
				Confidence: confidence, MatchType: "text",
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	return results
}
