// Package arb detects arbitrage opportunities and builds side-by-side
// platform comparisons over a pool of markets, using the match package
// to decide which markets describe the same question.
package arb

import (
	"sort"

	"github.com/artemgubar/predictive-market-federation/internal/match"
	"github.com/artemgubar/predictive-market-federation/internal/schema"
)

// Opportunity is a price spread between two markets believed to describe
// the same underlying question.
type Opportunity struct {
	MarketA         schema.Market
	MarketB         schema.Market
	Spread          float64
	MatchConfidence float64
	Direction       string // "buy_a_sell_b" or "buy_b_sell_a"
}

// PlatformQuote is one platform's view inside a comparison cluster.
type PlatformQuote struct {
	Probability float64
	URL         string
}

// Comparison is an equivalence cluster of markets across platforms.
type Comparison struct {
	Title     string
	Platforms map[string]PlatformQuote
	MaxSpread float64
}

// Detector finds arbitrage opportunities and builds platform comparisons
// using a shared Matcher for equivalence decisions.
type Detector struct {
	matcher *match.Matcher
}

// New creates a Detector backed by the given Matcher.
func New(matcher *match.Matcher) *Detector {
	return &Detector{matcher: matcher}
}

// FindArbitrage finds price spreads across a market pool. Each unique
// unordered pair of matched markets is reported at most once, sorted by
// spread descending.
func (d *Detector) FindArbitrage(markets []schema.Market, minSpread, minMatchConfidence float64) []Opportunity {
	var opportunities []Opportunity
	seenPairs := make(map[[2]string]struct{})

	for _, target := range markets {
		candidates := otherMarkets(markets, target.ID())
		matches := d.matcher.FindMatches(target, candidates, minMatchConfidence)

		for _, m := range matches {
			pairKey := sortedPair(m.MarketA.ID(), m.MarketB.ID())
			if _, seen := seenPairs[pairKey]; seen {
				continue
			}
			seenPairs[pairKey] = struct{}{}

			spread := absDiff(m.MarketA.Probability, m.MarketB.Probability)
			if spread < minSpread {
				continue
			}

			direction := "buy_b_sell_a"
			if m.MarketA.Probability < m.MarketB.Probability {
				direction = "buy_a_sell_b"
			}

			opportunities = append(opportunities, Opportunity{
				MarketA:         m.MarketA,
				MarketB:         m.MarketB,
				Spread:          spread,
				MatchConfidence: m.Confidence,
				Direction:       direction,
			})
		}
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].Spread > opportunities[j].Spread
	})
	return opportunities
}

// ComparePlatforms groups matched markets into equivalence clusters using
// a one-pass greedy walk: each unprocessed market is matched against the
// remaining unprocessed candidates, and everything it matches is absorbed
// into its cluster. Only clusters with at least one matched pair are emitted.
func (d *Detector) ComparePlatforms(markets []schema.Market, minMatchConfidence float64) []Comparison {
	var comparisons []Comparison
	processed := make(map[string]struct{})

	for _, target := range markets {
		targetID := target.ID()
		if _, done := processed[targetID]; done {
			continue
		}
		processed[targetID] = struct{}{}

		var candidates []schema.Market
		for _, m := range markets {
			if m.ID() == targetID {
				continue
			}
			if _, done := processed[m.ID()]; done {
				continue
			}
			candidates = append(candidates, m)
		}

		matches := d.matcher.FindMatches(target, candidates, minMatchConfidence)
		if len(matches) == 0 {
			continue
		}

		platforms := map[string]PlatformQuote{
			target.Platform: {Probability: target.Probability, URL: target.URL},
		}
		probs := []float64{target.Probability}

		for _, m := range matches {
			processed[m.MarketB.ID()] = struct{}{}
			platforms[m.MarketB.Platform] = PlatformQuote{
				Probability: m.MarketB.Probability, URL: m.MarketB.URL,
			}
			probs = append(probs, m.MarketB.Probability)
		}

		comparisons = append(comparisons, Comparison{
			Title:     target.Title,
			Platforms: platforms,
			MaxSpread: maxOf(probs) - minOf(probs),
		})
	}

	return comparisons
}

func otherMarkets(markets []schema.Market, excludeID string) []schema.Market {
	out := make([]schema.Market, 0, len(markets))
	for _, m := range markets {
		if m.ID() != excludeID {
			out = append(out, m)
		}
	}
	return out
}

func sortedPair(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

func absDiff(a, b float64) float64 {
	if a < b {
		return b - a
	}
	return a - b
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
