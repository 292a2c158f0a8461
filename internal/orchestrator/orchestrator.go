// Package orchestrator owns every platform adapter plus the rate limiter,
// matcher, arbitrage detector, and watchlist, and implements the federated
// operations the tool surface exposes. It fans work out across platforms
// concurrently; the watchlist's Refresh, which it drives, also fetches its
// entries concurrently.
package orchestrator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/artemgubar/predictive-market-federation/internal/adapters"
	"github.com/artemgubar/predictive-market-federation/internal/arb"
	"github.com/artemgubar/predictive-market-federation/internal/errs"
	"github.com/artemgubar/predictive-market-federation/internal/match"
	"github.com/artemgubar/predictive-market-federation/internal/metrics"
	"github.com/artemgubar/predictive-market-federation/internal/ratelimit"
	"github.com/artemgubar/predictive-market-federation/internal/schema"
	"github.com/artemgubar/predictive-market-federation/internal/watchlist"
)

// PlatformFailure is one platform's failure inside a fanned-out operation.
// Fan-out operations never hard-fail on a single platform error; they
// collect it here and keep the other platforms' results.
type PlatformFailure struct {
	Platform string `json:"platform"`
	Error    string `json:"error"`
}

// MarketView is the JSON-serializable projection of schema.Market returned
// across the tool surface.
type MarketView struct {
	ID          string   `json:"id"`
	Platform    string   `json:"platform"`
	NativeID    string   `json:"native_id"`
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Probability float64  `json:"probability"`
	Volume      *float64 `json:"volume,omitempty"`
	Resolved    bool     `json:"resolved"`
	Resolution  *string  `json:"resolution,omitempty"`
	LastFetched string   `json:"last_fetched"`
}

func toView(m schema.Market) MarketView {
	return MarketView{
		ID:          m.ID(),
		Platform:    m.Platform,
		NativeID:    m.NativeID,
		URL:         m.URL,
		Title:       m.Title,
		Description: m.Description,
		Category:    m.Category,
		Probability: m.Probability,
		Volume:      m.Volume,
		Resolved:    m.Resolved,
		Resolution:  m.Resolution,
		LastFetched: m.LastFetched.UTC().Format(time.RFC3339),
	}
}

// Orchestrator is the single coordination point for every federated operation.
type Orchestrator struct {
	adapters  map[string]adapters.Adapter
	limiter   *ratelimit.Limiter
	matcher   *match.Matcher
	detector  *arb.Detector
	watchlist *watchlist.List
	logger    zerolog.Logger
}

// New builds an Orchestrator over the given set of platform adapters.
func New(adapterSet map[string]adapters.Adapter, limiter *ratelimit.Limiter, matcher *match.Matcher, detector *arb.Detector, wl *watchlist.List, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		adapters:  adapterSet,
		limiter:   limiter,
		matcher:   matcher,
		detector:  detector,
		watchlist: wl,
		logger:    logger,
	}
}

// Close calls Close on every adapter and returns the first error.
func (o *Orchestrator) Close() error {
	var firstErr error
	for _, a := range o.adapters {
		if err := a.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (o *Orchestrator) platformsOrAll(platforms []string) map[string]adapters.Adapter {
	if len(platforms) == 0 {
		return o.adapters
	}
	want := make(map[string]struct{}, len(platforms))
	for _, p := range platforms {
		want[p] = struct{}{}
	}
	out := make(map[string]adapters.Adapter, len(want))
	for name, a := range o.adapters {
		if _, ok := want[name]; ok {
			out[name] = a
		}
	}
	return out
}

// fanOutMarkets runs fn concurrently across the given adapters, acquiring
// the rate limiter for each before the call and isolating each platform's
// failure instead of letting it abort the others.
func (o *Orchestrator) fanOutMarkets(ctx context.Context, set map[string]adapters.Adapter, operation string, fn func(context.Context, adapters.Adapter) ([]schema.Market, error)) ([]schema.Market, []PlatformFailure) {
	type outcome struct {
		markets []schema.Market
		failure *PlatformFailure
	}
	resultsCh := make(chan outcome, len(set))

	var wg sync.WaitGroup
	for name, a := range set {
		name, a := name, a
		wg.Add(1)
		go func() {
			defer wg.Done()
			metrics.RecordAdapterRequest(name, operation)

			waitStart := time.Now()
			o.limiter.Acquire(name)
			metrics.ObserveRateLimiterWait(name, time.Since(waitStart).Seconds())

			markets, err := fn(ctx, a)
			if err != nil {
				metrics.RecordAdapterError(name, operation)
				o.logger.Warn().Str("platform", name).Str("operation", operation).Err(err).Msg("platform request failed")
				resultsCh <- outcome{failure: &PlatformFailure{Platform: name, Error: err.Error()}}
				return
			}
			resultsCh <- outcome{markets: markets}
		}()
	}

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	var allMarkets []schema.Market
	var failures []PlatformFailure
	for r := range resultsCh {
		if r.failure != nil {
			failures = append(failures, *r.failure)
			continue
		}
		allMarkets = append(allMarkets, r.markets...)
	}
	return allMarkets, failures
}

// SearchMarkets searches across platforms (or a subset), returning a
// {results, errors} shape so one platform's failure never hides the rest.
func (o *Orchestrator) SearchMarkets(ctx context.Context, query string, platforms []string) ([]MarketView, []PlatformFailure) {
	set := o.platformsOrAll(platforms)
	markets, failures := o.fanOutMarkets(ctx, set, "search_markets", func(ctx context.Context, a adapters.Adapter) ([]schema.Market, error) {
		return a.SearchMarkets(ctx, query, "")
	})
	return toViews(markets), failures
}

// GetMarketOdds is a point operation: an unknown platform hard-fails rather
// than being silently dropped from a results list.
func (o *Orchestrator) GetMarketOdds(ctx context.Context, platform, marketID string) (MarketView, error) {
	a, ok := o.adapters[platform]
	if !ok {
		return MarketView{}, errs.NewInvalidArgumentError("unknown platform: %s", platform)
	}

	metrics.RecordAdapterRequest(platform, "get_market_odds")
	waitStart := time.Now()
	o.limiter.Acquire(platform)
	metrics.ObserveRateLimiterWait(platform, time.Since(waitStart).Seconds())

	m, err := a.GetMarket(ctx, marketID)
	if err != nil {
		metrics.RecordAdapterError(platform, "get_market_odds")
		return MarketView{}, err
	}
	return toView(m), nil
}

// ListCategories unions the normalized categories every platform exposes.
func (o *Orchestrator) ListCategories(ctx context.Context) ([]string, []PlatformFailure) {
	type outcome struct {
		categories []string
		failure    *PlatformFailure
	}
	resultsCh := make(chan outcome, len(o.adapters))

	var wg sync.WaitGroup
	for name, a := range o.adapters {
		name, a := name, a
		wg.Add(1)
		go func() {
			defer wg.Done()
			metrics.RecordAdapterRequest(name, "list_categories")
			cats, err := a.ListCategories(ctx)
			if err != nil {
				metrics.RecordAdapterError(name, "list_categories")
				resultsCh <- outcome{failure: &PlatformFailure{Platform: name, Error: err.Error()}}
				return
			}
			resultsCh <- outcome{categories: cats}
		}()
	}
	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	seen := make(map[string]struct{})
	var failures []PlatformFailure
	for r := range resultsCh {
		if r.failure != nil {
			failures = append(failures, *r.failure)
			continue
		}
		for _, c := range r.categories {
			seen[c] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, failures
}

// BrowseCategory fans out across all platforms, then sorts the combined
// pool by volume descending (missing volume treated as zero) and truncates
// to limit.
func (o *Orchestrator) BrowseCategory(ctx context.Context, category string, limit int) ([]MarketView, []PlatformFailure) {
	markets, failures := o.fanOutMarkets(ctx, o.adapters, "browse_category", func(ctx context.Context, a adapters.Adapter) ([]schema.Market, error) {
		return a.BrowseCategory(ctx, category, limit)
	})

	sort.SliceStable(markets, func(i, j int) bool {
		return volumeOf(markets[i]) > volumeOf(markets[j])
	})
	if len(markets) > limit {
		markets = markets[:limit]
	}
	return toViews(markets), failures
}

func volumeOf(m schema.Market) float64 {
	if m.Volume == nil {
		return 0
	}
	return *m.Volume
}

// TrackedView is one tracked market refreshed against its platform.
type TrackedView struct {
	Market    MarketView `json:"market"`
	Alias     string     `json:"alias,omitempty"`
	TrackedAt string     `json:"tracked_at"`
}

// TrackMarket fetches the market (hard failure on unknown platform) and adds
// it to the watchlist.
func (o *Orchestrator) TrackMarket(ctx context.Context, platform, marketID, alias string) (MarketView, error) {
	view, err := o.GetMarketOdds(ctx, platform, marketID)
	if err != nil {
		return MarketView{}, err
	}
	fullID := platform + ":" + marketID
	o.watchlist.Track(fullID, alias, time.Now().UTC())
	metrics.SetWatchlistSize(o.watchlist.Len())
	return view, nil
}

// UntrackMarket removes a market from the watchlist.
func (o *Orchestrator) UntrackMarket(platform, marketID string) bool {
	removed := o.watchlist.Untrack(platform + ":" + marketID)
	if removed {
		metrics.SetWatchlistSize(o.watchlist.Len())
	}
	return removed
}

// GetTrackedMarkets refreshes every tracked market concurrently.
func (o *Orchestrator) GetTrackedMarkets(ctx context.Context) ([]TrackedView, []PlatformFailure) {
	snapshots, refreshErrs := o.watchlist.Refresh(ctx, func(ctx context.Context, platform, nativeID string) (schema.Market, error) {
		a, ok := o.adapters[platform]
		if !ok {
			return schema.Market{}, errs.NewInvalidArgumentError("unknown platform: %s", platform)
		}
		o.limiter.Acquire(platform)
		return a.GetMarket(ctx, nativeID)
	})

	views := make([]TrackedView, 0, len(snapshots))
	for _, s := range snapshots {
		views = append(views, TrackedView{
			Market:    toView(s.Market),
			Alias:     s.Alias,
			TrackedAt: s.TrackedAt.UTC().Format(time.RFC3339),
		})
	}

	failures := make([]PlatformFailure, 0, len(refreshErrs))
	for _, e := range refreshErrs {
		failures = append(failures, PlatformFailure{Platform: e.FullID, Error: e.Err.Error()})
	}
	return views, failures
}

// OpportunityView is the JSON-serializable projection of arb.Opportunity.
type OpportunityView struct {
	MarketA         MarketView `json:"market_a"`
	MarketB         MarketView `json:"market_b"`
	Spread          float64    `json:"spread"`
	MatchConfidence float64    `json:"match_confidence"`
	Direction       string     `json:"direction"`
}

// FindArbitrage pulls a broad pool of markets from every platform (an empty
// query, mirroring "get recent/popular") and reports price spreads across
// matched pairs.
func (o *Orchestrator) FindArbitrage(ctx context.Context, minSpread, minMatchConfidence float64) ([]OpportunityView, []PlatformFailure) {
	markets, failures := o.fanOutMarkets(ctx, o.adapters, "find_arbitrage", func(ctx context.Context, a adapters.Adapter) ([]schema.Market, error) {
		return a.SearchMarkets(ctx, "", "")
	})

	opportunities := o.detector.FindArbitrage(markets, minSpread, minMatchConfidence)
	metrics.RecordArbitrageOpportunities(len(opportunities))

	views := make([]OpportunityView, 0, len(opportunities))
	for _, opp := range opportunities {
		views = append(views, OpportunityView{
			MarketA:         toView(opp.MarketA),
			MarketB:         toView(opp.MarketB),
			Spread:          opp.Spread,
			MatchConfidence: opp.MatchConfidence,
			Direction:       opp.Direction,
		})
	}
	return views, failures
}

// ComparisonView is the JSON-serializable projection of arb.Comparison.
type ComparisonView struct {
	Title     string                      `json:"title"`
	Platforms map[string]PlatformQuoteView `json:"platforms"`
	MaxSpread float64                     `json:"max_spread"`
}

// PlatformQuoteView is one platform's quote inside a ComparisonView.
type PlatformQuoteView struct {
	Probability float64 `json:"probability"`
	URL         string  `json:"url"`
}

// ComparePlatforms searches across all platforms for query, then clusters
// matched markets into a side-by-side comparison.
func (o *Orchestrator) ComparePlatforms(ctx context.Context, query string, minMatchConfidence float64) ([]ComparisonView, []PlatformFailure) {
	markets, failures := o.fanOutMarkets(ctx, o.adapters, "compare_platforms", func(ctx context.Context, a adapters.Adapter) ([]schema.Market, error) {
		return a.SearchMarkets(ctx, query, "")
	})

	comparisons := o.detector.ComparePlatforms(markets, minMatchConfidence)
	views := make([]ComparisonView, 0, len(comparisons))
	for _, c := range comparisons {
		platforms := make(map[string]PlatformQuoteView, len(c.Platforms))
		for platform, q := range c.Platforms {
			platforms[platform] = PlatformQuoteView{Probability: q.Probability, URL: q.URL}
		}
		views = append(views, ComparisonView{Title: c.Title, Platforms: platforms, MaxSpread: c.MaxSpread})
	}
	return views, failures
}

func toViews(markets []schema.Market) []MarketView {
	out := make([]MarketView, 0, len(markets))
	for _, m := range markets {
		out = append(out, toView(m))
	}
	return out
}
