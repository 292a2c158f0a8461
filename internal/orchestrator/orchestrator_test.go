package orchestrator

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/artemgubar/predictive-market-federation/internal/adapters"
	"github.com/artemgubar/predictive-market-federation/internal/arb"
	"github.com/artemgubar/predictive-market-federation/internal/errs"
	"github.com/artemgubar/predictive-market-federation/internal/match"
	"github.com/artemgubar/predictive-market-federation/internal/ratelimit"
	"github.com/artemgubar/predictive-market-federation/internal/schema"
	"github.com/artemgubar/predictive-market-federation/internal/watchlist"
)

// fakeAdapter is an in-memory adapters.Adapter used to exercise the
// orchestrator without making network calls.
type fakeAdapter struct {
	platform   string
	markets    map[string]schema.Market
	failGet    bool
	failSearch bool
}

func (f *fakeAdapter) Platform() string { return f.platform }
func (f *fakeAdapter) Close() error     { return nil }

func (f *fakeAdapter) GetMarket(ctx context.Context, nativeID string) (schema.Market, error) {
	if f.failGet {
		return schema.Market{}, errs.NewPlatformError(f.platform, context.DeadlineExceeded)
	}
	m, ok := f.markets[nativeID]
	if !ok {
		return schema.Market{}, errs.NewPlatformError(f.platform, context.DeadlineExceeded)
	}
	return m, nil
}

func (f *fakeAdapter) SearchMarkets(ctx context.Context, query, category string) ([]schema.Market, error) {
	if f.failSearch {
		return nil, errs.NewPlatformError(f.platform, context.DeadlineExceeded)
	}
	out := make([]schema.Market, 0, len(f.markets))
	for _, m := range f.markets {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeAdapter) ListCategories(ctx context.Context) ([]string, error) {
	return []string{"politics"}, nil
}

func (f *fakeAdapter) BrowseCategory(ctx context.Context, category string, limit int) ([]schema.Market, error) {
	if f.failSearch {
		return nil, errs.NewPlatformError(f.platform, context.DeadlineExceeded)
	}
	return f.SearchMarkets(ctx, "", category)
}

func mustMarket(t *testing.T, platform, nativeID, title string, prob, volume float64) schema.Market {
	t.Helper()
	v := volume
	m, err := schema.NewMarket(schema.Market{
		Platform: platform, NativeID: nativeID, URL: "https://example.test/" + nativeID,
		Title: title, Category: "politics", Probability: prob,
		Outcomes: schema.BinaryOutcomes(prob), Volume: &v,
	})
	if err != nil {
		t.Fatalf("unexpected construction error: %v", err)
	}
	return m
}

func newTestOrchestrator(t *testing.T, adapterSet map[string]adapters.Adapter) *Orchestrator {
	t.Helper()
	m := match.New()
	return New(adapterSet, ratelimit.New(nil), m, arb.New(m), watchlist.New(), zerolog.Nop())
}

func TestSearchMarkets_EmptyAdapterIsNotAFailure(t *testing.T) {
	good := &fakeAdapter{platform: "manifold", markets: map[string]schema.Market{
		"a": mustMarket(t, "manifold", "a", "Will X happen?", 0.4, 100),
	}}
	empty := &fakeAdapter{platform: "kalshi", markets: map[string]schema.Market{}}

	o := newTestOrchestrator(t, map[string]adapters.Adapter{"manifold": good, "kalshi": empty})
	results, failures := o.SearchMarkets(context.Background(), "x", nil)

	if len(results) != 1 {
		t.Fatalf("expected 1 market, got %d", len(results))
	}
	if len(failures) != 0 {
		t.Fatalf("expected no failures (kalshi has no markets, not an error), got %+v", failures)
	}
}

func TestSearchMarkets_IsolatesPerPlatformFailure(t *testing.T) {
	good := &fakeAdapter{platform: "manifold", markets: map[string]schema.Market{
		"a": mustMarket(t, "manifold", "a", "Will X happen?", 0.4, 100),
	}}
	bad := &fakeAdapter{platform: "kalshi", failSearch: true}

	o := newTestOrchestrator(t, map[string]adapters.Adapter{"manifold": good, "kalshi": bad})
	results, failures := o.SearchMarkets(context.Background(), "x", nil)

	if len(results) != 1 || results[0].Platform != "manifold" {
		t.Fatalf("expected manifold's 1 market despite kalshi failing, got %+v", results)
	}
	if len(failures) != 1 || failures[0].Platform != "kalshi" {
		t.Fatalf("expected 1 failure for kalshi, got %+v", failures)
	}
}

func TestBrowseCategory_IsolatesPerPlatformFailure(t *testing.T) {
	good := &fakeAdapter{platform: "manifold", markets: map[string]schema.Market{
		"a": mustMarket(t, "manifold", "a", "Will X happen?", 0.4, 100),
	}}
	bad := &fakeAdapter{platform: "kalshi", failSearch: true}

	o := newTestOrchestrator(t, map[string]adapters.Adapter{"manifold": good, "kalshi": bad})
	results, failures := o.BrowseCategory(context.Background(), "politics", 20)

	if len(results) != 1 || results[0].Platform != "manifold" {
		t.Fatalf("expected manifold's 1 market despite kalshi failing, got %+v", results)
	}
	if len(failures) != 1 || failures[0].Platform != "kalshi" {
		t.Fatalf("expected 1 failure for kalshi, got %+v", failures)
	}
}

func TestGetMarketOdds_UnknownPlatformHardFails(t *testing.T) {
	o := newTestOrchestrator(t, map[string]adapters.Adapter{})
	_, err := o.GetMarketOdds(context.Background(), "nonexistent", "x")
	if err == nil {
		t.Fatal("expected error for unknown platform")
	}
	if _, ok := err.(*errs.InvalidArgumentError); !ok {
		t.Errorf("expected InvalidArgumentError, got %T", err)
	}
}

func TestBrowseCategory_SortsByVolumeDescendingAndTruncates(t *testing.T) {
	a := &fakeAdapter{platform: "manifold", markets: map[string]schema.Market{
		"low":  mustMarket(t, "manifold", "low", "Low volume market", 0.3, 10),
		"high": mustMarket(t, "manifold", "high", "High volume market", 0.6, 900),
		"mid":  mustMarket(t, "manifold", "mid", "Mid volume market", 0.5, 500),
	}}
	o := newTestOrchestrator(t, map[string]adapters.Adapter{"manifold": a})

	results, _ := o.BrowseCategory(context.Background(), "politics", 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results (truncated), got %d", len(results))
	}
	if *results[0].Volume < *results[1].Volume {
		t.Errorf("expected descending volume order, got %+v", results)
	}
}

func TestTrackMarket_AddsToWatchlistAndRefreshes(t *testing.T) {
	a := &fakeAdapter{platform: "manifold", markets: map[string]schema.Market{
		"a": mustMarket(t, "manifold", "a", "Will X happen?", 0.4, 100),
	}}
	o := newTestOrchestrator(t, map[string]adapters.Adapter{"manifold": a})

	_, err := o.TrackMarket(context.Background(), "manifold", "a", "my-alias")
	if err != nil {
		t.Fatalf("TrackMarket: %v", err)
	}

	tracked, failures := o.GetTrackedMarkets(context.Background())
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %+v", failures)
	}
	if len(tracked) != 1 || tracked[0].Alias != "my-alias" {
		t.Fatalf("unexpected tracked markets: %+v", tracked)
	}
}

func TestUntrackMarket_RemovesFromWatchlist(t *testing.T) {
	a := &fakeAdapter{platform: "manifold", markets: map[string]schema.Market{
		"a": mustMarket(t, "manifold", "a", "Will X happen?", 0.4, 100),
	}}
	o := newTestOrchestrator(t, map[string]adapters.Adapter{"manifold": a})

	if _, err := o.TrackMarket(context.Background(), "manifold", "a", ""); err != nil {
		t.Fatalf("TrackMarket: %v", err)
	}
	if !o.UntrackMarket("manifold", "a") {
		t.Fatal("expected UntrackMarket to report removal")
	}
	if o.UntrackMarket("manifold", "a") {
		t.Fatal("expected second UntrackMarket to report nothing removed")
	}
	tracked, _ := o.GetTrackedMarkets(context.Background())
	if len(tracked) != 0 {
		t.Fatalf("expected empty watchlist after untrack, got %+v", tracked)
	}
}

func TestFindArbitrage_EndToEndThroughOrchestrator(t *testing.T) {
	a := &fakeAdapter{platform: "manifold", markets: map[string]schema.Market{
		"a": mustMarket(t, "manifold", "a", "Will event resolve yes?", 0.30, 100),
	}}
	b := &fakeAdapter{platform: "polymarket", markets: map[string]schema.Market{
		"b": mustMarket(t, "polymarket", "b", "Will event resolve yes?", 0.55, 200),
	}}
	o := newTestOrchestrator(t, map[string]adapters.Adapter{"manifold": a, "polymarket": b})

	opps, failures := o.FindArbitrage(context.Background(), 0.05, 0.5)
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %+v", failures)
	}
	if len(opps) != 1 {
		t.Fatalf("expected 1 opportunity, got %d: %+v", len(opps), opps)
	}
}
