package toolserver

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/artemgubar/predictive-market-federation/internal/adapters"
	"github.com/artemgubar/predictive-market-federation/internal/arb"
	"github.com/artemgubar/predictive-market-federation/internal/errs"
	"github.com/artemgubar/predictive-market-federation/internal/match"
	"github.com/artemgubar/predictive-market-federation/internal/orchestrator"
	"github.com/artemgubar/predictive-market-federation/internal/ratelimit"
	"github.com/artemgubar/predictive-market-federation/internal/schema"
	"github.com/artemgubar/predictive-market-federation/internal/watchlist"
)

type stubAdapter struct {
	platform string
	market   schema.Market
}

func (s *stubAdapter) Platform() string { return s.platform }
func (s *stubAdapter) Close() error     { return nil }
func (s *stubAdapter) GetMarket(ctx context.Context, nativeID string) (schema.Market, error) {
	if nativeID != s.market.NativeID {
		return schema.Market{}, errs.NewPlatformError(s.platform, errNotFound)
	}
	return s.market, nil
}
func (s *stubAdapter) SearchMarkets(ctx context.Context, query, category string) ([]schema.Market, error) {
	return []schema.Market{s.market}, nil
}
func (s *stubAdapter) ListCategories(ctx context.Context) ([]string, error) {
	return []string{s.market.Category}, nil
}
func (s *stubAdapter) BrowseCategory(ctx context.Context, category string, limit int) ([]schema.Market, error) {
	return []schema.Market{s.market}, nil
}

var errNotFound = simpleErr("not found")

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	m := schema.Market{}
	var err error
	m, err = schema.NewMarket(schema.Market{
		Platform: "manifold", NativeID: "a", URL: "https://example.test/a",
		Title: "Will X happen?", Category: "politics", Probability: 0.4,
		Outcomes: schema.BinaryOutcomes(0.4),
	})
	if err != nil {
		t.Fatalf("construction: %v", err)
	}

	matcher := match.New()
	set := map[string]adapters.Adapter{"manifold": &stubAdapter{platform: "manifold", market: m}}
	orch := orchestrator.New(set, ratelimit.New(nil), matcher, arb.New(matcher), watchlist.New(), zerolog.Nop())
	return New(orch, Options{DefaultMinConfidence: 0.5, DefaultMinSpread: 0.05, BrowseLimit: 20}, zerolog.Nop())
}

func TestServe_SearchMarkets(t *testing.T) {
	s := newTestServer(t)
	in := strings.NewReader(`{"tool":"search_markets","arguments":{"query":"X"}}` + "\n")
	var out bytes.Buffer

	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "" {
		t.Fatalf("unexpected error: %s", resp.Error)
	}
}

func TestServe_UnknownToolReturnsProtocolError(t *testing.T) {
	s := newTestServer(t)
	in := strings.NewReader(`{"tool":"does_not_exist","arguments":{}}` + "\n")
	var out bytes.Buffer

	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("expected error for unknown tool")
	}
}

func TestServe_MissingRequiredArgumentIsProtocolError(t *testing.T) {
	s := newTestServer(t)
	in := strings.NewReader(`{"tool":"get_market_odds","arguments":{}}` + "\n")
	var out bytes.Buffer

	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("expected error for missing platform/market_id")
	}
}

func TestServe_TrackThenGetTrackedMarkets(t *testing.T) {
	s := newTestServer(t)
	in := strings.NewReader(
		`{"id":"1","tool":"track_market","arguments":{"platform":"manifold","market_id":"a"}}` + "\n" +
			`{"id":"2","tool":"get_tracked_markets","arguments":{}}` + "\n",
	)
	var out bytes.Buffer
	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 response lines, got %d", len(lines))
	}
	var second Response
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("decode second response: %v", err)
	}
	if second.ID != "2" || second.Error != "" {
		t.Fatalf("unexpected second response: %+v", second)
	}
}
