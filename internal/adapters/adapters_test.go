package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestManifoldAdapter_GetMarket(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "abc123",
			"url": "https://manifold.markets/market/abc123",
			"question": "Will X happen?",
			"description": "details",
			"groupSlugs": ["us-politics"],
			"createdTime": 1700000000000,
			"closeTime": 1800000000000,
			"outcomeType": "BINARY",
			"probability": 0.42,
			"volume": 1000,
			"isResolved": false
		}`))
	})

	a := &ManifoldAdapter{client: newHTTPClient(srv.URL)}
	m, err := a.GetMarket(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("GetMarket: %v", err)
	}
	if m.Platform != "manifold" || m.NativeID != "abc123" {
		t.Errorf("unexpected identity: %+v", m)
	}
	if m.Category != "politics" {
		t.Errorf("category = %q, want politics", m.Category)
	}
	if m.Probability != 0.42 {
		t.Errorf("probability = %f, want 0.42", m.Probability)
	}
	if len(m.Outcomes) != 2 || m.Outcomes[0].Name != "Yes" {
		t.Errorf("unexpected outcomes: %+v", m.Outcomes)
	}
}

func TestManifoldAdapter_UnknownCategoryFallsBackToOther(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"x","question":"Q","createdTime":1700000000000,"outcomeType":"BINARY","probability":0.5}`))
	})
	a := &ManifoldAdapter{client: newHTTPClient(srv.URL)}
	m, err := a.GetMarket(context.Background(), "x")
	if err != nil {
		t.Fatalf("GetMarket: %v", err)
	}
	if m.Category != "other" {
		t.Errorf("category = %q, want other", m.Category)
	}
}

func TestPolymarketAdapter_GetMarket(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "p1",
			"slug": "will-x-happen",
			"question": "Will X happen?",
			"description": "d",
			"tags": ["Crypto"],
			"startDate": "2024-01-01T00:00:00Z",
			"endDate": "2024-12-31T00:00:00Z",
			"outcomePrices": ["0.65", "0.35"],
			"outcomes": ["Yes", "No"],
			"volume": "5000",
			"liquidity": "1200",
			"closed": false,
			"active": true
		}`))
	})
	a := &PolymarketAdapter{client: newHTTPClient(srv.URL)}
	m, err := a.GetMarket(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetMarket: %v", err)
	}
	if m.Category != "crypto" {
		t.Errorf("category = %q, want crypto", m.Category)
	}
	if m.Probability != 0.65 {
		t.Errorf("probability = %f, want 0.65", m.Probability)
	}
	if m.Volume == nil || *m.Volume != 5000 {
		t.Errorf("volume = %v, want 5000", m.Volume)
	}
}

func TestMetaculusAdapter_GetMarket(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": 777,
			"page_url": "https://www.metaculus.com/questions/777/",
			"title": "Will AI pass the bar exam by 2025?",
			"description": "desc",
			"categories": [{"name": "Artificial Intelligence"}],
			"created_time": "2024-01-01T00:00:00Z",
			"close_time": "2025-01-01T00:00:00Z",
			"community_prediction": {"full": {"q2": 0.77}},
			"active_state": "OPEN"
		}`))
	})
	a := &MetaculusAdapter{client: newHTTPClient(srv.URL)}
	m, err := a.GetMarket(context.Background(), "777")
	if err != nil {
		t.Fatalf("GetMarket: %v", err)
	}
	if m.Category != "ai" {
		t.Errorf("category = %q, want ai", m.Category)
	}
	if m.Probability != 0.77 {
		t.Errorf("probability = %f, want 0.77", m.Probability)
	}
	if m.Resolved {
		t.Errorf("expected unresolved market")
	}
}

func TestPredictItAdapter_SearchFiltersClientSide(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"markets": [
			{"id": 1, "name": "Who will win the presidency?", "shortName": "Prez 2024", "status": "Open",
			 "contracts": [{"name": "Trump", "lastTradePrice": 0.48}, {"name": "Harris", "lastTradePrice": 0.52}]},
			{"id": 2, "name": "Senate control", "shortName": "Senate", "status": "Open",
			 "contracts": [{"name": "GOP", "bestBuyYesCost": 0.6}]}
		]}`))
	})
	a := &PredictItAdapter{client: newHTTPClient(srv.URL)}
	results, err := a.SearchMarkets(context.Background(), "presidency", "")
	if err != nil {
		t.Fatalf("SearchMarkets: %v", err)
	}
	if len(results) != 1 || results[0].NativeID != "1" {
		t.Fatalf("unexpected search results: %+v", results)
	}
	if results[0].Probability != 0.48 {
		t.Errorf("probability = %f, want 0.48", results[0].Probability)
	}
}

func TestKalshiAdapter_GetMarket(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"market": {
			"ticker": "FED-24",
			"title": "Will the Fed cut rates?",
			"subtitle": "March meeting",
			"category": "Economics",
			"yes_ask": 63,
			"close_time": "2024-03-20T00:00:00Z",
			"status": "active",
			"volume": 42000
		}}`))
	})
	a := NewKalshiAdapter(nil, "")
	a.client = newHTTPClient(srv.URL)
	m, err := a.GetMarket(context.Background(), "FED-24")
	if err != nil {
		t.Fatalf("GetMarket: %v", err)
	}
	if m.Category != "economics" {
		t.Errorf("category = %q, want economics", m.Category)
	}
	if m.Probability != 0.63 {
		t.Errorf("probability = %f, want 0.63", m.Probability)
	}
	if m.Resolved {
		t.Errorf("expected unresolved market")
	}
}

func TestKalshiAdapter_AnonymousWhenNoSigningKey(t *testing.T) {
	a := NewKalshiAdapter(nil, "")
	token, err := a.tokenFunc()
	if err != nil {
		t.Fatalf("tokenFunc: %v", err)
	}
	if token != "" {
		t.Errorf("expected empty token with no signing key, got %q", token)
	}
}
