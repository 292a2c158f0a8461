// Package adapters fetches and decodes upstream prediction-market payloads
// into the normalized schema.Market record. Five concrete types share one
// fixed interface — no structural/duck typing is used downstream.
package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/artemgubar/predictive-market-federation/internal/errs"
	"github.com/artemgubar/predictive-market-federation/internal/schema"
)

// requestTimeout is the per-request deadline every adapter's HTTP client
// enforces (§4.1).
const requestTimeout = 30 * time.Second

// maxSearchResults bounds SearchMarkets output (§4.1).
const maxSearchResults = 20

// Adapter is the fixed contract every platform implementation satisfies.
type Adapter interface {
	// Platform returns the adapter's short lowercase platform tag.
	Platform() string
	GetMarket(ctx context.Context, nativeID string) (schema.Market, error)
	SearchMarkets(ctx context.Context, query string, category string) ([]schema.Market, error)
	ListCategories(ctx context.Context) ([]string, error)
	BrowseCategory(ctx context.Context, category string, limit int) ([]schema.Market, error)
	// Close is the adapter's shutdown hook. The five adapters here return nil
	// without closing or disabling their HTTP client.
	Close() error
}

// newHTTPClient builds the resty client every adapter owns exclusively,
// grounded on the other_examples Polymarket client's
// resty.New().SetTimeout(...).SetRetryCount(...) construction.
func newHTTPClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetRetryCount(2).
		SetRetryWaitTime(250 * time.Millisecond).
		SetHeader("Accept", "application/json")
}

// getJSON issues a GET and decodes the JSON body into out, converting any
// failure into a *errs.PlatformError. It is the HTTP call path shared by
// every adapter except Kalshi, which issues its own (optionally
// authenticated) GET.
func getJSON(ctx context.Context, client *resty.Client, platform, path string, query map[string]string, out any) error {
	req := client.R().SetContext(ctx)
	if len(query) > 0 {
		req = req.SetQueryParams(query)
	}
	resp, err := req.Get(path)
	if err != nil {
		return errs.NewPlatformError(platform, fmt.Errorf("request %s: %w", path, err))
	}
	if resp.IsError() {
		return errs.NewPlatformError(platform, fmt.Errorf("upstream status %d on %s: %s", resp.StatusCode(), path, truncate(resp.String(), 200)))
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return errs.NewPlatformError(platform, fmt.Errorf("decode %s: %w", path, err))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// nopLogger returns a logger that discards everything. No adapter
// constructor calls it; the adapters take no logger and do not log.
func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}
