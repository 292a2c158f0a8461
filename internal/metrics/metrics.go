package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AdapterRequestsTotal tracks upstream requests by platform and operation.
	AdapterRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predmarket_adapter_requests_total",
		Help: "Total number of upstream platform requests",
	}, []string{"platform", "operation"})

	// AdapterErrorsTotal tracks upstream failures by platform and operation.
	AdapterErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predmarket_adapter_errors_total",
		Help: "Total number of upstream platform request failures",
	}, []string{"platform", "operation"})

	// RateLimiterWaitSeconds tracks time spent waiting for a rate-limit token.
	RateLimiterWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "predmarket_ratelimiter_wait_seconds",
		Help:    "Time spent waiting for a rate limiter token, by platform",
		Buckets: prometheus.DefBuckets,
	}, []string{"platform"})

	// ArbitrageOpportunitiesFoundTotal tracks opportunities surfaced by find_arbitrage calls.
	ArbitrageOpportunitiesFoundTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predmarket_arbitrage_opportunities_found_total",
		Help: "Total number of arbitrage opportunities surfaced across all calls",
	})

	// WatchlistSize tracks the number of currently tracked markets.
	WatchlistSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predmarket_watchlist_size",
		Help: "Current number of tracked markets",
	})

	// ToolCallsTotal tracks tool-server invocations by tool name and outcome.
	ToolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predmarket_tool_calls_total",
		Help: "Total number of tool invocations",
	}, []string{"tool", "outcome"})

	// HTTPRequestsTotal tracks debug HTTP surface requests by path and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predmarket_http_requests_total",
		Help: "Total number of debug HTTP requests",
	}, []string{"path", "code"})
)

// RecordAdapterRequest increments the request counter for a platform/operation pair.
func RecordAdapterRequest(platform, operation string) {
	AdapterRequestsTotal.WithLabelValues(platform, operation).Inc()
}

// RecordAdapterError increments the error counter for a platform/operation pair.
func RecordAdapterError(platform, operation string) {
	AdapterErrorsTotal.WithLabelValues(platform, operation).Inc()
}

// ObserveRateLimiterWait records time spent blocked on a rate limiter.
func ObserveRateLimiterWait(platform string, seconds float64) {
	RateLimiterWaitSeconds.WithLabelValues(platform).Observe(seconds)
}

// RecordArbitrageOpportunities adds count newly found opportunities to the total.
func RecordArbitrageOpportunities(count int) {
	ArbitrageOpportunitiesFoundTotal.Add(float64(count))
}

// SetWatchlistSize sets the current tracked-market count.
func SetWatchlistSize(count int) {
	WatchlistSize.Set(float64(count))
}

// RecordToolCall increments the tool-call counter for a tool/outcome pair.
func RecordToolCall(tool, outcome string) {
	ToolCallsTotal.WithLabelValues(tool, outcome).Inc()
}

// RecordHTTPRequest increments the debug HTTP request counter.
func RecordHTTPRequest(path, code string) {
	HTTPRequestsTotal.WithLabelValues(path, code).Inc()
}
