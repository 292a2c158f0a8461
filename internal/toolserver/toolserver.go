// Package toolserver exposes the orchestrator's federated operations as
// eight named tools over a line-delimited JSON control channel on stdio.
// Each line in is one request, each line out is one response; the server
// processes requests sequentially in the order received.
package toolserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/artemgubar/predictive-market-federation/internal/errs"
	"github.com/artemgubar/predictive-market-federation/internal/metrics"
	"github.com/artemgubar/predictive-market-federation/internal/orchestrator"
)

// Request is one incoming tool call. ID is echoed back verbatim in the
// response so callers can correlate async replies; a missing ID is
// assigned a fresh one for logging/tracing purposes.
type Request struct {
	ID        string          `json:"id,omitempty"`
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
}

// Response carries either Result or Error, never both.
type Response struct {
	ID     string      `json:"id,omitempty"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Server dispatches line-framed JSON tool calls to an Orchestrator.
type Server struct {
	orch                 *orchestrator.Orchestrator
	defaultMinConfidence float64
	defaultMinSpread     float64
	browseLimit          int
	logger               zerolog.Logger
}

// Options configures default argument values the tool surface falls back
// to when a caller omits them.
type Options struct {
	DefaultMinConfidence float64
	DefaultMinSpread     float64
	BrowseLimit          int
}

// New builds a Server over the given Orchestrator.
func New(orch *orchestrator.Orchestrator, opts Options, logger zerolog.Logger) *Server {
	return &Server{
		orch:                 orch,
		defaultMinConfidence: opts.DefaultMinConfidence,
		defaultMinSpread:     opts.DefaultMinSpread,
		browseLimit:          opts.BrowseLimit,
		logger:               logger,
	}
}

// Serve reads one JSON request per line from r and writes one JSON response
// per line to w, until r is exhausted or ctx is canceled.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp := s.handleLine(ctx, line)
		encoded, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
		if _, err := w.Write(append(encoded, '\n')); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	return scanner.Err()
}

func (s *Server) handleLine(ctx context.Context, line []byte) Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Response{Error: fmt.Sprintf("invalid request: %v", err)}
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	result, err := s.dispatch(ctx, req)
	if err != nil {
		metrics.RecordToolCall(req.Tool, "error")
		s.logger.Warn().Str("tool", req.Tool).Str("request_id", req.ID).Err(err).Msg("tool call failed")
		return Response{ID: req.ID, Error: err.Error()}
	}
	metrics.RecordToolCall(req.Tool, "ok")
	return Response{ID: req.ID, Result: result}
}

func (s *Server) dispatch(ctx context.Context, req Request) (interface{}, error) {
	switch req.Tool {
	case "search_markets":
		return s.searchMarkets(ctx, req.Arguments)
	case "get_market_odds":
		return s.getMarketOdds(ctx, req.Arguments)
	case "list_categories":
		return s.listCategories(ctx)
	case "browse_category":
		return s.browseCategory(ctx, req.Arguments)
	case "track_market":
		return s.trackMarket(ctx, req.Arguments)
	case "get_tracked_markets":
		return s.getTrackedMarkets(ctx)
	case "find_arbitrage":
		return s.findArbitrage(ctx, req.Arguments)
	case "compare_platforms":
		return s.comparePlatforms(ctx, req.Arguments)
	default:
		return nil, errs.NewInvalidArgumentError("unknown tool: %s", req.Tool)
	}
}

type resultWithErrors struct {
	Markets []orchestrator.MarketView         `json:"markets"`
	Errors  []orchestrator.PlatformFailure    `json:"errors"`
}

func (s *Server) searchMarkets(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		Query     string   `json:"query"`
		Platforms []string `json:"platforms"`
	}
	if err := unmarshalArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Query == "" {
		return nil, errs.NewInvalidArgumentError("query is required")
	}
	markets, failures := s.orch.SearchMarkets(ctx, args.Query, args.Platforms)
	return resultWithErrors{Markets: markets, Errors: nonNil(failures)}, nil
}

func (s *Server) getMarketOdds(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		Platform string `json:"platform"`
		MarketID string `json:"market_id"`
	}
	if err := unmarshalArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Platform == "" || args.MarketID == "" {
		return nil, errs.NewInvalidArgumentError("platform and market_id are required")
	}
	return s.orch.GetMarketOdds(ctx, args.Platform, args.MarketID)
}

type categoriesResult struct {
	Categories []string                       `json:"categories"`
	Errors     []orchestrator.PlatformFailure `json:"errors"`
}

func (s *Server) listCategories(ctx context.Context) (interface{}, error) {
	categories, failures := s.orch.ListCategories(ctx)
	return categoriesResult{Categories: categories, Errors: nonNil(failures)}, nil
}

func (s *Server) browseCategory(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		Category string `json:"category"`
		Limit    int    `json:"limit"`
	}
	args.Limit = s.browseLimit
	if err := unmarshalArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Category == "" {
		return nil, errs.NewInvalidArgumentError("category is required")
	}
	if args.Limit <= 0 {
		args.Limit = s.browseLimit
	}
	markets, failures := s.orch.BrowseCategory(ctx, args.Category, args.Limit)
	return resultWithErrors{Markets: markets, Errors: nonNil(failures)}, nil
}

type trackResult struct {
	Status   string                  `json:"status"`
	MarketID string                  `json:"market_id"`
	Alias    string                  `json:"alias,omitempty"`
	Market   orchestrator.MarketView `json:"market"`
}

func (s *Server) trackMarket(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		Platform string `json:"platform"`
		MarketID string `json:"market_id"`
		Alias    string `json:"alias"`
	}
	if err := unmarshalArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Platform == "" || args.MarketID == "" {
		return nil, errs.NewInvalidArgumentError("platform and market_id are required")
	}
	view, err := s.orch.TrackMarket(ctx, args.Platform, args.MarketID, args.Alias)
	if err != nil {
		return nil, err
	}
	return trackResult{
		Status:   "tracked",
		MarketID: args.Platform + ":" + args.MarketID,
		Alias:    args.Alias,
		Market:   view,
	}, nil
}

type trackedResult struct {
	TrackedMarkets []orchestrator.TrackedView      `json:"tracked_markets"`
	Errors         []orchestrator.PlatformFailure  `json:"errors"`
}

func (s *Server) getTrackedMarkets(ctx context.Context) (interface{}, error) {
	tracked, failures := s.orch.GetTrackedMarkets(ctx)
	return trackedResult{TrackedMarkets: nonNilTracked(tracked), Errors: nonNil(failures)}, nil
}

type arbitrageResult struct {
	Opportunities []orchestrator.OpportunityView `json:"opportunities"`
	Errors        []orchestrator.PlatformFailure `json:"errors"`
}

func (s *Server) findArbitrage(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	args := struct {
		MinSpread float64 `json:"min_spread"`
	}{MinSpread: s.defaultMinSpread}
	if err := unmarshalArgs(raw, &args); err != nil {
		return nil, err
	}
	opportunities, failures := s.orch.FindArbitrage(ctx, args.MinSpread, s.defaultMinConfidence)
	return arbitrageResult{Opportunities: nonNilOpps(opportunities), Errors: nonNil(failures)}, nil
}

type comparisonResult struct {
	Comparisons []orchestrator.ComparisonView  `json:"comparisons"`
	Errors      []orchestrator.PlatformFailure `json:"errors"`
}

func (s *Server) comparePlatforms(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := unmarshalArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Query == "" {
		return nil, errs.NewInvalidArgumentError("query is required")
	}
	comparisons, failures := s.orch.ComparePlatforms(ctx, args.Query, s.defaultMinConfidence)
	return comparisonResult{Comparisons: nonNilComparisons(comparisons), Errors: nonNil(failures)}, nil
}

func unmarshalArgs(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errs.NewInvalidArgumentError("invalid arguments: %v", err)
	}
	return nil
}

func nonNil(failures []orchestrator.PlatformFailure) []orchestrator.PlatformFailure {
	if failures == nil {
		return []orchestrator.PlatformFailure{}
	}
	return failures
}

func nonNilTracked(tracked []orchestrator.TrackedView) []orchestrator.TrackedView {
	if tracked == nil {
		return []orchestrator.TrackedView{}
	}
	return tracked
}

func nonNilOpps(opps []orchestrator.OpportunityView) []orchestrator.OpportunityView {
	if opps == nil {
		return []orchestrator.OpportunityView{}
	}
	return opps
}

func nonNilComparisons(c []orchestrator.ComparisonView) []orchestrator.ComparisonView {
	if c == nil {
		return []orchestrator.ComparisonView{}
	}
	return c
}
