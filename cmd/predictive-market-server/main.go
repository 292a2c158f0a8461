// Command predictive-market-server wires the platform adapters, matcher,
// arbitrage detector and watchlist into an Orchestrator, then exposes it
// over a line-delimited JSON tool-calling surface on stdio.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/artemgubar/predictive-market-federation/internal/adapters"
	"github.com/artemgubar/predictive-market-federation/internal/arb"
	"github.com/artemgubar/predictive-market-federation/internal/config"
	"github.com/artemgubar/predictive-market-federation/internal/debughttp"
	"github.com/artemgubar/predictive-market-federation/internal/logging"
	"github.com/artemgubar/predictive-market-federation/internal/match"
	"github.com/artemgubar/predictive-market-federation/internal/orchestrator"
	"github.com/artemgubar/predictive-market-federation/internal/ratelimit"
	"github.com/artemgubar/predictive-market-federation/internal/toolserver"
	"github.com/artemgubar/predictive-market-federation/internal/watchlist"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	logger.Info().Str("config", *configPath).Msg("configuration loaded")

	adapterSet := buildAdapters(cfg)
	limiter := ratelimit.New(rateLimits(cfg))
	matcher := match.New()
	detector := arb.New(matcher)
	wl := watchlist.New()

	orch := orchestrator.New(adapterSet, limiter, matcher, detector, wl, logger)
	defer func() {
		if err := orch.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing orchestrator")
		}
	}()

	server := toolserver.New(orch, toolserver.Options{
		DefaultMinConfidence: cfg.Matching.DefaultMinConfidence,
		DefaultMinSpread:     cfg.Matching.DefaultMinSpread,
		BrowseLimit:          cfg.Matching.BrowseLimit,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var debugSrv *debughttp.Server
	if cfg.Metrics.Enabled {
		debugSrv = debughttp.NewServer(cfg.Server.DebugAddr, logger)
		go func() {
			if err := debugSrv.Start(); err != nil {
				logger.Error().Err(err).Msg("debug http server error")
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ctx, os.Stdin, os.Stdout)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logger.Error().Err(err).Msg("tool server stopped with error")
		}
	}

	if debugSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := debugSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("debug http server shutdown error")
		}
	}

	logger.Info().Msg("shutdown complete")
}

func buildAdapters(cfg *config.Config) map[string]adapters.Adapter {
	set := map[string]adapters.Adapter{
		"manifold":   adapters.NewManifoldAdapter(),
		"polymarket": adapters.NewPolymarketAdapter(),
		"metaculus":  adapters.NewMetaculusAdapter(),
		"predictit":  adapters.NewPredictItAdapter(),
	}
	if cfg.Kalshi.KeyID != "" {
		set["kalshi"] = adapters.NewKalshiAdapter([]byte(cfg.Kalshi.PrivateKeyPEM), cfg.Kalshi.KeyID)
	} else {
		set["kalshi"] = adapters.NewKalshiAdapter(nil, "")
	}
	return set
}

func rateLimits(cfg *config.Config) map[string]int {
	if len(cfg.RateLimits.RequestsPerMinute) == 0 {
		return nil
	}
	limits := make(map[string]int, len(ratelimit.DefaultLimits))
	for platform, limit := range ratelimit.DefaultLimits {
		limits[platform] = limit
	}
	for platform, limit := range cfg.RateLimits.RequestsPerMinute {
		limits[platform] = limit
	}
	return limits
}
