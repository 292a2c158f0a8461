// Package logging builds the structured logger threaded explicitly through
// the engine's components, rather than relied on as a package-global.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/artemgubar/predictive-market-federation/internal/config"
)

// New builds a zerolog.Logger from the given logging configuration.
func New(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var writer = os.Stderr
	var logger zerolog.Logger
	if strings.ToLower(cfg.Format) == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}).
			Level(level).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(writer).Level(level).With().Timestamp().Logger()
	}
	return logger
}
