// Package logging provides structured logging for retailsync using zerolog.
// Terminals get a human-readable console writer; pipes and files get JSON
// lines.
//
// A reconciliation run carries its logger in the context, tagged with the
// run id, and narrows it per source and per pipeline stage:
//
//	ctx = logging.WithRunID(logging.WithLogger(ctx, base), runID)
//	logging.FromContext(logging.WithStage(ctx, logging.StageMatch)).
//	    Debug().Int("candidates", n).Msg("Matched members")
package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// defaultLogger backs FromContext when a context carries no logger. It is
// configured from LOG_LEVEL, LOG_FORMAT, LOG_OUTPUT and NO_COLOR.
var defaultLogger = NewLoggerFromConfig(configFromEnv())

// Default returns the default logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the default logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
}

// configFromEnv reads the default logger configuration from the
// environment. DEBUG=1 is a shortcut for LOG_LEVEL=debug.
func configFromEnv() *Config {
	cfg := DefaultConfig()
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Level = v
	} else if os.Getenv("DEBUG") != "" {
		cfg.Level = "debug"
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("LOG_OUTPUT"); v != "" {
		cfg.Output = v
	}
	return cfg
}

// terminal reports whether f is an interactive terminal.
func terminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
