// Package application provides the application interface for retailsync
// commands.
//
// Commands accept this interface rather than the concrete App type so they
// can be tested with a Mock:
//
//	mock := &application.Mock{
//	    PipelineFunc: func() config.Config { return *config.Default() },
//	}
//	cmd := normalize.NewCommand(mock)
package application

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/retailsync/pkg/config"
	"github.com/agentstation/retailsync/pkg/sources"
	"github.com/agentstation/retailsync/pkg/store"
)

// Application provides what commands need from the application layer.
// The App struct from cmd/retailsync/app implements it.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the requested output format, empty for auto.
	OutputFormat() string

	// Pipeline returns a copy of the effective pipeline configuration.
	Pipeline() config.Config

	// Sources builds the configured sources plus ad hoc name=path file
	// sources.
	Sources(adhoc []string) (*sources.Sources, error)

	// Store returns the result store, opened and migrated on first use.
	Store(ctx context.Context) (*store.Store, error)

	// StoreDSN returns the configured store DSN, empty when none is set.
	StoreDSN() string

	// MetricsFile returns the metrics textfile path, empty when none is set.
	MetricsFile() string
}
