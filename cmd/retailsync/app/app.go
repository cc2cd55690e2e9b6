// Package app provides the application context and dependency management
// for the retailsync CLI: configuration, logging and the commands that
// drive the reconciliation pipeline.
package app

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/agentstation/retailsync/cmd/application"
	"github.com/agentstation/retailsync/pkg/config"
	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/sources"
	"github.com/agentstation/retailsync/pkg/store"
)

// Ensure App implements application.Application at compile time.
var _ application.Application = (*App)(nil)

// App represents the retailsync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	viper  *viper.Viper
	config *Config
	logger *zerolog.Logger

	// fixed is set when the configuration was injected and must not be
	// re-read from viper.
	fixed bool

	// out overrides stdout and stderr of the commands
	out io.Writer

	// Result store (lazy-initialized, singleton)
	mu    sync.Mutex
	store *store.Store
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		viper:   viper.New(),
	}

	config, err := LoadConfig(app.viper, "")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the requested output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Pipeline returns a copy of the pipeline configuration.
func (a *App) Pipeline() config.Config {
	return a.config.Pipeline
}

// Sources builds the configured sources plus the ad hoc name=path sources.
func (a *App) Sources(adhoc []string) (*sources.Sources, error) {
	return buildSources(a.config.Sources, adhoc)
}

// StoreDSN returns the configured result store DSN.
func (a *App) StoreDSN() string {
	return a.config.StoreDSN
}

// MetricsFile returns the configured metrics textfile path.
func (a *App) MetricsFile() string {
	return a.config.MetricsFile
}

// Store opens the result store named by the store DSN, once.
func (a *App) Store(ctx context.Context) (*store.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.store != nil {
		return a.store, nil
	}
	if a.config.StoreDSN == "" {
		return nil, errors.NewConfigError("cli", "store_dsn", "no store configured")
	}

	driver, dsn := store.ParseDSN(a.config.StoreDSN)
	s, err := store.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := s.AutoMigrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	a.logger.Debug().Str("driver", driver).Msg("Opened result store")
	a.store = s
	return s, nil
}

// Shutdown releases the resources held by the application.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		a.fixed = true
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithOutput redirects command output.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}
