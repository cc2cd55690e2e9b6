package application

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/retailsync/pkg/config"
	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/sources"
	"github.com/agentstation/retailsync/pkg/store"
)

// Mock provides a mock implementation of Application for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default value.
type Mock struct {
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string
	PipelineFunc     func() config.Config
	SourcesFunc      func(adhoc []string) (*sources.Sources, error)
	StoreFunc        func(ctx context.Context) (*store.Store, error)
	StoreDSNFunc     func() string
	MetricsFileFunc  func() string
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns the output format using the mock function or "table".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "table"
}

// Pipeline returns the pipeline config using the mock function or the
// defaults.
func (m *Mock) Pipeline() config.Config {
	if m.PipelineFunc != nil {
		return m.PipelineFunc()
	}
	return *config.Default()
}

// Sources returns sources using the mock function or an empty set.
func (m *Mock) Sources(adhoc []string) (*sources.Sources, error) {
	if m.SourcesFunc != nil {
		return m.SourcesFunc(adhoc)
	}
	return sources.NewSources(), nil
}

// Store returns a store using the mock function or a ConfigError.
func (m *Mock) Store(ctx context.Context) (*store.Store, error) {
	if m.StoreFunc != nil {
		return m.StoreFunc(ctx)
	}
	return nil, errors.NewConfigError("cli", "store_dsn", "no store configured")
}

// StoreDSN returns the store DSN using the mock function or "".
func (m *Mock) StoreDSN() string {
	if m.StoreDSNFunc != nil {
		return m.StoreDSNFunc()
	}
	return ""
}

// MetricsFile returns the metrics path using the mock function or "".
func (m *Mock) MetricsFile() string {
	if m.MetricsFileFunc != nil {
		return m.MetricsFileFunc()
	}
	return ""
}

// Ensure Mock implements Application at compile time.
var _ Application = (*Mock)(nil)
