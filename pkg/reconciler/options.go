package reconciler

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/retailsync/pkg/config"
	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/metrics"
)

// Options configures a reconciler.
type options struct {
	config    *config.Config
	overrides []func(*config.Config)
	logger    *zerolog.Logger
	metrics   *metrics.Metrics
}

func defaultOptions() *options {
	return &options{
		config: config.Default(),
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (options *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	return options, nil
}

// newOptions returns reconciler options with default values. Field
// overrides apply on top of the configuration regardless of option order.
func newOptions(opts ...Option) (*options, error) {
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}
	for _, override := range o.overrides {
		override(o.config)
	}
	return o, nil
}

// WithConfig sets the pipeline configuration. Zero-valued fields take their
// defaults; the result is validated when a run starts.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return &errors.ValidationError{
				Field:   "config",
				Message: "cannot be nil",
			}
		}
		o.config = cfg.WithDefaults()
		return nil
	}
}

// WithSimilarityThreshold overrides the matcher threshold, before or after
// WithConfig.
func WithSimilarityThreshold(threshold float64) Option {
	return func(o *options) error {
		o.overrides = append(o.overrides, func(c *config.Config) { c.SimilarityThreshold = threshold })
		return nil
	}
}

// WithWorkers overrides the worker pool size, before or after WithConfig.
func WithWorkers(n int) Option {
	return func(o *options) error {
		o.overrides = append(o.overrides, func(c *config.Config) { c.Workers = n })
		return nil
	}
}

// WithLogger sets the logger. Without it the logger is taken from the
// context of each run.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithMetrics records run metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}
