package retailsync

import (
	"github.com/agentstation/retailsync/pkg/config"
	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/reconciler"
)

// Option is a function that configures a Pipeline
type Option func(*options) error

type options struct {
	config     *config.Config
	reconciler []reconciler.Option
}

func defaultOptions() *options {
	return &options{config: config.Default()}
}

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithConfig sets the pipeline configuration
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return &errors.ValidationError{Field: "config", Message: "cannot be nil"}
		}
		o.config = cfg
		return nil
	}
}

// WithReconcilerOptions passes options through to the reconciler, such as
// reconciler.WithLogger or reconciler.WithMetrics
func WithReconcilerOptions(opts ...reconciler.Option) Option {
	return func(o *options) error {
		o.reconciler = append(o.reconciler, opts...)
		return nil
	}
}
