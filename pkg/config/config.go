// Package config holds the pipeline configuration shared by the library
// entry points and the CLI.
package config

import (
	"fmt"
	"runtime"

	"github.com/agentstation/retailsync/pkg/constants"
	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/matcher"
	"github.com/agentstation/retailsync/pkg/period"
	"github.com/agentstation/retailsync/pkg/resolver"
	"github.com/agentstation/retailsync/pkg/series"
)

// Config configures one reconciliation run. Field tags match the keys of
// the CLI config file.
type Config struct {
	// SimilarityThreshold is the inclusive minimum similarity of a candidate link, in (0,1]
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" json:"similarity_threshold" yaml:"similarity_threshold"`

	// DuplicatePolicy combines duplicate observations: sum, mean or last
	DuplicatePolicy series.Policy `mapstructure:"duplicate_policy" json:"duplicate_policy" yaml:"duplicate_policy"`

	// PeriodGranularity is the series bucket size: day, week or month
	PeriodGranularity period.Granularity `mapstructure:"period_granularity" json:"period_granularity" yaml:"period_granularity"`

	// Blocking selects the matcher bucketing: length, first_token or none
	Blocking matcher.Blocking `mapstructure:"blocking" json:"blocking" yaml:"blocking"`

	// ResolvePolicy is one_to_one or one_to_many
	ResolvePolicy resolver.Policy `mapstructure:"resolve_policy" json:"resolve_policy" yaml:"resolve_policy"`

	// Workers bounds concurrent matcher buckets and assembler groups
	Workers int `mapstructure:"workers" json:"workers" yaml:"workers"`

	// MaxPeriods bounds the gap-filled span of one entity
	MaxPeriods int `mapstructure:"max_periods" json:"max_periods" yaml:"max_periods"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		SimilarityThreshold: constants.DefaultSimilarityThreshold,
		DuplicatePolicy:     series.Policy(constants.DefaultDuplicatePolicy),
		PeriodGranularity:   period.Granularity(constants.DefaultGranularity),
		Blocking:            matcher.Blocking(constants.DefaultBlocking),
		ResolvePolicy:       resolver.Policy(constants.DefaultResolvePolicy),
		Workers:             runtime.GOMAXPROCS(0),
		MaxPeriods:          constants.MaxSeriesPeriods,
	}
}

// WithDefaults returns a copy of c with zero-valued fields set to their
// defaults. A zero threshold is kept, so Validate rejects it.
func (c Config) WithDefaults() *Config {
	d := Default()
	if c.DuplicatePolicy == "" {
		c.DuplicatePolicy = d.DuplicatePolicy
	}
	if c.PeriodGranularity == "" {
		c.PeriodGranularity = d.PeriodGranularity
	}
	if c.Blocking == "" {
		c.Blocking = d.Blocking
	}
	if c.ResolvePolicy == "" {
		c.ResolvePolicy = d.ResolvePolicy
	}
	if c.Workers == 0 {
		c.Workers = d.Workers
	}
	if c.MaxPeriods == 0 {
		c.MaxPeriods = d.MaxPeriods
	}
	return &c
}

// Validate checks every field and returns the first invalid one as a
// ConfigError. Enum fields are rewritten to their canonical lower-case form.
func (c *Config) Validate() error {
	if c == nil {
		return errors.NewConfigError("config", "", "configuration is nil")
	}
	if err := matcher.ValidateThreshold(c.SimilarityThreshold); err != nil {
		return err
	}
	policy, err := series.ParsePolicy(string(c.DuplicatePolicy))
	if err != nil {
		return err
	}
	c.DuplicatePolicy = policy

	granularity, err := period.ParseGranularity(string(c.PeriodGranularity))
	if err != nil {
		return err
	}
	c.PeriodGranularity = granularity

	blocking, err := matcher.ParseBlocking(string(c.Blocking))
	if err != nil {
		return err
	}
	c.Blocking = blocking

	resolve, err := resolver.ParsePolicy(string(c.ResolvePolicy))
	if err != nil {
		return err
	}
	c.ResolvePolicy = resolve

	if c.Workers < 1 || c.Workers > constants.MaxWorkers {
		return errors.NewConfigError("config", "workers",
			fmt.Sprintf("must be between 1 and %d, got %d", constants.MaxWorkers, c.Workers))
	}
	if c.MaxPeriods < 1 {
		return errors.NewConfigError("config", "max_periods", "must be positive")
	}
	return nil
}
