// Package retailsync reconciles retail records from heterogeneous sources
// into canonical entities and assembles one clean, gap-filled time series
// per entity for demand forecasting.
//
// Labels are normalized, matched across sources by approximate string
// similarity, resolved greedily into canonical entities and aggregated per
// period. Records that cannot be used are reported, never fatal.
//
// Example usage:
//
//	batches := records.Batches{
//	    "pos": {{SourceID: "12", Label: "Store 12 North", Period: "2024-03", Quantity: 3}},
//	    "erp": {{SourceID: "S-12", Label: "North Store #12", Period: "2024-03", Quantity: 5}},
//	}
//	result, err := retailsync.ReconcileAndAssemble(ctx, batches, config.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Report.Summary())
package retailsync

import (
	"context"

	"github.com/agentstation/retailsync/pkg/config"
	"github.com/agentstation/retailsync/pkg/reconciler"
	"github.com/agentstation/retailsync/pkg/records"
	"github.com/agentstation/retailsync/pkg/sources"
)

// ReconcileAndAssemble runs the whole pipeline over batches keyed by source
// name. A nil cfg uses config.Default. ConfigError, ConflictError and
// cancellation return no result; record-level failures are listed in the
// result's report.
func ReconcileAndAssemble(ctx context.Context, batches records.Batches, cfg *config.Config, opts ...reconciler.Option) (*reconciler.Result, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	r, err := reconciler.New(append([]reconciler.Option{reconciler.WithConfig(cfg)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return r.Reconcile(ctx, batches)
}

// Pipeline runs reconciliations with a fixed configuration and notifies
// registered hooks about each completed run.
type Pipeline interface {
	// Run reconciles already-fetched batches
	Run(ctx context.Context, batches records.Batches) (*reconciler.Result, error)

	// RunSources reads the sources and reconciles their records
	RunSources(ctx context.Context, srcs ...sources.Source) (*reconciler.Result, error)

	// OnRunCompleted registers a callback for completed runs
	OnRunCompleted(RunCompletedHook)

	// OnEntityResolved registers a callback for each resolved entity
	OnEntityResolved(EntityResolvedHook)

	// OnDataError registers a callback for each dropped record
	OnDataError(DataErrorHook)
}

// pipeline is the internal implementation of the Pipeline interface
type pipeline struct {
	*hooks
	reconciler reconciler.Reconciler
}

// New creates a new Pipeline with the given options
func New(opts ...Option) (Pipeline, error) {
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}

	r, err := reconciler.New(append([]reconciler.Option{reconciler.WithConfig(o.config)}, o.reconciler...)...)
	if err != nil {
		return nil, err
	}
	return &pipeline{hooks: newHooks(), reconciler: r}, nil
}

// Run reconciles already-fetched batches
func (p *pipeline) Run(ctx context.Context, batches records.Batches) (*reconciler.Result, error) {
	result, err := p.reconciler.Reconcile(ctx, batches)
	if err != nil {
		return nil, err
	}
	p.trigger(result)
	return result, nil
}

// RunSources reads the sources and reconciles their records
func (p *pipeline) RunSources(ctx context.Context, srcs ...sources.Source) (*reconciler.Result, error) {
	result, err := p.reconciler.Sources(ctx, srcs)
	if err != nil {
		return nil, err
	}
	p.trigger(result)
	return result, nil
}
