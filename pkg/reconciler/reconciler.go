// Package reconciler drives a reconciliation run: it ingests raw records,
// proposes and resolves cross-source links and assembles the canonical
// series, collecting record-level failures into a report instead of
// aborting.
package reconciler

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/retailsync/pkg/config"
	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/logging"
	"github.com/agentstation/retailsync/pkg/matcher"
	"github.com/agentstation/retailsync/pkg/metrics"
	"github.com/agentstation/retailsync/pkg/records"
	"github.com/agentstation/retailsync/pkg/resolver"
	"github.com/agentstation/retailsync/pkg/series"
	"github.com/agentstation/retailsync/pkg/sources"
)

// Reconciler is the main interface for reconciling records from multiple
// sources.
type Reconciler interface {
	// Reconcile runs the pipeline over already-fetched batches keyed by
	// source name.
	Reconcile(ctx context.Context, batches records.Batches) (*Result, error)

	// Sources reads every source and runs the pipeline over the records.
	// Sources that cannot be read are reported and skipped.
	Sources(ctx context.Context, srcs []sources.Source) (*Result, error)
}

// reconciler is the default implementation of Reconciler.
type reconciler struct {
	config  config.Config
	logger  *zerolog.Logger
	metrics *metrics.Metrics
}

// New creates a new Reconciler with options. Configuration is validated
// when a run starts.
func New(opts ...Option) (Reconciler, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}

	return &reconciler{
		config:  *options.config,
		logger:  options.logger,
		metrics: options.metrics,
	}, nil
}

// reconcileContext holds shared state for one run.
type reconcileContext struct {
	config    config.Config
	collector *collector
	matcher   *matcher.Matcher
	resolver  *resolver.Resolver
	assembler *series.Assembler
	logger    *zerolog.Logger
	report    *Report
}

// Reconcile performs reconciliation with clean step-by-step flow.
func (r *reconciler) Reconcile(ctx context.Context, batches records.Batches) (*Result, error) {
	return r.run(ctx, batches, nil)
}

// Sources fetches every source, then reconciles what was read.
func (r *reconciler) Sources(ctx context.Context, srcs []sources.Source) (*Result, error) {
	// Validate before touching any source.
	cfg := r.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fetchCtx := logging.WithStage(logging.WithLogger(ctx, r.baseLogger(ctx)), logging.StageFetch)
	batches, f, err := fetch(fetchCtx, srcs)
	if err != nil {
		return nil, err
	}
	return r.run(ctx, batches, f)
}

func (r *reconciler) run(ctx context.Context, batches records.Batches, f *fetched) (result *Result, err error) {
	// Step 1: Validate configuration and build the stages
	rctx, err := r.initialize()
	if err != nil {
		r.metrics.RecordRun(metrics.StatusOf(err), 0)
		return nil, err
	}
	ctx = logging.WithRunID(logging.WithLogger(ctx, r.baseLogger(ctx)), rctx.report.RunID)
	rctx.logger = logging.FromContext(ctx)
	defer func() {
		r.metrics.RecordRun(metrics.StatusOf(err), time.Since(rctx.report.StartTime))
		if err != nil {
			rctx.logger.Error().Err(err).Msg("Reconciliation failed")
		}
	}()

	if err := checkNames(batches); err != nil {
		return nil, err
	}

	// Step 2: Validate and normalize records
	stage := logging.WithStage(ctx, logging.StageIngest)
	if err := rctx.collector.collect(stage, batches); err != nil {
		return nil, err
	}
	logging.FromContext(stage).Debug().
		Int("sources", len(batches)).
		Int("members", len(rctx.collector.members)).
		Int("observations", len(rctx.collector.observations)).
		Msg("Ingested records")

	// Step 3: Propose links across every pair of sources
	stage = logging.WithStage(ctx, logging.StageMatch)
	links, err := rctx.matcher.Pairwise(stage, rctx.collector.keyed, rctx.config.SimilarityThreshold)
	if err != nil {
		return nil, err
	}
	r.metrics.RecordCandidates(len(links))
	logging.FromContext(stage).Debug().Int("candidates", len(links)).Msg("Matched members")

	// Step 4: Resolve links into canonical entities in one global pass
	stage = logging.WithStage(ctx, logging.StageResolve)
	entities, err := rctx.resolver.Resolve(rctx.collector.members, links)
	if err != nil {
		return nil, err
	}
	logging.FromContext(stage).Debug().
		Int("entities", entities.Len()).
		Int("accepted_links", entities.Stats().Accepted).
		Int("rejected_links", entities.Stats().Rejected).
		Msg("Resolved entities")

	// Step 5: Assemble series
	stage = logging.WithStage(ctx, logging.StageAssemble)
	if err := stage.Err(); err != nil {
		return nil, errors.WrapCanceled("assembler", err)
	}
	points, dataErrs, err := rctx.assembler.Assemble(stage, rctx.collector.observations, entities)
	if err != nil {
		return nil, err
	}
	logging.FromContext(stage).Debug().
		Int("points", len(points)).
		Int("dropped", len(dataErrs)).
		Msg("Assembled series")

	// Step 6: Build and return result
	return r.result(rctx, f, entities, points, dataErrs), nil
}

// baseLogger returns the configured logger, or the one carried by ctx.
func (r *reconciler) baseLogger(ctx context.Context) *zerolog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return logging.FromContext(ctx)
}

// initialize validates configuration and sets up the run context.
func (r *reconciler) initialize() (*reconcileContext, error) {
	cfg := r.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m, err := matcher.New(&matcher.Options{Blocking: cfg.Blocking, Workers: cfg.Workers})
	if err != nil {
		return nil, err
	}
	res, err := resolver.New(cfg.ResolvePolicy)
	if err != nil {
		return nil, err
	}
	asm, err := series.New(&series.Options{
		Granularity: cfg.PeriodGranularity,
		Policy:      cfg.DuplicatePolicy,
		Workers:     cfg.Workers,
		MaxPeriods:  cfg.MaxPeriods,
	})
	if err != nil {
		return nil, err
	}

	return &reconcileContext{
		config:    cfg,
		collector: newCollector(),
		matcher:   m,
		resolver:  res,
		assembler: asm,
		report:    NewReport(uuid.NewString(), cfg),
	}, nil
}

// result creates the final result.
func (r *reconciler) result(rctx *reconcileContext, f *fetched, entities *resolver.EntityMap, points []series.Point, dataErrs []*errors.DataError) *Result {
	report := rctx.report
	received := rctx.collector.received

	names := make(map[string]struct{}, len(received))
	for name := range received {
		names[name] = struct{}{}
	}
	if f != nil {
		for name, n := range f.rows {
			received[name] += n
			names[name] = struct{}{}
		}
		for name := range f.failures {
			names[name] = struct{}{}
		}
		report.Errors = append(report.Errors, f.errors...)
	}
	report.Errors = append(report.Errors, rctx.collector.errors...)
	report.Errors = append(report.Errors, dataErrs...)
	sort.SliceStable(report.Errors, func(i, j int) bool {
		if report.Errors[i].Source != report.Errors[j].Source {
			return report.Errors[i].Source < report.Errors[j].Source
		}
		return report.Errors[i].Index < report.Errors[j].Index
	})

	for name := range names {
		sr := SourceReport{Name: name}
		if f != nil && f.failures[name] != nil {
			sr.Error = f.failures[name].Error()
		}
		report.Sources = append(report.Sources, sr)
	}
	sort.Slice(report.Sources, func(i, j int) bool { return report.Sources[i].Name < report.Sources[j].Name })
	report.tally(received)

	stats := entities.Stats()
	report.Stats.Members = entities.MemberCount()
	report.Stats.Candidates = stats.Candidates
	report.Stats.AcceptedLinks = stats.Accepted
	report.Stats.RejectedLinks = stats.Rejected
	report.Stats.Entities = entities.Len()
	report.Stats.Points = len(points)
	for _, p := range points {
		if p.Imputed {
			report.Stats.Imputed++
		}
	}
	report.Finalize()

	for _, s := range report.Sources {
		r.metrics.RecordSource(s.Name, s.Accepted, s.Failed)
	}
	r.metrics.RecordOutput(report.Stats.Entities, report.Stats.Points, report.Stats.Imputed)

	rctx.logger.Info().
		Int("records", report.Stats.Records).
		Int("failed", report.Stats.Failed).
		Int("entities", report.Stats.Entities).
		Int("points", report.Stats.Points).
		Dur("duration", report.Duration).
		Msg("Reconciliation complete")

	if points == nil {
		points = []series.Point{}
	}
	return &Result{
		Series:   points,
		Entities: entities.Entities(),
		Report:   report,
	}
}
