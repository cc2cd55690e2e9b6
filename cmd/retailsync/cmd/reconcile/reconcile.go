package reconcile

import (
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentstation/retailsync"
	"github.com/agentstation/retailsync/cmd/application"
	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/metrics"
	"github.com/agentstation/retailsync/pkg/reconciler"
)

// Execute builds the sources, runs the pipeline, then persists and prints
// the result.
func Execute(ctx context.Context, app application.Application, flags *Flags, w io.Writer) error {
	logger := app.Logger()

	// Step 1: Build the sources
	srcs, err := app.Sources(flags.Sources)
	if err != nil {
		return err
	}
	if srcs.Len() == 0 {
		return errors.NewConfigError("cli", "sources", "no sources configured; use the config file or --source name=path")
	}

	// Step 2: Build the pipeline with metrics on a private registry
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}
	cfg := app.Pipeline()
	pipeline, err := retailsync.New(
		retailsync.WithConfig(&cfg),
		retailsync.WithReconcilerOptions(
			reconciler.WithLogger(logger),
			reconciler.WithMetrics(m),
		),
	)
	if err != nil {
		return err
	}
	pipeline.OnDataError(func(de *errors.DataError) {
		logger.Debug().
			Str("source", de.Source).
			Int("record", de.Index).
			Str("field", de.Field).
			Msg(de.Message)
	})

	// Step 3: Run
	result, runErr := pipeline.RunSources(ctx, srcs.List()...)

	// Step 4: Metrics are written for failed runs too
	if path := app.MetricsFile(); path != "" {
		if err := metrics.WriteTextfile(path, reg); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Failed to write metrics")
		}
	}
	if runErr != nil {
		return runErr
	}

	// Step 5: Persist
	if app.StoreDSN() != "" {
		s, err := app.Store(ctx)
		if err != nil {
			return err
		}
		if err := s.SaveResult(ctx, result); err != nil {
			return err
		}
		logger.Info().Str("run_id", result.Report.RunID).Msg("Saved run")
	}

	// Step 6: Print
	return printResult(w, app.OutputFormat(), result, flags.Entities)
}
