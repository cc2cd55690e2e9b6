package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// Pipeline stages tagged on log lines by WithStage.
const (
	StageFetch    = "fetch"
	StageIngest   = "ingest"
	StageMatch    = "match"
	StageResolve  = "resolve"
	StageAssemble = "assemble"
)

type contextKey int

const (
	loggerKey contextKey = iota
	runIDKey
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the logger from context, or returns the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return Default()
	}
	if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
		return logger
	}
	return Default()
}

// WithRunID tags the context and its logger with a reconciliation run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	ctx = context.WithValue(ctx, runIDKey, runID)
	return with(ctx, "run_id", runID)
}

// RunID returns the run id of the context, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// WithSource tags the context logger with a source name.
func WithSource(ctx context.Context, source string) context.Context {
	return with(ctx, "source", source)
}

// WithStage tags the context logger with a pipeline stage.
func WithStage(ctx context.Context, stage string) context.Context {
	return with(ctx, "stage", stage)
}

func with(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, &logger)
}
