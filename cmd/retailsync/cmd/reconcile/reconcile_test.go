package reconcile

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/retailsync/cmd/application"
	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/records"
	"github.com/agentstation/retailsync/pkg/sources"
)

func TestExecuteWithoutSources(t *testing.T) {
	err := Execute(context.Background(), &application.Mock{}, &Flags{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestExecuteWritesMetricsAndPrints(t *testing.T) {
	metricsFile := filepath.Join(t.TempDir(), "retailsync.prom")
	app := &application.Mock{
		OutputFormatFunc: func() string { return "csv" },
		MetricsFileFunc:  func() string { return metricsFile },
		SourcesFunc: func([]string) (*sources.Sources, error) {
			return sources.NewSources(
				sources.NewStaticSource("pos", []records.RawRecord{{SourceID: "1", Label: "Depot", Period: "2024-01", Quantity: 3}}),
				sources.NewStaticSource("erp", []records.RawRecord{{SourceID: "A", Label: "Depot", Period: "2024-01", Quantity: 5}}),
			), nil
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Execute(context.Background(), app, &Flags{}, &buf))
	assert.Contains(t, buf.String(), "2024-01,8,")

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `retailsync_runs_total{status="success"} 1`)
}

func TestExecuteStoreError(t *testing.T) {
	app := &application.Mock{
		StoreDSNFunc: func() string { return "retailsync.db" },
		SourcesFunc: func([]string) (*sources.Sources, error) {
			return sources.NewSources(sources.NewStaticSource("pos", nil)), nil
		},
	}
	err := Execute(context.Background(), app, &Flags{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err), "mock store is unconfigured")
}
