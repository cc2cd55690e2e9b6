package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/logging"
)

const posCSV = `id,label,period,quantity
12,Store 12 North,2024-01,3
12,Store 12 North,2024-03,1
13,Depot,March,2
`

const erpJSON = `[{"id": "S-12", "label": "North Store #12", "period": "2024-01", "quantity": 5}]`

// fixtures writes the two sample sources and returns the ad hoc flags.
func fixtures(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	pos := filepath.Join(dir, "pos.csv")
	erp := filepath.Join(dir, "erp.json")
	require.NoError(t, os.WriteFile(pos, []byte(posCSV), 0o600))
	require.NoError(t, os.WriteFile(erp, []byte(erpJSON), 0o600))
	return []string{"--source", "pos=" + pos, "--source", "erp=" + erp}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	a, err := New("1.2.3", "abc123", "2024-01-01", "test",
		WithOutput(&out), WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })

	err = a.Execute(context.Background(), append(args, "--log-level", "error"))
	return out.String(), err
}

func TestReconcileJSON(t *testing.T) {
	out, err := run(t, append([]string{"reconcile", "-o", "json"}, fixtures(t)...)...)
	require.NoError(t, err)

	var result struct {
		Series []struct {
			Value   float64 `json:"value"`
			Imputed bool    `json:"imputed"`
		} `json:"series"`
		Report struct {
			Stats struct {
				Records int `json:"records"`
				Failed  int `json:"failed"`
			} `json:"stats"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	require.Len(t, result.Series, 3)
	assert.Equal(t, 8.0, result.Series[0].Value)
	assert.True(t, result.Series[1].Imputed)
	assert.Equal(t, 1.0, result.Series[2].Value)
	assert.Equal(t, 4, result.Report.Stats.Records)
	assert.Equal(t, 1, result.Report.Stats.Failed)
}

func TestReconcileCSV(t *testing.T) {
	out, err := run(t, append([]string{"reconcile", "-o", "csv"}, fixtures(t)...)...)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Canonical ID,Label,Period,Value,Imputed", lines[0])
	assert.Contains(t, lines[2], ",2024-02,0,true")
}

func TestReconcileTable(t *testing.T) {
	out, err := run(t, append([]string{"reconcile", "-o", "table", "--entities"}, fixtures(t)...)...)
	require.NoError(t, err)

	assert.Contains(t, out, "2024-02")
	assert.Contains(t, out, "erp:S-12")
	assert.Contains(t, out, "March")
	assert.Contains(t, out, "1 records failed")
}

func TestReconcileStoreAndRuns(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "runs.db")
	metricsFile := filepath.Join(t.TempDir(), "retailsync.prom")

	_, err := run(t, append([]string{"reconcile", "-o", "json", "--store-dsn", dsn, "--metrics-file", metricsFile}, fixtures(t)...)...)
	require.NoError(t, err)

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `retailsync_runs_total{status="success"} 1`)

	out, err := run(t, "runs", "-o", "csv", "--store-dsn", dsn)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	runID := strings.Split(lines[1], ",")[0]

	out, err = run(t, "runs", runID, "-o", "csv", "--store-dsn", dsn)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 4)

	_, err = run(t, "runs", "missing", "--store-dsn", dsn)
	assert.True(t, errors.IsNotFound(err))

	out, err = run(t, "runs", "diff", runID, runID, "--store-dsn", dsn, "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "No changes detected")
}

func TestReconcileWithoutSources(t *testing.T) {
	_, err := run(t, "reconcile")
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestReconcileInvalidThreshold(t *testing.T) {
	_, err := run(t, append([]string{"reconcile", "--threshold", "1.5"}, fixtures(t)...)...)
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestRunsWithoutStore(t *testing.T) {
	_, err := run(t, "runs")
	assert.True(t, errors.IsConfigError(err))
}

func TestNormalizeCommand(t *testing.T) {
	out, err := run(t, "normalize", "-o", "csv", "Store 12 North", "North-Store #12.")
	require.NoError(t, err)
	assert.Equal(t, "Label,Key,Error\nStore 12 North,12 north store,\nNorth-Store #12.,12 north store,\n", out)
}

func TestMatchCommand(t *testing.T) {
	out, err := run(t, append([]string{"match", "pos", "erp", "-o", "csv"}, fixtures(t)...)...)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "pos:12,erp:S-12,1.0000,label", lines[1])
}

func TestMatchUnknownSource(t *testing.T) {
	_, err := run(t, "match", "pos", "nowhere")
	assert.True(t, errors.IsConfigError(err))
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "retailsync 1.2.3\n", out)
}
