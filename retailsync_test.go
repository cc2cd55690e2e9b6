package retailsync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/retailsync/pkg/config"
	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/logging"
	"github.com/agentstation/retailsync/pkg/reconciler"
	"github.com/agentstation/retailsync/pkg/records"
	"github.com/agentstation/retailsync/pkg/resolver"
	"github.com/agentstation/retailsync/pkg/series"
	"github.com/agentstation/retailsync/pkg/sources"
)

func batches() records.Batches {
	return records.Batches{
		"pos": {
			{SourceID: "12", Label: "Store 12 North", Period: "2024-03", Quantity: 3},
			{SourceID: "12", Label: "Store 12 North", Period: "2024-01", Quantity: 1},
		},
		"erp": {
			{SourceID: "S-12", Label: "North Store #12", Period: "2024-03", Quantity: 5},
			{SourceID: "S-40", Label: "Lakeside", Period: "bad", Quantity: 5},
		},
	}
}

func TestReconcileAndAssemble(t *testing.T) {
	result, err := ReconcileAndAssemble(context.Background(), batches(), nil,
		reconciler.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	id := resolver.CanonicalID("erp:S-12")
	want := []series.Point{
		{CanonicalID: id, Period: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), Value: 1},
		{CanonicalID: id, Period: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), Value: 0, Imputed: true},
		{CanonicalID: id, Period: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), Value: 8},
	}
	assert.Equal(t, want, result.Series)
	require.Len(t, result.Report.Errors, 1)
	assert.Equal(t, "erp", result.Report.Errors[0].Source)
	assert.Len(t, result.Entities, 2, "Lakeside keeps its entity even without points")
}

func TestReconcileAndAssembleConfigError(t *testing.T) {
	cfg := config.Default()
	cfg.DuplicatePolicy = "median"

	result, err := ReconcileAndAssemble(context.Background(), batches(), cfg)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.IsConfigError(err))
}

func TestPipelineHooks(t *testing.T) {
	p, err := New(WithReconcilerOptions(reconciler.WithLogger(logging.NewNopLogger())))
	require.NoError(t, err)

	var order []string
	var entities int
	p.OnDataError(func(de *errors.DataError) {
		order = append(order, "data_error")
		assert.Equal(t, "period", de.Field)
	})
	p.OnEntityResolved(func(resolver.CanonicalEntity) {
		if entities == 0 {
			order = append(order, "entity")
		}
		entities++
	})
	p.OnRunCompleted(func(r *reconciler.Result) {
		order = append(order, "run")
		assert.NotEmpty(t, r.Report.RunID)
	})

	_, err = p.Run(context.Background(), batches())
	require.NoError(t, err)
	assert.Equal(t, []string{"data_error", "entity", "run"}, order)
	assert.Equal(t, 2, entities)
}

func TestPipelineRunSources(t *testing.T) {
	var completed bool
	p, err := New(
		WithConfig(config.Default()),
		WithReconcilerOptions(reconciler.WithLogger(logging.NewNopLogger())),
	)
	require.NoError(t, err)
	p.OnRunCompleted(func(*reconciler.Result) { completed = true })

	b := batches()
	result, err := p.RunSources(context.Background(),
		sources.NewStaticSource("pos", b["pos"]),
		sources.NewStaticSource("erp", b["erp"]))
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Len(t, result.Series, 3)
}

func TestPipelineNoHooksOnFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Workers = -1
	p, err := New(WithConfig(cfg))
	require.NoError(t, err)

	called := false
	p.OnRunCompleted(func(*reconciler.Result) { called = true })
	_, err = p.Run(context.Background(), batches())
	assert.True(t, errors.IsConfigError(err))
	assert.False(t, called)

	_, err = New(WithConfig(nil))
	assert.True(t, errors.IsValidationError(err))
}
