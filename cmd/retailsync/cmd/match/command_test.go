package match

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/retailsync/cmd/application"
	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/records"
	"github.com/agentstation/retailsync/pkg/sources"
)

func mockApp(batches map[string][]records.RawRecord) *application.Mock {
	return &application.Mock{
		OutputFormatFunc: func() string { return "csv" },
		SourcesFunc: func([]string) (*sources.Sources, error) {
			srcs := sources.NewSources()
			for name, recs := range batches {
				srcs.Set(sources.ID(name), sources.NewStaticSource(sources.ID(name), recs))
			}
			return srcs, nil
		},
	}
}

func TestExecuteSkipsRecordsThePipelineRejects(t *testing.T) {
	app := mockApp(map[string][]records.RawRecord{
		"pos": {
			{SourceID: "12", Label: "Store 12 North", Period: "2024-03", Quantity: math.NaN()},
			{SourceID: "14", Label: "Harbor Outlet", Period: "2024-03", Quantity: 1},
		},
		"erp": {
			{SourceID: "S-12", Label: "North Store #12", Period: "2024-03", Quantity: 1},
			{SourceID: "S-14", Label: "Harbor Outlet", Period: "2024-03", Quantity: 1},
		},
	})

	var buf bytes.Buffer
	require.NoError(t, Execute(context.Background(), app, nil, "pos", "erp", &buf))
	out := buf.String()
	assert.Contains(t, out, "pos:14,erp:S-14,1.0000,label")
	assert.NotContains(t, out, "pos:12")
}

func TestKeyRecords(t *testing.T) {
	keyed := keyRecords("pos", []records.RawRecord{
		{SourceID: " 7 ", Label: "Depot", Period: "2024-01", Quantity: 1},
		{SourceID: "7", Label: "Depot Annex", Period: "2024-02", Quantity: 1},
		{Label: "Kiosk", Period: "2024-01", Quantity: 1},
		{SourceID: "8", Label: "", Period: "2024-01", Quantity: 1},
		{SourceID: "9", Label: "Mall", Period: "", Quantity: 1},
	})
	require.Len(t, keyed, 2)
	assert.Equal(t, records.MemberID("pos:7"), keyed[0].Member)
	assert.Equal(t, "depot", keyed[0].Key.String(), "first label wins")
	assert.Equal(t, records.MemberID("pos:kiosk"), keyed[1].Member)
}

func TestExecuteErrors(t *testing.T) {
	app := mockApp(map[string][]records.RawRecord{"pos": nil})

	err := Execute(context.Background(), app, nil, "pos", "nowhere", &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))

	app.SourcesFunc = func([]string) (*sources.Sources, error) {
		srcs := sources.NewSources()
		srcs.Set("a", sources.NewStaticSource("a", nil))
		srcs.Set("b", sources.NewStaticSource("b", nil))
		return srcs, nil
	}
	require.NoError(t, Execute(context.Background(), app, nil, "a", "b", &bytes.Buffer{}))
}
