package sources

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/records"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSchemaDecode(t *testing.T) {
	rows := []Row{
		{"store": "12", "name": "Store 12 North", "month": 202403.0, "units": "1,250", "region": "west"},
		{"store": "13", "name": "", "month": "2024-03", "units": 4},
		{"store": "14", "name": "Harbor", "month": "2024-03", "units": "n/a"},
		{"name": "Mall", "month": "2024-03", "units": 2},
	}
	schema := Schema{ID: "store", Label: "name", Period: "month", Quantity: "units", Attributes: []string{"region"}}

	batch := schema.Decode("pos", rows)
	require.Len(t, batch.Records, 2)
	require.Len(t, batch.Errors, 2)
	assert.Equal(t, 4, batch.Len())

	first := batch.Records[0]
	assert.Equal(t, records.RawRecord{
		Source:     "pos",
		SourceID:   "12",
		Label:      "Store 12 North",
		Period:     "202403",
		Quantity:   1250,
		Attributes: map[string]any{"region": "west"},
	}, first)
	assert.Equal(t, "", batch.Records[1].SourceID)

	assert.Equal(t, 1, batch.Errors[0].Index)
	assert.Equal(t, "name", batch.Errors[0].Field)
	assert.Equal(t, 2, batch.Errors[1].Index)
	assert.Equal(t, "units", batch.Errors[1].Field)
	assert.True(t, errors.IsDataError(batch.Errors[0]))
}

func TestLoadFileFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"csv", "pos.csv", "id,label,period,quantity\n1,North Store,2024-01,3\n2,South Store,2024-01,5\n"},
		{"tsv", "pos.tsv", "id\tlabel\tperiod\tquantity\n1\tNorth Store\t2024-01\t3\n2\tSouth Store\t2024-01\t5\n"},
		{"json array", "pos.json", `[{"id":1,"label":"North Store","period":"2024-01","quantity":3},
			{"id":2,"label":"South Store","period":"2024-01","quantity":5}]`},
		{"json envelope", "env.json", `{"records":[{"id":"1","label":"North Store","period":"2024-01","quantity":3},
			{"id":"2","label":"South Store","period":"2024-01","quantity":5}]}`},
		{"yaml", "pos.yaml", "- id: 1\n  label: North Store\n  period: 2024-01\n  quantity: 3\n- id: 2\n  label: South Store\n  period: 2024-01\n  quantity: 5\n"},
		{"yaml envelope", "env.yml", "records:\n  - id: 1\n    label: North Store\n    period: 2024-01\n    quantity: 3\n  - id: 2\n    label: South Store\n    period: 2024-01\n    quantity: 5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			src := NewFileSource(FileSpec{Name: "pos", Path: path})
			assert.Equal(t, ID("pos"), src.ID())

			batch, err := src.Records(context.Background())
			require.NoError(t, err)
			require.Empty(t, batch.Errors)
			require.Len(t, batch.Records, 2)
			assert.Equal(t, "1", batch.Records[0].SourceID)
			assert.Equal(t, "North Store", batch.Records[0].Label)
			assert.Equal(t, "2024-01", batch.Records[0].Period)
			assert.Equal(t, 5.0, batch.Records[1].Quantity)
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	ctx := context.Background()

	_, err := LoadFile(ctx, FileSpec{Name: "x", Path: "data.parquet"})
	assert.ErrorIs(t, err, errors.ErrUnsupported)

	_, err = LoadFile(ctx, FileSpec{Name: "x", Path: filepath.Join(t.TempDir(), "missing.csv")})
	var ioErr *errors.IOError
	assert.ErrorAs(t, err, &ioErr)

	path := writeFile(t, "bad.json", "[{")
	_, err = LoadFile(ctx, FileSpec{Name: "x", Path: path})
	var pe *errors.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, path, pe.File)

	_, err = LoadFile(ctx, FileSpec{Path: path})
	assert.True(t, errors.IsValidationError(err))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = LoadFile(canceled, FileSpec{Name: "x", Path: path})
	assert.True(t, errors.IsCanceled(err))
}

func TestReadRowsEmpty(t *testing.T) {
	for _, f := range []Format{FormatCSV, FormatJSON, FormatYAML} {
		rows, err := ReadRows(strings.NewReader(""), f)
		require.NoError(t, err, f)
		assert.Empty(t, rows, f)
	}
}

func TestSources(t *testing.T) {
	b := NewStaticSource("b", nil)
	a := NewStaticSource("a", []records.RawRecord{{Label: "x", Period: "2024-01"}})
	s := NewSources(b, a)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []ID{"a", "b"}, s.IDs())
	assert.Equal(t, ID("a"), s.List()[0].ID())

	got, ok := s.Get("a")
	require.True(t, ok)
	batch, err := got.Records(context.Background())
	require.NoError(t, err)
	assert.Len(t, batch.Records, 1)

	s.Delete("a")
	_, ok = s.Get("a")
	assert.False(t, ok)
}
