package sources

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fredResponse = `{"observations":[
 {"date":"2024-01-01","value":"79.0"},
 {"date":"2024-02-01","value":"."},
 {"date":"2024-03-01","value":"76.9"}
]}`

func TestFREDRecords(t *testing.T) {
	resp, err := ReadFREDResponse(strings.NewReader(fredResponse))
	require.NoError(t, err)

	batch := FREDRecords("fred", "UMCSENT", resp.Observations)
	require.Len(t, batch.Records, 2)
	require.Len(t, batch.Errors, 1)

	assert.Equal(t, "consumer_confidence", batch.Records[0].Label)
	assert.Equal(t, "UMCSENT", batch.Records[0].SourceID)
	assert.Equal(t, 79.0, batch.Records[0].Quantity)
	assert.Equal(t, 1, batch.Errors[0].Index)
	assert.Equal(t, "value", batch.Errors[0].Field)
}

func TestFREDSource(t *testing.T) {
	src := NewFREDSource("fred", map[string]string{
		"UNRATE":  writeFile(t, "unrate.json", `{"observations":[{"date":"2024-01-01","value":"3.7"}]}`),
		"UMCSENT": writeFile(t, "umcsent.json", fredResponse),
	})
	batch, err := src.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Records, 3)
	assert.Equal(t, "unemployment_rate", batch.Records[2].Label)
	require.Len(t, batch.Errors, 1)
	assert.Equal(t, 1, batch.Errors[0].Index)
}

func TestClassifyFRED(t *testing.T) {
	tests := []struct {
		metric   string
		value    float64
		category string
	}{
		{"consumer_confidence", 101.2, "high_confidence"},
		{"consumer_confidence", 100, "high_confidence"},
		{"consumer_confidence", 76.9, "low_confidence"},
		{"consumer_confidence", -1, FREDCategoryUndefined},
		{"unemployment_rate", 3.7, "low_unemployment"},
		{"unemployment_rate", 5, "low_unemployment"},
		{"unemployment_rate", 7.5, "moderate_unemployment"},
		{"unemployment_rate", 12, "high_unemployment"},
		{"inflation_rate", 4, "moderate_inflation"},
		{"retail_sales", -0.5, "decline"},
		{"retail_sales", 5, "strong_growth"},
		{"gdp_growth_rate", 0, "moderate_growth"},
		{"federal_funds_rate", 5.33, "high_rate"},
	}
	for _, tt := range tests {
		band, ok := ClassifyFRED(tt.metric, tt.value)
		require.True(t, ok, tt.metric)
		assert.Equal(t, tt.category, band.Category, "%s=%v", tt.metric, tt.value)
	}

	_, ok := ClassifyFRED("mortgage_rate", 6)
	assert.False(t, ok)
}

func TestFREDRecordsCarryClassification(t *testing.T) {
	batch := FREDRecords("fred", "UNRATE", []FREDObservation{{Date: "2024-01-01", Value: "3.7"}})
	require.Len(t, batch.Records, 1)

	attrs := batch.Records[0].Attributes
	assert.Equal(t, "low_unemployment", attrs["category"])
	assert.Equal(t, "Increased demand for goods and services", attrs["impact"])
	assert.Equal(t, "Unemployment Rate (UNRATE)", attrs["indicator"])

	unknown := FREDRecords("fred", "MORTGAGE30US", []FREDObservation{{Date: "2024-01-04", Value: "6.62"}})
	require.Len(t, unknown.Records, 1)
	assert.NotContains(t, unknown.Records[0].Attributes, "category")
}
