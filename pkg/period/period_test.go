package period_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/period"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseGranularity(t *testing.T) {
	for _, s := range []string{"day", "WEEK", " month "} {
		g, err := period.ParseGranularity(s)
		require.NoError(t, err)
		assert.True(t, g.Valid())
	}

	_, err := period.ParseGranularity("quarter")
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		g    period.Granularity
		want time.Time
	}{
		{name: "date at day", raw: "2024-03-15", g: period.Day, want: date(2024, 3, 15)},
		{name: "date at week floors to monday", raw: "2024-03-15", g: period.Week, want: date(2024, 3, 11)},
		{name: "date at month", raw: "2024-03-15", g: period.Month, want: date(2024, 3, 1)},
		{name: "rfc3339", raw: "2024-03-15T22:10:00Z", g: period.Day, want: date(2024, 3, 15)},
		{name: "datetime", raw: "2024-03-15 08:00:00", g: period.Day, want: date(2024, 3, 15)},
		{name: "us date", raw: "03/15/2024", g: period.Day, want: date(2024, 3, 15)},
		{name: "month", raw: "2024-03", g: period.Month, want: date(2024, 3, 1)},
		{name: "single digit month", raw: "2024-3", g: period.Month, want: date(2024, 3, 1)},
		{name: "census compact month", raw: "202403", g: period.Month, want: date(2024, 3, 1)},
		{name: "iso week", raw: "2024-W11", g: period.Week, want: date(2024, 3, 11)},
		{name: "iso week compact", raw: "2020W01", g: period.Week, want: date(2019, 12, 30)},
		{name: "sunday belongs to previous week", raw: "2024-03-17", g: period.Week, want: date(2024, 3, 11)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := period.Parse(tt.raw, tt.g)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		g    period.Granularity
	}{
		{name: "empty", raw: " ", g: period.Day},
		{name: "garbage", raw: "last tuesday", g: period.Day},
		{name: "month 13", raw: "202413", g: period.Month},
		{name: "month under day", raw: "2024-03", g: period.Day},
		{name: "month under week", raw: "2024-03", g: period.Week},
		{name: "week under month", raw: "2024-W11", g: period.Month},
		{name: "week 54", raw: "2024-W54", g: period.Week},
		{name: "week 53 in a 52 week year", raw: "2023-W53", g: period.Week},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := period.Parse(tt.raw, tt.g)
			require.Error(t, err)
			assert.True(t, errors.IsDataError(err))
		})
	}
}

func TestRange(t *testing.T) {
	t.Run("months", func(t *testing.T) {
		got, truncated := period.Range(date(2023, 11, 1), date(2024, 2, 1), period.Month, 0)
		assert.False(t, truncated)
		assert.Equal(t, []time.Time{date(2023, 11, 1), date(2023, 12, 1), date(2024, 1, 1), date(2024, 2, 1)}, got)
	})

	t.Run("weeks", func(t *testing.T) {
		got, _ := period.Range(date(2024, 3, 4), date(2024, 3, 18), period.Week, 0)
		assert.Len(t, got, 3)
	})

	t.Run("days across leap day", func(t *testing.T) {
		got, _ := period.Range(date(2024, 2, 28), date(2024, 3, 1), period.Day, 0)
		assert.Len(t, got, 3)
	})

	t.Run("single bucket", func(t *testing.T) {
		got, _ := period.Range(date(2024, 3, 1), date(2024, 3, 1), period.Month, 0)
		assert.Len(t, got, 1)
	})

	t.Run("limit keeps latest buckets", func(t *testing.T) {
		got, truncated := period.Range(date(2024, 1, 1), date(2024, 12, 31), period.Day, 10)
		assert.True(t, truncated)
		require.Len(t, got, 10)
		assert.Equal(t, date(2024, 12, 22), got[0])
		assert.Equal(t, date(2024, 12, 31), got[9])
	})

	t.Run("limit equal to span", func(t *testing.T) {
		got, truncated := period.Range(date(2024, 1, 1), date(2024, 3, 1), period.Month, 3)
		assert.False(t, truncated)
		assert.Equal(t, []time.Time{date(2024, 1, 1), date(2024, 2, 1), date(2024, 3, 1)}, got)
	})
}

func TestPrev(t *testing.T) {
	assert.Equal(t, date(2024, 2, 29), period.Prev(date(2024, 3, 1), period.Day))
	assert.Equal(t, date(2024, 2, 26), period.Prev(date(2024, 3, 4), period.Week))
	assert.Equal(t, date(2023, 12, 1), period.Prev(date(2024, 1, 1), period.Month))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "2024-03-15", period.Format(date(2024, 3, 15), period.Day))
	assert.Equal(t, "2024-W11", period.Format(date(2024, 3, 11), period.Week))
	assert.Equal(t, "2024-03", period.Format(date(2024, 3, 1), period.Month))
}
