// Package period parses raw period values into calendar buckets at a fixed
// granularity and walks contiguous bucket ranges.
package period

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/agentstation/retailsync/pkg/constants"
	"github.com/agentstation/retailsync/pkg/errors"
)

// Granularity is the size of one period bucket.
type Granularity string

const (
	// Day buckets periods by calendar date.
	Day Granularity = "day"
	// Week buckets periods by ISO week, starting Monday.
	Week Granularity = "week"
	// Month buckets periods by calendar month.
	Month Granularity = "month"
)

// String returns the string representation of a granularity.
func (g Granularity) String() string {
	return string(g)
}

// Valid reports whether g is a known granularity.
func (g Granularity) Valid() bool {
	switch g {
	case Day, Week, Month:
		return true
	}
	return false
}

// ParseGranularity converts a configuration value into a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", errors.NewConfigError("assembler", "period_granularity",
			fmt.Sprintf("unknown granularity %q (want day, week or month)", s))
	}
	return g, nil
}

var (
	compactMonthRe = regexp.MustCompile(`^\d{6}$`)
	monthRe        = regexp.MustCompile(`^\d{4}-\d{1,2}$`)
	isoWeekRe      = regexp.MustCompile(`^(\d{4})-?W(\d{1,2})$`)
)

// dayLayouts are tried in order before falling back to cast.
var dayLayouts = []string{
	constants.DateLayout,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
}

// Parse parses a raw period and floors it to the start of its bucket at
// granularity g. A value coarser than g (a month string under daily
// granularity, for instance) cannot be placed in a single bucket and is
// rejected, as is a week value under monthly granularity.
func Parse(raw string, g Granularity) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, invalid(raw, "period is empty")
	}

	t, precision, err := parseWithPrecision(value)
	if err != nil {
		return time.Time{}, invalid(raw, err.Error())
	}
	if precision != Day && precision != g {
		return time.Time{}, invalid(raw, fmt.Sprintf("%s period cannot be bucketed at %s granularity", precision, g))
	}
	return Floor(t, g), nil
}

func parseWithPrecision(value string) (time.Time, Granularity, error) {
	switch {
	case compactMonthRe.MatchString(value):
		t, err := time.Parse(constants.CompactMonthLayout, value)
		return t, Month, err
	case monthRe.MatchString(value):
		t, err := time.Parse("2006-1", value)
		return t, Month, err
	case isoWeekRe.MatchString(value):
		m := isoWeekRe.FindStringSubmatch(value)
		year, _ := strconv.Atoi(m[1])
		week, _ := strconv.Atoi(m[2])
		t, err := isoWeekStart(year, week)
		return t, Week, err
	}

	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, Day, nil
		}
	}

	t, err := cast.ToTimeInDefaultLocationE(value, time.UTC)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("unrecognized period %q", value)
	}
	return t, Day, nil
}

// isoWeekStart returns the Monday of ISO week w in year y.
func isoWeekStart(year, week int) (time.Time, error) {
	if week < 1 || week > 53 {
		return time.Time{}, fmt.Errorf("week %d out of range", week)
	}
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	start := jan4.AddDate(0, 0, -offset+(week-1)*7)
	if y, w := start.ISOWeek(); y != year || w != week {
		return time.Time{}, fmt.Errorf("year %d has no week %d", year, week)
	}
	return start, nil
}

func invalid(raw, message string) error {
	return &errors.DataError{Field: "period", Value: raw, Message: message}
}

// Floor returns the start of the bucket containing t, in UTC.
func Floor(t time.Time, g Granularity) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch g {
	case Week:
		return day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
	case Month:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

// Next returns the start of the bucket following the bucket starting at t.
func Next(t time.Time, g Granularity) time.Time {
	switch g {
	case Week:
		return t.AddDate(0, 0, 7)
	case Month:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// Prev returns the start of the bucket preceding the bucket starting at t.
func Prev(t time.Time, g Granularity) time.Time {
	switch g {
	case Week:
		return t.AddDate(0, 0, -7)
	case Month:
		return t.AddDate(0, -1, 0)
	default:
		return t.AddDate(0, 0, -1)
	}
}

// Range returns every bucket start from first to last inclusive. Both ends
// must already be floored to g. With a positive limit only the latest limit
// buckets are returned, and truncated reports whether earlier ones were cut.
func Range(first, last time.Time, g Granularity, limit int) (out []time.Time, truncated bool) {
	start, n := last, 1
	for start.After(first) {
		if limit > 0 && n >= limit {
			truncated = true
			break
		}
		start = Prev(start, g)
		n++
	}
	out = make([]time.Time, 0, n)
	for t := start; !t.After(last); t = Next(t, g) {
		out = append(out, t)
	}
	return out, truncated
}

// Format renders a bucket start in the canonical layout for g.
func Format(t time.Time, g Granularity) string {
	switch g {
	case Week:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	case Month:
		return t.Format(constants.MonthLayout)
	default:
		return t.Format(constants.DateLayout)
	}
}
