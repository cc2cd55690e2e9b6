package sources

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cast"

	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/records"
)

// WeatherStats summarizes one weather variable over a calendar month, as
// returned by the OpenWeather monthly aggregation.
type WeatherStats struct {
	RecordMin  float64 `json:"record_min" yaml:"record_min"`
	RecordMax  float64 `json:"record_max" yaml:"record_max"`
	AverageMin float64 `json:"average_min" yaml:"average_min"`
	AverageMax float64 `json:"average_max" yaml:"average_max"`
	Median     float64 `json:"median" yaml:"median"`
	Mean       float64 `json:"mean" yaml:"mean"`
	P25        float64 `json:"p25" yaml:"p25"`
	P75        float64 `json:"p75" yaml:"p75"`
	StDev      float64 `json:"st_dev" yaml:"st_dev"`
	Num        int     `json:"num" yaml:"num"`
}

// MonthlyWeather holds the aggregates of one state for one month.
type MonthlyWeather struct {
	Month         int          `json:"month" yaml:"month"`
	Temp          WeatherStats `json:"temp" yaml:"temp"`
	Pressure      WeatherStats `json:"pressure" yaml:"pressure"`
	Humidity      WeatherStats `json:"humidity" yaml:"humidity"`
	Wind          WeatherStats `json:"wind" yaml:"wind"`
	Precipitation WeatherStats `json:"precipitation" yaml:"precipitation"`
	Clouds        WeatherStats `json:"clouds" yaml:"clouds"`
	SunshineHours float64      `json:"sunshine_hours" yaml:"sunshine_hours"`
}

// WeatherData maps a state postal code to its months, keyed by month number.
type WeatherData map[string]map[string]MonthlyWeather

// weatherMetric is one series derived from a state's monthly aggregates.
type weatherMetric struct {
	name  string
	value func(MonthlyWeather) float64
	stats func(MonthlyWeather) *WeatherStats
}

// weatherMetrics lists the derived series in record order.
var weatherMetrics = []weatherMetric{
	{"temperature", func(m MonthlyWeather) float64 { return m.Temp.Mean }, func(m MonthlyWeather) *WeatherStats { return &m.Temp }},
	{"precipitation", func(m MonthlyWeather) float64 { return m.Precipitation.Mean }, func(m MonthlyWeather) *WeatherStats { return &m.Precipitation }},
	{"humidity", func(m MonthlyWeather) float64 { return m.Humidity.Mean }, func(m MonthlyWeather) *WeatherStats { return &m.Humidity }},
	{"wind_speed", func(m MonthlyWeather) float64 { return m.Wind.Mean }, func(m MonthlyWeather) *WeatherStats { return &m.Wind }},
	{"cloud_cover", func(m MonthlyWeather) float64 { return m.Clouds.Mean }, func(m MonthlyWeather) *WeatherStats { return &m.Clouds }},
	{"sunshine_hours", func(m MonthlyWeather) float64 { return m.SunshineHours }, nil},
}

// ReadWeather decodes a saved state weather document. JSON and YAML are
// both accepted.
func ReadWeather(r io.Reader) (WeatherData, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WrapIO("read", "", err)
	}
	var out WeatherData
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, errors.WrapParse("weather", "", err)
	}
	return out, nil
}

// WeatherRecords converts a weather document into one record per state,
// month and metric for the given year. States are visited in postal code
// order and months in calendar order. Unknown states, invalid months and
// months without observations yield one DataError each.
func WeatherRecords(source string, year int, data WeatherData) *Batch {
	states := make(map[string]bool, len(StateAbbreviations))
	for _, st := range StateAbbreviations {
		states[st] = true
	}

	codes := make([]string, 0, len(data))
	for st := range data {
		codes = append(codes, st)
	}
	sort.Strings(codes)

	batch := &Batch{}
	index := 0
	for _, code := range codes {
		st := strings.ToUpper(strings.TrimSpace(code))
		for _, key := range sortedMonths(data[code]) {
			m := data[code][key]
			row := index
			index++

			if !states[st] {
				batch.Errors = append(batch.Errors, errors.NewDataError(source, row, "state", code, "unknown state code"))
				continue
			}
			month := m.Month
			if month == 0 {
				month = cast.ToInt(key)
			}
			if month < 1 || month > 12 {
				batch.Errors = append(batch.Errors, errors.NewDataError(source, row, "month", key, "month must be 1-12"))
				continue
			}
			if m.Temp.Num == 0 {
				batch.Errors = append(batch.Errors, errors.NewDataError(source, row, "num", key, "month has no observations"))
				continue
			}

			period := fmt.Sprintf("%04d-%02d", year, month)
			for _, metric := range weatherMetrics {
				attrs := map[string]any{"state": st, "metric": metric.name}
				if metric.stats != nil {
					s := metric.stats(m)
					attrs["record_min"] = s.RecordMin
					attrs["record_max"] = s.RecordMax
					attrs["observations"] = s.Num
				}
				batch.Records = append(batch.Records, records.RawRecord{
					Source:     source,
					SourceID:   st + "_" + metric.name,
					Label:      st + " " + metric.name,
					Period:     period,
					Quantity:   metric.value(m),
					Attributes: attrs,
				})
			}
		}
	}
	return batch
}

// sortedMonths orders month keys numerically; keys that are not numbers
// sort last.
func sortedMonths(months map[string]MonthlyWeather) []string {
	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := cast.ToIntE(keys[i])
		b, errB := cast.ToIntE(keys[j])
		if (errA == nil) != (errB == nil) {
			return errA == nil
		}
		if errA == nil && a != b {
			return a < b
		}
		return keys[i] < keys[j]
	})
	return keys
}

// WeatherSource reads a saved state weather document for one year.
type WeatherSource struct {
	name string
	path string
	year int
}

// NewWeatherSource creates a weather source. The document has no year, so
// the caller names it.
func NewWeatherSource(name, path string, year int) *WeatherSource {
	return &WeatherSource{name: name, path: path, year: year}
}

// ID returns the source name.
func (s *WeatherSource) ID() ID {
	return ID(s.name)
}

// Records reads the document and derives state records.
func (s *WeatherSource) Records(ctx context.Context) (*Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapCanceled("source "+s.name, err)
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.WrapIO("open", s.path, err)
	}
	defer func() { _ = f.Close() }()

	data, err := ReadWeather(f)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			pe.File = s.path
		}
		return nil, err
	}
	return WeatherRecords(s.name, s.year, data), nil
}
