package sources

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cast"

	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/records"
)

// FREDSeries maps FRED series ids to the metric names used as labels.
var FREDSeries = map[string]string{
	"UMCSENT":         "consumer_confidence",
	"UNRATE":          "unemployment_rate",
	"CPIAUCSL":        "inflation_rate",
	"A191RL1Q225SBEA": "gdp_growth_rate",
	"FEDFUNDS":        "federal_funds_rate",
	"RSXFS":           "retail_sales",
}

// FREDThreshold is one interpretation band of a metric. Bounds are
// inclusive; open ends are infinite.
type FREDThreshold struct {
	Category    string  `json:"category" yaml:"category"`
	Min         float64 `json:"min" yaml:"min"`
	Max         float64 `json:"max" yaml:"max"`
	Description string  `json:"description" yaml:"description"`
	Impact      string  `json:"impact" yaml:"impact"`
}

// FREDRule lists the bands of one metric in precedence order.
type FREDRule struct {
	Label      string
	Thresholds []FREDThreshold
}

// FREDCategoryUndefined is the category of a value no band covers.
const FREDCategoryUndefined = "undefined"

var (
	negInf = math.Inf(-1)
	posInf = math.Inf(1)
)

// FREDRules are the retail interpretation bands per metric name. The first
// band containing a value wins, so a shared boundary belongs to the band
// listed first.
var FREDRules = map[string]FREDRule{
	"consumer_confidence": {Label: "Consumer Confidence Index (UMCSENT)", Thresholds: []FREDThreshold{
		{"high_confidence", 100, posInf, "Above 100 indicates positive consumer outlook", "Increased consumer spending, higher demand in retail"},
		{"low_confidence", 0, 100, "Below 100 indicates low consumer confidence", "Consumers are more cautious, reducing demand"},
	}},
	"unemployment_rate": {Label: "Unemployment Rate (UNRATE)", Thresholds: []FREDThreshold{
		{"low_unemployment", 0, 5, "Below 5% suggests a strong economy", "Increased demand for goods and services"},
		{"moderate_unemployment", 5, 10, "Between 5-10% indicates economic challenges", "Moderate caution in consumer spending"},
		{"high_unemployment", 10, posInf, "Above 10% suggests a struggling economy", "Lower demand for non-essential items"},
	}},
	"inflation_rate": {Label: "Inflation Rate (CPIAUCSL)", Thresholds: []FREDThreshold{
		{"low_inflation", 0, 3, "Below 3% suggests a stable economy", "Stable or growing demand across categories"},
		{"moderate_inflation", 3, 5, "3-5% indicates moderate inflation", "Slight caution in consumer spending"},
		{"high_inflation", 5, posInf, "Above 5% indicates high inflation", "Reduced purchasing power and demand"},
	}},
	"retail_sales": {Label: "Retail Sales Index (RSXFS)", Thresholds: []FREDThreshold{
		{"strong_growth", 5, posInf, "Strong growth in retail sales", "Robust consumer spending across categories"},
		{"moderate_growth", 0, 5, "Moderate growth in retail sales", "Stable consumer spending"},
		{"decline", negInf, 0, "Declining retail sales", "Reduced consumer demand"},
	}},
	"gdp_growth_rate": {Label: "GDP Growth Rate (A191RL1Q225SBEA)", Thresholds: []FREDThreshold{
		{"strong_growth", 2, posInf, "Strong positive growth suggests robust economic expansion", "Higher GDP growth signals rising demand for consumer goods and services"},
		{"moderate_growth", 0, 2, "Moderate growth indicates stable economic conditions", "Stable demand across most sectors with potential for growth"},
		{"contraction", negInf, 0, "Negative growth suggests economic contraction", "Decreased demand due to economic slowdown, focus on essential products"},
	}},
	"federal_funds_rate": {Label: "Federal Funds Rate (FEDFUNDS)", Thresholds: []FREDThreshold{
		{"low_rate", 0, 2, "Below 2% signals easy borrowing conditions", "Stimulates consumer spending and investment, increased demand in retail"},
		{"moderate_rate", 2, 5, "2-5% signals neutral economic conditions", "Neutral conditions with manageable borrowing costs, stable demand"},
		{"high_rate", 5, posInf, "Above 5% signals tight monetary policy", "High borrowing costs may reduce consumer demand for non-essentials"},
	}},
}

// ClassifyFRED returns the band of a metric value. A value outside every
// band gets FREDCategoryUndefined. ok is false for a metric without rules.
func ClassifyFRED(metric string, value float64) (band FREDThreshold, ok bool) {
	rule, ok := FREDRules[metric]
	if !ok {
		return FREDThreshold{}, false
	}
	for _, t := range rule.Thresholds {
		if value >= t.Min && value <= t.Max {
			return t, true
		}
	}
	return FREDThreshold{Category: FREDCategoryUndefined, Min: math.NaN(), Max: math.NaN()}, true
}

// fredMissing is the placeholder FRED writes for a missing observation.
const fredMissing = "."

// FREDObservation is one entry of a FRED series/observations response.
type FREDObservation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

// FREDResponse is the body of a FRED series/observations response.
type FREDResponse struct {
	Observations []FREDObservation `json:"observations"`
}

// ReadFREDResponse parses a saved FRED observations response.
func ReadFREDResponse(r io.Reader) (*FREDResponse, error) {
	var resp FREDResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, errors.WrapParse("json", "", err)
	}
	return &resp, nil
}

// FREDRecords converts the observations of one series into records. Missing
// and non-numeric values yield DataErrors. Values of metrics with rules
// carry their band as category, description and impact attributes.
func FREDRecords(source, seriesID string, obs []FREDObservation) *Batch {
	metric := FREDSeries[seriesID]
	if metric == "" {
		metric = strings.ToLower(seriesID)
	}

	batch := &Batch{Records: make([]records.RawRecord, 0, len(obs))}
	for i, o := range obs {
		value := strings.TrimSpace(o.Value)
		if value == "" || value == fredMissing {
			batch.Errors = append(batch.Errors,
				errors.NewDataError(source, i, "value", o.Value, "observation is missing"))
			continue
		}
		qty, err := cast.ToFloat64E(value)
		if err != nil {
			batch.Errors = append(batch.Errors,
				errors.NewDataError(source, i, "value", o.Value, "not a number"))
			continue
		}
		attrs := map[string]any{"series_id": seriesID}
		if band, ok := ClassifyFRED(metric, qty); ok {
			attrs["indicator"] = FREDRules[metric].Label
			attrs["category"] = band.Category
			attrs["description"] = band.Description
			attrs["impact"] = band.Impact
		}
		batch.Records = append(batch.Records, records.RawRecord{
			Source:     source,
			SourceID:   seriesID,
			Label:      metric,
			Period:     o.Date,
			Quantity:   qty,
			Attributes: attrs,
		})
	}
	return batch
}

// FREDSource reads saved FRED responses, one file per series.
type FREDSource struct {
	name  string
	files map[string]string
}

// NewFREDSource creates a FRED source from series id to file path.
func NewFREDSource(name string, files map[string]string) *FREDSource {
	return &FREDSource{name: name, files: files}
}

// ID returns the source name.
func (s *FREDSource) ID() ID {
	return ID(s.name)
}

// Records reads every series in series id order.
func (s *FREDSource) Records(ctx context.Context) (*Batch, error) {
	ids := make([]string, 0, len(s.files))
	for id := range s.files {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := &Batch{}
	offset := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, errors.WrapCanceled("source "+s.name, err)
		}
		resp, err := readFREDFile(s.files[id])
		if err != nil {
			return nil, err
		}
		batch := FREDRecords(s.name, id, resp.Observations)
		for _, de := range batch.Errors {
			de.Index += offset
		}
		offset += len(resp.Observations)
		out.Records = append(out.Records, batch.Records...)
		out.Errors = append(out.Errors, batch.Errors...)
	}
	return out, nil
}

func readFREDFile(path string) (*FREDResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	resp, err := ReadFREDResponse(f)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			pe.File = path
		}
		return nil, err
	}
	return resp, nil
}
