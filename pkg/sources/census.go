package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cast"

	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/records"
)

// StateAbbreviations maps state FIPS codes to postal abbreviations.
var StateAbbreviations = map[string]string{
	"01": "AL", "02": "AK", "04": "AZ", "05": "AR", "06": "CA", "08": "CO",
	"09": "CT", "10": "DE", "11": "DC", "12": "FL", "13": "GA", "15": "HI",
	"16": "ID", "17": "IL", "18": "IN", "19": "IA", "20": "KS", "21": "KY",
	"22": "LA", "23": "ME", "24": "MD", "25": "MA", "26": "MI", "27": "MN",
	"28": "MS", "29": "MO", "30": "MT", "31": "NE", "32": "NV", "33": "NH",
	"34": "NJ", "35": "NM", "36": "NY", "37": "NC", "38": "ND", "39": "OH",
	"40": "OK", "41": "OR", "42": "PA", "44": "RI", "45": "SC", "46": "SD",
	"47": "TN", "48": "TX", "49": "UT", "50": "VT", "51": "VA", "53": "WA",
	"54": "WV", "55": "WI", "56": "WY",
}

// RetailCategories maps the NAICS codes tracked by the Census adapter to
// their names.
var RetailCategories = map[string]string{
	"445": "Food and Beverage Stores",
	"448": "Clothing and Accessories Stores",
}

// territoryCodes are FIPS codes of territories, excluded from state weights.
var territoryCodes = []string{"60", "66", "69", "72", "78"}

// Weight blend of payroll and establishment shares.
const (
	payrollWeight       = 0.6
	establishmentWeight = 0.4
)

// MARTS filter values selecting not seasonally adjusted sales.
const (
	martsSalesCode    = "SM"
	martsNotSeasonAdj = "no"
)

// CBPRow is one state row of the County Business Patterns dataset.
type CBPRow struct {
	State          string
	Establishments float64
	Payroll        float64
}

// MARTSRow is one row of the Monthly Advance Retail Trade Survey.
type MARTSRow struct {
	Time          string
	DataTypeCode  string
	SeasonallyAdj string
	CategoryCode  string
	CellValue     string
}

// StateWeight is a state's share of national sales for one category.
type StateWeight struct {
	State          string  `json:"state" yaml:"state"`
	Weight         float64 `json:"weight" yaml:"weight"`
	Establishments int     `json:"establishments" yaml:"establishments"`
	Payroll        int     `json:"annual_payroll" yaml:"annual_payroll"`
}

// ReadCensusTable parses a Census API response: a JSON array of rows whose
// first row is the header.
func ReadCensusTable(r io.Reader) ([]map[string]string, error) {
	var raw [][]any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.WrapParse("json", "", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	header := make([]string, len(raw[0]))
	for i, h := range raw[0] {
		header[i] = cast.ToString(h)
	}

	out := make([]map[string]string, 0, len(raw)-1)
	for _, cells := range raw[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(cells) && cells[i] != nil {
				row[col] = cast.ToString(cells[i])
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// ParseCBP converts CBP table rows. Rows with non-numeric counts fail the
// whole table, since weights depend on every row.
func ParseCBP(table []map[string]string) ([]CBPRow, error) {
	rows := make([]CBPRow, 0, len(table))
	for i, t := range table {
		estab, err := cast.ToFloat64E(t["ESTAB"])
		if err != nil {
			return nil, errors.NewDataError("census", i, "ESTAB", t["ESTAB"], "not a number")
		}
		payroll, err := cast.ToFloat64E(t["PAYANN"])
		if err != nil {
			return nil, errors.NewDataError("census", i, "PAYANN", t["PAYANN"], "not a number")
		}
		rows = append(rows, CBPRow{State: t["state"], Establishments: estab, Payroll: payroll})
	}
	return rows, nil
}

// ParseMARTS converts MARTS table rows.
func ParseMARTS(table []map[string]string) []MARTSRow {
	rows := make([]MARTSRow, 0, len(table))
	for _, t := range table {
		rows = append(rows, MARTSRow{
			Time:          t["time"],
			DataTypeCode:  t["data_type_code"],
			SeasonallyAdj: t["seasonally_adj"],
			CategoryCode:  t["category_code"],
			CellValue:     t["cell_value"],
		})
	}
	return rows
}

// StateWeights blends each state's payroll and establishment shares. Shares
// are taken against national totals that include territories; the
// territories themselves get no weight.
func StateWeights(rows []CBPRow) map[string]StateWeight {
	var totalPayroll, totalEstab float64
	for _, r := range rows {
		totalPayroll += r.Payroll
		totalEstab += r.Establishments
	}
	if totalPayroll == 0 || totalEstab == 0 {
		return map[string]StateWeight{}
	}

	weights := make(map[string]StateWeight, len(rows))
	for _, r := range rows {
		if slices.Contains(territoryCodes, r.State) {
			continue
		}
		w := payrollWeight*(r.Payroll/totalPayroll) + establishmentWeight*(r.Establishments/totalEstab)
		weights[r.State] = StateWeight{
			State:          r.State,
			Weight:         round(w, 4),
			Establishments: int(r.Establishments),
			Payroll:        int(r.Payroll),
		}
	}
	return weights
}

// ShareSum adds up the state weights. A complete table sums to about 1.
func ShareSum(weights map[string]StateWeight) float64 {
	var sum float64
	for _, w := range weights {
		sum += w.Weight
	}
	return round(sum, 4)
}

// StateSales distributes a national figure over states by weight.
func StateSales(national float64, weights map[string]StateWeight) map[string]float64 {
	out := make(map[string]float64, len(weights))
	for state, w := range weights {
		out[state] = round(national*w.Weight, 2)
	}
	return out
}

// CensusRecords builds one record per state and MARTS month for category.
// Only not seasonally adjusted sales rows are used. States outside the
// abbreviation table are dropped.
func CensusRecords(source, category string, weights map[string]StateWeight, marts []MARTSRow) *Batch {
	name := RetailCategories[category]
	if name == "" {
		name = "NAICS " + category
	}

	states := make([]string, 0, len(weights))
	for state := range weights {
		if _, ok := StateAbbreviations[state]; ok {
			states = append(states, state)
		}
	}
	sort.Strings(states)

	batch := &Batch{}
	for i, row := range marts {
		if row.DataTypeCode != martsSalesCode || row.SeasonallyAdj != martsNotSeasonAdj {
			continue
		}
		if row.CategoryCode != "" && row.CategoryCode != category {
			continue
		}
		national, err := cast.ToFloat64E(strings.TrimSpace(row.CellValue))
		if err != nil {
			batch.Errors = append(batch.Errors,
				errors.NewDataError(source, i, "cell_value", row.CellValue, "not a number"))
			continue
		}

		sales := StateSales(national, weights)
		for _, state := range states {
			abbr := StateAbbreviations[state]
			batch.Records = append(batch.Records, records.RawRecord{
				Source:   source,
				SourceID: state + "-" + category,
				Label:    abbr + " " + name,
				Period:   row.Time,
				Quantity: sales[state],
				Attributes: map[string]any{
					"state":          abbr,
					"fips":           state,
					"category":       category,
					"state_share":    weights[state].Weight,
					"national_sales": national,
				},
			})
		}
	}
	return batch
}

// CensusFiles names the saved API responses of one category.
type CensusFiles struct {
	Category string `mapstructure:"category" json:"category" yaml:"category"`
	CBP      string `mapstructure:"cbp" json:"cbp" yaml:"cbp"`
	MARTS    string `mapstructure:"marts" json:"marts" yaml:"marts"`
}

// CensusSource derives state retail sales from saved CBP and MARTS
// responses.
type CensusSource struct {
	name  string
	files []CensusFiles
}

// NewCensusSource creates a Census source.
func NewCensusSource(name string, files ...CensusFiles) *CensusSource {
	return &CensusSource{name: name, files: files}
}

// ID returns the source name.
func (s *CensusSource) ID() ID {
	return ID(s.name)
}

// Records reads every category's files and derives state records.
func (s *CensusSource) Records(ctx context.Context) (*Batch, error) {
	out := &Batch{}
	for _, f := range s.files {
		if err := ctx.Err(); err != nil {
			return nil, errors.WrapCanceled("source "+s.name, err)
		}
		if _, ok := RetailCategories[f.Category]; !ok {
			return nil, errors.NewValidationError("category", f.Category,
				fmt.Sprintf("unsupported category (want one of %v)", categoryCodes()))
		}

		cbpTable, err := readCensusFile(f.CBP)
		if err != nil {
			return nil, err
		}
		cbp, err := ParseCBP(cbpTable)
		if err != nil {
			return nil, err
		}
		martsTable, err := readCensusFile(f.MARTS)
		if err != nil {
			return nil, err
		}

		batch := CensusRecords(s.name, f.Category, StateWeights(cbp), ParseMARTS(martsTable))
		out.Records = append(out.Records, batch.Records...)
		out.Errors = append(out.Errors, batch.Errors...)
	}
	return out, nil
}

func readCensusFile(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	table, err := ReadCensusTable(f)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			pe.File = path
		}
		return nil, err
	}
	return table, nil
}

func categoryCodes() []string {
	codes := make([]string, 0, len(RetailCategories))
	for c := range RetailCategories {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
