package sources

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/records"
)

// Schema maps the columns of a row onto RawRecord fields.
type Schema struct {
	// ID is the column holding the per-source entity id. Optional.
	ID string `mapstructure:"id" json:"id,omitempty" yaml:"id,omitempty"`
	// Label is the column holding the entity name.
	Label string `mapstructure:"label" json:"label,omitempty" yaml:"label,omitempty"`
	// Period is the column holding the period.
	Period string `mapstructure:"period" json:"period,omitempty" yaml:"period,omitempty"`
	// Quantity is the column holding the observed value.
	Quantity string `mapstructure:"quantity" json:"quantity,omitempty" yaml:"quantity,omitempty"`
	// Attributes lists extra columns carried through unchanged.
	Attributes []string `mapstructure:"attributes" json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// DefaultSchema returns the column names used when a source declares none.
func DefaultSchema() Schema {
	return Schema{
		ID:       "id",
		Label:    "label",
		Period:   "period",
		Quantity: "quantity",
	}
}

// WithDefaults fills empty column names from DefaultSchema.
func (s Schema) WithDefaults() Schema {
	d := DefaultSchema()
	if s.ID == "" {
		s.ID = d.ID
	}
	if s.Label == "" {
		s.Label = d.Label
	}
	if s.Period == "" {
		s.Period = d.Period
	}
	if s.Quantity == "" {
		s.Quantity = d.Quantity
	}
	return s
}

// Row is one decoded input row keyed by column name.
type Row map[string]any

// Decode converts rows into records for source. A row with a missing or
// uncoercible required column yields a DataError and no record.
func (s Schema) Decode(source string, rows []Row) *Batch {
	s = s.WithDefaults()
	batch := &Batch{Records: make([]records.RawRecord, 0, len(rows))}
	for i, row := range rows {
		rec, err := s.decodeRow(source, row)
		if err != nil {
			batch.Errors = append(batch.Errors, errors.AsDataError(source, i, err))
			continue
		}
		batch.Records = append(batch.Records, rec)
	}
	return batch
}

func (s Schema) decodeRow(source string, row Row) (records.RawRecord, error) {
	label, err := requiredString(row, s.Label)
	if err != nil {
		return records.RawRecord{}, err
	}
	periodValue, err := requiredString(row, s.Period)
	if err != nil {
		return records.RawRecord{}, err
	}

	rawQty, ok := row[s.Quantity]
	if !ok || rawQty == nil {
		return records.RawRecord{}, errors.NewValidationError(s.Quantity, nil, "column is missing")
	}
	if str, isStr := rawQty.(string); isStr {
		rawQty = strings.ReplaceAll(strings.TrimSpace(str), ",", "")
	}
	qty, err := cast.ToFloat64E(rawQty)
	if err != nil {
		return records.RawRecord{}, errors.NewValidationError(s.Quantity, rawQty,
			fmt.Sprintf("not a number: %v", err))
	}

	var id string
	if v, ok := row[s.ID]; ok && v != nil {
		id = strings.TrimSpace(cast.ToString(v))
	}

	var attrs map[string]any
	for _, col := range s.Attributes {
		v, ok := row[col]
		if !ok {
			continue
		}
		if attrs == nil {
			attrs = make(map[string]any, len(s.Attributes))
		}
		attrs[col] = v
	}

	return records.RawRecord{
		Source:     source,
		SourceID:   id,
		Label:      label,
		Period:     periodValue,
		Quantity:   qty,
		Attributes: attrs,
	}, nil
}

func requiredString(row Row, column string) (string, error) {
	v, ok := row[column]
	if !ok || v == nil {
		return "", errors.NewValidationError(column, nil, "column is missing")
	}
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339), nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", errors.NewValidationError(column, v, err.Error())
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.NewValidationError(column, v, "cannot be empty")
	}
	return s, nil
}
