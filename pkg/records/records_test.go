package records_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/records"
)

func TestRawRecordValidate(t *testing.T) {
	tests := []struct {
		name  string
		rec   records.RawRecord
		field string
	}{
		{name: "valid", rec: records.RawRecord{Label: "Store 12", Period: "2024-01", Quantity: 3}},
		{name: "empty label", rec: records.RawRecord{Label: "  ", Period: "2024-01"}, field: "label"},
		{name: "empty period", rec: records.RawRecord{Label: "Store 12"}, field: "period"},
		{name: "nan quantity", rec: records.RawRecord{Label: "Store 12", Period: "2024-01", Quantity: math.NaN()}, field: "quantity"},
		{name: "inf quantity", rec: records.RawRecord{Label: "Store 12", Period: "2024-01", Quantity: math.Inf(1)}, field: "quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestMemberID(t *testing.T) {
	id := records.NewMemberID("census", "06-445")
	assert.Equal(t, "census:06-445", id.String())
	assert.Equal(t, "census", id.Source())
	assert.Equal(t, "06-445", id.Local())

	// Local ids may themselves contain the separator.
	id = records.NewMemberID("pos", "store:12")
	assert.Equal(t, "pos", id.Source())
	assert.Equal(t, "store:12", id.Local())
}

func TestBatches(t *testing.T) {
	b := records.Batches{
		"pos":    {{Label: "a"}, {Label: "b"}},
		"census": {{Label: "c"}},
		"erp":    nil,
	}
	assert.Equal(t, []string{"census", "erp", "pos"}, b.Names())
	assert.Equal(t, 3, b.Len())
}

func TestAttribute(t *testing.T) {
	r := records.RawRecord{Attributes: map[string]any{"category": "445"}}
	v, ok := r.Attribute("category")
	assert.True(t, ok)
	assert.Equal(t, "445", v)

	_, ok = records.RawRecord{}.Attribute("category")
	assert.False(t, ok)
}
