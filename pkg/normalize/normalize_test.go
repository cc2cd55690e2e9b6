package normalize_test

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/normalize"
	"github.com/agentstation/retailsync/pkg/records"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  normalize.Key
	}{
		{name: "token order", label: "Store 12 North", want: "12 north store"},
		{name: "reordered", label: "North Store 12", want: "12 north store"},
		{name: "whitespace and case", label: "  NORTH\tstore   12 ", want: "12 north store"},
		{name: "punctuation", label: "North-Store #12.", want: "12 north store"},
		{name: "apostrophe kept inside token", label: "Macy's Herald Sq.", want: "herald macys sq"},
		{name: "diacritics", label: "Café Zürich", want: "cafe zurich"},
		{name: "fullwidth digits", label: "Store １２", want: "12 store"},
		{name: "sharp s folds", label: "Straße", want: "strasse"},
		{name: "dotted capital i", label: "İstanbul Mall", want: "istanbul mall"},
		{name: "state category label", label: "CA Food and Beverage Stores", want: "and beverage ca food stores"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalize.Normalize(tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	labels := []string{
		"Store 12 North",
		"Macy's Herald Sq.",
		"Café Zürich",
		"İstanbul Mall",
		"Straße 5",
		"ÅÄÖ ǅemal",
		"Food & Beverage / 445",
		"Ｆｕｌｌｗｉｄｔｈ Ｓｔｏｒｅ",
	}
	for _, label := range labels {
		t.Run(label, func(t *testing.T) {
			once, err := normalize.Normalize(label)
			require.NoError(t, err)
			twice, err := normalize.Normalize(once.String())
			require.NoError(t, err)
			assert.Equal(t, once, twice)
		})
	}
}

func TestNormalizeRejects(t *testing.T) {
	tests := []struct {
		name  string
		label string
	}{
		{name: "empty", label: ""},
		{name: "blank", label: " \t\n"},
		{name: "punctuation only", label: "--- ###"},
		{name: "invalid utf8", label: "store \xff"},
		{name: "too long", label: strings.Repeat("a", 600)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalize.Normalize(tt.label)
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))
		})
	}
}

func TestValue(t *testing.T) {
	k, err := normalize.Value("Store 12")
	require.NoError(t, err)
	assert.Equal(t, normalize.Key("12 store"), k)

	for _, v := range []any{nil, 12, 3.5, []string{"store"}} {
		_, err := normalize.Value(v)
		assert.True(t, errors.IsValidationError(err), "%T", v)
	}
}

func TestKeyHelpers(t *testing.T) {
	k := normalize.MustNormalize("North Store 12")
	assert.Equal(t, []string{"12", "north", "store"}, k.Tokens())
	assert.Equal(t, "12", k.FirstToken())
	assert.Equal(t, 14, k.Len())

	assert.Panics(t, func() { normalize.MustNormalize("") })
}

func TestRecord(t *testing.T) {
	member, key, err := normalize.Record("pos", records.RawRecord{SourceID: " 12 ", Label: "Store 12", Period: "2024-01", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, records.MemberID("pos:12"), member)
	assert.Equal(t, normalize.Key("12 store"), key)

	member, _, err = normalize.Record("pos", records.RawRecord{Label: "Store 12", Period: "2024-01"})
	require.NoError(t, err)
	assert.Equal(t, records.MemberID("pos:12 store"), member, "label key stands in for a missing id")

	tests := []struct {
		name string
		rec  records.RawRecord
	}{
		{"NaN quantity", records.RawRecord{SourceID: "1", Label: "Depot", Period: "2024-01", Quantity: math.NaN()}},
		{"missing period", records.RawRecord{SourceID: "1", Label: "Depot"}},
		{"punctuation label", records.RawRecord{SourceID: "1", Label: "#!", Period: "2024-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := normalize.Record("pos", tt.rec)
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))
		})
	}
}
