package matcher

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/normalize"
	"github.com/agentstation/retailsync/pkg/records"
)

func keyed(t *testing.T, source string, labels map[string]string) []Keyed {
	t.Helper()
	out := make([]Keyed, 0, len(labels))
	for id, label := range labels {
		key, err := normalize.Normalize(label)
		require.NoError(t, err)
		out = append(out, Keyed{Member: records.NewMemberID(source, id), Key: key})
	}
	return out
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"café", "cafe", 1},
		{"same", "same", 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%s", tt.a, tt.b), func(t *testing.T) {
			assert.Equal(t, tt.want, Levenshtein([]rune(tt.a), []rune(tt.b)))
			assert.Equal(t, tt.want, Levenshtein([]rune(tt.b), []rune(tt.a)))
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("north store", "north store"))
	assert.Equal(t, 0.0, Similarity("abc", "xyz"))
	assert.InDelta(t, 0.75, Similarity("abcd", "abce"), 1e-12)
}

func TestValidateThreshold(t *testing.T) {
	for _, th := range []float64{0.01, 0.5, 0.85, 1} {
		assert.NoError(t, ValidateThreshold(th), "threshold %v", th)
	}
	for _, th := range []float64{0, -0.1, 1.01} {
		err := ValidateThreshold(th)
		require.Error(t, err, "threshold %v", th)
		assert.True(t, errors.IsConfigError(err))
	}
}

func TestMatchInclusiveThreshold(t *testing.T) {
	a := []Keyed{{Member: "a:1", Key: "abcd"}}
	b := []Keyed{{Member: "b:1", Key: "abce"}}

	links, err := Match(context.Background(), a, b, 0.75)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.InDelta(t, 0.75, links[0].Similarity, 1e-12)
	assert.Equal(t, "label", links[0].MatchedOn)

	links, err = Match(context.Background(), a, b, 0.76)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestMatchIdenticalKeysScoreOne(t *testing.T) {
	a := keyed(t, "pos", map[string]string{"12": "Store 12 North"})
	b := keyed(t, "erp", map[string]string{"S-12": "North Store #12"})

	links, err := Match(context.Background(), a, b, 0.85)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, records.MemberID("pos:12"), links[0].A)
	assert.Equal(t, records.MemberID("erp:S-12"), links[0].B)
	assert.Equal(t, 1.0, links[0].Similarity)
}

func TestMatchOrdering(t *testing.T) {
	a := []Keyed{
		{Member: "a:2", Key: "abcd"},
		{Member: "a:1", Key: "abcd"},
	}
	b := []Keyed{
		{Member: "b:2", Key: "abce"},
		{Member: "b:1", Key: "abcd"},
	}

	links, err := Match(context.Background(), a, b, 0.7)
	require.NoError(t, err)
	require.Len(t, links, 4)

	want := []CandidateLink{
		{A: "a:1", B: "b:1", Similarity: 1, MatchedOn: "label"},
		{A: "a:2", B: "b:1", Similarity: 1, MatchedOn: "label"},
		{A: "a:1", B: "b:2", Similarity: 0.75, MatchedOn: "label"},
		{A: "a:2", B: "b:2", Similarity: 0.75, MatchedOn: "label"},
	}
	assert.Equal(t, want, links)
}

func TestBlockingStrategiesAgree(t *testing.T) {
	labels := map[string]string{
		"1": "Downtown Grocery",
		"2": "Uptown Grocery",
		"3": "Harbor Outlet",
		"4": "Grocery Downtown Inc",
		"5": "Mall Apparel",
	}
	other := map[string]string{
		"x": "downtown grocery",
		"y": "Uptown Groceries",
		"z": "Harbour Outlet",
		"w": "Apparel Mall",
	}
	a := keyed(t, "a", labels)
	b := keyed(t, "b", other)

	full, err := New(&Options{Blocking: BlockNone, Workers: 2})
	require.NoError(t, err)
	byLength, err := New(&Options{Blocking: BlockLength, Workers: 3})
	require.NoError(t, err)

	for _, threshold := range []float64{0.6, 0.8, 0.85, 1} {
		want, err := full.Match(context.Background(), a, b, threshold)
		require.NoError(t, err)
		got, err := byLength.Match(context.Background(), a, b, threshold)
		require.NoError(t, err)
		assert.Equal(t, want, got, "threshold %v", threshold)
	}
}

func TestFirstTokenBlocking(t *testing.T) {
	a := []Keyed{
		{Member: "a:1", Key: "grocery north"},
		{Member: "a:2", Key: "apparel mall"},
	}
	b := []Keyed{
		{Member: "b:1", Key: "grocery norths"},
		{Member: "b:2", Key: "bpparel mall"},
	}

	m, err := New(&Options{Blocking: BlockFirstToken})
	require.NoError(t, err)
	links, err := m.Match(context.Background(), a, b, 0.8)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, records.MemberID("a:1"), links[0].A)
	assert.Equal(t, records.MemberID("b:1"), links[0].B)
}

func TestMatchEmptyInputs(t *testing.T) {
	links, err := Match(context.Background(), nil, []Keyed{{Member: "b:1", Key: "x"}}, 0.9)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestMatchRejectsBadThreshold(t *testing.T) {
	_, err := Match(context.Background(), nil, nil, 0)
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestMatchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := []Keyed{{Member: "a:1", Key: "abc"}}
	b := []Keyed{{Member: "b:1", Key: "abc"}}
	links, err := Match(ctx, a, b, 0.9)
	require.Error(t, err)
	assert.Nil(t, links)
	assert.True(t, errors.IsCanceled(err))
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(&Options{Blocking: "soundex"})
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))

	_, err = New(&Options{Workers: -1})
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestPairwise(t *testing.T) {
	sources := map[string][]Keyed{
		"c": {{Member: "c:1", Key: "north store"}},
		"a": {{Member: "a:1", Key: "north store"}},
		"b": {{Member: "b:1", Key: "north stores"}},
	}
	m, err := New()
	require.NoError(t, err)

	links, err := m.Pairwise(context.Background(), sources, 0.9)
	require.NoError(t, err)
	require.Len(t, links, 3)

	assert.Equal(t, CandidateLink{A: "a:1", B: "c:1", Similarity: 1, MatchedOn: "label"}, links[0])
	for _, l := range links {
		assert.Less(t, l.A.Source(), l.B.Source())
	}
}
