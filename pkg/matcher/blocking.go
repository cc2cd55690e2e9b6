package matcher

import (
	"math"
	"sort"
)

// block splits the comparison space into independent units.
func (m *Matcher) block(a, b []Keyed, threshold float64) []unit {
	switch m.opts.Blocking {
	case BlockFirstToken:
		return blockFirstToken(a, b)
	case BlockNone:
		return blockNone(a, b, m.opts.Workers)
	default:
		return blockLength(a, b, threshold)
	}
}

// blockLength groups the left side by key length. A left key of length l
// can only reach the threshold against right keys with length in
// [ceil(t*l), floor(l/t)], because the edit distance is at least the
// length difference.
func blockLength(a, b []Keyed, threshold float64) []unit {
	left := make(map[int][]Keyed)
	for _, k := range a {
		left[k.Key.Len()] = append(left[k.Key.Len()], k)
	}
	lengths := make([]int, 0, len(left))
	for l := range left {
		lengths = append(lengths, l)
	}
	sort.Ints(lengths)

	right := make([]Keyed, len(b))
	copy(right, b)
	sort.SliceStable(right, func(i, j int) bool { return right[i].Key.Len() < right[j].Key.Len() })

	units := make([]unit, 0, len(lengths))
	for _, l := range lengths {
		lo := int(math.Ceil(threshold*float64(l) - 1e-9))
		hi := int(math.Floor(float64(l)/threshold + 1e-9))
		start := sort.Search(len(right), func(i int) bool { return right[i].Key.Len() >= lo })
		end := sort.Search(len(right), func(i int) bool { return right[i].Key.Len() > hi })
		if start >= end {
			continue
		}
		units = append(units, unit{left: left[l], right: right[start:end]})
	}
	return units
}

// blockFirstToken pairs keys sharing their first sorted token.
func blockFirstToken(a, b []Keyed) []unit {
	left := make(map[string][]Keyed)
	for _, k := range a {
		left[k.Key.FirstToken()] = append(left[k.Key.FirstToken()], k)
	}
	right := make(map[string][]Keyed)
	for _, k := range b {
		right[k.Key.FirstToken()] = append(right[k.Key.FirstToken()], k)
	}

	tokens := make([]string, 0, len(left))
	for tok := range left {
		if _, ok := right[tok]; ok {
			tokens = append(tokens, tok)
		}
	}
	sort.Strings(tokens)

	units := make([]unit, 0, len(tokens))
	for _, tok := range tokens {
		units = append(units, unit{left: left[tok], right: right[tok]})
	}
	return units
}

// blockNone compares everything, split into roughly one chunk of the left
// side per worker.
func blockNone(a, b []Keyed, workers int) []unit {
	size := max(1, (len(a)+workers-1)/workers)
	units := make([]unit, 0, workers)
	for start := 0; start < len(a); start += size {
		end := min(start+size, len(a))
		units = append(units, unit{left: a[start:end], right: b})
	}
	return units
}
