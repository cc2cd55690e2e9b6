package matcher

import (
	"github.com/agentstation/retailsync/pkg/normalize"
)

// similarityEpsilon absorbs float rounding so a score that equals the
// threshold on paper is kept.
const similarityEpsilon = 1e-12

// Similarity returns 1 - levenshtein(a, b) / max(len(a), len(b)) over runes.
// Identical keys score 1; keys with nothing in common score 0.
func Similarity(a, b normalize.Key) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(string(a)), []rune(string(b))
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(Levenshtein(ra, rb))/float64(longest)
}

// Levenshtein returns the edit distance between two rune slices using a
// two-row dynamic program.
func Levenshtein(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// meets reports whether score reaches threshold, inclusively.
func meets(score, threshold float64) bool {
	return score >= threshold-similarityEpsilon
}
