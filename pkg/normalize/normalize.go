// Package normalize canonicalizes raw entity labels into comparable keys.
//
// A key is the label case-folded, stripped of diacritics and punctuation,
// whitespace-collapsed and with its tokens sorted, so "Store 12 North" and
// "north  store #12" produce the same key "12 north store". Keys are not
// unique; collisions are what the matcher looks for.
package normalize

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/agentstation/retailsync/pkg/constants"
	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/records"
)

// Record validates rec as ingested from source and returns its member id
// and normalized key. A record without a source id is identified by its key.
func Record(source string, rec records.RawRecord) (records.MemberID, Key, error) {
	if err := rec.Validate(); err != nil {
		return "", "", err
	}
	key, err := Normalize(rec.Label)
	if err != nil {
		return "", "", err
	}
	id := strings.TrimSpace(rec.SourceID)
	if id == "" {
		id = key.String()
	}
	return records.NewMemberID(source, id), key, nil
}

// Key is a normalized label.
type Key string

// String returns the key as a string.
func (k Key) String() string {
	return string(k)
}

// Tokens returns the sorted tokens of the key.
func (k Key) Tokens() []string {
	return strings.Fields(string(k))
}

// FirstToken returns the alphabetically first token, used for blocking.
func (k Key) FirstToken() string {
	first, _, _ := strings.Cut(string(k), " ")
	return first
}

// Len returns the key length in runes.
func (k Key) Len() int {
	return utf8.RuneCountInString(string(k))
}

// Normalize folds a raw label into its canonical key. It is pure and
// idempotent: Normalize(string(Normalize(x))) == Normalize(x).
func Normalize(label string) (Key, error) {
	if strings.TrimSpace(label) == "" {
		return "", errors.NewValidationError("label", label, "cannot be empty")
	}
	if !utf8.ValidString(label) {
		return "", errors.NewValidationError("label", label, "is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(label); n > constants.MaxLabelLength {
		return "", errors.NewValidationError("label", label,
			fmt.Sprintf("length %d exceeds %d", n, constants.MaxLabelLength))
	}

	// Casers are stateful, so one is built per call. Fold before stripping
	// marks: folding can introduce combining marks (U+0130 folds to "i" +
	// U+0307), which must not survive into the key.
	folded := cases.Fold().String(label)

	stripped, _, err := transform.String(stripMarks(), folded)
	if err != nil {
		return "", errors.NewValidationError("label", label, err.Error())
	}

	tokens := strings.Fields(strings.Map(mapRune, stripped))
	if len(tokens) == 0 {
		return "", errors.NewValidationError("label", label, "contains no letters or digits")
	}
	sort.Strings(tokens)

	return Key(strings.Join(tokens, " ")), nil
}

// Value normalizes an untyped value taken from a loosely typed row. Only
// strings are accepted.
func Value(v any) (Key, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.NewValidationError("label", v, fmt.Sprintf("expected string, got %T", v))
	}
	return Normalize(s)
}

// MustNormalize is like Normalize but panics on error. Intended for tests
// and constant tables.
func MustNormalize(label string) Key {
	k, err := Normalize(label)
	if err != nil {
		panic(err)
	}
	return k
}

// stripMarks decomposes compatibility forms, drops nonspacing marks and
// recomposes. A new transformer is built per call because transform chains
// are stateful.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// mapRune keeps letters and digits, deletes apostrophes so "Macy's" stays
// one token, and turns everything else into a separator.
func mapRune(r rune) rune {
	switch {
	case unicode.IsLetter(r), unicode.IsDigit(r):
		return r
	case r == '\'' || r == '’' || r == '`':
		return -1
	default:
		return ' '
	}
}
