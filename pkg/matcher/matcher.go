// Package matcher proposes candidate links between entities of two sources
// by approximate similarity of their normalized keys.
//
// Pairs are blocked before comparison so large catalogs are not compared
// all-against-all. Every qualifying pair is emitted; ties are left for the
// resolver.
package matcher

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/retailsync/pkg/constants"
	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/normalize"
	"github.com/agentstation/retailsync/pkg/records"
)

// Blocking selects how keys are bucketed before pairwise comparison.
type Blocking string

const (
	// BlockLength compares a key only against keys whose length could reach
	// the threshold. It never drops a qualifying pair.
	BlockLength Blocking = "length"
	// BlockFirstToken compares only keys that share their first sorted token.
	BlockFirstToken Blocking = "first_token"
	// BlockNone compares every pair.
	BlockNone Blocking = "none"
)

// String returns the string representation of a blocking strategy.
func (b Blocking) String() string {
	return string(b)
}

// Valid reports whether b is a known blocking strategy.
func (b Blocking) Valid() bool {
	switch b {
	case BlockLength, BlockFirstToken, BlockNone:
		return true
	}
	return false
}

// ParseBlocking converts a configuration value into a Blocking strategy.
func ParseBlocking(s string) (Blocking, error) {
	b := Blocking(strings.ToLower(strings.TrimSpace(s)))
	if !b.Valid() {
		return "", errors.NewConfigError("matcher", "blocking",
			fmt.Sprintf("unknown blocking strategy %q (want length, first_token or none)", s))
	}
	return b, nil
}

// Keyed is a member together with its normalized key.
type Keyed struct {
	Member records.MemberID
	Key    normalize.Key
}

// CandidateLink is a proposed link between two members from different
// sources. A is always from the left input of the Match call.
type CandidateLink struct {
	A          records.MemberID `json:"a" yaml:"a"`
	B          records.MemberID `json:"b" yaml:"b"`
	Similarity float64          `json:"similarity" yaml:"similarity"`
	MatchedOn  string           `json:"matched_on" yaml:"matched_on"`
}

// Options configures the matcher behavior.
type Options struct {
	// Blocking selects the bucketing strategy
	Blocking Blocking
	// Workers bounds the number of buckets compared concurrently
	Workers int
	// MatchedOn names the compared field in emitted links
	MatchedOn string
}

// DefaultOptions returns the default options.
func DefaultOptions() *Options {
	return &Options{
		Blocking:  Blocking(constants.DefaultBlocking),
		Workers:   runtime.GOMAXPROCS(0),
		MatchedOn: "label",
	}
}

// Matcher computes candidate links.
type Matcher struct {
	opts Options
}

// New creates a Matcher. A nil or missing Options uses DefaultOptions.
func New(opts ...*Options) (*Matcher, error) {
	options := DefaultOptions()
	if len(opts) > 0 && opts[0] != nil {
		o := *opts[0]
		if o.Blocking == "" {
			o.Blocking = options.Blocking
		}
		if o.Workers == 0 {
			o.Workers = options.Workers
		}
		if o.MatchedOn == "" {
			o.MatchedOn = options.MatchedOn
		}
		options = &o
	}

	if !options.Blocking.Valid() {
		return nil, errors.NewConfigError("matcher", "blocking",
			fmt.Sprintf("unknown blocking strategy %q", options.Blocking))
	}
	if options.Workers < 1 || options.Workers > constants.MaxWorkers {
		return nil, errors.NewConfigError("matcher", "workers",
			fmt.Sprintf("must be between 1 and %d", constants.MaxWorkers))
	}

	return &Matcher{opts: *options}, nil
}

// ValidateThreshold checks that a similarity threshold lies in (0,1].
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold <= 0 || threshold > 1 {
		return errors.NewConfigError("matcher", "similarity_threshold",
			fmt.Sprintf("must be in (0,1], got %v", threshold))
	}
	return nil
}

// Match links members of a to members of b whose similarity is at least
// threshold. Links are ordered by descending similarity, then A, then B.
func Match(ctx context.Context, a, b []Keyed, threshold float64) ([]CandidateLink, error) {
	m, err := New()
	if err != nil {
		return nil, err
	}
	return m.Match(ctx, a, b, threshold)
}

// Match links members of a to members of b whose similarity is at least
// threshold. Buckets are compared concurrently; cancellation is checked
// before each bucket.
func (m *Matcher) Match(ctx context.Context, a, b []Keyed, threshold float64) ([]CandidateLink, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapCanceled("matcher", err)
	}
	if len(a) == 0 || len(b) == 0 {
		return []CandidateLink{}, nil
	}

	units := m.block(a, b, threshold)
	results := make([][]CandidateLink, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Workers)
	for i, u := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return errors.WrapCanceled("matcher", err)
			}
			results[i] = m.compare(u, threshold)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// errgroup cancels gctx on the first error only; a parent cancellation
	// racing the last bucket must still discard the result.
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapCanceled("matcher", err)
	}

	var links []CandidateLink
	for _, r := range results {
		links = append(links, r...)
	}
	SortLinks(links)
	return links, nil
}

// Pairwise matches every pair of sources, in sorted source-name order, and
// returns the union of their links.
func (m *Matcher) Pairwise(ctx context.Context, sources map[string][]Keyed, threshold float64) ([]CandidateLink, error) {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	var links []CandidateLink
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			pair, err := m.Match(ctx, sources[names[i]], sources[names[j]], threshold)
			if err != nil {
				return nil, err
			}
			links = append(links, pair...)
		}
	}
	SortLinks(links)
	return links, nil
}

// SortLinks orders links by descending similarity, then A, then B.
func SortLinks(links []CandidateLink) {
	sort.SliceStable(links, func(i, j int) bool {
		if links[i].Similarity != links[j].Similarity {
			return links[i].Similarity > links[j].Similarity
		}
		if links[i].A != links[j].A {
			return links[i].A < links[j].A
		}
		return links[i].B < links[j].B
	})
}

// unit is one independent bucket of comparisons.
type unit struct {
	left  []Keyed
	right []Keyed
}

func (m *Matcher) compare(u unit, threshold float64) []CandidateLink {
	var out []CandidateLink
	for _, l := range u.left {
		for _, r := range u.right {
			score := Similarity(l.Key, r.Key)
			if meets(score, threshold) {
				out = append(out, CandidateLink{
					A:          l.Member,
					B:          r.Member,
					Similarity: score,
					MatchedOn:  m.opts.MatchedOn,
				})
			}
		}
	}
	return out
}
