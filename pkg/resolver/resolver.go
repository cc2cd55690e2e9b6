// Package resolver turns candidate links into a partition of members into
// canonical entities.
//
// Resolution is greedy: links are taken highest similarity first and a link
// is accepted only while it keeps the partition consistent with the
// configured policy. Given the same members and links the resulting entity
// map, including canonical ids, is identical across runs.
package resolver

import (
	"fmt"
	"math"
	"strings"

	"github.com/agentstation/retailsync/pkg/constants"
	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/matcher"
	"github.com/agentstation/retailsync/pkg/records"
)

// Policy controls how many members of one source an entity may hold.
type Policy string

const (
	// OneToOne allows at most one member per source in an entity.
	OneToOne Policy = "one_to_one"
	// OneToMany lets any number of members of a source join an entity.
	OneToMany Policy = "one_to_many"
)

// String returns the string representation of a policy.
func (p Policy) String() string {
	return string(p)
}

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	return p == OneToOne || p == OneToMany
}

// ParsePolicy converts a configuration value into a Policy.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", errors.NewConfigError("resolver", "resolve_policy",
			fmt.Sprintf("unknown policy %q (want one_to_one or one_to_many)", s))
	}
	return p, nil
}

// Resolver builds entity maps.
type Resolver struct {
	policy Policy
}

// New creates a Resolver. An empty policy selects the default.
func New(policy Policy) (*Resolver, error) {
	if policy == "" {
		policy = Policy(constants.DefaultResolvePolicy)
	}
	if !policy.Valid() {
		return nil, errors.NewConfigError("resolver", "resolve_policy",
			fmt.Sprintf("unknown policy %q", policy))
	}
	return &Resolver{policy: policy}, nil
}

// Policy returns the resolver's policy.
func (r *Resolver) Policy() Policy {
	return r.policy
}

// Resolve partitions members using the default policy.
func Resolve(members []Member, candidates []matcher.CandidateLink) (*EntityMap, error) {
	r, err := New("")
	if err != nil {
		return nil, err
	}
	return r.Resolve(members, candidates)
}

// Resolve partitions members into canonical entities. Every member ends up
// in exactly one entity; members without an accepted link become
// singletons. It returns a ConflictError when the candidates break the
// matcher contract.
func (r *Resolver) Resolve(members []Member, candidates []matcher.CandidateLink) (*EntityMap, error) {
	index := make(map[records.MemberID]Member, len(members))
	for _, m := range members {
		if _, ok := index[m.ID]; !ok {
			index[m.ID] = m
		}
	}

	links, err := checkCandidates(index, candidates)
	if err != nil {
		return nil, err
	}

	em := newEntityMap()
	em.stats.Candidates = len(links)

	for _, link := range links {
		ea, eb := em.byMember[link.A], em.byMember[link.B]
		switch {
		case ea == nil && eb == nil:
			e := em.create(index[link.A])
			em.join(e, link.B)
			em.stats.Accepted++
		case ea != nil && eb != nil:
			em.stats.Rejected++
		case ea != nil:
			if r.admits(ea, link.B) {
				em.join(ea, link.B)
				em.stats.Accepted++
			} else {
				em.stats.Rejected++
			}
		default:
			if r.admits(eb, link.A) {
				em.join(eb, link.A)
				em.stats.Accepted++
			} else {
				em.stats.Rejected++
			}
		}
	}

	ids := make([]records.MemberID, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}
	for _, id := range records.SortMembers(ids) {
		if _, ok := em.byMember[id]; !ok {
			em.create(index[id])
			em.stats.Singletons++
		}
	}

	return em, nil
}

func (r *Resolver) admits(e *CanonicalEntity, joiner records.MemberID) bool {
	if r.policy == OneToMany {
		return true
	}
	return !e.HasSource(joiner.Source())
}

type pairKey struct {
	lo, hi records.MemberID
}

type sourcePair struct {
	lo, hi string
}

// checkCandidates enforces the matcher contract and returns the links in
// resolution order with exact duplicates removed.
func checkCandidates(index map[records.MemberID]Member, candidates []matcher.CandidateLink) ([]matcher.CandidateLink, error) {
	seen := make(map[pairKey]float64, len(candidates))
	sides := make(map[sourcePair]map[records.MemberID]byte)
	links := make([]matcher.CandidateLink, 0, len(candidates))

	for _, c := range candidates {
		a, b := c.A, c.B
		if a == b {
			return nil, errors.NewConflictError("self link", a.String())
		}
		if _, ok := index[a]; !ok {
			return nil, errors.NewConflictError("link references unknown member", a.String())
		}
		if _, ok := index[b]; !ok {
			return nil, errors.NewConflictError("link references unknown member", b.String())
		}
		if math.IsNaN(c.Similarity) || c.Similarity < 0 || c.Similarity > 1 {
			return nil, errors.NewConflictError(
				fmt.Sprintf("similarity %v outside [0,1]", c.Similarity), a.String(), b.String())
		}
		sa, sb := a.Source(), b.Source()
		if sa == sb {
			return nil, errors.NewConflictError("link within source "+sa, a.String(), b.String())
		}

		key := pairKey{lo: min(a, b), hi: max(a, b)}
		if prev, ok := seen[key]; ok {
			if prev != c.Similarity {
				return nil, errors.NewConflictError(
					fmt.Sprintf("pair listed with similarities %v and %v", prev, c.Similarity),
					a.String(), b.String())
			}
			continue
		}
		seen[key] = c.Similarity

		sp := sourcePair{lo: min(sa, sb), hi: max(sa, sb)}
		if sides[sp] == nil {
			sides[sp] = make(map[records.MemberID]byte)
		}
		for _, end := range []struct {
			member records.MemberID
			side   byte
		}{{a, 'A'}, {b, 'B'}} {
			if prev, ok := sides[sp][end.member]; ok && prev != end.side {
				return nil, errors.NewConflictError(
					fmt.Sprintf("member on both sides of %s/%s links", sp.lo, sp.hi), end.member.String())
			}
			sides[sp][end.member] = end.side
		}

		links = append(links, c)
	}

	matcher.SortLinks(links)
	return links, nil
}
