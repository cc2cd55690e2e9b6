package resolver

import (
	"sort"

	"github.com/google/uuid"

	"github.com/agentstation/retailsync/pkg/normalize"
	"github.com/agentstation/retailsync/pkg/records"
)

// Namespace seeds the name-based UUIDs used as canonical entity ids.
var Namespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("retailsync.canonical-entity"))

// CanonicalID derives the stable canonical id of an entity from the member
// that founded it.
func CanonicalID(founder records.MemberID) string {
	return uuid.NewSHA1(Namespace, []byte(founder)).String()
}

// Member is one resolvable identity: a member id with the label and key it
// was observed under.
type Member struct {
	ID    records.MemberID `json:"id" yaml:"id"`
	Label string           `json:"label" yaml:"label"`
	Key   normalize.Key    `json:"key" yaml:"key"`
}

// CanonicalEntity is one cluster of members believed to denote the same
// real-world thing.
type CanonicalEntity struct {
	ID           string             `json:"id" yaml:"id"`
	DisplayLabel string             `json:"display_label" yaml:"display_label"`
	Members      []records.MemberID `json:"members" yaml:"members"`
}

// HasSource reports whether the entity already has a member from source.
func (e *CanonicalEntity) HasSource(source string) bool {
	for _, m := range e.Members {
		if m.Source() == source {
			return true
		}
	}
	return false
}

// Stats counts how candidate links were used.
type Stats struct {
	Candidates int `json:"candidates" yaml:"candidates"`
	Accepted   int `json:"accepted" yaml:"accepted"`
	Rejected   int `json:"rejected" yaml:"rejected"`
	Singletons int `json:"singletons" yaml:"singletons"`
}

// EntityMap assigns every member to exactly one canonical entity. It is
// scoped to a single run.
type EntityMap struct {
	entities []*CanonicalEntity
	byID     map[string]*CanonicalEntity
	byMember map[records.MemberID]*CanonicalEntity
	stats    Stats
}

func newEntityMap() *EntityMap {
	return &EntityMap{
		byID:     make(map[string]*CanonicalEntity),
		byMember: make(map[records.MemberID]*CanonicalEntity),
	}
}

func (m *EntityMap) create(founder Member) *CanonicalEntity {
	e := &CanonicalEntity{
		ID:           CanonicalID(founder.ID),
		DisplayLabel: founder.Label,
		Members:      []records.MemberID{founder.ID},
	}
	m.entities = append(m.entities, e)
	m.byID[e.ID] = e
	m.byMember[founder.ID] = e
	return e
}

func (m *EntityMap) join(e *CanonicalEntity, member records.MemberID) {
	e.Members = append(e.Members, member)
	m.byMember[member] = e
}

// Lookup returns the canonical id of a member.
func (m *EntityMap) Lookup(member records.MemberID) (string, bool) {
	e, ok := m.byMember[member]
	if !ok {
		return "", false
	}
	return e.ID, true
}

// Entity returns the entity with the given canonical id.
func (m *EntityMap) Entity(id string) (CanonicalEntity, bool) {
	e, ok := m.byID[id]
	if !ok {
		return CanonicalEntity{}, false
	}
	return e.clone(), true
}

// Entities returns copies of all entities ordered by canonical id.
func (m *EntityMap) Entities() []CanonicalEntity {
	out := make([]CanonicalEntity, 0, len(m.entities))
	for _, e := range m.entities {
		out = append(out, e.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of entities.
func (m *EntityMap) Len() int {
	return len(m.entities)
}

// MemberCount returns the number of assigned members.
func (m *EntityMap) MemberCount() int {
	return len(m.byMember)
}

// Stats returns link usage counts for the resolution that built the map.
func (m *EntityMap) Stats() Stats {
	return m.stats
}

func (e *CanonicalEntity) clone() CanonicalEntity {
	out := *e
	out.Members = append([]records.MemberID(nil), e.Members...)
	return out
}
