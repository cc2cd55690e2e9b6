// Package records defines the raw input records consumed by the
// reconciliation pipeline and the member identities the resolver partitions.
package records

import (
	"math"
	"sort"
	"strings"

	"github.com/agentstation/retailsync/pkg/constants"
	"github.com/agentstation/retailsync/pkg/errors"
)

// RawRecord is one observation fetched from a data source. Records are
// passed by value and never mutated once decoded.
type RawRecord struct {
	// Source is the name of the batch the record came from. The orchestrator
	// fills it from the batch key when empty.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// SourceID identifies the entity inside its source (store number, SKU,
	// state FIPS code). Optional; the normalized label is used when empty.
	SourceID string `json:"source_id,omitempty" yaml:"source_id,omitempty"`

	// Label is the raw, human-entered entity name.
	Label string `json:"label" yaml:"label"`

	// Period is the raw period value, parsed at the configured granularity
	// during assembly.
	Period string `json:"period" yaml:"period"`

	// Quantity is the observed value for the period.
	Quantity float64 `json:"quantity" yaml:"quantity"`

	// Attributes carries extra scalar columns through unchanged.
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Validate checks the fields every record must carry before it enters the
// pipeline. Period parsing is deferred to the assembler because it depends
// on the configured granularity.
func (r RawRecord) Validate() error {
	if strings.TrimSpace(r.Label) == "" {
		return errors.NewValidationError("label", r.Label, "cannot be empty")
	}
	if strings.TrimSpace(r.Period) == "" {
		return errors.NewValidationError("period", r.Period, "cannot be empty")
	}
	if math.IsNaN(r.Quantity) || math.IsInf(r.Quantity, 0) {
		return errors.NewValidationError("quantity", r.Quantity, "must be a finite number")
	}
	return nil
}

// Attribute returns a named attribute, if present.
func (r RawRecord) Attribute(name string) (any, bool) {
	if r.Attributes == nil {
		return nil, false
	}
	v, ok := r.Attributes[name]
	return v, ok
}

// MemberID is the qualified identity of one entity within one source,
// formatted as "<source>:<source id>".
type MemberID string

// NewMemberID joins a source name and a per-source identifier.
func NewMemberID(source, id string) MemberID {
	return MemberID(source + constants.MemberSeparator + id)
}

// String returns the member id as a string.
func (m MemberID) String() string {
	return string(m)
}

// Source returns the source part of the member id.
func (m MemberID) Source() string {
	source, _, _ := strings.Cut(string(m), constants.MemberSeparator)
	return source
}

// Local returns the per-source identifier part of the member id.
func (m MemberID) Local() string {
	_, local, _ := strings.Cut(string(m), constants.MemberSeparator)
	return local
}

// SortMembers sorts member ids in place and returns them.
func SortMembers(ids []MemberID) []MemberID {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Batches maps a source name to the records fetched from it.
type Batches map[string][]RawRecord

// Names returns the source names in sorted order. Every stage iterates
// sources in this order so runs are reproducible.
func (b Batches) Names() []string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the total number of records across all sources.
func (b Batches) Len() int {
	n := 0
	for _, recs := range b {
		n += len(recs)
	}
	return n
}
