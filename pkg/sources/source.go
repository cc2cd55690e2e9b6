// Package sources decodes raw tabular data into records the reconciliation
// pipeline can consume.
//
// A Source yields one batch of records. File sources read CSV, TSV, JSON or
// YAML rows and map them onto RawRecord fields through a Schema; the Census
// and FRED adapters turn the public retail and economic datasets into
// records directly.
//
// Example usage:
//
//	src := sources.NewFileSource(sources.FileSpec{
//	    Name: "pos",
//	    Path: "testdata/pos.csv",
//	})
//	batch, err := src.Records(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
package sources

import (
	"context"
	"sort"
	"sync"

	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/records"
)

// ID represents the identifier of a data source.
type ID string

// String returns the string representation of a source name.
func (id ID) String() string {
	return string(id)
}

// Batch is the output of one source read. Errors holds the rows that could
// not be decoded; their Index is the row position in the input.
type Batch struct {
	Records []records.RawRecord
	Errors  []*errors.DataError
}

// Len returns the number of rows read, decoded or not.
func (b *Batch) Len() int {
	return len(b.Records) + len(b.Errors)
}

// Source represents a data source of raw records.
type Source interface {
	// ID returns the source name. It becomes the source part of member ids.
	ID() ID

	// Records reads the source. Row-level problems are reported in the
	// batch; the error is reserved for failures of the whole source.
	Records(ctx context.Context) (*Batch, error)
}

// Sources is a thread-safe container for managing multiple data sources.
type Sources struct {
	mu      sync.RWMutex
	sources map[ID]Source
}

// NewSources creates a new Sources instance.
func NewSources(srcs ...Source) *Sources {
	s := &Sources{
		sources: make(map[ID]Source),
	}
	for _, src := range srcs {
		s.sources[src.ID()] = src
	}
	return s
}

// Get returns a source by ID.
func (s *Sources) Get(id ID) (Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, found := s.sources[id]
	return src, found
}

// Set sets a source by ID.
func (s *Sources) Set(id ID, src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[id] = src
}

// Delete deletes a source by ID.
func (s *Sources) Delete(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, id)
}

// Len returns the number of sources.
func (s *Sources) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sources)
}

// List returns all sources ordered by ID.
func (s *Sources) List() []Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Source, 0, len(s.sources))
	for _, src := range s.sources {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// IDs returns all source IDs in sorted order.
func (s *Sources) IDs() []ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]ID, 0, len(s.sources))
	for id := range s.sources {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// StaticSource serves records held in memory.
type StaticSource struct {
	id      ID
	records []records.RawRecord
}

// NewStaticSource creates a source over a fixed set of records.
func NewStaticSource(id ID, recs []records.RawRecord) *StaticSource {
	return &StaticSource{id: id, records: recs}
}

// ID returns the source name.
func (s *StaticSource) ID() ID {
	return s.id
}

// Records returns a copy of the held records.
func (s *StaticSource) Records(ctx context.Context) (*Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapCanceled("source "+string(s.id), err)
	}
	out := make([]records.RawRecord, len(s.records))
	copy(out, s.records)
	return &Batch{Records: out}, nil
}
