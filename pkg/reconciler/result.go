package reconciler

import (
	"fmt"
	"time"

	"github.com/agentstation/retailsync/pkg/config"
	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/resolver"
	"github.com/agentstation/retailsync/pkg/series"
)

// Result represents the outcome of a reconciliation run.
type Result struct {
	// Series holds one gap-filled series per entity, ordered by canonical
	// id then period.
	Series []series.Point `json:"series" yaml:"series"`

	// Entities lists the canonical entities ordered by id.
	Entities []resolver.CanonicalEntity `json:"entities" yaml:"entities"`

	// Report describes what happened to the input.
	Report *Report `json:"report" yaml:"report"`
}

// Report summarizes a run, including every record that was dropped.
type Report struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	StartTime time.Time     `json:"start_time" yaml:"start_time"`
	EndTime   time.Time     `json:"end_time" yaml:"end_time"`
	Duration  time.Duration `json:"duration" yaml:"duration"`

	// Config is the effective configuration of the run.
	Config config.Config `json:"config" yaml:"config"`

	// Sources holds per-source counts in source name order.
	Sources []SourceReport `json:"sources" yaml:"sources"`

	// Errors holds every record-level failure, in source then record order.
	Errors []*errors.DataError `json:"errors,omitempty" yaml:"errors,omitempty"`

	Stats Statistics `json:"stats" yaml:"stats"`
}

// SourceReport counts the records of one source.
type SourceReport struct {
	Name     string `json:"name" yaml:"name"`
	Received int    `json:"received" yaml:"received"`
	Accepted int    `json:"accepted" yaml:"accepted"`
	Failed   int    `json:"failed" yaml:"failed"`
	// Error is set when the source could not be read at all.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Statistics contains counts across the whole run.
type Statistics struct {
	Records       int   `json:"records" yaml:"records"`
	Accepted      int   `json:"accepted" yaml:"accepted"`
	Failed        int   `json:"failed" yaml:"failed"`
	Members       int   `json:"members" yaml:"members"`
	Candidates    int   `json:"candidates" yaml:"candidates"`
	AcceptedLinks int   `json:"accepted_links" yaml:"accepted_links"`
	RejectedLinks int   `json:"rejected_links" yaml:"rejected_links"`
	Entities      int   `json:"entities" yaml:"entities"`
	Points        int   `json:"points" yaml:"points"`
	Imputed       int   `json:"imputed" yaml:"imputed"`
	TotalTimeMs   int64 `json:"total_time_ms" yaml:"total_time_ms"`
}

// NewReport creates a report for a run starting now.
func NewReport(runID string, cfg config.Config) *Report {
	return &Report{
		RunID:     runID,
		StartTime: time.Now(),
		Config:    cfg,
		Sources:   []SourceReport{},
		Errors:    []*errors.DataError{},
	}
}

// IsClean returns true if no record or source failed.
func (r *Report) IsClean() bool {
	if len(r.Errors) > 0 {
		return false
	}
	for _, s := range r.Sources {
		if s.Error != "" {
			return false
		}
	}
	return true
}

// Source returns the report of a named source.
func (r *Report) Source(name string) (SourceReport, bool) {
	for _, s := range r.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return SourceReport{}, false
}

// ErrorsFor returns the record errors of one source.
func (r *Report) ErrorsFor(source string) []*errors.DataError {
	var out []*errors.DataError
	for _, e := range r.Errors {
		if e.Source == source {
			out = append(out, e)
		}
	}
	return out
}

// Summary returns a human-readable summary of the report.
func (r *Report) Summary() string {
	if r.IsClean() {
		return fmt.Sprintf("Reconciled %d records into %d entities and %d points.",
			r.Stats.Records, r.Stats.Entities, r.Stats.Points)
	}
	return fmt.Sprintf("Reconciled %d of %d records into %d entities and %d points; %d records failed.",
		r.Stats.Accepted, r.Stats.Records, r.Stats.Entities, r.Stats.Points, r.Stats.Failed)
}

// tally derives per-source and run totals from received counts and errors.
func (r *Report) tally(received map[string]int) {
	failed := make(map[string]int)
	for _, e := range r.Errors {
		failed[e.Source]++
	}
	for i := range r.Sources {
		s := &r.Sources[i]
		s.Received = received[s.Name]
		s.Failed = failed[s.Name]
		s.Accepted = s.Received - s.Failed
		r.Stats.Records += s.Received
		r.Stats.Accepted += s.Accepted
		r.Stats.Failed += s.Failed
	}
}

// Finalize calculates duration and marks completion.
func (r *Report) Finalize() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Stats.TotalTimeMs = r.Duration.Milliseconds()
}
