package output

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/retailsync/pkg/differ"
	"github.com/agentstation/retailsync/pkg/matcher"
	"github.com/agentstation/retailsync/pkg/normalize"
	"github.com/agentstation/retailsync/pkg/period"
	"github.com/agentstation/retailsync/pkg/reconciler"
	"github.com/agentstation/retailsync/pkg/resolver"
	"github.com/agentstation/retailsync/pkg/series"
	"github.com/agentstation/retailsync/pkg/store"
)

// SeriesView renders series points with their entity labels.
type SeriesView struct {
	Points      []series.Point
	Entities    []resolver.CanonicalEntity
	Granularity period.Granularity
}

// NewSeriesView builds the series view of a result.
func NewSeriesView(result *reconciler.Result) SeriesView {
	return SeriesView{
		Points:      result.Series,
		Entities:    result.Entities,
		Granularity: result.Report.Config.PeriodGranularity,
	}
}

// TableData implements Tabular.
func (v SeriesView) TableData() Data {
	labels := make(map[string]string, len(v.Entities))
	for _, e := range v.Entities {
		labels[e.ID] = e.DisplayLabel
	}

	rows := make([][]string, 0, len(v.Points))
	for _, p := range v.Points {
		rows = append(rows, []string{
			p.CanonicalID,
			labels[p.CanonicalID],
			period.Format(p.Period, v.Granularity),
			formatFloat(p.Value),
			strconv.FormatBool(p.Imputed),
		})
	}
	return Data{
		Headers:         []string{"Canonical ID", "Label", "Period", "Value", "Imputed"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignCenter},
	}
}

// EntitiesView renders canonical entities and their members.
type EntitiesView []resolver.CanonicalEntity

// TableData implements Tabular.
func (v EntitiesView) TableData() Data {
	rows := make([][]string, 0, len(v))
	for _, e := range v {
		members := make([]string, len(e.Members))
		for i, m := range e.Members {
			members[i] = string(m)
		}
		rows = append(rows, []string{e.ID, e.DisplayLabel, strings.Join(members, ", ")})
	}
	return Data{
		Headers: []string{"Canonical ID", "Label", "Members"},
		Rows:    rows,
	}
}

// SourcesView renders per-source counts of a report.
type SourcesView []reconciler.SourceReport

// TableData implements Tabular.
func (v SourcesView) TableData() Data {
	rows := make([][]string, 0, len(v))
	for _, s := range v {
		rows = append(rows, []string{
			s.Name,
			strconv.Itoa(s.Received),
			strconv.Itoa(s.Accepted),
			strconv.Itoa(s.Failed),
			s.Error,
		})
	}
	return Data{
		Headers:         []string{"Source", "Received", "Accepted", "Failed", "Error"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignRight, AlignRight, AlignLeft},
	}
}

// ErrorsView renders the dropped records of a report.
type ErrorsView struct {
	Report *reconciler.Report
}

// TableData implements Tabular.
func (v ErrorsView) TableData() Data {
	rows := make([][]string, 0, len(v.Report.Errors))
	for _, e := range v.Report.Errors {
		value := ""
		if e.Value != nil {
			value = fmt.Sprint(e.Value)
		}
		rows = append(rows, []string{e.Source, strconv.Itoa(e.Index), e.Field, value, e.Message})
	}
	return Data{
		Headers: []string{"Source", "Record", "Field", "Value", "Message"},
		Rows:    rows,
	}
}

// LinksView renders candidate links.
type LinksView []matcher.CandidateLink

// TableData implements Tabular.
func (v LinksView) TableData() Data {
	rows := make([][]string, 0, len(v))
	for _, l := range v {
		rows = append(rows, []string{string(l.A), string(l.B), strconv.FormatFloat(l.Similarity, 'f', 4, 64), l.MatchedOn})
	}
	return Data{
		Headers:         []string{"A", "B", "Similarity", "Matched On"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignRight, AlignLeft},
	}
}

// NormalizedLabel pairs a raw label with its normalized key.
type NormalizedLabel struct {
	Label string `json:"label" yaml:"label"`
	Key   string `json:"key,omitempty" yaml:"key,omitempty"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// KeysView renders normalized labels.
type KeysView []NormalizedLabel

// NewKeysView normalizes every label.
func NewKeysView(labels []string) KeysView {
	out := make(KeysView, 0, len(labels))
	for _, l := range labels {
		nl := NormalizedLabel{Label: l}
		if k, err := normalize.Normalize(l); err != nil {
			nl.Error = err.Error()
		} else {
			nl.Key = k.String()
		}
		out = append(out, nl)
	}
	return out
}

// TableData implements Tabular.
func (v KeysView) TableData() Data {
	rows := make([][]string, 0, len(v))
	for _, k := range v {
		rows = append(rows, []string{k.Label, k.Key, k.Error})
	}
	return Data{
		Headers: []string{"Label", "Key", "Error"},
		Rows:    rows,
	}
}

// RunsView renders persisted runs.
type RunsView []store.Run

// TableData implements Tabular.
func (v RunsView) TableData() Data {
	rows := make([][]string, 0, len(v))
	for _, r := range v {
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Format(time.RFC3339),
			strconv.Itoa(r.Records),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Entities),
			strconv.Itoa(r.Points),
		})
	}
	return Data{
		Headers:         []string{"Run ID", "Started", "Records", "Failed", "Entities", "Points"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight},
	}
}

// ChangesView renders a run comparison, one row per change.
type ChangesView struct {
	Changeset   *differ.Changeset
	Granularity period.Granularity
}

// TableData implements Tabular.
func (v ChangesView) TableData() Data {
	var rows [][]string
	cs := v.Changeset

	for _, e := range cs.Entities.Added {
		rows = append(rows, []string{string(differ.ChangeTypeAdd), "entity", e.ID, "", "", e.DisplayLabel})
	}
	for _, u := range cs.Entities.Updated {
		for _, c := range u.Changes {
			rows = append(rows, []string{string(c.Type), "entity", u.ID, c.Path, c.OldValue, c.NewValue})
		}
	}
	for _, e := range cs.Entities.Removed {
		rows = append(rows, []string{string(differ.ChangeTypeRemove), "entity", e.ID, "", e.DisplayLabel, ""})
	}
	for _, p := range cs.Points.Added {
		rows = append(rows, []string{string(differ.ChangeTypeAdd), "point", p.CanonicalID, period.Format(p.Period, v.Granularity), "", formatFloat(p.Value)})
	}
	for _, u := range cs.Points.Updated {
		for _, c := range u.Changes {
			rows = append(rows, []string{string(c.Type), "point", u.CanonicalID, period.Format(u.Period, v.Granularity) + " " + c.Path, c.OldValue, c.NewValue})
		}
	}
	for _, p := range cs.Points.Removed {
		rows = append(rows, []string{string(differ.ChangeTypeRemove), "point", p.CanonicalID, period.Format(p.Period, v.Granularity), formatFloat(p.Value), ""})
	}

	return Data{
		Headers: []string{"Change", "Kind", "Canonical ID", "Field", "Old", "New"},
		Rows:    rows,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
