package differ

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/retailsync/pkg/reconciler"
	"github.com/agentstation/retailsync/pkg/records"
	"github.com/agentstation/retailsync/pkg/resolver"
	"github.com/agentstation/retailsync/pkg/series"
)

// Snapshot is the comparable output of one run.
type Snapshot struct {
	Entities []resolver.CanonicalEntity
	Points   []series.Point
}

// SnapshotOf extracts the comparable output of a result.
func SnapshotOf(result *reconciler.Result) Snapshot {
	if result == nil {
		return Snapshot{}
	}
	return Snapshot{Entities: result.Entities, Points: result.Series}
}

// Differ handles change detection between runs.
type Differ interface {
	// Entities compares two sets of canonical entities
	Entities(existing, updated []resolver.CanonicalEntity) *EntityChangeset

	// Points compares two sets of series points
	Points(existing, updated []series.Point) *PointChangeset

	// Snapshots compares two complete runs
	Snapshots(existing, updated Snapshot) *Changeset
}

// differ is the default implementation of Differ.
type differ struct {
	tolerance float64
	imputed   bool
}

// New creates a Differ. By default values must match exactly and imputed
// points are compared like observed ones.
func New(opts ...Option) Differ {
	d := &differ{imputed: true}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Entities compares two sets of entities by canonical id.
func (diff *differ) Entities(existing, updated []resolver.CanonicalEntity) *EntityChangeset {
	changeset := &EntityChangeset{
		Added:   []resolver.CanonicalEntity{},
		Updated: []EntityUpdate{},
		Removed: []resolver.CanonicalEntity{},
	}

	existingMap := make(map[string]resolver.CanonicalEntity, len(existing))
	for _, e := range existing {
		existingMap[e.ID] = e
	}
	newMap := make(map[string]resolver.CanonicalEntity, len(updated))
	for _, e := range updated {
		newMap[e.ID] = e
	}

	for _, e := range updated {
		if old, exists := existingMap[e.ID]; exists {
			if update := diff.entity(old, e); update != nil {
				changeset.Updated = append(changeset.Updated, *update)
			}
		} else {
			changeset.Added = append(changeset.Added, e)
		}
	}
	for _, e := range existing {
		if _, exists := newMap[e.ID]; !exists {
			changeset.Removed = append(changeset.Removed, e)
		}
	}

	sort.Slice(changeset.Added, func(i, j int) bool { return changeset.Added[i].ID < changeset.Added[j].ID })
	sort.Slice(changeset.Updated, func(i, j int) bool { return changeset.Updated[i].ID < changeset.Updated[j].ID })
	sort.Slice(changeset.Removed, func(i, j int) bool { return changeset.Removed[i].ID < changeset.Removed[j].ID })
	return changeset
}

// pointKey identifies a point across runs.
type pointKey struct {
	id     string
	period int64
}

func keyOf(p series.Point) pointKey {
	return pointKey{id: p.CanonicalID, period: p.Period.Unix()}
}

// Points compares two sets of points by canonical id and period.
func (diff *differ) Points(existing, updated []series.Point) *PointChangeset {
	changeset := &PointChangeset{
		Added:   []series.Point{},
		Updated: []PointUpdate{},
		Removed: []series.Point{},
	}

	existing = diff.filter(existing)
	updated = diff.filter(updated)

	existingMap := make(map[pointKey]series.Point, len(existing))
	for _, p := range existing {
		existingMap[keyOf(p)] = p
	}
	newMap := make(map[pointKey]series.Point, len(updated))
	for _, p := range updated {
		newMap[keyOf(p)] = p
	}

	for _, p := range updated {
		if old, exists := existingMap[keyOf(p)]; exists {
			if update := diff.point(old, p); update != nil {
				changeset.Updated = append(changeset.Updated, *update)
			}
		} else {
			changeset.Added = append(changeset.Added, p)
		}
	}
	for _, p := range existing {
		if _, exists := newMap[keyOf(p)]; !exists {
			changeset.Removed = append(changeset.Removed, p)
		}
	}

	sortPoints(changeset.Added)
	sortPoints(changeset.Removed)
	sort.Slice(changeset.Updated, func(i, j int) bool {
		return pointLess(changeset.Updated[i].CanonicalID, changeset.Updated[i].Period,
			changeset.Updated[j].CanonicalID, changeset.Updated[j].Period)
	})
	return changeset
}

// Snapshots compares two complete runs.
func (diff *differ) Snapshots(existing, updated Snapshot) *Changeset {
	entities := diff.Entities(existing.Entities, updated.Entities)
	points := diff.Points(existing.Points, updated.Points)
	return &Changeset{
		Entities: entities,
		Points:   points,
		Summary:  calculateSummary(entities, points),
	}
}

func (diff *differ) filter(points []series.Point) []series.Point {
	if diff.imputed {
		return points
	}
	out := make([]series.Point, 0, len(points))
	for _, p := range points {
		if !p.Imputed {
			out = append(out, p)
		}
	}
	return out
}

// entity returns the changes between two versions of an entity, or nil.
func (diff *differ) entity(existing, updated resolver.CanonicalEntity) *EntityUpdate {
	var changes []FieldChange
	if existing.DisplayLabel != updated.DisplayLabel {
		changes = append(changes, FieldChange{
			Path:     "display_label",
			OldValue: existing.DisplayLabel,
			NewValue: updated.DisplayLabel,
			Type:     ChangeTypeUpdate,
		})
	}
	if old, updatedMembers := joinMembers(existing.Members), joinMembers(updated.Members); old != updatedMembers {
		changes = append(changes, FieldChange{
			Path:     "members",
			OldValue: old,
			NewValue: updatedMembers,
			Type:     ChangeTypeUpdate,
		})
	}
	if len(changes) == 0 {
		return nil
	}
	return &EntityUpdate{ID: updated.ID, Existing: existing, New: updated, Changes: changes}
}

// point returns the changes between two versions of a point, or nil.
func (diff *differ) point(existing, updated series.Point) *PointUpdate {
	var changes []FieldChange
	if math.Abs(existing.Value-updated.Value) > diff.tolerance {
		changes = append(changes, FieldChange{
			Path:     "value",
			OldValue: strconv.FormatFloat(existing.Value, 'f', -1, 64),
			NewValue: strconv.FormatFloat(updated.Value, 'f', -1, 64),
			Type:     ChangeTypeUpdate,
		})
	}
	if existing.Imputed != updated.Imputed {
		changes = append(changes, FieldChange{
			Path:     "imputed",
			OldValue: strconv.FormatBool(existing.Imputed),
			NewValue: strconv.FormatBool(updated.Imputed),
			Type:     ChangeTypeUpdate,
		})
	}
	if len(changes) == 0 {
		return nil
	}
	return &PointUpdate{
		CanonicalID: updated.CanonicalID,
		Period:      updated.Period,
		Existing:    existing,
		New:         updated,
		Changes:     changes,
	}
}

func joinMembers(members []records.MemberID) string {
	sorted := records.SortMembers(append([]records.MemberID(nil), members...))
	parts := make([]string, len(sorted))
	for i, m := range sorted {
		parts[i] = string(m)
	}
	return strings.Join(parts, ", ")
}

func sortPoints(points []series.Point) {
	sort.Slice(points, func(i, j int) bool {
		return pointLess(points[i].CanonicalID, points[i].Period, points[j].CanonicalID, points[j].Period)
	})
}

func pointLess(aID string, aPeriod time.Time, bID string, bPeriod time.Time) bool {
	if aID != bID {
		return aID < bID
	}
	return aPeriod.Before(bPeriod)
}
