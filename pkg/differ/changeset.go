// Package differ compares two reconciliation runs and reports the entities
// and series points that were added, updated or removed.
package differ

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/retailsync/pkg/resolver"
	"github.com/agentstation/retailsync/pkg/series"
)

// ChangeType represents the type of change.
type ChangeType string

const (
	// ChangeTypeAdd indicates an item was added.
	ChangeTypeAdd ChangeType = "add"
	// ChangeTypeUpdate indicates an item was updated.
	ChangeTypeUpdate ChangeType = "update"
	// ChangeTypeRemove indicates an item was removed.
	ChangeTypeRemove ChangeType = "remove"
)

// FieldChange represents a change to a specific field.
type FieldChange struct {
	Path     string     `json:"path" yaml:"path"`           // Field path (e.g., "members")
	OldValue string     `json:"old_value" yaml:"old_value"` // Previous value (string representation)
	NewValue string     `json:"new_value" yaml:"new_value"` // New value (string representation)
	Type     ChangeType `json:"type" yaml:"type"`
}

// EntityUpdate represents a change to an entity present in both runs.
type EntityUpdate struct {
	ID       string                   `json:"id" yaml:"id"`
	Existing resolver.CanonicalEntity `json:"existing" yaml:"existing"`
	New      resolver.CanonicalEntity `json:"new" yaml:"new"`
	Changes  []FieldChange            `json:"changes" yaml:"changes"`
}

// PointUpdate represents a change to a point present in both runs.
type PointUpdate struct {
	CanonicalID string        `json:"canonical_id" yaml:"canonical_id"`
	Period      time.Time     `json:"period" yaml:"period"`
	Existing    series.Point  `json:"existing" yaml:"existing"`
	New         series.Point  `json:"new" yaml:"new"`
	Changes     []FieldChange `json:"changes" yaml:"changes"`
}

// EntityChangeset represents changes to canonical entities.
type EntityChangeset struct {
	Added   []resolver.CanonicalEntity `json:"added" yaml:"added"`
	Updated []EntityUpdate             `json:"updated" yaml:"updated"`
	Removed []resolver.CanonicalEntity `json:"removed" yaml:"removed"`
}

// PointChangeset represents changes to series points.
type PointChangeset struct {
	Added   []series.Point `json:"added" yaml:"added"`
	Updated []PointUpdate  `json:"updated" yaml:"updated"`
	Removed []series.Point `json:"removed" yaml:"removed"`
}

// Changeset represents all changes between two runs.
type Changeset struct {
	Entities *EntityChangeset `json:"entities" yaml:"entities"`
	Points   *PointChangeset  `json:"points" yaml:"points"`
	Summary  ChangesetSummary `json:"summary" yaml:"summary"`
}

// ChangesetSummary provides summary statistics for a changeset.
type ChangesetSummary struct {
	EntitiesAdded   int `json:"entities_added" yaml:"entities_added"`
	EntitiesUpdated int `json:"entities_updated" yaml:"entities_updated"`
	EntitiesRemoved int `json:"entities_removed" yaml:"entities_removed"`
	PointsAdded     int `json:"points_added" yaml:"points_added"`
	PointsUpdated   int `json:"points_updated" yaml:"points_updated"`
	PointsRemoved   int `json:"points_removed" yaml:"points_removed"`
	TotalChanges    int `json:"total_changes" yaml:"total_changes"`
}

// calculateSummary computes the summary for a changeset.
func calculateSummary(entities *EntityChangeset, points *PointChangeset) ChangesetSummary {
	s := ChangesetSummary{
		EntitiesAdded:   len(entities.Added),
		EntitiesUpdated: len(entities.Updated),
		EntitiesRemoved: len(entities.Removed),
		PointsAdded:     len(points.Added),
		PointsUpdated:   len(points.Updated),
		PointsRemoved:   len(points.Removed),
	}
	s.TotalChanges = s.EntitiesAdded + s.EntitiesUpdated + s.EntitiesRemoved +
		s.PointsAdded + s.PointsUpdated + s.PointsRemoved
	return s
}

// IsEmpty returns true if the changeset contains no changes.
func (c *Changeset) IsEmpty() bool {
	return c.Summary.TotalChanges == 0
}

// HasChanges returns true if the entity changeset contains any changes.
func (e *EntityChangeset) HasChanges() bool {
	return len(e.Added) > 0 || len(e.Updated) > 0 || len(e.Removed) > 0
}

// HasChanges returns true if the point changeset contains any changes.
func (p *PointChangeset) HasChanges() bool {
	return len(p.Added) > 0 || len(p.Updated) > 0 || len(p.Removed) > 0
}

// String returns a human-readable summary of the changeset.
func (c *Changeset) String() string {
	if c.IsEmpty() {
		return "No changes detected"
	}

	var parts []string
	if c.Entities.HasChanges() {
		parts = append(parts, "Entities: "+counts(len(c.Entities.Added), len(c.Entities.Updated), len(c.Entities.Removed)))
	}
	if c.Points.HasChanges() {
		parts = append(parts, "Points: "+counts(len(c.Points.Added), len(c.Points.Updated), len(c.Points.Removed)))
	}
	return strings.Join(parts, "; ")
}

func counts(added, updated, removed int) string {
	var parts []string
	if added > 0 {
		parts = append(parts, fmt.Sprintf("%d added", added))
	}
	if updated > 0 {
		parts = append(parts, fmt.Sprintf("%d updated", updated))
	}
	if removed > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", removed))
	}
	return strings.Join(parts, ", ")
}
