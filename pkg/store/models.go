package store

import (
	"time"

	"github.com/agentstation/retailsync/pkg/records"
)

// Run is one persisted reconciliation run.
type Run struct {
	ID                  string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	StartedAt           time.Time `gorm:"index" json:"started_at"`
	FinishedAt          time.Time `json:"finished_at"`
	DurationMs          int64     `json:"duration_ms"`
	SimilarityThreshold float64   `json:"similarity_threshold"`
	Granularity         string    `gorm:"type:varchar(10)" json:"granularity"`
	DuplicatePolicy     string    `gorm:"type:varchar(10)" json:"duplicate_policy"`
	Records             int       `json:"records"`
	Accepted            int       `json:"accepted"`
	Failed              int       `json:"failed"`
	Entities            int       `json:"entities"`
	Points              int       `json:"points"`
	Imputed             int       `json:"imputed"`
}

// TableName overrides the default table name.
func (Run) TableName() string { return "runs" }

// Entity is one canonical entity of a run.
type Entity struct {
	ID           uint               `gorm:"primaryKey;autoIncrement" json:"-"`
	RunID        string             `gorm:"type:varchar(36);index;not null" json:"run_id"`
	CanonicalID  string             `gorm:"type:varchar(36);index;not null" json:"canonical_id"`
	DisplayLabel string             `gorm:"type:text" json:"display_label"`
	Members      []records.MemberID `gorm:"serializer:json;type:text" json:"members"`
}

// TableName overrides the default table name.
func (Entity) TableName() string { return "entities" }

// Point is one series point of a run.
type Point struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	RunID       string    `gorm:"type:varchar(36);index:idx_points_run_entity;not null" json:"run_id"`
	CanonicalID string    `gorm:"type:varchar(36);index:idx_points_run_entity;not null" json:"canonical_id"`
	Period      time.Time `gorm:"not null" json:"period"`
	Value       float64   `json:"value"`
	Imputed     bool      `json:"imputed"`
}

// TableName overrides the default table name.
func (Point) TableName() string { return "series_points" }

// DataError is one record dropped by a run.
type DataError struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	RunID       string `gorm:"type:varchar(36);index;not null" json:"run_id"`
	Source      string `gorm:"type:varchar(255)" json:"source"`
	RecordIndex int    `json:"record_index"`
	Field       string `gorm:"type:varchar(255)" json:"field"`
	Value       string `gorm:"type:text" json:"value"`
	Message     string `gorm:"type:text" json:"message"`
}

// TableName overrides the default table name.
func (DataError) TableName() string { return "data_errors" }
