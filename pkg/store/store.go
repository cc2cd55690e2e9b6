// Package store persists reconciliation results with gorm, on SQLite or
// PostgreSQL.
package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/reconciler"
	"github.com/agentstation/retailsync/pkg/resolver"
	"github.com/agentstation/retailsync/pkg/series"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// batchSize bounds rows per INSERT.
const batchSize = 500

// Store reads and writes reconciliation results.
type Store struct {
	db *gorm.DB
}

// Open connects to a database. The driver is "sqlite" (dsn is a file path
// or ":memory:") or "postgres" (dsn is a libpq connection string or URL).
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case DriverSQLite, "sqlite3":
		dialector = sqlite.Open(dsn)
	case DriverPostgres, "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: store driver %q", errors.ErrUnsupported, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.WrapResource("open", "store", driver, err)
	}
	return &Store{db: db}, nil
}

// ParseDSN splits "driver://rest" style strings. A bare path selects
// SQLite; postgres:// and postgresql:// URLs are passed through whole.
func ParseDSN(raw string) (driver, dsn string) {
	switch {
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return DriverPostgres, raw
	case strings.HasPrefix(raw, "sqlite://"):
		return DriverSQLite, strings.TrimPrefix(raw, "sqlite://")
	default:
		return DriverSQLite, raw
	}
}

// New wraps an existing connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the tables.
func (s *Store) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Run{}, &Entity{}, &Point{}, &DataError{}); err != nil {
		return errors.WrapResource("migrate", "store", "", err)
	}
	return nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.WrapResource("close", "store", "", err)
	}
	return sqlDB.Close()
}

// SaveResult persists a run, its entities, points and dropped records in
// one transaction.
func (s *Store) SaveResult(ctx context.Context, result *reconciler.Result) error {
	if result == nil || result.Report == nil {
		return errors.NewValidationError("result", nil, "result with a report is required")
	}
	rep := result.Report

	run := Run{
		ID:                  rep.RunID,
		StartedAt:           rep.StartTime.UTC(),
		FinishedAt:          rep.EndTime.UTC(),
		DurationMs:          rep.Stats.TotalTimeMs,
		SimilarityThreshold: rep.Config.SimilarityThreshold,
		Granularity:         rep.Config.PeriodGranularity.String(),
		DuplicatePolicy:     rep.Config.DuplicatePolicy.String(),
		Records:             rep.Stats.Records,
		Accepted:            rep.Stats.Accepted,
		Failed:              rep.Stats.Failed,
		Entities:            rep.Stats.Entities,
		Points:              rep.Stats.Points,
		Imputed:             rep.Stats.Imputed,
	}

	entities := make([]Entity, 0, len(result.Entities))
	for _, e := range result.Entities {
		entities = append(entities, Entity{
			RunID:        rep.RunID,
			CanonicalID:  e.ID,
			DisplayLabel: e.DisplayLabel,
			Members:      e.Members,
		})
	}

	points := make([]Point, 0, len(result.Series))
	for _, p := range result.Series {
		points = append(points, Point{
			RunID:       rep.RunID,
			CanonicalID: p.CanonicalID,
			Period:      p.Period.UTC(),
			Value:       p.Value,
			Imputed:     p.Imputed,
		})
	}

	dataErrs := make([]DataError, 0, len(rep.Errors))
	for _, de := range rep.Errors {
		value := ""
		if de.Value != nil {
			value = fmt.Sprint(de.Value)
		}
		dataErrs = append(dataErrs, DataError{
			RunID:       rep.RunID,
			Source:      de.Source,
			RecordIndex: de.Index,
			Field:       de.Field,
			Value:       value,
			Message:     de.Message,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		if len(entities) > 0 {
			if err := tx.CreateInBatches(&entities, batchSize).Error; err != nil {
				return err
			}
		}
		if len(points) > 0 {
			if err := tx.CreateInBatches(&points, batchSize).Error; err != nil {
				return err
			}
		}
		if len(dataErrs) > 0 {
			if err := tx.CreateInBatches(&dataErrs, batchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.WrapResource("save", "run", rep.RunID, err)
	}
	return nil
}

// Runs lists persisted runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	var runs []Run
	if err := s.db.WithContext(ctx).Order("started_at DESC").Find(&runs).Error; err != nil {
		return nil, errors.WrapResource("load", "runs", "", err)
	}
	return runs, nil
}

// Run loads one run.
func (s *Store) Run(ctx context.Context, runID string) (*Run, error) {
	var run Run
	err := s.db.WithContext(ctx).Where("id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("run %s: %w", runID, errors.ErrNotFound)
	}
	if err != nil {
		return nil, errors.WrapResource("load", "run", runID, err)
	}
	return &run, nil
}

// Series loads the points of a run ordered by canonical id then period.
func (s *Store) Series(ctx context.Context, runID string) ([]series.Point, error) {
	var rows []Point
	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("canonical_id ASC, period ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.WrapResource("load", "series", runID, err)
	}

	out := make([]series.Point, 0, len(rows))
	for _, r := range rows {
		out = append(out, series.Point{
			CanonicalID: r.CanonicalID,
			Period:      r.Period.UTC(),
			Value:       r.Value,
			Imputed:     r.Imputed,
		})
	}
	return out, nil
}

// Entities loads the entities of a run ordered by canonical id.
func (s *Store) Entities(ctx context.Context, runID string) ([]resolver.CanonicalEntity, error) {
	var rows []Entity
	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("canonical_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.WrapResource("load", "entities", runID, err)
	}

	out := make([]resolver.CanonicalEntity, 0, len(rows))
	for _, r := range rows {
		out = append(out, resolver.CanonicalEntity{
			ID:           r.CanonicalID,
			DisplayLabel: r.DisplayLabel,
			Members:      r.Members,
		})
	}
	return out, nil
}

// DataErrors loads the dropped records of a run.
func (s *Store) DataErrors(ctx context.Context, runID string) ([]DataError, error) {
	var rows []DataError
	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("source ASC, record_index ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.WrapResource("load", "data errors", runID, err)
	}
	return rows, nil
}
