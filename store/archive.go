// Package store persists finished runs to a local sqlite archive so past
// comparisons can be listed and inspected later.
package store

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/odr-dev/deepresearch/compare"
)

// RunRecord is one archived configuration run.
type RunRecord struct {
	ID         uint   `gorm:"primaryKey"`
	SessionID  string `gorm:"index;size:64"`
	ConfigName string `gorm:"index;size:128"`
	Query      string `gorm:"size:1024"`
	Status     string `gorm:"size:32"`
	Aggregate  float64
	Notes      int
	Sources    int
	DurationMs int64
	// ReportJSON is the lossless report serialization; empty for failed
	// runs.
	ReportJSON string `gorm:"type:text"`
	Error      string `gorm:"size:1024"`
	CreatedAt  time.Time
}

// Archive is the sqlite-backed run store.
type Archive struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the archive at path and migrates its
// schema. Use ":memory:" for an ephemeral archive.
func Open(path string, log *zap.Logger) (*Archive, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open archive: %w", err)
	}
	if err := db.AutoMigrate(&RunRecord{}); err != nil {
		return nil, fmt.Errorf("store: migrate archive: %w", err)
	}
	return &Archive{db: db, logger: log}, nil
}

// SaveComparison archives every result of a comparison run.
func (a *Archive) SaveComparison(cmp *compare.Comparison) error {
	records := make([]RunRecord, 0, len(cmp.Results))
	for i := range cmp.Results {
		rec, err := toRecord(cmp.Query, &cmp.Results[i])
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	if err := a.db.Create(&records).Error; err != nil {
		return fmt.Errorf("store: save comparison: %w", err)
	}
	a.logger.Debug("comparison archived", zap.Int("runs", len(records)))
	return nil
}

func toRecord(query string, r *compare.ConfigResult) (RunRecord, error) {
	rec := RunRecord{
		ConfigName: r.Name,
		Query:      query,
		DurationMs: r.Duration.Milliseconds(),
		Error:      r.ErrorMessage,
	}
	if r.Session != nil {
		rec.SessionID = r.Session.ID
		rec.Status = string(r.Session.Status)
		rec.Notes = len(r.Session.Notes)
		rec.Sources = r.Session.DistinctSources()
	}
	if r.Evaluation != nil {
		rec.Aggregate = r.Evaluation.Aggregate
	}
	if r.Report != nil {
		data, err := r.Report.ToJSON()
		if err != nil {
			return rec, fmt.Errorf("store: serialize report: %w", err)
		}
		rec.ReportJSON = string(data)
	}
	return rec, nil
}

// ListRuns returns the most recent runs, newest first.
func (a *Archive) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []RunRecord
	err := a.db.Order("created_at DESC, id DESC").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	return out, nil
}

// RunsForConfig returns archived runs for one configuration name, newest
// first.
func (a *Archive) RunsForConfig(name string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []RunRecord
	err := a.db.Where("config_name = ?", name).
		Order("created_at DESC, id DESC").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("store: list runs for %q: %w", name, err)
	}
	return out, nil
}
