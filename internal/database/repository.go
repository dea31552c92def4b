package database

import (
	"time"

	"github.com/actionsum/presence/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// Repository handles all database operations for recorded activity.
// Timestamps are stored in UTC so that SQLite's text comparison orders them.
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateIdleEvent inserts a new idle confirmation
func (r *Repository) CreateIdleEvent(event *models.IdleEvent) error {
	event.Timestamp = event.Timestamp.UTC()
	result := r.db.Create(event)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert idle event")
	}
	return nil
}

// GetIdleEventsSince retrieves idle confirmations since a given time, oldest first
func (r *Repository) GetIdleEventsSince(since time.Time) ([]*models.IdleEvent, error) {
	var events []*models.IdleEvent
	result := r.db.Where("timestamp >= ?", since.UTC()).Order("timestamp ASC").Find(&events)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query idle events")
	}
	return events, nil
}

// RecentIdleEvents returns up to limit idle confirmations, newest first
func (r *Repository) RecentIdleEvents(limit int) ([]*models.IdleEvent, error) {
	var events []*models.IdleEvent
	result := r.db.Order("timestamp DESC").Order("id DESC").Limit(limit).Find(&events)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query recent idle events")
	}
	return events, nil
}

// CreateExportRun inserts the outcome of an export request
func (r *Repository) CreateExportRun(run *models.ExportRun) error {
	run.Timestamp = run.Timestamp.UTC()
	result := r.db.Create(run)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert export run")
	}
	return nil
}

// GetExportRun retrieves an export run by its run ID
func (r *Repository) GetExportRun(runID string) (*models.ExportRun, error) {
	var run models.ExportRun
	result := r.db.Where("run_id = ?", runID).First(&run)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to get export run")
	}
	return &run, nil
}

// RecentExportRuns returns up to limit export runs, newest first
func (r *Repository) RecentExportRuns(limit int) ([]*models.ExportRun, error) {
	var runs []*models.ExportRun
	result := r.db.Order("timestamp DESC").Order("id DESC").Limit(limit).Find(&runs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query export runs")
	}
	return runs, nil
}

// GetLatestExportRun retrieves the most recent export run, or nil if none exist
func (r *Repository) GetLatestExportRun() (*models.ExportRun, error) {
	var run models.ExportRun
	result := r.db.Order("timestamp DESC").Order("id DESC").First(&run)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest export run")
	}
	return &run, nil
}

type idleTotals struct {
	IdleConfirmations int64
	IdleWaitSeconds   int64
}

type exportTotals struct {
	Exports       int64
	FailedExports int64
	RowsExported  int64
}

// GetActivitySummarySince aggregates idle confirmations and export runs
// recorded in [since, until)
func (r *Repository) GetActivitySummarySince(since, until time.Time) (models.ActivitySummary, error) {
	var idle idleTotals
	result := r.db.Model(&models.IdleEvent{}).
		Select("COUNT(*) as idle_confirmations, COALESCE(SUM(wait_seconds), 0) as idle_wait_seconds").
		Where("timestamp >= ? AND timestamp < ?", since.UTC(), until.UTC()).
		Scan(&idle)
	if result.Error != nil {
		return models.ActivitySummary{}, errors.Wrap(result.Error, "failed to summarize idle events")
	}

	var exports exportTotals
	result = r.db.Model(&models.ExportRun{}).
		Select("COUNT(*) as exports, " +
			"COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0) as failed_exports, " +
			"COALESCE(SUM(CASE WHEN success THEN row_count ELSE 0 END), 0) as rows_exported").
		Where("timestamp >= ? AND timestamp < ?", since.UTC(), until.UTC()).
		Scan(&exports)
	if result.Error != nil {
		return models.ActivitySummary{}, errors.Wrap(result.Error, "failed to summarize export runs")
	}

	return models.ActivitySummary{
		IdleConfirmations: idle.IdleConfirmations,
		IdleWaitSeconds:   idle.IdleWaitSeconds,
		Exports:           exports.Exports,
		FailedExports:     exports.FailedExports,
		RowsExported:      exports.RowsExported,
	}, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	errorLog.Timestamp = errorLog.Timestamp.UTC()
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// RecentErrors returns up to limit error logs, newest first
func (r *Repository) RecentErrors(limit int) ([]*models.ErrorLog, error) {
	var logs []*models.ErrorLog
	result := r.db.Order("timestamp DESC").Order("id DESC").Limit(limit).Find(&logs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query error logs")
	}
	return logs, nil
}

// DeleteOlderThan soft-deletes idle events, export runs and error logs
// recorded before the given time
func (r *Repository) DeleteOlderThan(before time.Time) (int64, error) {
	var total int64
	for _, model := range []any{&models.IdleEvent{}, &models.ExportRun{}, &models.ErrorLog{}} {
		result := r.db.Where("timestamp < ?", before.UTC()).Delete(model)
		if result.Error != nil {
			return total, errors.Wrap(result.Error, "failed to delete old records")
		}
		total += result.RowsAffected
	}
	return total, nil
}

// Clear removes all recorded activity from the database
func (r *Repository) Clear() error {
	for _, table := range []string{"idle_events", "export_runs", "error_logs"} {
		if result := r.db.Exec("DELETE FROM " + table); result.Error != nil {
			return errors.Wrapf(result.Error, "failed to clear %s", table)
		}
	}
	return nil
}
