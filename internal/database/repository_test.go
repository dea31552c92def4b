package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/actionsum/presence/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := Connect(filepath.Join(t.TempDir(), "presence.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Initialize())
	return NewRepository(db)
}

func TestIdleEvents(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()

	for i, ts := range []time.Time{now.Add(-48 * time.Hour), now.Add(-time.Hour), now} {
		require.NoError(t, repo.CreateIdleEvent(&models.IdleEvent{
			Timestamp:     ts,
			X:             i,
			Y:             i,
			Ticks:         1,
			WaitSeconds:   10,
			DisplayServer: "x11",
		}))
	}

	since, err := repo.GetIdleEventsSince(now.Add(-2 * time.Hour))
	require.NoError(t, err)
	require.Len(t, since, 2)
	assert.Equal(t, 1, since[0].X, "oldest first")

	recent, err := repo.RecentIdleEvents(1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 2, recent[0].X, "newest first")
}

func TestExportRuns(t *testing.T) {
	repo := newTestRepo(t)

	latest, err := repo.GetLatestExportRun()
	require.NoError(t, err)
	assert.Nil(t, latest)

	first := &models.ExportRun{RunID: "run-1", Timestamp: time.Now().Add(-time.Minute), Path: "output.csv", Users: 1, RowCount: 2, Success: true}
	second := &models.ExportRun{RunID: "run-2", Timestamp: time.Now(), Path: "/denied/output.csv", Users: 3, ErrorMsg: "permission denied"}
	require.NoError(t, repo.CreateExportRun(first))
	require.NoError(t, repo.CreateExportRun(second))

	latest, err = repo.GetLatestExportRun()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "run-2", latest.RunID)
	assert.False(t, latest.Success)

	got, err := repo.GetExportRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.RowCount)

	_, err = repo.GetExportRun("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	runs, err := repo.RecentExportRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].RunID)

	assert.Error(t, repo.CreateExportRun(&models.ExportRun{RunID: "run-1", Timestamp: time.Now(), Path: "dup"}),
		"run IDs are unique")
}

func TestActivitySummary(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()

	require.NoError(t, repo.CreateIdleEvent(&models.IdleEvent{Timestamp: now, WaitSeconds: 10, DisplayServer: "x11"}))
	require.NoError(t, repo.CreateIdleEvent(&models.IdleEvent{Timestamp: now, WaitSeconds: 30, DisplayServer: "x11"}))
	require.NoError(t, repo.CreateIdleEvent(&models.IdleEvent{Timestamp: now.Add(-72 * time.Hour), WaitSeconds: 99, DisplayServer: "x11"}))

	require.NoError(t, repo.CreateExportRun(&models.ExportRun{RunID: "a", Timestamp: now, Path: "o.csv", RowCount: 4, Success: true}))
	require.NoError(t, repo.CreateExportRun(&models.ExportRun{RunID: "b", Timestamp: now, Path: "o.csv", RowCount: 0, Success: false}))

	summary, err := repo.GetActivitySummarySince(now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.IdleConfirmations)
	assert.Equal(t, int64(40), summary.IdleWaitSeconds)
	assert.Equal(t, int64(2), summary.Exports)
	assert.Equal(t, int64(1), summary.FailedExports)
	assert.Equal(t, int64(4), summary.RowsExported)

	empty, err := repo.GetActivitySummarySince(now.Add(time.Hour), now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, empty.IdleConfirmations)
	assert.Zero(t, empty.Exports)
}

func TestErrorLogs(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.CreateErrorLog(&models.ErrorLog{Timestamp: time.Now(), Source: "pointer", ErrorMsg: "x11 display not connected"}))

	logs, err := repo.RecentErrors(5)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "pointer", logs[0].Source)
}

func TestDeleteOlderThanAndClear(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()

	require.NoError(t, repo.CreateIdleEvent(&models.IdleEvent{Timestamp: now.Add(-10 * 24 * time.Hour), DisplayServer: "x11"}))
	require.NoError(t, repo.CreateIdleEvent(&models.IdleEvent{Timestamp: now, DisplayServer: "x11"}))
	require.NoError(t, repo.CreateErrorLog(&models.ErrorLog{Timestamp: now.Add(-10 * 24 * time.Hour), Source: "store", ErrorMsg: "old"}))

	deleted, err := repo.DeleteOlderThan(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	recent, err := repo.RecentIdleEvents(10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	require.NoError(t, repo.Clear())
	recent, err = repo.RecentIdleEvents(10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
