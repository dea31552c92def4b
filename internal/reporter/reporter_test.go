package reporter

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/actionsum/presence/internal/config"
	"github.com/actionsum/presence/internal/database"
	"github.com/actionsum/presence/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReporter(t *testing.T, now time.Time) (*Reporter, *database.Repository) {
	t.Helper()

	db, err := database.Connect(filepath.Join(t.TempDir(), "presence.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Initialize())

	cfg := config.Default()
	cfg.Report.TimeZone = "UTC"

	repo := database.NewRepository(db)
	r := New(cfg, repo)
	r.now = func() time.Time { return now }
	return r, repo
}

func TestGetPeriod(t *testing.T) {
	// Wednesday
	now := time.Date(2026, 10, 14, 15, 30, 0, 0, time.UTC)
	r, _ := newTestReporter(t, now)

	tests := []struct {
		period string
		start  time.Time
		end    time.Time
	}{
		{"day", time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)},
		{"week", time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)},
		{"month", time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			p, err := r.GetPeriod(tt.period)
			require.NoError(t, err)
			assert.True(t, p.Start.Equal(tt.start), "start = %v, want %v", p.Start, tt.start)
			assert.True(t, p.End.Equal(tt.end), "end = %v, want %v", p.End, tt.end)
		})
	}

	_, err := r.GetPeriod("year")
	assert.Error(t, err)
}

func TestWeekStartsMondayOnSunday(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	r, _ := newTestReporter(t, now)

	p, err := r.GetPeriod("week")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, p.Start.Weekday())
	assert.Equal(t, 12, p.Start.Day())
}

func TestGenerateReport(t *testing.T) {
	now := time.Now().UTC()
	r, repo := newTestReporter(t, now)

	require.NoError(t, repo.CreateIdleEvent(&models.IdleEvent{Timestamp: now, WaitSeconds: 20, DisplayServer: "x11"}))
	require.NoError(t, repo.CreateExportRun(&models.ExportRun{RunID: "a", Timestamp: now, Path: "output.csv", RowCount: 3, Success: true}))
	require.NoError(t, repo.CreateExportRun(&models.ExportRun{RunID: "b", Timestamp: now, Path: "output.csv", ErrorMsg: "disk full"}))

	report, err := r.GenerateReport("day")
	require.NoError(t, err)

	assert.Equal(t, int64(1), report.Summary.IdleConfirmations)
	assert.Equal(t, int64(2), report.Summary.Exports)
	assert.Equal(t, int64(3), report.Summary.RowsExported)
	assert.InDelta(t, 50.0, report.Summary.SuccessRate, 0.001)
	require.NotNil(t, report.LastExport)

	text := r.FormatReportText(report)
	assert.Contains(t, text, "Presence Report - day")
	assert.Contains(t, text, "Idle confirmations")
	assert.Contains(t, text, "20s")

	js, err := r.FormatReportJSON(report)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(js), &decoded))
	assert.Contains(t, decoded, "summary")
}

func TestEmptyReport(t *testing.T) {
	r, _ := newTestReporter(t, time.Now())

	report, err := r.GenerateReport("week")
	require.NoError(t, err)
	assert.Nil(t, report.LastExport)
	assert.True(t, strings.HasSuffix(r.FormatReportText(report), "No activity recorded for this period.\n"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
