package reporter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/actionsum/presence/internal/config"
	"github.com/actionsum/presence/internal/database"
	"github.com/actionsum/presence/internal/models"
	"github.com/actionsum/presence/pkg/utils"
)

// Reporter handles report generation
type Reporter struct {
	config *config.Config
	repo   *database.Repository
	now    func() time.Time
}

// New creates a new reporter
func New(cfg *config.Config, repo *database.Repository) *Reporter {
	return &Reporter{
		config: cfg,
		repo:   repo,
		now:    time.Now,
	}
}

// GenerateReport generates a report for the specified period
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	period, err := r.GetPeriod(periodType)
	if err != nil {
		return nil, err
	}

	summary, err := r.repo.GetActivitySummarySince(period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity summary: %w", err)
	}

	if summary.Exports > 0 {
		succeeded := summary.Exports - summary.FailedExports
		summary.SuccessRate = (float64(succeeded) / float64(summary.Exports)) * 100.0
	}

	lastExport, err := r.repo.GetLatestExportRun()
	if err != nil {
		return nil, fmt.Errorf("failed to get latest export: %w", err)
	}

	return &models.Report{
		Period:      *period,
		Summary:     summary,
		LastExport:  lastExport,
		GeneratedAt: r.now(),
	}, nil
}

// GetPeriod calculates the time range for the report in the configured time zone
func (r *Reporter) GetPeriod(periodType string) (*models.ReportPeriod, error) {
	loc, err := r.config.Location()
	if err != nil {
		return nil, err
	}

	now := r.now().In(loc)
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		end = start.AddDate(0, 0, 1)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0)

	default:
		return nil, fmt.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	s := report.Summary

	output := fmt.Sprintf("Presence Report - %s\n", report.Period.Type)
	output += fmt.Sprintf("Period: %s to %s\n\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))

	if s.IdleConfirmations == 0 && s.Exports == 0 {
		output += "No activity recorded for this period.\n"
		return output
	}

	output += fmt.Sprintf("%-24s %10d\n", "Idle confirmations", s.IdleConfirmations)
	output += fmt.Sprintf("%-24s %10s\n", "Time to confirm idle", utils.FormatRoundedUnit(s.IdleWaitSeconds))
	output += fmt.Sprintf("%-24s %10d\n", "Exports", s.Exports)
	output += fmt.Sprintf("%-24s %10d\n", "Failed exports", s.FailedExports)
	output += fmt.Sprintf("%-24s %10d\n", "Rows exported", s.RowsExported)
	if s.Exports > 0 {
		output += fmt.Sprintf("%-24s %9.1f%%\n", "Export success rate", s.SuccessRate)
	}

	if report.LastExport != nil {
		status := "ok"
		if !report.LastExport.Success {
			status = "failed: " + report.LastExport.ErrorMsg
		}
		output += fmt.Sprintf("\nLast export: %s -> %s (%s)\n",
			report.LastExport.Timestamp.Local().Format("2006-01-02 15:04"),
			truncate(report.LastExport.Path, 40),
			status)
	}

	return output
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
