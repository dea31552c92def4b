package models

import (
	"time"

	"gorm.io/gorm"
)

// IdleEvent records one idle confirmation: the pointer stayed put between
// two consecutive samples
type IdleEvent struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Timestamp     time.Time      `gorm:"not null;index" json:"timestamp"`
	X             int            `gorm:"not null" json:"x"`
	Y             int            `gorm:"not null" json:"y"`
	Ticks         int            `gorm:"not null;default:0" json:"ticks"`
	WaitSeconds   int64          `gorm:"not null;default:0" json:"wait_seconds"` // Time from idle signal to confirmation
	DisplayServer string         `gorm:"not null" json:"display_server"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

type ActivitySummary struct {
	IdleConfirmations int64   `json:"idle_confirmations"`
	IdleWaitSeconds   int64   `json:"idle_wait_seconds"`
	Exports           int64   `json:"exports"`
	FailedExports     int64   `json:"failed_exports"`
	RowsExported      int64   `json:"rows_exported"`
	SuccessRate       float64 `json:"success_rate,omitempty"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

type Report struct {
	Period      ReportPeriod    `json:"period"`
	Summary     ActivitySummary `json:"summary"`
	LastExport  *ExportRun      `json:"last_export,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
}
