package models

import (
	"time"

	"gorm.io/gorm"
)

// ExportRun records one session export request and its outcome
type ExportRun struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	RunID     string         `gorm:"not null;uniqueIndex" json:"run_id"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	Path      string         `gorm:"not null" json:"path"`
	Users     int            `gorm:"not null;default:0" json:"users"`
	RowCount  int            `gorm:"not null;default:0" json:"rows"`
	Success   bool           `gorm:"not null;default:false;index" json:"success"`
	ErrorMsg  string         `json:"error_msg,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
