package storage

import (
	"time"

	"gorm.io/datatypes"
)

// Run statuses persisted with generation runs.
const (
	RunStatusPending  = "pending"
	RunStatusRunning  = "running"
	RunStatusComplete = "complete"
	RunStatusFailed   = "failed"
)

// GenerationRun is the durable record of one audiobook generation run.
type GenerationRun struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	RunID      string         `gorm:"uniqueIndex;not null" json:"run_id"`
	Title      string         `gorm:"not null" json:"title"`
	Author     string         `json:"author"`
	Status     string         `gorm:"index;not null" json:"status"`
	UnitCount  int            `json:"unit_count"`
	Cast       datatypes.JSON `json:"cast"` // voice assignments keyed by character
	Error      string         `gorm:"type:text" json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (GenerationRun) TableName() string {
	return "generation_runs"
}

// AudiobookRecord points at the encoded artifacts of a completed run.
type AudiobookRecord struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	RunID         string         `gorm:"index;not null" json:"run_id"`
	Format        string         `gorm:"not null" json:"format"`
	Path          string         `gorm:"not null" json:"path"`
	SizeBytes     int64          `json:"size_bytes"`
	TotalDuration float64        `json:"total_duration"`
	TotalCost     float64        `json:"total_cost"`
	Chapters      datatypes.JSON `json:"chapters"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (AudiobookRecord) TableName() string {
	return "audiobook_records"
}
