package entities

import (
	"time"
)

type GenerationStatus string

const (
	GenerationStatusPending   GenerationStatus = "pending"
	GenerationStatusRunning   GenerationStatus = "running"
	GenerationStatusSucceeded GenerationStatus = "succeeded"
	GenerationStatusPartial   GenerationStatus = "partial"
	GenerationStatusFailed    GenerationStatus = "failed"
)

// IsFinished reports whether the generation has reached a terminal status.
func (s GenerationStatus) IsFinished() bool {
	switch s {
	case GenerationStatusSucceeded, GenerationStatusPartial, GenerationStatusFailed:
		return true
	}
	return false
}

// Generation is one request to turn pasted text into a .vcf file.
type Generation struct {
	ID             uint             `gorm:"primaryKey" json:"-"`
	PublicID       string           `gorm:"uniqueIndex;size:36" json:"id"`
	Status         GenerationStatus `gorm:"index;size:20" json:"status"`
	Input          string           `gorm:"type:text" json:"-"`
	FileName       string           `gorm:"size:255" json:"file_name"`
	OutputPath     string           `gorm:"size:1024" json:"-"`
	TotalLines     int              `json:"total_lines"`
	ProcessedLines int              `json:"processed_lines"`
	Progress       float64          `json:"progress"`
	Determinate    bool             `json:"determinate"`
	Written        int              `json:"written"`
	Checksum       string           `gorm:"size:64" json:"checksum,omitempty"`
	Error          string           `gorm:"type:text" json:"error,omitempty"`
	TaskID         string           `gorm:"size:64" json:"task_id,omitempty"`
	InvalidLines   []InvalidLine    `gorm:"foreignKey:GenerationID;constraint:OnDelete:CASCADE" json:"invalid_lines,omitempty"`
	CreatedAt      time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
}

// InvalidLine is an input line of a generation that could not be parsed.
type InvalidLine struct {
	ID           uint   `gorm:"primaryKey" json:"-"`
	GenerationID uint   `gorm:"index" json:"-"`
	Line         int    `json:"line"`
	Content      string `gorm:"type:text" json:"content"`
}
