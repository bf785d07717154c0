// Package models holds the persisted form of check runs.
package models

import (
	"time"

	"gorm.io/datatypes"
)

// Run is one invocation of rulefx over a tree of files.
type Run struct {
	ID   string `gorm:"primaryKey;type:varchar(36)"`
	Root string `gorm:"type:text;not null"`
	Mode string `gorm:"type:varchar(20);not null"` // inspect, autocorrect, dry_run

	// Statistics
	FilesScanned  int `gorm:"default:0"`
	FilesChanged  int `gorm:"default:0"`
	FilesWithErrs int `gorm:"default:0"`
	Offenses      int `gorm:"default:0"`
	Corrections   int `gorm:"default:0"`

	TransactionID string         `gorm:"type:varchar(36)"`
	Rules         datatypes.JSON `gorm:"type:jsonb"` // enabled rule names

	StartedAt  time.Time `gorm:"index"`
	FinishedAt time.Time

	Files []FileResult `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// FileResult is the outcome of one file in a run.
type FileResult struct {
	ID    string `gorm:"primaryKey;type:varchar(36)"`
	RunID string `gorm:"type:varchar(36);index;not null"`

	Path        string `gorm:"type:text;not null"`
	Language    string `gorm:"type:varchar(50)"`
	Status      string `gorm:"type:varchar(32);index"`
	Corrections int    `gorm:"default:0"`
	Passes      int    `gorm:"default:0"`
	Written     bool   `gorm:"default:false"`
	Error       string `gorm:"type:text"`

	// Checksums of the text before and after correction
	BaseDigest  string `gorm:"type:varchar(64)"`
	AfterDigest string `gorm:"type:varchar(64)"`

	Offenses []OffenseRecord `gorm:"foreignKey:FileResultID;constraint:OnDelete:CASCADE"`
}

// OffenseRecord is one reported offense.
type OffenseRecord struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	FileResultID string `gorm:"type:varchar(36);index;not null"`

	Rule        string `gorm:"type:varchar(100);index;not null"`
	Message     string `gorm:"type:text"`
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
	Correctable bool
	Corrected   bool
	Fix         datatypes.JSON `gorm:"type:jsonb"` // replacements as {range, text}
}

func (Run) TableName() string           { return "runs" }
func (FileResult) TableName() string    { return "file_results" }
func (OffenseRecord) TableName() string { return "offenses" }
