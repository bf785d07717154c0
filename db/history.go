package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oxhq/rulefx/core"
	"github.com/oxhq/rulefx/models"
	"github.com/oxhq/rulefx/source"
)

// RunInfo describes a run besides its result.
type RunInfo struct {
	Root       string
	Mode       core.Mode
	Rules      []string
	StartedAt  time.Time
	FinishedAt time.Time
}

// ModeName returns the stored name of a mode.
func ModeName(m core.Mode) string {
	switch {
	case m.Autocorrect && m.DryRun:
		return "dry_run"
	case m.Autocorrect:
		return "autocorrect"
	default:
		return "inspect"
	}
}

// RecordRun stores a run with its files and offenses in one transaction.
func RecordRun(db *gorm.DB, info RunInfo, result *core.Result) (*models.Run, error) {
	rules, err := json.Marshal(info.Rules)
	if err != nil {
		return nil, fmt.Errorf("encode rules: %w", err)
	}

	run := &models.Run{
		ID:            uuid.NewString(),
		Root:          info.Root,
		Mode:          ModeName(info.Mode),
		FilesScanned:  result.FilesScanned,
		FilesChanged:  result.FilesChanged,
		FilesWithErrs: result.FilesWithErrs,
		Offenses:      result.Offenses,
		Corrections:   result.Corrections,
		TransactionID: result.TransactionID,
		Rules:         datatypes.JSON(rules),
		StartedAt:     info.StartedAt,
		FinishedAt:    info.FinishedAt,
	}
	for _, f := range result.Files {
		fr, err := fileRecord(run.ID, f)
		if err != nil {
			return nil, err
		}
		run.Files = append(run.Files, fr)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(run).Error
	})
	if err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

func fileRecord(runID string, f core.FileResult) (models.FileResult, error) {
	fr := models.FileResult{
		ID:       uuid.NewString(),
		RunID:    runID,
		Path:     f.Path,
		Language: f.Language,
		Status:   f.Status(),
		Written:  f.Written,
		Error:    f.Error,
	}
	if f.Report == nil {
		return fr, nil
	}
	fr.Corrections = f.Report.Corrections
	fr.Passes = f.Report.Passes
	fr.BaseDigest = source.NewBuffer(f.Path, f.Report.Original).Digest()
	fr.AfterDigest = source.NewBuffer(f.Path, f.Report.Corrected).Digest()

	for _, o := range f.Report.Offenses {
		rec := models.OffenseRecord{
			FileResultID: fr.ID,
			Rule:         o.Rule,
			Message:      o.Message,
			StartLine:    o.Start.Line,
			StartColumn:  o.Start.Column,
			EndLine:      o.End.Line,
			EndColumn:    o.End.Column,
			Correctable:  o.Correctable,
			Corrected:    o.Corrected,
		}
		if len(o.Fix) > 0 {
			fix, err := json.Marshal(o.Fix)
			if err != nil {
				return fr, fmt.Errorf("encode fix: %w", err)
			}
			rec.Fix = datatypes.JSON(fix)
		}
		fr.Offenses = append(fr.Offenses, rec)
	}
	return fr, nil
}

// RecentRuns returns the latest runs, newest first, without their files.
func RecentRuns(db *gorm.DB, limit int) ([]models.Run, error) {
	var runs []models.Run
	q := db.Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// LoadRun returns a run with its files and offenses. id may be a unique
// prefix.
func LoadRun(db *gorm.DB, id string) (*models.Run, error) {
	var runs []models.Run
	err := db.Preload("Files", func(tx *gorm.DB) *gorm.DB { return tx.Order("path") }).
		Preload("Files.Offenses", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		Where("id LIKE ?", id+"%").
		Limit(2).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	switch len(runs) {
	case 0:
		return nil, fmt.Errorf("run %s: %w", id, gorm.ErrRecordNotFound)
	case 1:
		return &runs[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
}

// Prune deletes all but the keep most recent runs and returns how many it
// removed.
func Prune(db *gorm.DB, keep int) (int, error) {
	var ids []string
	if err := db.Model(&models.Run{}).Order("started_at DESC").Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("find stale runs: %w", err)
	}
	if len(ids) <= keep {
		return 0, nil
	}
	stale := ids[max(keep, 0):]

	err := db.Transaction(func(tx *gorm.DB) error {
		files := tx.Model(&models.FileResult{}).Select("id").Where("run_id IN ?", stale)
		if err := tx.Where("file_result_id IN (?)", files).Delete(&models.OffenseRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id IN ?", stale).Delete(&models.FileResult{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", stale).Delete(&models.Run{}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return len(stale), nil
}
