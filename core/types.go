package core

import (
	"errors"

	"github.com/oxhq/rulefx/engine"
)

// ErrNoFiles is returned when a scope matches no analyzable file.
var ErrNoFiles = errors.New("no files to analyze")

// FileScope defines which files to process
type FileScope struct {
	Path           string   `json:"path"`                // Root path to scan
	Include        []string `json:"include,omitempty"`   // File patterns to include (*.rb, app/**/*.rb)
	Exclude        []string `json:"exclude,omitempty"`   // File patterns to exclude
	MaxDepth       int      `json:"max_depth,omitempty"` // Max directory depth (0 = unlimited)
	MaxFiles       int      `json:"max_files,omitempty"` // Max files to process (0 = unlimited)
	FollowSymlinks bool     `json:"follow_symlinks"`
	Language       string   `json:"language,omitempty"` // Detected from the file name if empty
}

// Mode selects what Check does with the offenses it finds.
type Mode struct {
	Autocorrect bool `json:"autocorrect"`
	// DryRun computes corrections without writing them.
	DryRun bool `json:"dry_run"`
	// Backup leaves a .bak copy next to every rewritten file.
	Backup bool `json:"backup"`
}

// FileResult is the outcome for one file.
type FileResult struct {
	Path     string         `json:"path"`
	Language string         `json:"language"`
	Report   *engine.Report `json:"report,omitempty"`
	Written  bool           `json:"written"`
	Error    string         `json:"error,omitempty"`
}

// Status returns the report status, or "error" for files that could not
// be analyzed.
func (f FileResult) Status() string {
	if f.Report == nil {
		return "error"
	}
	return string(f.Report.Status)
}

// Result aggregates a Check over many files.
type Result struct {
	Files         []FileResult `json:"files"`
	FilesScanned  int          `json:"files_scanned"`
	FilesWithErrs int          `json:"files_with_errors"`
	FilesChanged  int          `json:"files_changed"`
	Offenses      int          `json:"offenses"`
	Corrections   int          `json:"corrections"`
	ScanDuration  int64        `json:"scan_duration_ms"`
	CheckDuration int64        `json:"check_duration_ms"`
	TransactionID string       `json:"transaction_id,omitempty"`
}

// HasOffenses reports whether any file still has offenses left, or could
// not be analyzed.
func (r *Result) HasOffenses() bool {
	for _, f := range r.Files {
		if f.Report == nil {
			return true
		}
		if f.Report.Autocorrect {
			switch {
			case len(f.Report.Remaining) > 0,
				f.Report.Status == engine.StatusUncorrectable,
				f.Report.Status == engine.StatusPartiallyCorrected:
				return true
			}
			continue
		}
		if len(f.Report.Offenses) > 0 {
			return true
		}
	}
	return false
}

func (r *Result) add(f FileResult) {
	r.Files = append(r.Files, f)
	if f.Report == nil {
		r.FilesWithErrs++
		return
	}
	r.Offenses += len(f.Report.Offenses)
	r.Corrections += f.Report.Corrections
	if f.Report.Changed() {
		r.FilesChanged++
	}
}

// Merge folds other into r. Files keep their order; durations add up.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	for _, f := range other.Files {
		r.add(f)
	}
	r.FilesScanned += other.FilesScanned
	r.ScanDuration += other.ScanDuration
	r.CheckDuration += other.CheckDuration
	if r.TransactionID == "" {
		r.TransactionID = other.TransactionID
	}
}
