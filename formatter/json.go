package formatter

import (
	"encoding/json"
	"io"

	"github.com/oxhq/rulefx/core"
	"github.com/oxhq/rulefx/engine"
	"github.com/oxhq/rulefx/lint"
)

// JSON writes the result as one document.
type JSON struct {
	Indent bool
}

type jsonDocument struct {
	Files   []jsonFile  `json:"files"`
	Summary jsonSummary `json:"summary"`
}

type jsonFile struct {
	Path         string                  `json:"path"`
	Status       string                  `json:"status"`
	Offenses     []lint.Offense          `json:"offenses"`
	Corrections  int                     `json:"corrections"`
	LoopDetected bool                    `json:"loop_detected,omitempty"`
	Diagnostics  []engine.ToolDiagnostic `json:"diagnostics,omitempty"`
	Written      bool                    `json:"written,omitempty"`
	Error        string                  `json:"error,omitempty"`
}

type jsonSummary struct {
	Files         int    `json:"files"`
	FilesWithErrs int    `json:"files_with_errors"`
	FilesChanged  int    `json:"files_changed"`
	Offenses      int    `json:"offenses"`
	Corrections   int    `json:"corrections"`
	TransactionID string `json:"transaction_id,omitempty"`
}

func (j *JSON) Format(w io.Writer, result *core.Result) error {
	doc := jsonDocument{
		Files: make([]jsonFile, 0, len(result.Files)),
		Summary: jsonSummary{
			Files:         result.FilesScanned,
			FilesWithErrs: result.FilesWithErrs,
			FilesChanged:  result.FilesChanged,
			Offenses:      result.Offenses,
			Corrections:   result.Corrections,
			TransactionID: result.TransactionID,
		},
	}
	for _, f := range result.Files {
		jf := jsonFile{
			Path:     f.Path,
			Status:   f.Status(),
			Offenses: []lint.Offense{},
			Written:  f.Written,
			Error:    f.Error,
		}
		if f.Report != nil {
			jf.Offenses = append(jf.Offenses, f.Report.Offenses...)
			jf.Corrections = f.Report.Corrections
			jf.LoopDetected = f.Report.LoopDetected
			jf.Diagnostics = f.Report.Diagnostics
		}
		doc.Files = append(doc.Files, jf)
	}

	enc := json.NewEncoder(w)
	if j.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(doc)
}
