package engine

import (
	"fmt"

	"github.com/oxhq/rulefx/correct"
	"github.com/oxhq/rulefx/lint"
	"github.com/oxhq/rulefx/source"
)

// Status summarizes the outcome for one file.
type Status string

const (
	// StatusClean means no rule fired.
	StatusClean Status = "clean"
	// StatusOffenses means offenses were found and correction was not requested.
	StatusOffenses Status = "offenses"
	// StatusUncorrectable means correction was requested but nothing changed.
	StatusUncorrectable Status = "uncorrectable"
	// StatusCorrected means every accepted fix was applied.
	StatusCorrected Status = "corrected"
	// StatusPartiallyCorrected means fixes were dropped or the loop was cut short.
	StatusPartiallyCorrected Status = "partially_corrected"
)

// ToolDiagnostic reports a failure inside the tool rather than in the
// analyzed code, such as a rule panicking.
type ToolDiagnostic struct {
	Rule    string       `json:"rule,omitempty"`
	Range   source.Range `json:"range"`
	Message string       `json:"message"`
}

func (d ToolDiagnostic) String() string {
	if d.Rule == "" {
		return d.Message
	}
	return fmt.Sprintf("%s: %s", d.Rule, d.Message)
}

// Report is the result of analyzing one file.
type Report struct {
	File        string `json:"file"`
	Autocorrect bool   `json:"autocorrect"`
	Status      Status `json:"status"`

	// Offenses are found on the original text. Corrected is set for those
	// whose fix was applied in the first pass.
	Offenses []lint.Offense `json:"offenses"`
	// Remaining are the offenses left on the final text.
	Remaining []lint.Offense `json:"remaining,omitempty"`

	Corrections  int                `json:"corrections"`
	Conflicts    []correct.Conflict `json:"conflicts,omitempty"`
	Diagnostics  []ToolDiagnostic   `json:"diagnostics,omitempty"`
	Passes       int                `json:"passes"`
	LoopDetected bool               `json:"loop_detected,omitempty"`

	Original  string `json:"-"`
	Corrected string `json:"-"`
}

// Changed reports whether the corrected text differs from the original.
func (r *Report) Changed() bool {
	return r.Corrected != r.Original
}

// Correctable counts offenses that carry a fix.
func (r *Report) Correctable() int {
	n := 0
	for _, o := range r.Offenses {
		if o.Correctable {
			n++
		}
	}
	return n
}

func (r *Report) resolveStatus(pendingConflicts int) {
	switch {
	case len(r.Offenses) == 0:
		r.Status = StatusClean
	case !r.Autocorrect:
		r.Status = StatusOffenses
	case r.Corrections == 0:
		r.Status = StatusUncorrectable
	case r.LoopDetected || pendingConflicts > 0:
		r.Status = StatusPartiallyCorrected
	default:
		r.Status = StatusCorrected
	}
}
