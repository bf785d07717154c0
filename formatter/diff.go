package formatter

import (
	"fmt"
	"io"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/oxhq/rulefx/core"
)

// Diff writes a unified diff of every corrected file.
type Diff struct {
	Context int
}

func (d *Diff) Format(w io.Writer, result *core.Result) error {
	for _, f := range result.Files {
		if f.Report == nil || !f.Report.Changed() {
			continue
		}
		text, err := UnifiedDiff(f.Path, f.Report.Original, f.Report.Corrected, d.Context)
		if err != nil {
			return fmt.Errorf("diff %s: %w", f.Path, err)
		}
		if _, err := io.WriteString(w, text); err != nil {
			return err
		}
	}
	return nil
}

// UnifiedDiff returns the diff between two versions of path, or "" when
// they are equal.
func UnifiedDiff(path, original, corrected string, context int) (string, error) {
	if original == corrected {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(corrected),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  context,
	})
}
