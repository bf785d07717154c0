package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/oxhq/rulefx/core"
	"github.com/oxhq/rulefx/lint"
)

const tabWidth = 8

var (
	fileStyle    = color.New(color.FgCyan, color.Bold)
	ruleStyle    = color.New(color.FgYellow, color.Bold)
	caretStyle   = color.New(color.FgRed, color.Bold)
	fixedStyle   = color.New(color.FgGreen, color.Bold)
	errorStyle   = color.New(color.FgRed, color.Bold)
	summaryStyle = color.New(color.Bold)
)

// Text prints every offense as
//
//	path:line:col: Rule: message [Corrected]
//	<source line>
//	      ^^^^
//
// followed by a summary line. Colors follow color.NoColor.
type Text struct {
	// NoSnippet drops the source line and the caret underline.
	NoSnippet bool
}

func (t *Text) Format(w io.Writer, result *core.Result) error {
	var b strings.Builder
	var correctable, corrected int

	for _, f := range result.Files {
		if f.Report == nil {
			fmt.Fprintf(&b, "%s: %s %s\n", fileStyle.Sprint(f.Path), errorStyle.Sprint("error:"), f.Error)
			continue
		}
		lines := strings.Split(f.Report.Original, "\n")
		for _, o := range f.Report.Offenses {
			if o.Correctable {
				correctable++
			}
			if o.Corrected {
				corrected++
			}
			t.offense(&b, f.Path, o, lines)
		}
		for _, d := range f.Report.Diagnostics {
			fmt.Fprintf(&b, "%s: %s %s\n", fileStyle.Sprint(f.Path), errorStyle.Sprint("internal error:"), d)
		}
	}

	if b.Len() > 0 {
		b.WriteString("\n")
	}
	summary := fmt.Sprintf("%s inspected, %s detected", plural(result.FilesScanned, "file"), plural(result.Offenses, "offense"))
	switch {
	case corrected > 0:
		summary += fmt.Sprintf(", %d corrected", corrected)
	case correctable > 0:
		summary += fmt.Sprintf(", %d autocorrectable", correctable)
	}
	b.WriteString(summaryStyle.Sprint(summary))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func (t *Text) offense(b *strings.Builder, path string, o lint.Offense, lines []string) {
	marker := ""
	switch {
	case o.Corrected:
		marker = " " + fixedStyle.Sprint("[Corrected]")
	case o.Correctable:
		marker = " [Correctable]"
	}
	fmt.Fprintf(b, "%s: %s %s%s\n",
		fileStyle.Sprintf("%s:%d:%d", path, o.Start.Line, o.Start.Column),
		ruleStyle.Sprintf("%s:", o.Rule),
		o.Message,
		marker)

	if t.NoSnippet || o.Start.Line < 1 || o.Start.Line > len(lines) {
		return
	}
	line := strings.TrimRight(lines[o.Start.Line-1], "\r")
	b.WriteString(line)
	b.WriteString("\n")
	b.WriteString(underline(line, o))
	b.WriteString("\n")
}

// underline returns the caret line for o under line. Offenses spanning
// several lines are underlined to the end of their first line.
func underline(line string, o lint.Offense) string {
	start := visualColumn(line, o.Start.Column)
	end := visualColumn(line, len([]rune(line))+1)
	if o.End.Line == o.Start.Line {
		end = visualColumn(line, o.End.Column)
	}
	width := max(end-start, 1)
	return strings.Repeat(" ", start) + caretStyle.Sprint(strings.Repeat("^", width))
}

// visualColumn returns the display offset of the 1-based character column
// in line, expanding tabs.
func visualColumn(line string, column int) int {
	visual := 0
	i := 1
	for _, ch := range line {
		if i >= column {
			break
		}
		if ch == '\t' {
			visual += tabWidth - visual%tabWidth
		} else {
			visual++
		}
		i++
	}
	return visual
}
