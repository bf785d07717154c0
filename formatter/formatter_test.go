package formatter

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/rulefx/core"
	"github.com/oxhq/rulefx/engine"
	"github.com/oxhq/rulefx/lint"
	"github.com/oxhq/rulefx/source"
)

func init() {
	color.NoColor = true
}

func nonNilOffense(corrected bool) lint.Offense {
	return lint.Offense{
		Rule:        "Style/NonNilCheck",
		Message:     "Prefer `!expression.nil?` over `expression != nil`.",
		Range:       source.Range{Start: 9, End: 11},
		Start:       source.Point{Line: 1, Column: 10},
		End:         source.Point{Line: 1, Column: 12},
		Correctable: true,
		Corrected:   corrected,
	}
}

func sampleResult(autocorrect bool) *core.Result {
	report := &engine.Report{
		File:        "app/a.rb",
		Autocorrect: autocorrect,
		Status:      engine.StatusOffenses,
		Offenses:    []lint.Offense{nonNilOffense(autocorrect)},
		Original:    "foo if x != nil\n",
		Corrected:   "foo if x != nil\n",
	}
	if autocorrect {
		report.Status = engine.StatusCorrected
		report.Corrections = 1
		report.Corrected = "foo if !x.nil?\n"
	}
	return &core.Result{
		Files: []core.FileResult{
			{Path: "app/a.rb", Language: "ruby", Report: report},
			{Path: "app/b.rb", Language: "ruby", Error: "parse app/b.rb: invalid UTF-8"},
		},
		FilesScanned:  2,
		FilesWithErrs: 1,
		Offenses:      1,
		Corrections:   report.Corrections,
	}
}

func TestText(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, (&Text{}).Format(&out, sampleResult(false)))

	want := "app/a.rb:1:10: Style/NonNilCheck: Prefer `!expression.nil?` over `expression != nil`. [Correctable]\n" +
		"foo if x != nil\n" +
		"         ^^\n" +
		"app/b.rb: error: parse app/b.rb: invalid UTF-8\n" +
		"\n" +
		"2 files inspected, 1 offense detected, 1 autocorrectable\n"
	assert.Equal(t, want, out.String())
}

func TestText_Corrected(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, (&Text{NoSnippet: true}).Format(&out, sampleResult(true)))

	assert.Contains(t, out.String(), "[Corrected]\n")
	assert.NotContains(t, out.String(), "^^")
	assert.Contains(t, out.String(), "1 offense detected, 1 corrected\n")
}

func TestText_Clean(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, (&Text{}).Format(&out, &core.Result{FilesScanned: 1}))
	assert.Equal(t, "1 file inspected, 0 offenses detected\n", out.String())
}

func TestUnderline(t *testing.T) {
	tests := []struct {
		name string
		line string
		o    lint.Offense
		want string
	}{
		{
			name: "single line",
			line: "foo if x != nil",
			o:    lint.Offense{Start: source.Point{Line: 1, Column: 10}, End: source.Point{Line: 1, Column: 12}},
			want: "         ^^",
		},
		{
			name: "tab before offense",
			line: "\tx != nil",
			o:    lint.Offense{Start: source.Point{Line: 1, Column: 4}, End: source.Point{Line: 1, Column: 6}},
			want: "          ^^",
		},
		{
			name: "multi line runs to end of line",
			line: "def name",
			o:    lint.Offense{Start: source.Point{Line: 1, Column: 1}, End: source.Point{Line: 3, Column: 4}},
			want: "^^^^^^^^",
		},
		{
			name: "empty range gets one caret",
			line: "foo",
			o:    lint.Offense{Start: source.Point{Line: 1, Column: 2}, End: source.Point{Line: 1, Column: 2}},
			want: " ^",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, underline(tt.line, tt.o))
		})
	}
}

func TestJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, (&JSON{}).Format(&out, sampleResult(true)))

	var doc struct {
		Files []struct {
			Path     string `json:"path"`
			Status   string `json:"status"`
			Error    string `json:"error"`
			Offenses []struct {
				Rule      string       `json:"rule"`
				Start     source.Point `json:"start"`
				Corrected bool         `json:"corrected"`
			} `json:"offenses"`
		} `json:"files"`
		Summary struct {
			Files       int `json:"files"`
			Corrections int `json:"corrections"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))

	require.Len(t, doc.Files, 2)
	assert.Equal(t, "corrected", doc.Files[0].Status)
	require.Len(t, doc.Files[0].Offenses, 1)
	assert.Equal(t, "Style/NonNilCheck", doc.Files[0].Offenses[0].Rule)
	assert.Equal(t, source.Point{Line: 1, Column: 10}, doc.Files[0].Offenses[0].Start)
	assert.True(t, doc.Files[0].Offenses[0].Corrected)
	assert.Equal(t, "error", doc.Files[1].Status)
	assert.NotNil(t, doc.Files[1].Offenses)
	assert.Equal(t, 2, doc.Summary.Files)
	assert.Equal(t, 1, doc.Summary.Corrections)
}

func TestDiff(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, (&Diff{Context: 3}).Format(&out, sampleResult(true)))

	text := out.String()
	assert.Contains(t, text, "--- a/app/a.rb\n")
	assert.Contains(t, text, "+++ b/app/a.rb\n")
	assert.Contains(t, text, "-foo if x != nil\n")
	assert.Contains(t, text, "+foo if !x.nil?\n")
	assert.NotContains(t, text, "app/b.rb")
}

func TestUnifiedDiff_Unchanged(t *testing.T) {
	text, err := UnifiedDiff("a.rb", "x\n", "x\n", 3)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestNew(t *testing.T) {
	for _, name := range Names() {
		f, err := New(name)
		require.NoError(t, err)
		assert.NotNil(t, f)
	}
	_, err := New("xml")
	assert.Error(t, err)
	assert.Equal(t, []string{"diff", "json", "text"}, Names())
}
