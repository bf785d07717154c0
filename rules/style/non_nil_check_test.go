package style

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/rulefx/config"
	"github.com/oxhq/rulefx/engine"
	"github.com/oxhq/rulefx/lint"
	"github.com/oxhq/rulefx/providers/ruby"
	"github.com/oxhq/rulefx/source"
)

const semanticConfig = `
Style/NonNilCheck:
  IncludeSemanticChanges: true
`

func newRunner(t *testing.T, yaml string) *engine.Runner {
	t.Helper()
	reg, err := lint.NewRegistry(NewNonNilCheck())
	require.NoError(t, err)
	cfg, err := config.Parse([]byte(yaml), reg)
	require.NoError(t, err)
	return engine.New(reg, ruby.New(), engine.WithConfig(cfg))
}

func autocorrect(t *testing.T, yaml, code string) *engine.Report {
	t.Helper()
	report, err := newRunner(t, yaml).Autocorrect(context.Background(), source.NewBuffer("test.rb", code))
	require.NoError(t, err)
	require.Empty(t, report.Diagnostics)
	return report
}

func TestNonNilCheck_PrefersNilQuery(t *testing.T) {
	report := autocorrect(t, "", "if x != nil\n  foo\nend\n")

	require.Len(t, report.Offenses, 1)
	o := report.Offenses[0]
	assert.Equal(t, NonNilCheckName, o.Rule)
	assert.Equal(t, msgForReplacement, o.Message)
	assert.Equal(t, source.Point{Line: 1, Column: 6}, o.Start)
	assert.Equal(t, source.Point{Line: 1, Column: 8}, o.End)
	assert.True(t, o.Corrected)

	assert.Equal(t, engine.StatusCorrected, report.Status)
	assert.Equal(t, "if !x.nil?\n  foo\nend\n", report.Corrected)
	assert.Empty(t, report.Remaining)
}

func TestNonNilCheck_Corrections(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		code string
		want string
	}{
		{"nil on the left", "", "nil != x\n", "!x.nil?\n"},
		{"method call operand", "", "foo.bar != nil\n", "!foo.bar.nil?\n"},
		{"instance variable", "", "@x != nil\n", "!@x.nil?\n"},
		{"safe navigation operand", "", "foo if a&.b != nil\n", "foo if !(a&.b).nil?\n"},
		{"safe navigation inside chain", "", "a&.b.c != nil\n", "!(a&.b.c).nil?\n"},
		{"semantic unless modifier in predicate method", semanticConfig, "def ready?\n  bar unless x.nil?\nend\n", "def ready?\n  bar if x\nend\n"},
		{"semantic comparison", semanticConfig, "foo if x != nil\n", "foo if x\n"},
		{"semantic negated query", semanticConfig, "foo if !x.nil?\n", "foo if x\n"},
		{"semantic not keyword", semanticConfig, "not x.nil?\n", "x\n"},
		{"semantic implicit receiver", semanticConfig, "def foo\n  !nil?\nend\n", "def foo\n  self\nend\n"},
		{"semantic unless modifier", semanticConfig, "foo unless x.nil?\n", "foo if x\n"},
		{"semantic unless block", semanticConfig, "unless x.nil?\n  foo\nend\n", "if x\n  foo\nend\n"},
		{
			"semantic comparison in parentheses",
			semanticConfig,
			"return nil unless (line =~ //) != nil\n",
			"return nil unless (line =~ //)\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := autocorrect(t, tt.yaml, tt.code)
			assert.NotEmpty(t, report.Offenses)
			assert.Equal(t, tt.want, report.Corrected)
			assert.Equal(t, engine.StatusCorrected, report.Status)
			assert.Empty(t, report.Remaining)
		})
	}
}

func TestNonNilCheck_NoOffense(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		code string
	}{
		{"nil query is preferred form", "", "foo if !x.nil?\n"},
		{"unless without semantic changes", "", "foo unless x.nil?\n"},
		{"equality check", semanticConfig, "foo if x == nil\n"},
		{"nil against nil", "", "nil != nil\n"},
		{"query with arguments", semanticConfig, "foo if !x.nil?(1)\n"},
		{"safe navigation query", semanticConfig, "foo if !x&.nil?\n"},
		{"last statement of predicate method", "", "def present?\n  x != nil\nend\n"},
		{"semantic last statement of predicate method", semanticConfig, "def present?\n  !x.nil?\nend\n"},
		{"singleton predicate method", "", "def self.present?\n  x != nil\nend\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := autocorrect(t, tt.yaml, tt.code)
			assert.Empty(t, report.Offenses)
			assert.Equal(t, engine.StatusClean, report.Status)
			assert.Equal(t, tt.code, report.Corrected)
		})
	}
}

func TestNonNilCheck_PredicateCarveOutIsExact(t *testing.T) {
	code := "def present?\n  log(x != nil)\n  true\nend\n"
	report := autocorrect(t, "", code)

	require.Len(t, report.Offenses, 1)
	assert.Equal(t, 2, report.Offenses[0].Start.Line)
	assert.Equal(t, "def present?\n  log(!x.nil?)\n  true\nend\n", report.Corrected)
}

func TestNonNilCheck_UncorrectableOperand(t *testing.T) {
	tests := []string{
		"return nil unless (line =~ //) != nil\n",
		"foo if a + b != nil\n",
	}
	for _, code := range tests {
		t.Run(code, func(t *testing.T) {
			report := autocorrect(t, "", code)

			require.Len(t, report.Offenses, 1)
			assert.False(t, report.Offenses[0].Correctable)
			assert.Equal(t, msgForReplacement, report.Offenses[0].Message)
			assert.Equal(t, engine.StatusUncorrectable, report.Status)
			assert.Equal(t, code, report.Corrected)
		})
	}
}

func TestNonNilCheck_UnlessOffenseCoversCondition(t *testing.T) {
	report := autocorrect(t, semanticConfig, "foo unless x.nil?\n")

	require.Len(t, report.Offenses, 1)
	o := report.Offenses[0]
	assert.Equal(t, msgForRedundancy, o.Message)
	assert.Equal(t, "x.nil?", report.Original[o.Range.Start:o.Range.End])
	assert.Len(t, o.Fix, 2)
}

func TestNonNilCheck_InspectLeavesTextAlone(t *testing.T) {
	report, err := newRunner(t, "").Inspect(context.Background(), source.NewBuffer("test.rb", "x != nil\n"))
	require.NoError(t, err)
	assert.Equal(t, engine.StatusOffenses, report.Status)
	assert.Len(t, report.Offenses, 1)
	assert.False(t, report.Changed())
}

func TestNonNilCheck_UnlessInPredicateMethodIsFlagged(t *testing.T) {
	report := autocorrect(t, semanticConfig, "def ready?\n  bar unless x.nil?\nend\n")

	require.Len(t, report.Offenses, 1)
	o := report.Offenses[0]
	assert.Equal(t, source.Point{Line: 2, Column: 14}, o.Start)
	assert.Equal(t, "x.nil?", report.Original[o.Range.Start:o.Range.End])
}

func TestNonNilCheck_SafeNavigationKeepsBehavior(t *testing.T) {
	report := autocorrect(t, "", "a&.b != nil\n")

	require.Len(t, report.Offenses, 1)
	assert.True(t, report.Offenses[0].Correctable)
	assert.Equal(t, "!(a&.b).nil?\n", report.Corrected)
	assert.Empty(t, report.Remaining)
}
