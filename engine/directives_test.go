package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/rulefx/lint"
	"github.com/oxhq/rulefx/source"
)

func TestDirectives(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		lines []int
	}{
		{
			name:  "trailing comment covers its line",
			text:  "foo # rulefx:disable Test/Upcase\nfoo\n",
			lines: []int{2},
		},
		{
			name:  "trailing comment for another rule",
			text:  "foo # rulefx:disable Test/Other\n",
			lines: []int{1},
		},
		{
			name:  "standalone comment opens a region",
			text:  "foo\n# rulefx:disable Test/Upcase\nfoo\nfoo\n# rulefx:enable Test/Upcase\nfoo\n",
			lines: []int{1, 6},
		},
		{
			name:  "region runs to end of file",
			text:  "# rulefx:disable Test/Other, Test/Upcase\nfoo\nfoo\n",
			lines: nil,
		},
		{
			name:  "disable without names means all",
			text:  "foo # rulefx:disable\nfoo\n",
			lines: []int{2},
		},
		{
			name:  "enable all closes every region",
			text:  "# rulefx:disable all\nfoo\n# rulefx:enable all\nfoo\n",
			lines: []int{4},
		},
	}

	runner := newRunner(t, []lint.Rule{newWordRule("Test/Upcase", "foo", "FOO")})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := runner.Inspect(context.Background(), source.NewBuffer("d.txt", tt.text))
			require.NoError(t, err)

			var lines []int
			for _, o := range report.Offenses {
				lines = append(lines, o.Start.Line)
			}
			assert.Equal(t, tt.lines, lines)
		})
	}
}

func TestDirectives_SuppressedFixesAreNotApplied(t *testing.T) {
	runner := newRunner(t, []lint.Rule{newWordRule("Test/Upcase", "foo", "FOO")})
	report, err := runner.Autocorrect(context.Background(),
		source.NewBuffer("d.txt", "foo # rulefx:disable Test/Upcase\nfoo\n"))
	require.NoError(t, err)
	assert.Equal(t, "foo # rulefx:disable Test/Upcase\nFOO\n", report.Corrected)
}
