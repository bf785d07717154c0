// Package formatter renders check results for people and tools.
package formatter

import (
	"fmt"
	"io"
	"sort"

	"github.com/oxhq/rulefx/core"
)

// Formatter writes a check result.
type Formatter interface {
	Format(w io.Writer, result *core.Result) error
}

var formatters = map[string]func() Formatter{
	"text": func() Formatter { return &Text{} },
	"json": func() Formatter { return &JSON{Indent: true} },
	"diff": func() Formatter { return &Diff{Context: 3} },
}

// New returns the formatter registered under name.
func New(name string) (Formatter, error) {
	f, ok := formatters[name]
	if !ok {
		return nil, fmt.Errorf("unknown format %q (want one of %v)", name, Names())
	}
	return f(), nil
}

// Names lists the available formats.
func Names() []string {
	names := make([]string, 0, len(formatters))
	for name := range formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
