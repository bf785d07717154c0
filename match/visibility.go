package match

import (
	"sort"
	"strings"

	"github.com/oxhq/rulefx/source"
	"github.com/oxhq/rulefx/syntax"
)

// Visibility is the access level a marker line switches to.
type Visibility int

const (
	Public Visibility = iota
	Protected
	Private
)

type marker struct {
	line       int
	visibility Visibility
}

// VisibilityIndex records where visibility changes in a file. It is a
// textual pass over the buffer, built once and queried by line number; it
// does not resolve `private :name` or `private_class_method` forms.
type VisibilityIndex struct {
	markers []marker
	inline  map[int]Visibility
}

// NewVisibilityIndex scans buf for standalone `private`, `protected` and
// `public` statements and for definitions prefixed inline with a
// restricting keyword.
func NewVisibilityIndex(buf *source.Buffer) *VisibilityIndex {
	idx := &VisibilityIndex{inline: make(map[int]Visibility)}
	for i, raw := range buf.Lines() {
		line := i + 1
		text := stripComment(strings.TrimSpace(raw))
		if v, ok := keyword(text); ok {
			idx.markers = append(idx.markers, marker{line: line, visibility: v})
			continue
		}
		for _, prefix := range []string{"private ", "protected "} {
			if strings.HasPrefix(text, prefix) {
				v, _ := keyword(strings.TrimSpace(prefix))
				idx.inline[line] = v
			}
		}
	}
	return idx
}

func keyword(text string) (Visibility, bool) {
	switch text {
	case "private":
		return Private, true
	case "protected":
		return Protected, true
	case "public":
		return Public, true
	}
	return Public, false
}

func stripComment(text string) string {
	if i := strings.Index(text, "#"); i >= 0 {
		return strings.TrimSpace(text[:i])
	}
	return text
}

// RestrictedBefore reports whether the latest marker on a line in
// [scopeStart, line) is private or protected.
func (v *VisibilityIndex) RestrictedBefore(line, scopeStart int) bool {
	i := sort.Search(len(v.markers), func(i int) bool {
		return v.markers[i].line >= line
	})
	if i == 0 {
		return false
	}
	last := v.markers[i-1]
	if last.line < scopeStart {
		return false
	}
	return last.visibility != Public
}

// RestrictedInline reports whether line starts with `private ` or
// `protected `.
func (v *VisibilityIndex) RestrictedInline(line int) bool {
	_, ok := v.inline[line]
	return ok
}

// IsPrivateOrProtected reports whether def is declared under a restricting
// marker of its enclosing class or module, or inline. Top-level definitions
// use the whole file as scope.
func (v *VisibilityIndex) IsPrivateOrProtected(buf *source.Buffer, def *syntax.Node) bool {
	if def == nil {
		return false
	}
	line := buf.LineOf(def.Range.Start)
	if v.RestrictedInline(line) {
		return true
	}
	scopeStart := 1
	if scope := def.Enclosing(syntax.KindClass, syntax.KindModule); scope != nil {
		scopeStart = buf.LineOf(scope.Range.Start)
	}
	return v.RestrictedBefore(line, scopeStart)
}
