// Package lint defines the contract between rules and the engine: what a
// rule subscribes to, what it sees while checking a node and what it
// reports back.
package lint

import (
	"github.com/oxhq/rulefx/correct"
	"github.com/oxhq/rulefx/match"
	"github.com/oxhq/rulefx/source"
	"github.com/oxhq/rulefx/syntax"
)

// Rule is a named checker over syntax nodes.
type Rule interface {
	// Name is the qualified identifier, e.g. "Style/NonNilCheck".
	Name() string
	Description() string
	// Kinds lists the node kinds the engine dispatches to Check.
	Kinds() []syntax.Kind
	// Options declares the rule's configurable options.
	Options() []OptionSpec
	// Check inspects n. It must not retain ctx or n after returning.
	Check(ctx *Context, n *syntax.Node) []Violation
}

// BaseRule carries the static metadata of a rule. Rules embed it and
// implement Check.
type BaseRule struct {
	RuleName    string
	Desc        string
	NodeKinds   []syntax.Kind
	OptionSpecs []OptionSpec
}

func (b BaseRule) Name() string          { return b.RuleName }
func (b BaseRule) Description() string   { return b.Desc }
func (b BaseRule) Kinds() []syntax.Kind  { return b.NodeKinds }
func (b BaseRule) Options() []OptionSpec { return b.OptionSpecs }

// Violation is a located offense found by a rule. An empty Fix means the
// offense cannot be corrected automatically.
type Violation struct {
	Rule    string
	Range   source.Range
	Message string
	Fix     []correct.Replacement
}

// Correctable reports whether the violation carries a fix.
func (v Violation) Correctable() bool {
	return len(v.Fix) > 0
}

// Offense is the reported form of a violation.
type Offense struct {
	Rule        string                `json:"rule"`
	Message     string                `json:"message"`
	Range       source.Range          `json:"range"`
	Start       source.Point          `json:"start"`
	End         source.Point          `json:"end"`
	Correctable bool                  `json:"correctable"`
	Corrected   bool                  `json:"corrected"`
	Fix         []correct.Replacement `json:"fix,omitempty"`
}

// NewOffense locates v in buf.
func NewOffense(buf *source.Buffer, v Violation) Offense {
	start, end := buf.Span(v.Range)
	return Offense{
		Rule:        v.Rule,
		Message:     v.Message,
		Range:       v.Range,
		Start:       start,
		End:         end,
		Correctable: v.Correctable(),
		Fix:         v.Fix,
	}
}

// File is the per-file state shared by every rule: the tree, its buffer and
// facts precomputed from them. It is read-only during analysis.
type File struct {
	Tree *syntax.Tree

	visibility *match.VisibilityIndex
}

// NewFile wraps a parsed tree.
func NewFile(tree *syntax.Tree) *File {
	return &File{Tree: tree}
}

// Buffer returns the source of the file.
func (f *File) Buffer() *source.Buffer {
	return f.Tree.Buffer
}

// Visibility returns the visibility markers of the file, scanning the
// buffer on first use.
func (f *File) Visibility() *match.VisibilityIndex {
	if f.visibility == nil {
		f.visibility = match.NewVisibilityIndex(f.Tree.Buffer)
	}
	return f.visibility
}

// Context is what a rule sees while checking a node: the file and its own
// options.
type Context struct {
	*File
	Rule    string
	Options Options
}

// Source returns the text covered by n.
func (c *Context) Source(n *syntax.Node) string {
	return c.Tree.Source(n)
}

// Line returns the 1-based line holding offset.
func (c *Context) Line(offset int) int {
	return c.Buffer().LineOf(offset)
}

// Violation builds a violation for the current rule.
func (c *Context) Violation(r source.Range, message string, fix ...correct.Replacement) Violation {
	return Violation{Rule: c.Rule, Range: r, Message: message, Fix: fix}
}
