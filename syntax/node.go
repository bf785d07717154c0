// Package syntax defines the typed tree rules inspect. Trees are produced
// by a language provider and are read-only once built.
package syntax

import (
	"github.com/oxhq/rulefx/source"
)

// Kind discriminates node variants.
type Kind int

const (
	KindUnknown Kind = iota
	KindProgram
	KindNil
	KindSelf
	KindIdentifier
	KindInstanceVariable
	KindConstant
	KindLiteral
	KindBinary
	KindUnary
	KindCall
	KindArguments
	KindParameters
	KindOptionalParameter
	KindKeywordParameter
	KindSplatParameter
	KindHashSplatParameter
	KindBlockParameter
	KindSplatArgument
	KindHashSplatArgument
	KindBlockArgument
	KindDef
	KindSingletonDef
	KindClass
	KindModule
	KindIf
	KindUnless
	KindIfModifier
	KindUnlessModifier
	KindTernary
	KindThen
	KindElse
	KindParenthesized
	KindBody
	KindReturn
	KindBlock
	KindComment
	KindToken
	KindError
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindProgram:            "program",
	KindNil:                "nil",
	KindSelf:               "self",
	KindIdentifier:         "identifier",
	KindInstanceVariable:   "instance_variable",
	KindConstant:           "constant",
	KindLiteral:            "literal",
	KindBinary:             "binary",
	KindUnary:              "unary",
	KindCall:               "call",
	KindArguments:          "arguments",
	KindParameters:         "parameters",
	KindOptionalParameter:  "optional_parameter",
	KindKeywordParameter:   "keyword_parameter",
	KindSplatParameter:     "splat_parameter",
	KindHashSplatParameter: "hash_splat_parameter",
	KindBlockParameter:     "block_parameter",
	KindSplatArgument:      "splat_argument",
	KindHashSplatArgument:  "hash_splat_argument",
	KindBlockArgument:      "block_argument",
	KindDef:                "def",
	KindSingletonDef:       "singleton_def",
	KindClass:              "class",
	KindModule:             "module",
	KindIf:                 "if",
	KindUnless:             "unless",
	KindIfModifier:         "if_modifier",
	KindUnlessModifier:     "unless_modifier",
	KindTernary:            "ternary",
	KindThen:               "then",
	KindElse:               "else",
	KindParenthesized:      "parenthesized",
	KindBody:               "body",
	KindReturn:             "return",
	KindBlock:              "block",
	KindComment:            "comment",
	KindToken:              "token",
	KindError:              "error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Node is one element of a syntax tree.
type Node struct {
	Kind Kind
	// Type is the parser's own name for the node (e.g. "method_call").
	Type string
	// Field is the grammar role this node plays in its parent, if any.
	Field string
	// Named is false for anonymous tokens such as operators and keywords.
	Named bool
	Range source.Range
	// Text is set for leaves: identifiers, constants, operators, keywords.
	Text     string
	Children []*Node

	parent *Node
}

// Parent returns the enclosing node, or nil for the root.
func (n *Node) Parent() *Node {
	if n == nil {
		return nil
	}
	return n.parent
}

// Is reports whether n is non-nil and of one of the given kinds.
func (n *Node) Is(kinds ...Kind) bool {
	if n == nil {
		return false
	}
	for _, k := range kinds {
		if n.Kind == k {
			return true
		}
	}
	return false
}

// Child returns the first child playing the grammar role field.
func (n *Node) Child(field string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Field == field {
			return c
		}
	}
	return nil
}

// NamedChildren returns children that are not anonymous tokens or comments.
func (n *Node) NamedChildren() []*Node {
	if n == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.Named && c.Kind != KindComment {
			out = append(out, c)
		}
	}
	return out
}

// Token returns the first anonymous child whose text is one of texts.
func (n *Node) Token(texts ...string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Named {
			continue
		}
		for _, t := range texts {
			if c.Text == t {
				return c
			}
		}
	}
	return nil
}

// Index returns the position of n among its parent's children, or -1.
func (n *Node) Index() int {
	if n == nil || n.parent == nil {
		return -1
	}
	for i, c := range n.parent.Children {
		if c == n {
			return i
		}
	}
	return -1
}

// Ancestors returns the chain of enclosing nodes, innermost first.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for p := n.Parent(); p != nil; p = p.parent {
		out = append(out, p)
	}
	return out
}

// Enclosing returns the nearest ancestor of one of the given kinds.
func (n *Node) Enclosing(kinds ...Kind) *Node {
	for p := n.Parent(); p != nil; p = p.parent {
		if p.Is(kinds...) {
			return p
		}
	}
	return nil
}

// Tree is a parsed file.
type Tree struct {
	Root   *Node
	Buffer *source.Buffer
	// Errors counts error nodes the parser recovered from.
	Errors int
}

// Source returns the text covered by n.
func (t *Tree) Source(n *Node) string {
	if n == nil || t == nil || t.Buffer == nil {
		return ""
	}
	return t.Buffer.Slice(n.Range)
}
