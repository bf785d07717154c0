package syntax

import "github.com/oxhq/rulefx/source"

// New returns a named node with the given children. Parent links are set
// by NewTree.
func New(kind Kind, typ string, r source.Range, children ...*Node) *Node {
	return &Node{Kind: kind, Type: typ, Named: true, Range: r, Children: children}
}

// Leaf returns a named leaf carrying its source text.
func Leaf(kind Kind, typ string, r source.Range, text string) *Node {
	return &Node{Kind: kind, Type: typ, Named: true, Range: r, Text: text}
}

// Tok returns an anonymous token such as an operator or keyword.
func Tok(r source.Range, text string) *Node {
	return &Node{Kind: KindToken, Type: text, Range: r, Text: text}
}

// As sets the grammar role of n and returns it.
func (n *Node) As(field string) *Node {
	n.Field = field
	return n
}

// NewTree links parents below root and wraps it with its buffer.
func NewTree(root *Node, buf *source.Buffer) *Tree {
	t := &Tree{Root: root, Buffer: buf}
	link(root, nil, t)
	return t
}

func link(n, parent *Node, t *Tree) {
	if n == nil {
		return
	}
	n.parent = parent
	if n.Kind == KindError {
		t.Errors++
	}
	for _, c := range n.Children {
		link(c, n, t)
	}
}
