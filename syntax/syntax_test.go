package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/rulefx/source"
)

func r(start, end int) source.Range { return source.Range{Start: start, End: end} }

// "x != nil"
func comparisonTree() *Tree {
	buf := source.NewBuffer("cmp.rb", "x != nil")
	bin := New(KindBinary, "binary", r(0, 8),
		Leaf(KindIdentifier, "identifier", r(0, 1), "x").As("left"),
		Tok(r(2, 4), "!=").As("operator"),
		Leaf(KindNil, "nil", r(5, 8), "nil").As("right"),
	)
	return NewTree(New(KindProgram, "program", r(0, 8), bin), buf)
}

func TestAsBinary(t *testing.T) {
	tree := comparisonTree()
	bin := tree.Root.Children[0]

	b, ok := AsBinary(bin)
	require.True(t, ok)
	assert.Equal(t, "!=", b.Op)
	assert.Equal(t, "x", tree.Source(b.Left))
	assert.Equal(t, KindNil, b.Right.Kind)
	assert.Equal(t, r(2, 4), b.Operator.Range)

	_, ok = AsBinary(b.Left)
	assert.False(t, ok, "an identifier is not a binary operation")
	_, ok = AsBinary(nil)
	assert.False(t, ok)
}

func TestParentsAndAncestors(t *testing.T) {
	tree := comparisonTree()
	bin := tree.Root.Children[0]
	left := bin.Children[0]

	assert.Same(t, bin, left.Parent())
	assert.Equal(t, []*Node{bin, tree.Root}, left.Ancestors())
	assert.Same(t, tree.Root, left.Enclosing(KindProgram))
	assert.Nil(t, left.Enclosing(KindDef))
	assert.Equal(t, 0, left.Index())
	assert.Equal(t, 2, bin.Children[2].Index())
	assert.Equal(t, -1, tree.Root.Index())
}

func TestAsCall_QueryIdentifier(t *testing.T) {
	buf := source.NewBuffer("q.rb", "!nil?")
	ident := Leaf(KindIdentifier, "identifier", r(1, 5), "nil?").As("operand")
	un := New(KindUnary, "unary", r(0, 5), Tok(r(0, 1), "!").As("operator"), ident)
	NewTree(New(KindProgram, "program", r(0, 5), un), buf)

	c, ok := AsCall(ident)
	require.True(t, ok)
	assert.Nil(t, c.Receiver)
	assert.Equal(t, "nil?", c.Method)

	u, ok := AsUnary(un)
	require.True(t, ok)
	assert.Equal(t, "!", u.Op)
	assert.Same(t, ident, u.Operand)

	plain := Leaf(KindIdentifier, "identifier", r(0, 1), "x")
	_, ok = AsCall(plain)
	assert.False(t, ok, "a plain identifier may be a local variable")
}

func TestAsCall_MethodFieldIsNotACall(t *testing.T) {
	method := Leaf(KindIdentifier, "identifier", r(2, 6), "nil?").As("method")
	call := New(KindCall, "call", r(0, 6),
		Leaf(KindIdentifier, "identifier", r(0, 1), "x").As("receiver"),
		Tok(r(1, 2), "."),
		method,
	)
	NewTree(call, source.NewBuffer("c.rb", "x.nil?"))

	_, ok := AsCall(method)
	assert.False(t, ok)

	c, ok := AsCall(call)
	require.True(t, ok)
	assert.Equal(t, "nil?", c.Method)
	assert.False(t, c.SafeNav)
	assert.Empty(t, c.Args)
}

func TestAsDef_BodyForms(t *testing.T) {
	// def ok?
	//   x
	// end
	buf := source.NewBuffer("d.rb", "def ok?\n  x\nend")
	stmt := Leaf(KindIdentifier, "identifier", r(10, 11), "x")
	withBody := New(KindDef, "method", r(0, 15),
		Tok(r(0, 3), "def"),
		Leaf(KindIdentifier, "identifier", r(4, 7), "ok?").As("name"),
		New(KindBody, "body_statement", r(10, 11), stmt).As("body"),
		Tok(r(12, 15), "end"),
	)
	NewTree(withBody, buf)

	d, ok := AsDef(withBody)
	require.True(t, ok)
	assert.Equal(t, "ok?", d.Name)
	assert.True(t, d.Predicate())
	assert.False(t, d.Singleton())
	assert.Equal(t, []*Node{stmt}, d.Body)
	assert.Equal(t, r(0, 3), d.Keyword.Range)

	// Statements directly under the def, as older grammars produce.
	stmt2 := Leaf(KindIdentifier, "identifier", r(10, 11), "x")
	flat := New(KindDef, "method", r(0, 15),
		Tok(r(0, 3), "def"),
		Leaf(KindIdentifier, "identifier", r(4, 7), "ok?").As("name"),
		stmt2,
		Tok(r(12, 15), "end"),
	)
	NewTree(flat, buf)
	d, ok = AsDef(flat)
	require.True(t, ok)
	assert.Equal(t, []*Node{stmt2}, d.Body)
}

func TestWalk_PreOrder(t *testing.T) {
	tree := comparisonTree()
	var kinds []Kind
	Walk(tree.Root, func(n *Node) bool {
		kinds = append(kinds, n.Kind)
		return true
	})
	assert.Equal(t, []Kind{KindProgram, KindBinary, KindIdentifier, KindToken, KindNil}, kinds)

	var skipped []Kind
	Walk(tree.Root, func(n *Node) bool {
		skipped = append(skipped, n.Kind)
		return n.Kind != KindBinary
	})
	assert.Equal(t, []Kind{KindProgram, KindBinary}, skipped)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "unless_modifier", KindUnlessModifier.String())
	assert.Equal(t, "unknown", Kind(999).String())
}
