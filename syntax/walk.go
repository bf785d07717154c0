package syntax

// Visitor is called for each node in pre-order. Returning false skips the
// node's children.
type Visitor func(n *Node) bool

// Walk visits root and its descendants in pre-order: a parent before its
// children, children left to right.
func Walk(root *Node, visit Visitor) {
	if root == nil {
		return
	}
	if !visit(root) {
		return
	}
	for _, c := range root.Children {
		Walk(c, visit)
	}
}

// Find returns every node below root (inclusive) satisfying pred, in
// pre-order.
func Find(root *Node, pred func(*Node) bool) []*Node {
	var out []*Node
	Walk(root, func(n *Node) bool {
		if pred(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Statements returns the statements held by a statement container
// (program, body, then, else, parenthesized). Other nodes are treated as a
// single statement.
func Statements(n *Node) []*Node {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindProgram, KindBody, KindThen, KindElse, KindParenthesized:
		return n.NamedChildren()
	default:
		return []*Node{n}
	}
}
