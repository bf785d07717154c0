// Package match holds the node predicates rules are built from. Every
// predicate returns false for shapes it does not recognize.
package match

import (
	"strings"

	"github.com/oxhq/rulefx/syntax"
)

// Predicate tests a single node.
type Predicate func(n *syntax.Node) bool

// And matches when every predicate matches.
func And(preds ...Predicate) Predicate {
	return func(n *syntax.Node) bool {
		for _, p := range preds {
			if !p(n) {
				return false
			}
		}
		return true
	}
}

// Or matches when any predicate matches.
func Or(preds ...Predicate) Predicate {
	return func(n *syntax.Node) bool {
		for _, p := range preds {
			if p(n) {
				return true
			}
		}
		return false
	}
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return func(n *syntax.Node) bool {
		return !p(n)
	}
}

// KindIs matches nodes of the given kinds.
func KindIs(kinds ...syntax.Kind) Predicate {
	return func(n *syntax.Node) bool {
		return n.Is(kinds...)
	}
}

// IsNilLiteral matches the nil literal.
func IsNilLiteral(n *syntax.Node) bool {
	return n.Is(syntax.KindNil)
}

// IsInequality matches `a != b`.
func IsInequality(n *syntax.Node) bool {
	b, ok := syntax.AsBinary(n)
	return ok && b.Op == "!="
}

// NilComparison matches an inequality with nil on either side and returns
// the other operand.
func NilComparison(n *syntax.Node) (*syntax.Node, bool) {
	if !IsInequality(n) {
		return nil, false
	}
	b, _ := syntax.AsBinary(n)
	switch {
	case IsNilLiteral(b.Right) && !IsNilLiteral(b.Left):
		return b.Left, true
	case IsNilLiteral(b.Left) && !IsNilLiteral(b.Right):
		return b.Right, true
	}
	return nil, false
}

// NilQuery matches a `nil?` call without arguments. The returned call has
// a nil Receiver for the implicit self.
func NilQuery(n *syntax.Node) (syntax.Call, bool) {
	c, ok := syntax.AsCall(n)
	if !ok || c.Method != "nil?" || len(c.Args) > 0 || c.Block != nil || c.SafeNav {
		return syntax.Call{}, false
	}
	return c, true
}

// NegatedNilQuery matches `!x.nil?` and `not x.nil?`.
func NegatedNilQuery(n *syntax.Node) (syntax.Unary, syntax.Call, bool) {
	u, ok := syntax.AsUnary(n)
	if !ok || (u.Op != "!" && u.Op != "not") {
		return syntax.Unary{}, syntax.Call{}, false
	}
	c, ok := NilQuery(u.Operand)
	if !ok {
		return syntax.Unary{}, syntax.Call{}, false
	}
	return u, c, true
}

// IsPredicateQuery matches a negated call to a query method (`!x.empty?`,
// `not x.nil?`) or an inequality against nil.
func IsPredicateQuery(n *syntax.Node) bool {
	if _, ok := NilComparison(n); ok {
		return true
	}
	u, ok := syntax.AsUnary(n)
	if !ok || (u.Op != "!" && u.Op != "not") {
		return false
	}
	c, ok := syntax.AsCall(u.Operand)
	return ok && strings.HasSuffix(c.Method, "?")
}

// IsLastStatementOfPredicateMethod reports whether n is the final statement
// of a method whose name ends in "?", with or without explicit receiver.
func IsLastStatementOfPredicateMethod(n *syntax.Node) bool {
	def := n.Enclosing(syntax.KindDef, syntax.KindSingletonDef)
	if def == nil {
		return false
	}
	d, ok := syntax.AsDef(def)
	if !ok || !d.Predicate() || len(d.Body) == 0 {
		return false
	}
	return d.Body[len(d.Body)-1] == n
}
