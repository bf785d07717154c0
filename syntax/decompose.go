package syntax

import "strings"

// Call is the decomposed form of a method call.
type Call struct {
	Node *Node
	// Receiver is nil for calls on the implicit self.
	Receiver   *Node
	Method     string
	MethodNode *Node
	ArgsNode   *Node
	Args       []*Node
	Block      *Node
	SafeNav    bool
}

// AsCall decomposes a call node. A bare identifier ending in "?" or "!" is
// a receiverless call with no arguments, since such names cannot be local
// variables.
func AsCall(n *Node) (Call, bool) {
	if n == nil {
		return Call{}, false
	}
	switch n.Kind {
	case KindCall:
		c := Call{
			Node:       n,
			Receiver:   n.Child("receiver"),
			MethodNode: n.Child("method"),
			ArgsNode:   n.Child("arguments"),
			Block:      n.Child("block"),
		}
		if c.MethodNode != nil {
			c.Method = c.MethodNode.Text
		}
		if c.ArgsNode != nil {
			c.Args = c.ArgsNode.NamedChildren()
		}
		if op := n.Child("operator"); op != nil && op.Text == "&." {
			c.SafeNav = true
		} else if n.Token("&.") != nil {
			c.SafeNav = true
		}
		if c.Method == "" {
			return Call{}, false
		}
		return c, true
	case KindIdentifier:
		if n.Field == "method" || n.Field == "name" {
			return Call{}, false
		}
		if !strings.HasSuffix(n.Text, "?") && !strings.HasSuffix(n.Text, "!") {
			return Call{}, false
		}
		return Call{Node: n, Method: n.Text, MethodNode: n}, true
	}
	return Call{}, false
}

// Binary is the decomposed form of a binary operation.
type Binary struct {
	Node     *Node
	Left     *Node
	Right    *Node
	Operator *Node
	Op       string
}

// AsBinary decomposes a binary operation.
func AsBinary(n *Node) (Binary, bool) {
	if !n.Is(KindBinary) {
		return Binary{}, false
	}
	b := Binary{Node: n, Left: n.Child("left"), Right: n.Child("right")}
	b.Operator = n.Child("operator")
	if b.Operator == nil {
		b.Operator = firstToken(n)
	}
	if b.Left == nil || b.Right == nil || b.Operator == nil {
		return Binary{}, false
	}
	b.Op = b.Operator.Text
	return b, true
}

// Unary is the decomposed form of a prefix operation such as "!" or "not".
type Unary struct {
	Node     *Node
	Operand  *Node
	Operator *Node
	Op       string
}

// AsUnary decomposes a prefix operation.
func AsUnary(n *Node) (Unary, bool) {
	if !n.Is(KindUnary) {
		return Unary{}, false
	}
	u := Unary{Node: n, Operand: n.Child("operand"), Operator: n.Child("operator")}
	if u.Operator == nil {
		u.Operator = firstToken(n)
	}
	if u.Operand == nil {
		if named := n.NamedChildren(); len(named) == 1 {
			u.Operand = named[0]
		}
	}
	if u.Operand == nil || u.Operator == nil {
		return Unary{}, false
	}
	u.Op = u.Operator.Text
	return u, true
}

// Def is the decomposed form of a method definition.
type Def struct {
	Node     *Node
	Keyword  *Node
	Name     string
	NameNode *Node
	// Receiver is the explicit object of a singleton definition.
	Receiver   *Node
	ParamsNode *Node
	Params     []*Node
	Body       []*Node
}

// Singleton reports whether the method is defined on an explicit receiver.
func (d Def) Singleton() bool {
	return d.Node.Kind == KindSingletonDef
}

// Predicate reports whether the method name follows the query convention.
func (d Def) Predicate() bool {
	return strings.HasSuffix(d.Name, "?")
}

// AsDef decomposes a method definition.
func AsDef(n *Node) (Def, bool) {
	if !n.Is(KindDef, KindSingletonDef) {
		return Def{}, false
	}
	d := Def{
		Node:       n,
		Keyword:    n.Token("def"),
		NameNode:   n.Child("name"),
		Receiver:   n.Child("object"),
		ParamsNode: n.Child("parameters"),
	}
	if d.NameNode == nil {
		return Def{}, false
	}
	d.Name = d.NameNode.Text
	if d.ParamsNode != nil {
		d.Params = d.ParamsNode.NamedChildren()
	}
	d.Body = defBody(n)
	return d, true
}

func defBody(n *Node) []*Node {
	if body := n.Child("body"); body != nil {
		return Statements(body)
	}
	var out []*Node
	for _, c := range n.NamedChildren() {
		switch c.Field {
		case "name", "parameters", "object":
			continue
		}
		if c.Kind == KindBody {
			return c.NamedChildren()
		}
		out = append(out, c)
	}
	return out
}

// Conditional is the decomposed form of if/unless in block or modifier form.
type Conditional struct {
	Node      *Node
	Keyword   *Node
	Condition *Node
	Then      *Node
	Else      *Node
	Modifier  bool
	Negated   bool
}

// AsConditional decomposes if, unless and their modifier forms.
func AsConditional(n *Node) (Conditional, bool) {
	if n == nil {
		return Conditional{}, false
	}
	c := Conditional{Node: n, Condition: n.Child("condition")}
	switch n.Kind {
	case KindIf, KindUnless:
		c.Then = n.Child("consequence")
		c.Else = n.Child("alternative")
	case KindIfModifier, KindUnlessModifier:
		c.Then = n.Child("body")
		c.Modifier = true
	default:
		return Conditional{}, false
	}
	c.Negated = n.Kind == KindUnless || n.Kind == KindUnlessModifier
	if c.Negated {
		c.Keyword = n.Token("unless")
	} else {
		c.Keyword = n.Token("if")
	}
	if c.Condition == nil || c.Keyword == nil {
		return Conditional{}, false
	}
	return c, true
}

// Class is the decomposed form of a class or module body.
type Class struct {
	Node *Node
	Name string
	Body []*Node
}

// AsClass decomposes class, singleton class and module definitions.
func AsClass(n *Node) (Class, bool) {
	if !n.Is(KindClass, KindModule) {
		return Class{}, false
	}
	c := Class{Node: n}
	if name := n.Child("name"); name != nil {
		c.Name = name.Text
	}
	if body := n.Child("body"); body != nil {
		c.Body = Statements(body)
		return c, true
	}
	for _, child := range n.NamedChildren() {
		switch child.Field {
		case "name", "superclass", "value":
			continue
		}
		if child.Kind == KindBody {
			c.Body = child.NamedChildren()
			break
		}
		c.Body = append(c.Body, child)
	}
	return c, true
}

func firstToken(n *Node) *Node {
	for _, c := range n.Children {
		if !c.Named {
			return c
		}
	}
	return nil
}
