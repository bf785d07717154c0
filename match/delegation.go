package match

import (
	"github.com/oxhq/rulefx/syntax"
)

// Delegation describes a method that only forwards to another object.
type Delegation struct {
	Def      syntax.Def
	Call     syntax.Call
	Receiver string
	Method   string
	// Prefixed is set when the def is named <receiver>_<method>.
	Prefixed bool
}

// TrivialDelegation matches an instance method whose body is a single call
// on a bare local reference, forwarding the method's own parameters
// unchanged. With enforceForPrefixed, a def named <receiver>_<method> also
// matches.
func TrivialDelegation(n *syntax.Node, enforceForPrefixed bool) (Delegation, bool) {
	if !n.Is(syntax.KindDef) {
		return Delegation{}, false
	}
	d, ok := syntax.AsDef(n)
	if !ok || len(d.Body) != 1 {
		return Delegation{}, false
	}
	c, ok := syntax.AsCall(d.Body[0])
	if !ok || c.SafeNav || c.Block != nil || !c.Receiver.Is(syntax.KindIdentifier) {
		return Delegation{}, false
	}

	del := Delegation{Def: d, Call: c, Receiver: c.Receiver.Text, Method: c.Method}
	switch {
	case d.Name == c.Method:
	case enforceForPrefixed && d.Name == del.Receiver+"_"+c.Method:
		del.Prefixed = true
	default:
		return Delegation{}, false
	}

	if !sameArguments(d.Params, c.Args) {
		return Delegation{}, false
	}
	return del, true
}

var forwardable = map[syntax.Kind]syntax.Kind{
	syntax.KindIdentifier:         syntax.KindIdentifier,
	syntax.KindSplatParameter:     syntax.KindSplatArgument,
	syntax.KindHashSplatParameter: syntax.KindHashSplatArgument,
	syntax.KindBlockParameter:     syntax.KindBlockArgument,
}

func sameArguments(params, args []*syntax.Node) bool {
	if len(params) != len(args) {
		return false
	}
	for i, p := range params {
		want, ok := forwardable[p.Kind]
		if !ok || args[i].Kind != want {
			return false
		}
		name, ok := argumentName(args[i])
		if !ok || name != parameterName(p) {
			return false
		}
	}
	return true
}

func parameterName(n *syntax.Node) string {
	if n.Kind == syntax.KindIdentifier {
		return n.Text
	}
	if name := n.Child("name"); name != nil {
		return name.Text
	}
	for _, c := range n.NamedChildren() {
		if c.Kind == syntax.KindIdentifier {
			return c.Text
		}
	}
	return ""
}

// argumentName returns the forwarded local of an argument. Anonymous
// forwarding (`*`, `**`, `&`) yields "".
func argumentName(n *syntax.Node) (string, bool) {
	if n.Kind == syntax.KindIdentifier {
		return n.Text, true
	}
	named := n.NamedChildren()
	switch {
	case len(named) == 0:
		return "", true
	case len(named) == 1 && named[0].Kind == syntax.KindIdentifier:
		return named[0].Text, true
	}
	return "", false
}
