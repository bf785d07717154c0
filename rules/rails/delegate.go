// Package rails holds rules for Rails idioms.
package rails

import (
	"fmt"

	"github.com/oxhq/rulefx/correct"
	"github.com/oxhq/rulefx/lint"
	"github.com/oxhq/rulefx/match"
	"github.com/oxhq/rulefx/source"
	"github.com/oxhq/rulefx/syntax"
)

const (
	DelegateName = "Rails/Delegate"

	optEnforceForPrefixed = "EnforceForPrefixed"

	msgDelegate = "Use `delegate` to define delegations."
)

// Delegate looks for methods that only forward to an object and suggests
// the `delegate` macro instead. Non-public methods are left alone because
// `delegate` defines public methods.
type Delegate struct {
	lint.BaseRule
}

// NewDelegate creates the rule.
func NewDelegate() *Delegate {
	return &Delegate{lint.BaseRule{
		RuleName:  DelegateName,
		Desc:      "Prefer `delegate` over hand-written forwarding methods.",
		NodeKinds: []syntax.Kind{syntax.KindDef},
		OptionSpecs: []lint.OptionSpec{{
			Name:        optEnforceForPrefixed,
			Type:        lint.OptionBool,
			Default:     true,
			Description: "Also flag methods named <receiver>_<method>, correcting them with `prefix: true`.",
		}},
	}}
}

var isComment = match.KindIs(syntax.KindComment)

func (r *Delegate) Check(ctx *lint.Context, n *syntax.Node) []lint.Violation {
	del, ok := match.TrivialDelegation(n, ctx.Options.Bool(optEnforceForPrefixed))
	if !ok {
		return nil
	}
	if ctx.Visibility().IsPrivateOrProtected(ctx.Buffer(), n) {
		return nil
	}

	anchor := source.Range{Start: n.Range.Start, End: min(n.Range.Start+len("def"), n.Range.End)}
	if del.Def.Keyword != nil {
		anchor = del.Def.Keyword.Range
	}

	replacement := fmt.Sprintf("delegate :%s, to: :%s", del.Method, del.Receiver)
	if del.Prefixed {
		replacement += ", prefix: true"
	}
	// Replacing the def would drop comments written inside it.
	if len(syntax.Find(n, isComment)) > 0 {
		return []lint.Violation{ctx.Violation(anchor, msgDelegate)}
	}
	return []lint.Violation{ctx.Violation(anchor, msgDelegate, correct.Replace(n.Range, replacement))}
}
