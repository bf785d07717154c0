// Package style holds rules about stylistic choices in Ruby code.
package style

import (
	"strings"
	"unicode"

	"github.com/oxhq/rulefx/correct"
	"github.com/oxhq/rulefx/lint"
	"github.com/oxhq/rulefx/match"
	"github.com/oxhq/rulefx/syntax"
)

const (
	NonNilCheckName = "Style/NonNilCheck"

	optIncludeSemanticChanges = "IncludeSemanticChanges"

	msgForReplacement = "Prefer `!expression.nil?` over `expression != nil`."
	msgForRedundancy  = "Explicit non-nil checks are usually redundant."
)

// NonNilCheck flags explicit non-nil checks.
//
// By default it only prefers `!x.nil?` over `x != nil`. With
// IncludeSemanticChanges it treats every explicit check as redundant and
// rewrites it to a plain truthiness test, which changes behavior when x
// can be false.
type NonNilCheck struct {
	lint.BaseRule
}

// NewNonNilCheck creates the rule.
func NewNonNilCheck() *NonNilCheck {
	return &NonNilCheck{lint.BaseRule{
		RuleName: NonNilCheckName,
		Desc:     "Checks for explicit non-nil checks.",
		NodeKinds: []syntax.Kind{
			syntax.KindBinary,
			syntax.KindUnary,
			syntax.KindUnless,
			syntax.KindUnlessModifier,
		},
		OptionSpecs: []lint.OptionSpec{{
			Name:        optIncludeSemanticChanges,
			Type:        lint.OptionBool,
			Default:     false,
			Description: "Also flag `!x.nil?` and `unless x.nil?`, correcting them to truthiness checks.",
		}},
	}}
}

var (
	isUnless = match.KindIs(syntax.KindUnless, syntax.KindUnlessModifier)

	// Checks that are the return value of a `?` method are left alone.
	isFlaggable = match.And(match.IsPredicateQuery, match.Not(match.IsLastStatementOfPredicateMethod))

	// Operands that take `!` and `.nil?` without parentheses.
	isBareOperand = match.Or(
		match.KindIs(
			syntax.KindIdentifier,
			syntax.KindInstanceVariable,
			syntax.KindConstant,
			syntax.KindSelf,
			syntax.KindLiteral,
			syntax.KindParenthesized,
		),
		match.And(match.KindIs(syntax.KindCall), match.Not(usesSafeNavigation)),
	)
)

func (r *NonNilCheck) Check(ctx *lint.Context, n *syntax.Node) []lint.Violation {
	semantic := ctx.Options.Bool(optIncludeSemanticChanges)

	switch {
	case isUnless(n):
		if semantic {
			return r.checkUnless(ctx, n)
		}
	case !isFlaggable(n):
	case match.IsInequality(n):
		return r.checkComparison(ctx, n, semantic)
	case semantic:
		return r.checkNegatedQuery(ctx, n)
	}
	return nil
}

func (r *NonNilCheck) checkComparison(ctx *lint.Context, n *syntax.Node, semantic bool) []lint.Violation {
	operand, ok := match.NilComparison(n)
	if !ok {
		return nil
	}
	if semantic {
		return []lint.Violation{ctx.Violation(n.Range, msgForRedundancy,
			correct.Replace(n.Range, ctx.Source(operand)))}
	}

	b, _ := syntax.AsBinary(n)
	v := ctx.Violation(b.Operator.Range, msgForReplacement)
	if expr, ok := nilQueryOperand(operand, ctx.Source(operand)); ok {
		v.Fix = []correct.Replacement{correct.Replace(n.Range, "!"+expr+".nil?")}
	}
	return []lint.Violation{v}
}

// nilQueryOperand returns expr in a form that can take a `.nil?` suffix
// and a `!` prefix without changing how it parses or what it evaluates to.
// A safe navigation chain is parenthesized, since `a&.b.nil?` skips the
// query when a is nil.
func nilQueryOperand(operand *syntax.Node, expr string) (string, bool) {
	switch {
	case strings.IndexFunc(expr, unicode.IsSpace) >= 0:
		return "", false
	case isBareOperand(operand):
		return expr, true
	case usesSafeNavigation(operand):
		return "(" + expr + ")", true
	}
	return "", false
}

// usesSafeNavigation reports whether n or any receiver along its call chain
// is called with `&.`.
func usesSafeNavigation(n *syntax.Node) bool {
	for n != nil {
		c, ok := syntax.AsCall(n)
		if !ok {
			return false
		}
		if c.SafeNav {
			return true
		}
		n = c.Receiver
	}
	return false
}

func (r *NonNilCheck) checkNegatedQuery(ctx *lint.Context, n *syntax.Node) []lint.Violation {
	_, query, ok := match.NegatedNilQuery(n)
	if !ok {
		return nil
	}
	return []lint.Violation{ctx.Violation(n.Range, msgForRedundancy,
		correct.Replace(n.Range, receiverSource(ctx, query)))}
}

func (r *NonNilCheck) checkUnless(ctx *lint.Context, n *syntax.Node) []lint.Violation {
	cond, ok := syntax.AsConditional(n)
	if !ok {
		return nil
	}
	query, ok := match.NilQuery(cond.Condition)
	if !ok || match.IsLastStatementOfPredicateMethod(cond.Condition) {
		return nil
	}
	return []lint.Violation{ctx.Violation(cond.Condition.Range, msgForRedundancy,
		correct.Replace(cond.Keyword.Range, "if"),
		correct.Replace(cond.Condition.Range, receiverSource(ctx, query)),
	)}
}

// receiverSource is the explicit receiver of a query, or self when the
// receiver is implicit.
func receiverSource(ctx *lint.Context, query syntax.Call) string {
	if query.Receiver == nil {
		return "self"
	}
	return ctx.Source(query.Receiver)
}
