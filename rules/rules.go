// Package rules assembles the built-in rule set.
package rules

import (
	"github.com/oxhq/rulefx/lint"
	"github.com/oxhq/rulefx/rules/rails"
	"github.com/oxhq/rulefx/rules/style"
)

// All returns a fresh instance of every built-in rule in dispatch order.
func All() []lint.Rule {
	return []lint.Rule{
		style.NewNonNilCheck(),
		rails.NewDelegate(),
	}
}

// Registry returns a registry holding the built-in rules.
func Registry() *lint.Registry {
	reg, err := lint.NewRegistry(All()...)
	if err != nil {
		panic(err)
	}
	return reg
}
