package lint

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicateRule is returned when two rules share a name.
var ErrDuplicateRule = errors.New("duplicate rule")

// Registry holds rules in registration order. Dispatch order at a node
// follows this order.
type Registry struct {
	rules  []Rule
	byName map[string]Rule
}

// NewRegistry creates a registry holding rules.
func NewRegistry(rules ...Rule) (*Registry, error) {
	r := &Registry{byName: make(map[string]Rule)}
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends rule.
func (r *Registry) Register(rule Rule) error {
	name := rule.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRule, name)
	}
	r.rules = append(r.rules, rule)
	r.byName[name] = rule
	return nil
}

// Get looks a rule up by name.
func (r *Registry) Get(name string) (Rule, bool) {
	rule, ok := r.byName[name]
	return rule, ok
}

// Rules returns the rules in registration order.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Names returns the rule names sorted alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.rules))
	for _, rule := range r.rules {
		names = append(names, rule.Name())
	}
	sort.Strings(names)
	return names
}
