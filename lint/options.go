package lint

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// OptionType is the value type an option accepts.
type OptionType string

const (
	OptionBool   OptionType = "bool"
	OptionString OptionType = "string"
	OptionInt    OptionType = "int"
)

// OptionSpec declares one configurable option of a rule.
type OptionSpec struct {
	Name        string
	Type        OptionType
	Default     any
	Description string
	// Values restricts a string option to an enumeration.
	Values []string
}

// ConfigurationError reports a configuration value that cannot be used.
// It is raised while loading, before any file is analyzed.
type ConfigurationError struct {
	Rule   string
	Option string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Option == "" {
		return fmt.Sprintf("configuration error for %s: %v", e.Rule, e.Err)
	}
	return fmt.Sprintf("configuration error for %s: option %s: %v", e.Rule, e.Option, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Options is the immutable option set of one rule for one run.
type Options struct {
	values map[string]any
}

// Defaults returns the declared defaults of specs.
func Defaults(specs []OptionSpec) Options {
	values := make(map[string]any, len(specs))
	for _, s := range specs {
		values[s.Name] = s.Default
	}
	return Options{values: values}
}

// NewOptions validates raw against specs. Absent options take their
// defaults; unknown names are returned as warnings; wrong types and enum
// values fail with a ConfigurationError.
func NewOptions(rule string, specs []OptionSpec, raw map[string]any) (Options, []string, error) {
	opts := Defaults(specs)
	byName := make(map[string]OptionSpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var warnings []string
	for _, name := range keys {
		spec, ok := byName[name]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s: unknown option %s", rule, name))
			continue
		}
		value, err := coerce(spec, raw[name])
		if err != nil {
			return Options{}, warnings, &ConfigurationError{Rule: rule, Option: name, Err: err}
		}
		opts.values[name] = value
	}
	return opts, warnings, nil
}

func coerce(spec OptionSpec, v any) (any, error) {
	switch spec.Type {
	case OptionBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", v)
		}
		return b, nil
	case OptionInt:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case uint64:
			return int(n), nil
		case float64:
			if n != float64(int(n)) {
				return nil, fmt.Errorf("expected integer, got %v", n)
			}
			return int(n), nil
		}
		return nil, fmt.Errorf("expected int, got %T", v)
	case OptionString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		if len(spec.Values) > 0 && !slices.Contains(spec.Values, s) {
			return nil, fmt.Errorf("unsupported value %q (allowed: %s)", s, strings.Join(spec.Values, ", "))
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported option type %q", spec.Type)
}

// Bool returns a bool option, or false when undeclared.
func (o Options) Bool(name string) bool {
	b, _ := o.values[name].(bool)
	return b
}

// String returns a string option, or "" when undeclared.
func (o Options) String(name string) string {
	s, _ := o.values[name].(string)
	return s
}

// Int returns an int option, or 0 when undeclared.
func (o Options) Int(name string) int {
	n, _ := o.values[name].(int)
	return n
}

// Map returns a copy of the resolved values.
func (o Options) Map() map[string]any {
	out := make(map[string]any, len(o.values))
	for k, v := range o.values {
		out[k] = v
	}
	return out
}
