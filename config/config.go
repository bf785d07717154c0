// Package config loads .rulefx.yml: global settings under AllCops and one
// section per rule.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/oxhq/rulefx/lint"
)

// FileName is the configuration file looked up in the working directory.
const FileName = ".rulefx.yml"

// DefaultMaxPasses caps the autocorrect loop when AllCops.MaxPasses is unset.
const DefaultMaxPasses = 8

// ErrUnknownRule is wrapped by the ConfigurationError raised for a section
// naming no registered rule.
var ErrUnknownRule = errors.New("unknown rule")

// AllCops holds the settings shared by every rule.
type AllCops struct {
	Exclude   []string `yaml:"Exclude,omitempty"`
	MaxPasses int      `yaml:"MaxPasses,omitempty"`
}

// RuleConfig is the resolved configuration of one rule.
type RuleConfig struct {
	Enabled bool
	Exclude []string
	Options lint.Options
}

// Config is a validated configuration. It is immutable once loaded.
type Config struct {
	// Path is the file the configuration was read from, if any.
	Path string
	// BaseDir anchors relative Exclude patterns.
	BaseDir string
	AllCops AllCops
	// Warnings collects non-fatal problems such as unknown option names.
	Warnings []string

	rules map[string]RuleConfig
}

// Default returns the configuration with every rule enabled at its
// defaults.
func Default(reg *lint.Registry) *Config {
	cfg := &Config{
		AllCops: AllCops{MaxPasses: DefaultMaxPasses},
		rules:   make(map[string]RuleConfig),
	}
	for _, rule := range reg.Rules() {
		cfg.rules[rule.Name()] = RuleConfig{Enabled: true, Options: lint.Defaults(rule.Options())}
	}
	return cfg
}

// Discover returns the configuration file in dir, if present.
func Discover(dir string) (string, bool) {
	path := filepath.Join(dir, FileName)
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path, true
	}
	return "", false
}

// Load reads and validates the configuration at path.
func Load(path string, reg *lint.Registry) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data, reg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	cfg.BaseDir = filepath.Dir(path)
	return cfg, nil
}

// Parse validates YAML configuration data against the rules in reg.
func Parse(data []byte, reg *lint.Registry) (*Config, error) {
	var raw map[string]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default(reg)
	if all, ok := raw["AllCops"]; ok {
		if err := cfg.applyAllCops(all); err != nil {
			return nil, err
		}
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		if name != "AllCops" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		rule, ok := reg.Get(name)
		if !ok {
			return nil, &lint.ConfigurationError{Rule: name, Err: ErrUnknownRule}
		}
		rc, warnings, err := resolveRule(rule, raw[name])
		if err != nil {
			return nil, err
		}
		cfg.Warnings = append(cfg.Warnings, warnings...)
		cfg.rules[name] = rc
	}
	return cfg, nil
}

func (c *Config) applyAllCops(section map[string]any) error {
	for key, value := range section {
		switch key {
		case "Exclude":
			patterns, err := stringList(value)
			if err != nil {
				return &lint.ConfigurationError{Rule: "AllCops", Option: key, Err: err}
			}
			c.AllCops.Exclude = patterns
		case "MaxPasses":
			n, ok := value.(int)
			if !ok || n < 1 {
				return &lint.ConfigurationError{Rule: "AllCops", Option: key, Err: fmt.Errorf("expected positive int, got %v", value)}
			}
			c.AllCops.MaxPasses = n
		default:
			c.Warnings = append(c.Warnings, fmt.Sprintf("AllCops: unknown option %s", key))
		}
	}
	return nil
}

func resolveRule(rule lint.Rule, section map[string]any) (RuleConfig, []string, error) {
	rc := RuleConfig{Enabled: true}
	options := make(map[string]any, len(section))
	for key, value := range section {
		switch key {
		case "Enabled":
			enabled, ok := value.(bool)
			if !ok {
				return rc, nil, &lint.ConfigurationError{Rule: rule.Name(), Option: key, Err: fmt.Errorf("expected bool, got %T", value)}
			}
			rc.Enabled = enabled
		case "Exclude":
			patterns, err := stringList(value)
			if err != nil {
				return rc, nil, &lint.ConfigurationError{Rule: rule.Name(), Option: key, Err: err}
			}
			rc.Exclude = patterns
		default:
			options[key] = value
		}
	}

	opts, warnings, err := lint.NewOptions(rule.Name(), rule.Options(), options)
	if err != nil {
		return rc, warnings, err
	}
	rc.Options = opts
	return rc, warnings, nil
}

func stringList(value any) ([]string, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("expected list of glob patterns, got %T", value)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected string pattern, got %T", item)
		}
		if !doublestar.ValidatePattern(s) {
			return nil, fmt.Errorf("invalid glob pattern %q", s)
		}
		out = append(out, s)
	}
	return out, nil
}

// Rule returns the configuration of name. Unknown rules are disabled.
func (c *Config) Rule(name string) RuleConfig {
	return c.rules[name]
}

// Enabled reports whether the rule runs at all.
func (c *Config) Enabled(name string) bool {
	return c.rules[name].Enabled
}

// MaxPasses returns the autocorrect pass cap.
func (c *Config) MaxPasses() int {
	if c.AllCops.MaxPasses < 1 {
		return DefaultMaxPasses
	}
	return c.AllCops.MaxPasses
}

// FileExcluded reports whether AllCops.Exclude matches path.
func (c *Config) FileExcluded(path string) bool {
	return c.matches(c.AllCops.Exclude, path)
}

// RuleExcluded reports whether the rule's Exclude matches path.
func (c *Config) RuleExcluded(name, path string) bool {
	return c.matches(c.rules[name].Exclude, path)
}

func (c *Config) matches(patterns []string, path string) bool {
	if len(patterns) == 0 {
		return false
	}
	candidates := []string{filepath.ToSlash(path)}
	if c.BaseDir != "" {
		if rel, err := filepath.Rel(c.BaseDir, path); err == nil && !strings.HasPrefix(rel, "..") {
			candidates = append(candidates, filepath.ToSlash(rel))
		}
	}
	for _, pattern := range patterns {
		for _, candidate := range candidates {
			if ok, _ := doublestar.Match(pattern, candidate); ok {
				return true
			}
		}
	}
	return false
}

// Marshal renders cfg in the file format, listing every rule with its
// resolved options.
func Marshal(cfg *Config, reg *lint.Registry) ([]byte, error) {
	doc := make(map[string]any)
	doc["AllCops"] = cfg.AllCops
	for _, rule := range reg.Rules() {
		rc := cfg.Rule(rule.Name())
		section := map[string]any{"Enabled": rc.Enabled}
		if len(rc.Exclude) > 0 {
			section["Exclude"] = rc.Exclude
		}
		for k, v := range rc.Options.Map() {
			section[k] = v
		}
		doc[rule.Name()] = section
	}
	return yaml.Marshal(doc)
}
