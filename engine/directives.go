package engine

import (
	"math"
	"strings"

	"github.com/oxhq/rulefx/syntax"
)

const (
	disablePrefix = "rulefx:disable"
	enablePrefix  = "rulefx:enable"
	allRules      = "all"
)

type region struct {
	rule       string
	start, end int
}

// directives holds the lines on which rules are switched off by comments.
//
//	x != nil # rulefx:disable Style/NonNilCheck
//
// suppresses that line only, while a comment on its own line suppresses
// until a matching `# rulefx:enable` or the end of the file.
type directives struct {
	lines   map[int]map[string]struct{}
	regions []region
}

func parseDirectives(tree *syntax.Tree) *directives {
	d := &directives{lines: make(map[int]map[string]struct{})}
	open := make(map[string]int)

	syntax.Walk(tree.Root, func(n *syntax.Node) bool {
		if n.Kind != syntax.KindComment {
			return true
		}
		text := strings.TrimSpace(strings.TrimPrefix(tree.Source(n), "#"))
		line := tree.Buffer.LineOf(n.Range.Start)

		switch {
		case strings.HasPrefix(text, disablePrefix):
			rules := parseRuleNames(strings.TrimPrefix(text, disablePrefix))
			if trailing(tree, n) {
				set := d.lines[line]
				if set == nil {
					set = make(map[string]struct{})
					d.lines[line] = set
				}
				for _, r := range rules {
					set[r] = struct{}{}
				}
				return false
			}
			for _, r := range rules {
				if _, already := open[r]; !already {
					open[r] = line
				}
			}
		case strings.HasPrefix(text, enablePrefix):
			rules := parseRuleNames(strings.TrimPrefix(text, enablePrefix))
			for _, r := range rules {
				if r == allRules {
					for name, start := range open {
						d.regions = append(d.regions, region{rule: name, start: start, end: line})
						delete(open, name)
					}
					continue
				}
				if start, ok := open[r]; ok {
					d.regions = append(d.regions, region{rule: r, start: start, end: line})
					delete(open, r)
				}
			}
		}
		return false
	})

	for name, start := range open {
		d.regions = append(d.regions, region{rule: name, start: start, end: math.MaxInt})
	}
	return d
}

// parseRuleNames splits a comma separated rule list. An empty list means
// every rule.
func parseRuleNames(text string) []string {
	var rules []string
	for _, part := range strings.Split(text, ",") {
		if name := strings.TrimSpace(part); name != "" {
			rules = append(rules, name)
		}
	}
	if len(rules) == 0 {
		return []string{allRules}
	}
	return rules
}

func trailing(tree *syntax.Tree, comment *syntax.Node) bool {
	before := tree.Buffer.Text()[:comment.Range.Start]
	if i := strings.LastIndexByte(before, '\n'); i >= 0 {
		before = before[i+1:]
	}
	return strings.TrimSpace(before) != ""
}

func (d *directives) disabled(rule string, line int) bool {
	if set, ok := d.lines[line]; ok {
		if _, hit := set[rule]; hit {
			return true
		}
		if _, hit := set[allRules]; hit {
			return true
		}
	}
	for _, r := range d.regions {
		if (r.rule == rule || r.rule == allRules) && line >= r.start && line <= r.end {
			return true
		}
	}
	return false
}
