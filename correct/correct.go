// Package correct applies the text replacements rules attach to
// violations. Fixes are plain data, so conflict detection works on ranges
// alone.
package correct

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oxhq/rulefx/source"
)

// Replacement swaps the text of one range. An empty range inserts.
type Replacement struct {
	Range source.Range `json:"range"`
	Text  string       `json:"text"`
}

// Replace builds a replacement for r.
func Replace(r source.Range, text string) Replacement {
	return Replacement{Range: r, Text: text}
}

// Insert builds a zero-width replacement at offset.
func Insert(offset int, text string) Replacement {
	return Replacement{Range: source.Range{Start: offset, End: offset}, Text: text}
}

// Remove deletes the text of r.
func Remove(r source.Range) Replacement {
	return Replacement{Range: r}
}

// Fix is the set of replacements resolving one violation. It is accepted
// or dropped as a whole.
type Fix struct {
	Rule         string
	Replacements []Replacement
}

// Start is the offset of the fix's first replacement.
func (f Fix) Start() int {
	start := -1
	for _, rep := range f.Replacements {
		if start < 0 || rep.Range.Start < start {
			start = rep.Range.Start
		}
	}
	return start
}

// Conflict records a fix that was dropped.
type Conflict struct {
	Rule  string       `json:"rule"`
	Range source.Range `json:"range"`
	// With names the rule whose accepted fix claimed the range. It is empty
	// when the fix was invalid on its own.
	With   string `json:"with,omitempty"`
	Reason string `json:"reason"`
}

func (c Conflict) Error() string {
	if c.With != "" {
		return fmt.Sprintf("%s: could not autocorrect %s: overlaps %s", c.Rule, c.Range, c.With)
	}
	return fmt.Sprintf("%s: could not autocorrect %s: %s", c.Rule, c.Range, c.Reason)
}

// Result is the outcome of applying the queued fixes.
type Result struct {
	Text string
	// Applied counts accepted fixes that changed the text.
	Applied int
	// Accepted holds the ids of those fixes, as returned by Add.
	Accepted  []int
	Conflicts []Conflict
	// NoOps counts fixes whose replacements all matched the existing text.
	NoOps int
}

// Changed reports whether the corrected text differs from the original.
func (r Result) Changed(original string) bool {
	return r.Text != original
}

type queued struct {
	id  int
	fix Fix
}

type accepted struct {
	rep  Replacement
	rule string
}

// Corrector collects fixes for one buffer and applies those that do not
// overlap. It is not safe for concurrent use.
type Corrector struct {
	buf   *source.Buffer
	queue []queued
}

// New creates a corrector bound to buf.
func New(buf *source.Buffer) *Corrector {
	return &Corrector{buf: buf}
}

// Add queues a fix and returns its id.
func (c *Corrector) Add(fix Fix) int {
	id := len(c.queue)
	c.queue = append(c.queue, queued{id: id, fix: fix})
	return id
}

// Len returns the number of queued fixes.
func (c *Corrector) Len() int {
	return len(c.queue)
}

// Apply resolves the queued fixes in order of their first replacement,
// keeping queue order on ties. A fix is accepted only when none of its
// replacements overlaps an accepted one; the first accepted fix wins.
func (c *Corrector) Apply() Result {
	order := make([]queued, len(c.queue))
	copy(order, c.queue)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].fix.Start() < order[j].fix.Start()
	})

	var (
		res  Result
		kept []accepted
	)
	for _, q := range order {
		reps, reason := c.effective(q.fix)
		if reason != "" {
			res.Conflicts = append(res.Conflicts, Conflict{
				Rule:   q.fix.Rule,
				Range:  span(q.fix.Replacements),
				Reason: reason,
			})
			continue
		}
		if len(reps) == 0 {
			res.NoOps++
			continue
		}
		if with, ok := overlapping(kept, reps); ok {
			res.Conflicts = append(res.Conflicts, Conflict{
				Rule:   q.fix.Rule,
				Range:  span(reps),
				With:   with,
				Reason: "overlapping correction",
			})
			continue
		}
		for _, rep := range reps {
			kept = append(kept, accepted{rep: rep, rule: q.fix.Rule})
		}
		res.Applied++
		res.Accepted = append(res.Accepted, q.id)
	}

	res.Text = build(c.buf.Text(), kept)
	sort.Ints(res.Accepted)
	return res
}

// effective drops no-op replacements and validates the rest.
func (c *Corrector) effective(fix Fix) ([]Replacement, string) {
	var out []Replacement
	for _, rep := range fix.Replacements {
		if !c.buf.Valid(rep.Range) {
			return nil, fmt.Sprintf("range %s outside source", rep.Range)
		}
		if c.buf.Slice(rep.Range) == rep.Text {
			continue
		}
		for _, prev := range out {
			if prev.Range.Overlaps(rep.Range) {
				return nil, "replacements of one fix overlap"
			}
		}
		out = append(out, rep)
	}
	return out, ""
}

func overlapping(kept []accepted, reps []Replacement) (string, bool) {
	for _, rep := range reps {
		for _, a := range kept {
			if a.rep.Range.Overlaps(rep.Range) {
				return a.rule, true
			}
		}
	}
	return "", false
}

func span(reps []Replacement) source.Range {
	if len(reps) == 0 {
		return source.Range{}
	}
	r := reps[0].Range
	for _, rep := range reps[1:] {
		r.Start = min(r.Start, rep.Range.Start)
		r.End = max(r.End, rep.Range.End)
	}
	return r
}

// build walks the replacements in ascending order into a fresh string.
func build(text string, kept []accepted) string {
	if len(kept) == 0 {
		return text
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].rep.Range.Start != kept[j].rep.Range.Start {
			return kept[i].rep.Range.Start < kept[j].rep.Range.Start
		}
		return kept[i].rep.Range.End < kept[j].rep.Range.End
	})

	var sb strings.Builder
	sb.Grow(len(text))
	pos := 0
	for _, a := range kept {
		sb.WriteString(text[pos:a.rep.Range.Start])
		sb.WriteString(a.rep.Text)
		pos = a.rep.Range.End
	}
	sb.WriteString(text[pos:])
	return sb.String()
}
