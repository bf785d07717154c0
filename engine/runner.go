// Package engine walks syntax trees, dispatches nodes to rules and drives
// the autocorrect loop.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/oxhq/rulefx/config"
	"github.com/oxhq/rulefx/correct"
	"github.com/oxhq/rulefx/lint"
	"github.com/oxhq/rulefx/source"
	"github.com/oxhq/rulefx/syntax"
)

// Parser produces the tree for a buffer. Language providers implement it.
type Parser interface {
	Parse(ctx context.Context, buf *source.Buffer) (*syntax.Tree, error)
}

// Runner applies a rule set to files. It is safe for concurrent use; each
// call works on its own buffer and tree.
type Runner struct {
	registry  *lint.Registry
	parser    Parser
	cfg       *config.Config
	logger    *zap.Logger
	maxPasses int
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithConfig sets the rule configuration. The default enables every rule
// with its default options.
func WithConfig(cfg *config.Config) Option {
	return func(r *Runner) {
		if cfg != nil {
			r.cfg = cfg
		}
	}
}

// WithMaxPasses overrides the autocorrect pass cap from the configuration.
func WithMaxPasses(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxPasses = n
		}
	}
}

// New creates a runner for the rules in registry.
func New(registry *lint.Registry, parser Parser, opts ...Option) *Runner {
	r := &Runner{
		registry: registry,
		parser:   parser,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cfg == nil {
		r.cfg = config.Default(registry)
	}
	if r.maxPasses == 0 {
		r.maxPasses = r.cfg.MaxPasses()
	}
	return r
}

// Config returns the configuration the runner uses.
func (r *Runner) Config() *config.Config {
	return r.cfg
}

// pass is the outcome of inspecting one version of a file.
type pass struct {
	tree        *syntax.Tree
	violations  []lint.Violation
	diagnostics []ToolDiagnostic
}

type activeRule struct {
	rule lint.Rule
	ctx  *lint.Context
}

// Inspect reports the offenses in buf without changing it.
func (r *Runner) Inspect(ctx context.Context, buf *source.Buffer) (*Report, error) {
	started := time.Now()
	p, err := r.inspect(ctx, buf)
	if err != nil {
		return nil, err
	}

	report := &Report{
		File:        buf.Name(),
		Offenses:    offenses(buf, p.violations, nil),
		Diagnostics: p.diagnostics,
		Passes:      1,
		Original:    buf.Text(),
		Corrected:   buf.Text(),
	}
	report.resolveStatus(0)
	r.logger.Debug("inspected file",
		zap.String("file", buf.Name()),
		zap.Int("offenses", len(report.Offenses)),
		zap.Duration("elapsed", time.Since(started)))
	return report, nil
}

// Autocorrect inspects buf and applies fixes, reparsing after every pass
// until a pass changes nothing, a text repeats or the pass cap is reached.
func (r *Runner) Autocorrect(ctx context.Context, buf *source.Buffer) (*Report, error) {
	started := time.Now()
	report := &Report{
		File:        buf.Name(),
		Autocorrect: true,
		Original:    buf.Text(),
	}

	seen := map[string]bool{buf.Digest(): true}
	diags := make(map[string]bool)
	addDiagnostics := func(ds []ToolDiagnostic) {
		for _, d := range ds {
			key := d.String()
			if !diags[key] {
				diags[key] = true
				report.Diagnostics = append(report.Diagnostics, d)
			}
		}
	}

	current := buf
	var (
		last    pass
		pending int
		stable  bool
	)
	for report.Passes < r.maxPasses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := r.inspect(ctx, current)
		if err != nil {
			if report.Passes == 0 {
				return nil, err
			}
			r.logger.Warn("reparse failed, keeping previous text", zap.String("file", buf.Name()), zap.Error(err))
			addDiagnostics([]ToolDiagnostic{{Message: fmt.Sprintf("reparse failed: %v", err)}})
			stable = true
			break
		}
		report.Passes++
		last = p
		addDiagnostics(p.diagnostics)

		corrector := correct.New(current)
		ids := make([]int, len(p.violations))
		for i, v := range p.violations {
			ids[i] = -1
			if v.Correctable() {
				ids[i] = corrector.Add(correct.Fix{Rule: v.Rule, Replacements: v.Fix})
			}
		}
		res := corrector.Apply()
		pending = len(res.Conflicts)
		report.Conflicts = append(report.Conflicts, res.Conflicts...)
		for _, c := range res.Conflicts {
			r.logger.Warn("dropped fix", zap.String("file", buf.Name()), zap.String("rule", c.Rule), zap.String("reason", c.Reason))
		}

		if report.Passes == 1 {
			report.Offenses = offenses(current, p.violations, acceptedSet(ids, res.Accepted))
		}
		if !res.Changed(current.Text()) {
			stable = true
			break
		}

		next := source.NewBuffer(buf.Name(), res.Text)
		if broken, err := r.breaksSyntax(ctx, p.tree, next); broken {
			r.logger.Warn("correction produced invalid syntax, reverting pass", zap.String("file", buf.Name()), zap.Error(err))
			addDiagnostics([]ToolDiagnostic{{Message: "correction produced invalid syntax; pass reverted"}})
			if report.Passes == 1 {
				report.Offenses = offenses(current, p.violations, nil)
			}
			pending++
			stable = true
			break
		}

		report.Corrections += res.Applied
		current = next
		if seen[next.Digest()] {
			report.LoopDetected = true
			r.logger.Warn("correction loop detected", zap.String("file", buf.Name()), zap.Int("passes", report.Passes))
			break
		}
		seen[next.Digest()] = true
	}

	if !stable {
		if p, err := r.inspect(ctx, current); err == nil {
			last = p
			if !report.LoopDetected && pendingChange(current, p) {
				report.LoopDetected = true
				r.logger.Warn("pass cap reached", zap.String("file", buf.Name()), zap.Int("max_passes", r.maxPasses))
			}
		}
	}

	report.Corrected = current.Text()
	if last.tree != nil && last.tree.Buffer.Text() == current.Text() {
		report.Remaining = offenses(current, last.violations, nil)
	}
	report.resolveStatus(pending)

	r.logger.Debug("autocorrected file",
		zap.String("file", buf.Name()),
		zap.String("status", string(report.Status)),
		zap.Int("corrections", report.Corrections),
		zap.Int("passes", report.Passes),
		zap.Duration("elapsed", time.Since(started)))
	return report, nil
}

// breaksSyntax reports whether next parses with more errors than the tree
// it was corrected from.
func (r *Runner) breaksSyntax(ctx context.Context, prev *syntax.Tree, next *source.Buffer) (bool, error) {
	tree, err := r.parser.Parse(ctx, next)
	if err != nil {
		return true, err
	}
	return tree.Errors > prev.Errors, nil
}

func (r *Runner) inspect(ctx context.Context, buf *source.Buffer) (pass, error) {
	tree, err := r.parser.Parse(ctx, buf)
	if err != nil {
		r.logger.Warn("parse failed", zap.String("file", buf.Name()), zap.Error(err))
		return pass{}, err
	}

	file := lint.NewFile(tree)
	dispatch := r.dispatchTable(file)
	dirs := parseDirectives(tree)

	p := pass{tree: tree}
	syntax.Walk(tree.Root, func(n *syntax.Node) bool {
		for _, ar := range dispatch[n.Kind] {
			vs, diag := r.check(ar, n)
			if diag != nil {
				p.diagnostics = append(p.diagnostics, *diag)
				continue
			}
			for _, v := range vs {
				if dirs.disabled(v.Rule, buf.LineOf(v.Range.Start)) {
					continue
				}
				p.violations = append(p.violations, v)
			}
		}
		return true
	})
	return p, nil
}

// dispatchTable groups the rules active for this file by node kind,
// keeping registration order within each kind.
func (r *Runner) dispatchTable(file *lint.File) map[syntax.Kind][]activeRule {
	table := make(map[syntax.Kind][]activeRule)
	path := file.Buffer().Name()
	for _, rule := range r.registry.Rules() {
		name := rule.Name()
		if !r.cfg.Enabled(name) || r.cfg.RuleExcluded(name, path) {
			continue
		}
		ar := activeRule{
			rule: rule,
			ctx:  &lint.Context{File: file, Rule: name, Options: r.cfg.Rule(name).Options},
		}
		for _, kind := range rule.Kinds() {
			table[kind] = append(table[kind], ar)
		}
	}
	return table
}

// check runs one rule on one node, turning a panic into a diagnostic.
func (r *Runner) check(ar activeRule, n *syntax.Node) (vs []lint.Violation, diag *ToolDiagnostic) {
	defer func() {
		if rec := recover(); rec != nil {
			vs = nil
			diag = &ToolDiagnostic{
				Rule:    ar.rule.Name(),
				Range:   n.Range,
				Message: fmt.Sprintf("rule failed on %s node: %v", n.Kind, rec),
			}
			r.logger.Warn("rule panicked",
				zap.String("rule", ar.rule.Name()),
				zap.String("file", ar.ctx.Buffer().Name()),
				zap.Int("offset", n.Range.Start),
				zap.Any("panic", rec))
		}
	}()
	vs = ar.rule.Check(ar.ctx, n)
	for i := range vs {
		if vs[i].Rule == "" {
			vs[i].Rule = ar.rule.Name()
		}
	}
	return vs, nil
}

// pendingChange reports whether another pass would still change buf.
func pendingChange(buf *source.Buffer, p pass) bool {
	corrector := correct.New(buf)
	for _, v := range p.violations {
		if v.Correctable() {
			corrector.Add(correct.Fix{Rule: v.Rule, Replacements: v.Fix})
		}
	}
	return corrector.Apply().Changed(buf.Text())
}

func acceptedSet(ids, accepted []int) map[int]bool {
	acc := make(map[int]bool, len(accepted))
	for _, id := range accepted {
		acc[id] = true
	}
	out := make(map[int]bool)
	for i, id := range ids {
		if id >= 0 && acc[id] {
			out[i] = true
		}
	}
	return out
}

func offenses(buf *source.Buffer, vs []lint.Violation, corrected map[int]bool) []lint.Offense {
	out := make([]lint.Offense, 0, len(vs))
	for i, v := range vs {
		o := lint.NewOffense(buf, v)
		o.Corrected = corrected[i]
		out = append(out, o)
	}
	return out
}
