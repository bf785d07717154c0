package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oxhq/rulefx/config"
	"github.com/oxhq/rulefx/engine"
	"github.com/oxhq/rulefx/lint"
	"github.com/oxhq/rulefx/providers"
	"github.com/oxhq/rulefx/providers/catalog"
	"github.com/oxhq/rulefx/source"
)

// DefaultTransactionDir is where correcting runs keep their journal,
// relative to the scanned root.
const DefaultTransactionDir = ".rulefx/transactions"

// Processor runs the rule engine over a tree of files.
type Processor struct {
	walker    *FileWalker
	providers *providers.Registry
	rules     *lint.Registry
	cfg       *config.Config
	logger    *zap.Logger
	workers   int
	atomic    AtomicWriteConfig
	txDir     string
	progress  func(FileResult)

	runnersMu sync.Mutex
	runners   map[string]*engine.Runner
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithWorkers bounds the number of files analyzed at once.
func WithWorkers(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithProcessorLogger sets the logger shared with every runner.
func WithProcessorLogger(logger *zap.Logger) ProcessorOption {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithProcessorConfig sets the configuration shared with every runner.
func WithProcessorConfig(cfg *config.Config) ProcessorOption {
	return func(p *Processor) {
		if cfg != nil {
			p.cfg = cfg
		}
	}
}

// WithAtomicConfig overrides how corrected files are written.
func WithAtomicConfig(c AtomicWriteConfig) ProcessorOption {
	return func(p *Processor) {
		p.atomic = c
	}
}

// WithTransactionDir overrides where the write journal is kept.
func WithTransactionDir(dir string) ProcessorOption {
	return func(p *Processor) {
		p.txDir = dir
	}
}

// WithProgress registers a callback invoked once per finished file. It
// may be called from several goroutines.
func WithProgress(fn func(FileResult)) ProcessorOption {
	return func(p *Processor) {
		p.progress = fn
	}
}

// NewProcessor creates a processor over the given parsers and rules.
func NewProcessor(provs *providers.Registry, rules *lint.Registry, opts ...ProcessorOption) *Processor {
	p := &Processor{
		walker:    NewFileWalker(),
		providers: provs,
		rules:     rules,
		logger:    zap.NewNop(),
		workers:   8,
		atomic:    DefaultAtomicConfig(),
		runners:   make(map[string]*engine.Runner),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cfg == nil {
		p.cfg = config.Default(rules)
	}
	return p
}

// runner returns the engine for a language, creating it on first use.
func (p *Processor) runner(language string) (*engine.Runner, bool) {
	p.runnersMu.Lock()
	defer p.runnersMu.Unlock()
	if r, ok := p.runners[language]; ok {
		return r, true
	}
	prov, ok := p.providers.Get(language)
	if !ok {
		return nil, false
	}
	r := engine.New(p.rules, prov, engine.WithConfig(p.cfg), engine.WithLogger(p.logger))
	p.runners[language] = r
	return r, true
}

// Check analyzes every file in scope. In autocorrect mode, unless DryRun
// is set, corrected files are written inside one transaction: if any write
// fails every file already written is restored.
func (p *Processor) Check(ctx context.Context, scope FileScope, mode Mode) (*Result, error) {
	start := time.Now()

	root, files, err := p.discover(ctx, scope)
	if err != nil {
		return nil, err
	}
	files = p.filter(root, files)
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	result := &Result{FilesScanned: len(files), ScanDuration: time.Since(start).Milliseconds()}
	checkStart := time.Now()

	write := mode.Autocorrect && !mode.DryRun
	var tm *TransactionManager
	if write {
		txDir := p.txDir
		if txDir == "" {
			txDir = filepath.Join(root, DefaultTransactionDir)
		}
		atomic := p.atomic
		atomic.Backup = atomic.Backup || mode.Backup
		tm = NewTransactionManager(txDir, NewAtomicWriter(atomic))
		tx, err := tm.Begin(fmt.Sprintf("rulefx autocorrect %s", scope.Path))
		if err != nil {
			return nil, fmt.Errorf("begin transaction: %w", err)
		}
		result.TransactionID = tx.ID
	}

	details := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, wr := range files {
		i, wr := i, wr
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			detail, err := p.checkFile(gctx, wr, mode, tm)
			details[i] = detail
			if p.progress != nil {
				p.progress(detail)
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		if tm != nil {
			if rbErr := tm.Rollback(); rbErr != nil {
				p.logger.Error("rollback failed", zap.String("transaction", result.TransactionID), zap.Error(rbErr))
				return nil, errors.Join(err, rbErr)
			}
			p.logger.Warn("run rolled back", zap.String("transaction", result.TransactionID), zap.Error(err))
		}
		return nil, err
	}
	if tm != nil {
		if err := tm.Commit(); err != nil {
			return nil, fmt.Errorf("commit transaction: %w", err)
		}
	}

	for _, d := range details {
		result.add(d)
	}
	result.CheckDuration = time.Since(checkStart).Milliseconds()
	p.logger.Debug("check finished",
		zap.Int("files", result.FilesScanned),
		zap.Int("offenses", result.Offenses),
		zap.Int("corrections", result.Corrections),
		zap.Int64("elapsed_ms", result.ScanDuration+result.CheckDuration))
	return result, nil
}

// discover lists the files in scope along with the directory their
// relative paths are taken from. A scope naming a single file yields that
// file alone.
func (p *Processor) discover(ctx context.Context, scope FileScope) (string, []WalkResult, error) {
	info, err := os.Stat(scope.Path)
	if err != nil {
		return "", nil, fmt.Errorf("walk %s: %w", scope.Path, err)
	}
	if info.IsDir() {
		files, err := p.walker.Files(ctx, scope)
		if err != nil {
			return "", nil, fmt.Errorf("walk %s: %w", scope.Path, err)
		}
		return scope.Path, files, nil
	}

	language := scope.Language
	if language == "" {
		lang, ok := catalog.LookupByPath(scope.Path)
		if !ok {
			return filepath.Dir(scope.Path), nil, nil
		}
		language = lang.ID
	}
	return filepath.Dir(scope.Path), []WalkResult{{Path: scope.Path, Info: info, Language: language}}, nil
}

// filter drops files excluded by the configuration and sorts the rest.
func (p *Processor) filter(root string, files []WalkResult) []WalkResult {
	kept := files[:0]
	for _, f := range files {
		rel, err := filepath.Rel(root, f.Path)
		if err != nil {
			rel = f.Path
		}
		if p.cfg.FileExcluded(filepath.ToSlash(rel)) || p.cfg.FileExcluded(f.Path) {
			continue
		}
		kept = append(kept, f)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Path < kept[j].Path })
	return kept
}

// checkFile analyzes one file. Problems with the file itself are recorded
// in the result; only a failed write is returned as an error, since it
// aborts the whole run.
func (p *Processor) checkFile(ctx context.Context, wr WalkResult, mode Mode, tm *TransactionManager) (FileResult, error) {
	detail := FileResult{Path: wr.Path, Language: wr.Language}
	if wr.Error != nil {
		detail.Error = wr.Error.Error()
		return detail, nil
	}

	r, ok := p.runner(wr.Language)
	if !ok {
		detail.Error = fmt.Sprintf("no provider for language: %s", wr.Language)
		return detail, nil
	}

	content, err := os.ReadFile(wr.Path)
	if err != nil {
		detail.Error = fmt.Sprintf("read file: %v", err)
		return detail, nil
	}
	buf := source.NewBuffer(wr.Path, string(content))

	var report *engine.Report
	if mode.Autocorrect {
		report, err = r.Autocorrect(ctx, buf)
	} else {
		report, err = r.Inspect(ctx, buf)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return detail, ctxErr
		}
		detail.Error = err.Error()
		return detail, nil
	}
	detail.Report = report

	if tm == nil || !report.Changed() {
		return detail, nil
	}
	if _, err := tm.Record(wr.Path, Checksum(report.Original)); err != nil {
		return detail, err
	}
	writeErr := tm.writer.WriteFile(wr.Path, report.Corrected)
	if err := tm.Complete(wr.Path, writeErr); err != nil && writeErr == nil {
		return detail, err
	}
	if writeErr != nil {
		detail.Error = writeErr.Error()
		return detail, fmt.Errorf("write %s: %w", wr.Path, writeErr)
	}
	detail.Written = true
	return detail, nil
}

// Stats returns the parser statistics of every language used so far.
func (p *Processor) Stats() map[string]providers.Stats {
	p.runnersMu.Lock()
	defer p.runnersMu.Unlock()
	out := make(map[string]providers.Stats, len(p.runners))
	for lang := range p.runners {
		if prov, ok := p.providers.Get(lang); ok {
			out[lang] = prov.Stats()
		}
	}
	return out
}
