package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oxhq/rulefx/config"
	"github.com/oxhq/rulefx/core"
	"github.com/oxhq/rulefx/db"
	"github.com/oxhq/rulefx/formatter"
	"github.com/oxhq/rulefx/lint"
	"github.com/oxhq/rulefx/rules"
)

const defaultTimeout = 5 * time.Minute

type checkOptions struct {
	autocorrect bool
	dryRun      bool
	backup      bool
	format      string
	include     []string
	exclude     []string
	workers     int
	record      bool
	noProgress  bool
	timeout     time.Duration
}

func newCheckCmd(a *app) *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Report offenses and optionally correct them",
		Long: `Analyze the Ruby files under each path (default: the working directory).

Exit status is 0 when no offense is left, 1 when offenses remain and 2 on error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd, opts, args)
		},
	}
	addCheckFlags(cmd, opts)
	return cmd
}

func addCheckFlags(cmd *cobra.Command, o *checkOptions) {
	f := cmd.Flags()
	f.BoolVarP(&o.autocorrect, "autocorrect", "a", false, "Correct offenses and write the files")
	f.BoolVar(&o.dryRun, "dry-run", false, "Compute corrections without writing any file (implies --autocorrect)")
	f.BoolVar(&o.backup, "backup", false, "Keep a .bak copy of every corrected file")
	f.StringVarP(&o.format, "format", "f", "text", "Output format: "+strings.Join(formatter.Names(), ", "))
	f.StringSliceVar(&o.include, "include", nil, "Only analyze files matching these globs")
	f.StringSliceVar(&o.exclude, "exclude", nil, "Skip files matching these globs")
	f.IntVarP(&o.workers, "workers", "w", 0, "Files analyzed at once (default: 8)")
	f.BoolVar(&o.record, "record", false, "Store the run in the history database")
	f.BoolVar(&o.noProgress, "no-progress", false, "Hide the progress bar")
	f.DurationVar(&o.timeout, "timeout", defaultTimeout, "Abort the run after this long")
}

func (o *checkOptions) mode() core.Mode {
	return core.Mode{
		Autocorrect: o.autocorrect || o.dryRun,
		DryRun:      o.dryRun,
		Backup:      o.backup,
	}
}

func (a *app) runCheck(cmd *cobra.Command, o *checkOptions, args []string) error {
	out, err := formatter.New(o.format)
	if err != nil {
		return err
	}

	reg := rules.Registry()
	cfg, err := a.loadConfig(reg)
	if err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()

	started := time.Now()
	result, err := a.check(ctx, cmd.ErrOrStderr(), cfg, reg, o, paths)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("check timed out after %s", o.timeout)
		}
		return err
	}
	finished := time.Now()

	if err := out.Format(cmd.OutOrStdout(), result); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if o.record {
		if err := a.recordRun(cfg, reg, o, paths, result, started, finished); err != nil {
			return err
		}
	}

	if result.HasOffenses() {
		return &exitError{code: codeOffenses}
	}
	return nil
}

// check runs the processor over every path and merges the results.
func (a *app) check(
	ctx context.Context,
	stderr io.Writer,
	cfg *config.Config,
	reg *lint.Registry,
	o *checkOptions,
	paths []string,
) (*core.Result, error) {
	opts := []core.ProcessorOption{
		core.WithProcessorConfig(cfg),
		core.WithProcessorLogger(a.logger),
		core.WithWorkers(o.workers),
	}
	var bar *progressbar.ProgressBar
	if !o.noProgress && isTerminal(stderr) {
		bar = newProgressBar(stderr, strings.Join(paths, " "))
		opts = append(opts, core.WithProgress(func(core.FileResult) {
			_ = bar.Add(1)
		}))
	}
	p := core.NewProcessor(newProviders(), reg, opts...)

	mode := o.mode()
	result := &core.Result{}
	for _, path := range paths {
		r, err := p.Check(ctx, core.FileScope{
			Path:    path,
			Include: o.include,
			Exclude: o.exclude,
		}, mode)
		if errors.Is(err, core.ErrNoFiles) {
			a.logger.Debug("no files to analyze", zap.String("path", path))
			continue
		}
		if err != nil {
			return nil, err
		}
		result.Merge(r)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	for lang, st := range p.Stats() {
		a.logger.Debug("parser stats",
			zap.String("language", lang),
			zap.Int64("borrowed", st.BorrowCount),
			zap.Int64("cache_hits", st.CacheHits),
			zap.Int64("cache_misses", st.CacheMisses))
	}

	if result.FilesScanned == 0 {
		return nil, fmt.Errorf("%s: %w", strings.Join(paths, ", "), core.ErrNoFiles)
	}
	return result, nil
}

func (a *app) recordRun(
	cfg *config.Config,
	reg *lint.Registry,
	o *checkOptions,
	paths []string,
	result *core.Result,
	started, finished time.Time,
) error {
	conn, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close(conn)

	roots := make([]string, len(paths))
	for i, path := range paths {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		roots[i] = path
	}

	var enabled []string
	for _, name := range reg.Names() {
		if cfg.Enabled(name) {
			enabled = append(enabled, name)
		}
	}

	run, err := db.RecordRun(conn, db.RunInfo{
		Root:       strings.Join(roots, ","),
		Mode:       o.mode(),
		Rules:      enabled,
		StartedAt:  started,
		FinishedAt: finished,
	}, result)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	a.logger.Debug("run recorded", zap.String("run", run.ID))
	return nil
}

// newProgressBar draws an open-ended counter, since files are discovered
// while they are analyzed.
func newProgressBar(w io.Writer, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
