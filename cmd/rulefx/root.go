package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/oxhq/rulefx/config"
	"github.com/oxhq/rulefx/db"
	"github.com/oxhq/rulefx/lint"
	"github.com/oxhq/rulefx/providers"
	"github.com/oxhq/rulefx/providers/ruby"
)

const version = "0.1.0"

// Process exit codes.
const (
	codeClean    = 0
	codeOffenses = 1
	codeError    = 2
)

// exitError ends the process with code without printing anything more.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// app holds the state shared by every command of one invocation.
type app struct {
	cfgFile string
	dbDSN   string
	verbose bool

	logger *zap.Logger
}

func run(args []string) int {
	return execute(&app{}, args, os.Stdout, os.Stderr)
}

func execute(a *app, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if a.logger != nil {
		_ = a.logger.Sync()
	}

	var exit *exitError
	switch {
	case err == nil:
		return codeClean
	case errors.As(err, &exit):
		return exit.code
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return codeError
	}
}

func newRootCmd(a *app) *cobra.Command {
	opts := &checkOptions{}
	root := &cobra.Command{
		Use:           "rulefx [paths...]",
		Short:         "Inspect and autocorrect Ruby sources",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		// Without a subcommand rulefx behaves like check.
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd, opts, args)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "Configuration file (default: "+config.FileName+" in the working directory)")
	pf.BoolVar(&a.verbose, "verbose", false, "Enable debug logging")
	pf.StringVar(&a.dbDSN, "db", "", "History database (default: $RULEFX_DB or "+db.DefaultDSN+")")
	addCheckFlags(root, opts)

	root.AddCommand(
		newCheckCmd(a),
		newRulesCmd(a),
		newHistoryCmd(a),
		newInitCmd(a),
	)
	return root
}

func (a *app) setup() error {
	if a.logger != nil {
		return nil
	}
	logger, err := newLogger(a.verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.logger = logger
	return nil
}

// newLogger returns a development logger when verbose, otherwise a
// production logger that only reports warnings and errors.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// loadConfig reads --config, or the configuration file of the working
// directory, falling back to the defaults of every rule.
func (a *app) loadConfig(reg *lint.Registry) (*config.Config, error) {
	path := a.cfgFile
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting current directory: %w", err)
		}
		found, ok := config.Discover(wd)
		if !ok {
			return config.Default(reg), nil
		}
		path = found
	}

	cfg, err := config.Load(path, reg)
	if err != nil {
		return nil, err
	}
	for _, w := range cfg.Warnings {
		a.logger.Warn("configuration warning", zap.String("config", path), zap.String("warning", w))
	}
	a.logger.Debug("configuration loaded", zap.String("config", path))
	return cfg, nil
}

func (a *app) openDB() (*gorm.DB, error) {
	dsn := a.dbDSN
	if dsn == "" {
		dsn = os.Getenv("RULEFX_DB")
	}
	if dsn == "" {
		dsn = db.DefaultDSN
	}
	conn, err := db.Connect(dsn, a.verbose)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", dsn, err)
	}
	return conn, nil
}

func newProviders() *providers.Registry {
	reg := providers.NewRegistry()
	reg.Register(ruby.New())
	return reg
}
