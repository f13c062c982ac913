package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/exploopio/codeguard/pkg/analyzer"
	"github.com/exploopio/codeguard/pkg/audit"
	"github.com/exploopio/codeguard/pkg/compress"
	"github.com/exploopio/codeguard/pkg/config"
	"github.com/exploopio/codeguard/pkg/core"
	"github.com/exploopio/codeguard/pkg/errors"
	"github.com/exploopio/codeguard/pkg/history"
	"github.com/exploopio/codeguard/pkg/metrics"
)

// app carries what the subcommands share: streams, flags, configuration and
// the lazily opened history store and audit log.
type app struct {
	stdin          io.Reader
	stdout, stderr io.Writer

	configPath string
	verbose    bool

	cfg     *config.Config
	logger  core.Logger
	metrics metrics.Collector
	store   *history.Store
	audit   *audit.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "codeguard [command]",
		Short:         "Rule-based security, compliance and code health analysis",
		Long:          "codeguard scans source files for security vulnerabilities, GDPR, HIPAA, PCI, SOC 2 and COPPA\ncompliance gaps, and code health problems. It reads local files, standard input or files\nin GitHub and GitLab repositories.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", os.Getenv("CODEGUARD_CONFIG"), "config file (YAML)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(
		newScanCmd(a),
		newHealthCmd(a),
		newHistoryCmd(a),
		newServeCmd(a),
		newWatchCmd(a),
		newVersionCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.LogLevel()
	if a.verbose {
		level = core.LogLevelDebug
	}
	a.logger = core.NewHCLogger(core.LoggerOptions{
		Name:   "codeguard",
		Level:  level,
		Output: a.stderr,
		JSON:   cfg.Log.JSON,
	})
	core.SetDefaultLogger(a.logger)
	a.metrics = metrics.GetDefaultCollector()
	return nil
}

func (a *app) service() *analyzer.Service {
	return analyzer.NewService(
		analyzer.WithMaxInputBytes(a.cfg.Analyzer.MaxInputBytes),
		analyzer.WithDefaultLanguage(a.cfg.Analyzer.DefaultLanguage),
		analyzer.WithLogger(a.logger),
		analyzer.WithMetrics(a.metrics),
	)
}

// openHistory opens the configured store once per process. It fails when
// history is disabled.
func (a *app) openHistory() (*history.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	if !a.cfg.History.Enabled {
		return nil, errors.E(errors.KindInvalidInput, "codeguard.history", "history is disabled (history.enabled: false)")
	}
	alg, err := compress.ParseAlgorithm(a.cfg.History.Compression)
	if err != nil {
		return nil, err
	}
	st, err := history.Open(history.Config{
		Path:        a.cfg.History.Path,
		Compression: alg,
		Logger:      a.logger,
		Metrics:     a.metrics,
	})
	if err != nil {
		return nil, err
	}
	a.store = st
	return st, nil
}

// auditLog opens the audit log once per process. It returns nil, which
// drops events, when auditing is disabled or the file cannot be opened.
func (a *app) auditLog() *audit.Logger {
	if a.audit != nil || !a.cfg.Audit.Enabled {
		return a.audit
	}
	al, err := audit.Open(audit.Config{
		Path:          a.cfg.Audit.Path,
		Origin:        audit.OriginCLI,
		FlushInterval: a.cfg.Audit.FlushInterval,
		Logger:        a.logger,
	})
	if err != nil {
		a.logger.Warn("audit log disabled: %v", err)
		return nil
	}
	a.audit = al
	return al
}

func (a *app) close() {
	if err := a.audit.Close(); err != nil && a.logger != nil {
		a.logger.Warn("close audit log: %v", err)
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil && a.logger != nil {
			a.logger.Warn("close history: %v", err)
		}
	}
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
