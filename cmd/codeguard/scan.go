package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/exploopio/codeguard/pkg/audit"
	"github.com/exploopio/codeguard/pkg/config"
	"github.com/exploopio/codeguard/pkg/errors"
	"github.com/exploopio/codeguard/pkg/export"
	"github.com/exploopio/codeguard/pkg/history"
	"github.com/exploopio/codeguard/pkg/model"
	"github.com/exploopio/codeguard/pkg/shared/fingerprint"
	"github.com/exploopio/codeguard/pkg/shared/severity"
	"github.com/exploopio/codeguard/pkg/source"
)

// inputFlags selects where the code comes from and how it is reported.
type inputFlags struct {
	github   string
	gitlab   string
	language string
	format   string
	save     bool
}

func (f *inputFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.github, "github", "", "fetch owner/repo/path[@ref] from GitHub")
	flags.StringVar(&f.gitlab, "gitlab", "", "fetch project:path[@ref] from GitLab")
	flags.StringVarP(&f.language, "language", "l", "", "language label, overrides detection from the file extension")
	flags.StringVarP(&f.format, "format", "f", "text", "output format: text, json, sarif or ris")
	flags.BoolVar(&f.save, "save", false, "store the result in the scan history")
}

func remoteOptions(a *app, r config.Remote) source.Options {
	return source.Options{
		Token:     r.Token,
		BaseURL:   r.BaseURL,
		RateLimit: r.RateLimit,
		Attempts:  r.Attempts,
		Timeout:   r.Timeout,
		MaxBytes:  a.cfg.Analyzer.MaxInputBytes,
		Logger:    a.logger,
		Metrics:   a.metrics,
	}
}

// fetch loads the document named by the flags, the file argument, or stdin.
func (f *inputFlags) fetch(ctx context.Context, a *app, args []string) (*source.Document, error) {
	const op = "codeguard.fetch"

	remote := f.github != "" || f.gitlab != ""
	switch {
	case f.github != "" && f.gitlab != "":
		return nil, errors.E(errors.KindInvalidInput, op, "--github and --gitlab are mutually exclusive")
	case remote && len(args) > 0:
		return nil, errors.E(errors.KindInvalidInput, op, "a file argument cannot be combined with --github or --gitlab")
	case len(args) > 1:
		return nil, errors.E(errors.KindInvalidInput, op, "scan one file at a time")
	}

	var (
		fetcher source.Fetcher
		ref     string
		err     error
	)
	switch {
	case f.github != "":
		fetcher, err = source.NewGitHub(remoteOptions(a, a.cfg.GitHub))
		ref = f.github
	case f.gitlab != "":
		fetcher, err = source.NewGitLab(remoteOptions(a, a.cfg.GitLab))
		ref = f.gitlab
	default:
		fetcher = source.NewLocal(source.Options{
			MaxBytes: a.cfg.Analyzer.MaxInputBytes,
			Logger:   a.logger,
			Metrics:  a.metrics,
		}, a.stdin)
		ref = source.Stdin
		if len(args) == 1 {
			ref = args[0]
		}
	}
	if err != nil {
		return nil, err
	}
	return fetcher.Fetch(ctx, ref)
}

func (f *inputFlags) languageOf(doc *source.Document) string {
	if f.language != "" {
		return f.language
	}
	return doc.Language
}

// save stores rec and returns its id.
func (a *app) save(ctx context.Context, rec *history.Record, err error) (string, error) {
	if err != nil {
		return "", err
	}
	st, err := a.openHistory()
	if err != nil {
		return "", err
	}
	if err := st.Save(ctx, rec); err != nil {
		return "", err
	}
	a.logger.Info("saved %s scan %s", rec.Kind, rec.ID)
	return rec.ID, nil
}

// gateError reports that findings reached the --fail-on threshold.
type gateError struct {
	threshold severity.Level
	count     int
}

func (e *gateError) Error() string {
	return fmt.Sprintf("%d finding(s) at or above %s", e.count, e.threshold)
}

func parseThreshold(s string) (severity.Level, error) {
	if s == "" {
		return "", nil
	}
	lvl := severity.Level(strings.ToLower(strings.TrimSpace(s)))
	if !lvl.IsValid() {
		return "", errors.E(errors.KindInvalidInput, "codeguard.fail-on",
			fmt.Sprintf("unknown severity %q (want critical, high, medium or low)", s))
	}
	return lvl, nil
}

func gate(res *model.ScanResult, threshold severity.Level) error {
	if threshold == "" {
		return nil
	}
	n := 0
	for _, v := range res.Vulnerabilities {
		if v.Severity.IsAtLeast(threshold) {
			n++
		}
	}
	if n > 0 {
		return &gateError{threshold: threshold, count: n}
	}
	return nil
}

func newScanCmd(a *app) *cobra.Command {
	var (
		in     inputFlags
		failOn string
	)
	cmd := &cobra.Command{
		Use:   "scan [file|-]",
		Short: "Scan source code for vulnerabilities and compliance issues",
		Long: "Scan one source file for security vulnerabilities and GDPR, HIPAA, PCI, SOC 2 and COPPA\n" +
			"compliance issues. Without a file argument the code is read from standard input.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(in.format)
			if err != nil {
				return err
			}
			threshold, err := parseThreshold(failOn)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			doc, err := in.fetch(ctx, a, args)
			if err != nil {
				return err
			}
			ev := audit.Event{Source: doc.Label()}
			res, err := a.service().ScanSecurity(ctx, doc.Content, in.languageOf(doc))
			if err != nil {
				a.auditLog().Scan(ev, nil, err)
				return err
			}

			opts := export.Options{
				Path:        doc.Path,
				ToolVersion: version,
				ContentHash: fingerprint.Content(doc.Content),
			}
			if in.save {
				rec, err := history.NewSecurityRecord(res, doc.Label(), doc.Content)
				if opts.ReportID, err = a.save(ctx, rec, err); err != nil {
					return err
				}
			}
			ev.RecordID = opts.ReportID
			a.auditLog().Scan(ev, res, nil)
			if err := export.WriteSecurity(a.stdout, format, res, opts); err != nil {
				return err
			}
			return gate(res, threshold)
		},
	}
	in.register(cmd)
	cmd.Flags().StringVar(&failOn, "fail-on", "", "exit with status 2 when a finding is at or above this severity")
	return cmd
}

func newHealthCmd(a *app) *cobra.Command {
	var in inputFlags
	cmd := &cobra.Command{
		Use:   "health [file|-]",
		Short: "Analyze code health",
		Long: "Score one source file on bug risk, performance, security, readability and complexity,\n" +
			"and list the issues and best practices found. Output formats: text or json.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(in.format)
			if err != nil {
				return err
			}
			if format != export.FormatText && format != export.FormatJSON {
				return errors.E(errors.KindInvalidInput, "codeguard.health", "health reports support text and json only")
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			doc, err := in.fetch(ctx, a, args)
			if err != nil {
				return err
			}
			ev := audit.Event{Source: doc.Label()}
			res, err := a.service().AnalyzeHealth(ctx, doc.Content, in.languageOf(doc))
			if err != nil {
				a.auditLog().Health(ev, nil, err)
				return err
			}
			if in.save {
				rec, err := history.NewHealthRecord(res, doc.Label(), doc.Content)
				if ev.RecordID, err = a.save(ctx, rec, err); err != nil {
					return err
				}
			}
			a.auditLog().Health(ev, res, nil)
			return export.WriteHealth(a.stdout, format, res, export.Options{Path: doc.Path, ToolVersion: version})
		},
	}
	in.register(cmd)
	return cmd
}
