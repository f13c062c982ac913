package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/exploopio/codeguard/pkg/audit"
	"github.com/exploopio/codeguard/pkg/errors"
	"github.com/exploopio/codeguard/pkg/export"
	"github.com/exploopio/codeguard/pkg/history"
	"github.com/exploopio/codeguard/pkg/source"
	"github.com/exploopio/codeguard/pkg/watch"
)

func parseMode(s string) (watch.Mode, error) {
	switch strings.ToLower(s) {
	case "", "security":
		return watch.ModeSecurity, nil
	case "health":
		return watch.ModeHealth, nil
	case "both":
		return watch.ModeBoth, nil
	default:
		return 0, errors.E(errors.KindInvalidInput, "codeguard.watch", fmt.Sprintf("unknown mode %q (want security, health or both)", s))
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		mode     string
		format   string
		language string
		save     bool
	)
	cmd := &cobra.Command{
		Use:   "watch <path>...",
		Short: "Rescan files whenever they change",
		Long: "Watch files or directories and rescan each changed file after a short quiet period\n" +
			"(watch.debounce). Directories are watched recursively; hidden and vendored\n" +
			"directories are skipped.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseMode(mode)
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			if m&watch.ModeHealth != 0 && f != export.FormatText && f != export.FormatJSON {
				return errors.E(errors.KindInvalidInput, "codeguard.watch", "health reports support text and json only")
			}

			var store *history.Store
			if save {
				if store, err = a.openHistory(); err != nil {
					return err
				}
			}

			w, err := watch.New(watch.Config{
				Paths:    args,
				Debounce: a.cfg.Watch.Debounce,
				Mode:     m,
				Language: language,
				Initial:  true,
				Service:  a.service(),
				Reader: source.NewLocal(source.Options{
					MaxBytes: a.cfg.Analyzer.MaxInputBytes,
					Logger:   a.logger,
					Metrics:  a.metrics,
				}, nil),
				History: store,
				Logger:  a.logger,
			})
			if err != nil {
				return err
			}
			defer w.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			al := a.auditLog()
			al.Start()

			a.logger.Info("watching %d file(s)", len(w.Watched()))
			return w.Run(ctx, func(ev watch.Event) {
				entry := audit.Event{Origin: audit.OriginWatch, Source: ev.Path}
				if ev.Err != nil {
					if m == watch.ModeHealth {
						al.Health(entry, nil, ev.Err)
					} else {
						al.Scan(entry, nil, ev.Err)
					}
					a.logger.Error("%s: %v", ev.Path, ev.Err)
					return
				}
				opts := export.Options{Path: ev.Path, ToolVersion: version}
				if ev.Security != nil {
					al.Scan(entry, ev.Security, nil)
					if err := export.WriteSecurity(a.stdout, f, ev.Security, opts); err != nil {
						a.logger.Error("write report: %v", err)
					}
				}
				if ev.Health != nil {
					al.Health(entry, ev.Health, nil)
					if err := export.WriteHealth(a.stdout, f, ev.Health, opts); err != nil {
						a.logger.Error("write report: %v", err)
					}
				}
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "security", "analyses to run: security, health or both")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json, sarif or ris")
	cmd.Flags().StringVarP(&language, "language", "l", "", "language label, overrides detection from the file extension")
	cmd.Flags().BoolVar(&save, "save", false, "store every result in the scan history")
	return cmd
}
