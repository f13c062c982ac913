package main

import (
	"github.com/spf13/cobra"

	"github.com/exploopio/codeguard/pkg/history"
	"github.com/exploopio/codeguard/pkg/metrics"
	"github.com/exploopio/codeguard/pkg/server"
)

func newServeCmd(a *app) *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: "Serve the analyzer over HTTP:\n\n" +
			"  POST /v1/scan/security    POST /v1/analyze/health\n" +
			"  GET  /v1/history          GET  /v1/history/{id}\n" +
			"  GET  /healthz             GET  /metrics",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if address != "" {
				a.cfg.Server.Address = address
			}

			var collector metrics.Collector
			if a.cfg.Metrics.Enabled {
				prom, err := metrics.NewPrometheusCollector(nil)
				if err != nil {
					return err
				}
				metrics.SetDefaultCollector(prom)
				a.metrics = prom
				collector = prom
			}

			var store *history.Store
			if a.cfg.History.Enabled {
				st, err := a.openHistory()
				if err != nil {
					return err
				}
				store = st
			}

			al := a.auditLog()
			al.Start()

			srv := server.New(server.Config{
				Address:         a.cfg.Server.Address,
				ReadTimeout:     a.cfg.Server.ReadTimeout,
				WriteTimeout:    a.cfg.Server.WriteTimeout,
				ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
				Version:         version,
				Service:         a.service(),
				History:         store,
				HistoryPath:     a.cfg.History.Path,
				Metrics:         collector,
				Audit:           al,
				Logger:          a.logger,
			})

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "listen address, overrides server.address")
	return cmd
}
