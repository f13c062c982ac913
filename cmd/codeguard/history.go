package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/exploopio/codeguard/pkg/audit"
	"github.com/exploopio/codeguard/pkg/errors"
	"github.com/exploopio/codeguard/pkg/export"
	"github.com/exploopio/codeguard/pkg/history"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and manage saved scans",
	}
	cmd.AddCommand(
		newHistoryListCmd(a),
		newHistoryShowCmd(a),
		newHistoryDeleteCmd(a),
		newHistoryClearCmd(a),
	)
	return cmd
}

func newHistoryListCmd(a *app) *cobra.Command {
	var (
		limit  int
		kind   string
		format string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved scans, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := history.ParseKind(kind)
			if err != nil {
				return errors.E(errors.KindInvalidInput, "codeguard.history.list", err)
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			st, err := a.openHistory()
			if err != nil {
				return err
			}
			records, err := st.List(cmd.Context(), history.ListOptions{Limit: limit, Kind: k})
			if err != nil {
				return err
			}

			if f == export.FormatJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			if len(records) == 0 {
				fmt.Fprintln(a.stdout, "No saved scans.")
				return nil
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tGRADE\tSCORE\tLANGUAGE\tSOURCE\tCREATED")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
					r.ID, r.Kind, r.Grade, r.Score, orDash(r.Language), orDash(r.Source),
					r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultListLimit, "maximum number of scans")
	cmd.Flags().StringVar(&kind, "kind", "", "only security or health scans")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func newHistoryShowCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved scan report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			st, err := a.openHistory()
			if err != nil {
				return err
			}
			rec, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			opts := export.Options{
				Path:        rec.Source,
				ToolVersion: version,
				ReportID:    rec.ID,
				ContentHash: rec.ContentHash,
				Timestamp:   rec.CreatedAt,
			}
			switch rec.Kind {
			case history.KindHealth:
				res, err := rec.HealthResult()
				if err != nil {
					return err
				}
				return export.WriteHealth(a.stdout, f, res, opts)
			default:
				res, err := rec.ScanResult()
				if err != nil {
					return err
				}
				return export.WriteSecurity(a.stdout, f, res, opts)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json, sarif or ris")
	return cmd
}

func newHistoryDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete saved scans",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openHistory()
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := st.Delete(cmd.Context(), id); err != nil {
					return err
				}
				a.auditLog().Deleted(audit.Event{}, id)
				fmt.Fprintf(a.stdout, "Deleted %s\n", id)
			}
			return nil
		},
	}
}

func newHistoryClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openHistory()
			if err != nil {
				return err
			}
			n, err := st.Clear(cmd.Context())
			if err != nil {
				return err
			}
			a.auditLog().Cleared(audit.Event{}, n)
			fmt.Fprintf(a.stdout, "Deleted %d saved scan(s)\n", n)
			return nil
		},
	}
}
