// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/monadic/cfgport/internal/clierr"
	"github.com/monadic/cfgport/internal/transfer"
	"github.com/monadic/cfgport/pkg/history"
)

var historyKinds = []string{
	string(transfer.KindExport),
	string(transfer.KindImport),
	string(transfer.KindAppExport),
	string(transfer.KindAppImport),
	string(transfer.KindClusterLookup),
	string(transfer.KindEnvironmentLoad),
	string(transfer.KindDownload),
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		filter     history.Filter
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent exports, imports and lookups",
		Long: `Show the transfers cfgport recorded, newest first.

Exports are recorded as "started" when the download begins; each saved or
failed archive then gets its own "download" record.

Examples:
  cfgport history
  cfgport history --kind import --status failed
  cfgport history --kind download
  cfgport history --limit 50 --json
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled() {
				return clierr.Validation("history is disabled (set history.driver in %s)", configPathFor(opts))
			}
			store, err := history.Open(cfg.History)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			if len(records) == 0 {
				fmt.Fprintln(out, clierr.NothingFound("transfers"))
				return nil
			}
			printHistory(out, records)
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.Kind, "kind", "", "Only this kind (export, import, app-export, app-import, cluster, envs, download)")
	cmd.Flags().StringVar(&filter.Status, "status", "", "Only this status (ok, started, invalid, forbidden, failed)")
	cmd.Flags().IntVar(&filter.Limit, "limit", history.DefaultLimit, "Maximum number of records")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.RegisterFlagCompletionFunc("kind", completeHistoryKinds)
	return cmd
}

func printHistory(out io.Writer, records []history.Record) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tKIND\tTARGET\tSTATUS\tMESSAGE")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Kind,
			historyTarget(r),
			r.Status,
			truncate(r.Message, 60),
		)
	}
	w.Flush()
}

func historyTarget(r history.Record) string {
	var target string
	switch {
	case r.AppID != "":
		target = fmt.Sprintf("%s/%s/%s", r.AppID, r.Env, r.Cluster)
	case r.Envs != "":
		target = r.Envs
	case r.Filename != "":
		target = r.Filename
	default:
		target = "-"
	}
	if r.ConflictAction != "" {
		target += " (" + r.ConflictAction + ")"
	}
	return target
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func configPathFor(opts *rootOptions) string {
	if opts.configPath != "" {
		return opts.configPath
	}
	return "the config file"
}
