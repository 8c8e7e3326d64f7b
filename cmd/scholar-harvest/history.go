// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/scholar-harvest/internal/export"
	"github.com/pdiddy/scholar-harvest/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past harvest runs",
	Long: `History lists runs recorded in the history database, re-exports the
records of a stored run, and prints run manifests.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyExportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Write the records of a recorded run to CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryExport,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <manifest.yaml>",
	Short: "Print a run manifest",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum number of runs to list (0 for all)")
	historyListCmd.Flags().Bool("json", false, "output runs as JSON")
	historyExportCmd.Flags().StringP("output", "o", "", "output CSV path (required)")
	_ = historyExportCmd.MarkFlagRequired("output")

	historyCmd.AddCommand(historyListCmd, historyExportCmd, historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory() (*history.Store, error) {
	path := viper.GetString("history_db")
	if path == "" {
		return nil, fmt.Errorf("no history database configured")
	}
	return history.Open(path)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if asJSON {
		return writeRunsJSON(cmd.OutOrStdout(), runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}
	return writeRunsTable(cmd.OutOrStdout(), runs)
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("output")

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.Records(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	wrote, err := export.WriteCSV(out, recs, logger)
	if err != nil {
		return err
	}
	if wrote {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d records to %s\n", len(recs), out)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	m, err := export.ReadManifest(args[0])
	if err != nil {
		return err
	}
	return writeManifestTable(cmd.OutOrStdout(), *m)
}

func writeRunsJSON(w io.Writer, runs []history.Run) error {
	if runs == nil {
		runs = []history.Run{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(runs)
}

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
}

func writeRunsTable(w io.Writer, runs []history.Run) error {
	table := newTable(w)
	table.Header([]string{"Run", "Started", "Provider", "Keywords", "Years", "Outcome", "Collected", "Visited", "Attempts"})

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			shortID(r.ID),
			r.StartedAt.Local().Format(time.DateTime),
			r.Provider,
			r.Keywords,
			fmt.Sprintf("%d-%d", r.StartYear, r.EndYear),
			outcomeColor(r.Outcome).Sprint(r.Outcome),
			strconv.Itoa(r.Collected),
			strconv.Itoa(r.Visited),
			strconv.Itoa(r.Attempts),
		})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func writeManifestTable(w io.Writer, m export.Manifest) error {
	s := m.Summary
	table := newTable(w)
	table.Header([]string{"Field", "Value"})
	rows := [][]string{
		{"run", m.RunID},
		{"provider", m.Provider},
		{"keywords", m.Request.Keywords},
		{"years", fmt.Sprintf("%d-%d", m.Request.StartYear, m.Request.EndYear)},
		{"max retries", strconv.Itoa(m.Request.MaxRetries)},
		{"outcome", outcomeColor(string(s.Outcome)).Sprint(s.Outcome)},
		{"collected", strconv.Itoa(s.Collected)},
		{"visited", strconv.Itoa(s.Visited)},
		{"skipped", strconv.Itoa(s.Skipped)},
		{"attempts", strconv.Itoa(s.Attempts)},
		{"proxy", s.Proxy},
		{"started", s.StartedAt.Format(time.RFC3339)},
		{"duration", s.FinishedAt.Sub(s.StartedAt).Round(time.Second).String()},
		{"output", m.Output},
	}
	if s.Error != "" {
		rows = append(rows, []string{"error", s.Error})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// shortID trims a UUID to its first group for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
