// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/scholar-harvest/internal/export"
	"github.com/pdiddy/scholar-harvest/internal/harvest"
	"github.com/pdiddy/scholar-harvest/internal/history"
	"github.com/pdiddy/scholar-harvest/internal/proxy"
	"github.com/pdiddy/scholar-harvest/internal/scholar"
	"github.com/pdiddy/scholar-harvest/internal/secrets"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Search a provider and write matching publications to CSV",
	Long: `Harvest sets up a proxy, pages through search results for the configured
keywords, keeps publications whose year falls in [start-year, end-year], and
writes them to the output CSV. A throttled search is reopened on a new proxy
where it left off, up to max-retries times.

Whatever was collected is written even when the run stops early. The command
fails only when no proxy can be set up before the first search or when the
settings are invalid.`,
	RunE: runHarvest,
}

func init() {
	f := harvestCmd.Flags()
	f.String("keywords", defaultKeywords, "search keywords (env INPUT_KEYWORDS)")
	f.Int("start-year", defaultStartYear, "earliest publication year, inclusive (env INPUT_START_YEAR)")
	f.Int("end-year", defaultEndYear, "latest publication year, inclusive (env INPUT_END_YEAR)")
	f.StringP("output", "o", defaultOutput, "output CSV path (env INPUT_OUTPUT_FILENAME)")
	f.Int("max-retries", defaultMaxRetries, "proxy re-acquisitions allowed after throttling")
	f.Int("max-results", 0, "stop after this many matching records (0 for no limit)")
	f.String("provider", defaultProvider, fmt.Sprintf("search provider, one of %v", scholar.Names()))
	f.String("proxy-mode", "free", "proxy mode: free, tor, or none")
	f.String("proxy-list", "", "free proxy list URL")
	f.String("tor-addr", "", "Tor SOCKS5 address (default 127.0.0.1:9050)")
	f.Duration("timeout", defaultTimeout, "HTTP request timeout")
	f.String("manifest", "", "write a YAML run manifest to this path")
	f.Bool("no-history", false, "do not record the run in the history database")
	f.String("provider-url", "", "replace the provider's public endpoint (mirrors)")

	for key, flag := range map[string]string{
		"keywords":        "keywords",
		"start_year":      "start-year",
		"end_year":        "end-year",
		"output_filename": "output",
		"max_retries":     "max-retries",
		"max_results":     "max-results",
		"provider":        "provider",
		"proxy.mode":      "proxy-mode",
		"proxy.list_url":  "proxy-list",
		"proxy.tor_addr":  "tor-addr",
		"timeout":         "timeout",
		"manifest":        "manifest",
		"no_history":      "no-history",
		"provider_url":    "provider-url",
	} {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(harvestCmd)
	// Without a subcommand the CLI harvests using INPUT_* settings.
	rootCmd.RunE = runHarvest
}

func runHarvest(cmd *cobra.Command, args []string) error {
	return harvestRun(cmd.Context(), viper.GetViper(), logger, cmd.OutOrStdout())
}

// harvestRun performs one harvest with the settings in v and prints a
// summary to out. It returns an error only for invalid settings, a failed
// initial proxy setup, or an output file that cannot be written; a run that
// stops early still saves what it collected and returns nil.
func harvestRun(ctx context.Context, v *viper.Viper, logger *slog.Logger, out io.Writer) error {
	st, err := loadSettings(v, logger)
	if err != nil {
		return err
	}

	prov, err := scholar.New(st.Harvest.Provider, scholar.Options{
		UserAgent: st.Proxy.UserAgent,
		BaseURL:   st.Harvest.ProviderURL,
		APIKey:    secrets.Value(loadedSecrets, secrets.SemanticScholarAPIKey, v.GetString("semantic_scholar_api_key")),
		Email:     secrets.Value(loadedSecrets, secrets.OpenAlexEmail, v.GetString("openalex_email")),
	})
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log := logger.With("run_id", runID)
	log.Info("starting harvest",
		"provider", prov.Name(), "keywords", st.Request.Keywords,
		"start_year", st.Request.StartYear, "end_year", st.Request.EndYear,
		"max_retries", st.Request.MaxRetries, "output", st.Output)

	started := time.Now()
	proxies := proxy.NewInitializer(st.Proxy, log)
	session, err := proxies.Setup(ctx)
	if err != nil {
		log.Error("initial proxy setup failed, exiting", "error", err)
		return fmt.Errorf("setting up proxy: %w", err)
	}

	res := harvest.New(prov, proxies, harvest.PacingFrom(st.Harvest), log).Run(ctx, session, st.Request)
	finished := time.Now()
	log.Info("harvest finished", "summary", res.Summary())

	wrote, err := export.WriteCSV(st.Output, res.Records, log)
	if err != nil {
		return err
	}
	output := ""
	if wrote {
		output = st.Output
	}

	m := export.NewManifest(runID, prov.Name(), st.Request, res, output, started, finished)
	if st.Manifest != "" {
		if err := export.WriteManifest(st.Manifest, m); err != nil {
			return err
		}
		log.Info("wrote manifest", "path", st.Manifest)
	}
	if st.HistoryDB != "" {
		// The run is recorded even after an interrupt.
		if err := recordRun(context.WithoutCancel(ctx), st.HistoryDB, m, res); err != nil {
			log.Warn("could not record run history", "db", st.HistoryDB, "error", err)
		}
	}

	printSummary(out, m)
	return nil
}

func recordRun(ctx context.Context, dbPath string, m export.Manifest, res harvest.Result) error {
	store, err := history.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(ctx, history.FromManifest(m), res.Records)
}

// outcomeColor picks the display color for a run outcome.
func outcomeColor(outcome string) *color.Color {
	switch harvest.Outcome(outcome) {
	case harvest.OutcomeExhausted, harvest.OutcomeMaxResults:
		return color.New(color.FgGreen)
	case harvest.OutcomeRetriesExhausted, harvest.OutcomeProxyFailed:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func printSummary(w io.Writer, m export.Manifest) {
	s := m.Summary
	fmt.Fprintf(w, "Run %s: %s\n", m.RunID, outcomeColor(string(s.Outcome)).Sprint(s.Outcome))
	fmt.Fprintf(w, "  collected %d of %d visited (%d skipped), %d throttled attempts, proxy %s\n",
		s.Collected, s.Visited, s.Skipped, s.Attempts, s.Proxy)
	if m.Output != "" {
		fmt.Fprintf(w, "  output: %s\n", m.Output)
	} else {
		fmt.Fprintln(w, "  output: none (no records)")
	}
	if s.Error != "" {
		fmt.Fprintf(w, "  stopped by: %s\n", s.Error)
	}
}
