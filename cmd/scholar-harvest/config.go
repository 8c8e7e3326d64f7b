// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/scholar-harvest/internal/harvest"
	"github.com/pdiddy/scholar-harvest/pkg/types"
)

const (
	defaultKeywords   = "triatomine United States"
	defaultStartYear  = 2022
	defaultEndYear    = 2024
	defaultOutput     = "north_america_triatomine/google_scholar_raw_US.csv"
	defaultMaxRetries = 5
	defaultProvider   = "google_scholar"
	defaultTimeout    = 30 * time.Second
	defaultUserAgent  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// runSettings is everything one harvest run needs, resolved from flags,
// environment, and config file.
type runSettings struct {
	Request  harvest.Request
	Harvest  types.HarvestConfig
	Proxy    types.ProxyConfig
	Output   string
	Manifest string
	// HistoryDB is empty when history recording is disabled.
	HistoryDB string
}

// configureViper sets the environment mapping and defaults. Keys map to
// INPUT_ variables with dots replaced by underscores, so proxy.mode is
// read from INPUT_PROXY_MODE.
func configureViper(v *viper.Viper) {
	v.SetEnvPrefix("INPUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("keywords", defaultKeywords)
	v.SetDefault("start_year", defaultStartYear)
	v.SetDefault("end_year", defaultEndYear)
	v.SetDefault("output_filename", defaultOutput)
	v.SetDefault("max_retries", defaultMaxRetries)
	v.SetDefault("max_results", 0)
	v.SetDefault("provider", defaultProvider)
	v.SetDefault("timeout", defaultTimeout)
	v.SetDefault("user_agent", defaultUserAgent)
	v.SetDefault("proxy.mode", string(types.ProxyFree))
}

// loadSettings resolves run settings from v. Integer settings that do not
// parse fall back to their default with a warning.
func loadSettings(v *viper.Viper, logger *slog.Logger) (runSettings, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	st := runSettings{
		Request: harvest.Request{
			Keywords:   strings.TrimSpace(v.GetString("keywords")),
			StartYear:  intSetting(v, "start_year", defaultStartYear, logger),
			EndYear:    intSetting(v, "end_year", defaultEndYear, logger),
			MaxRetries: intSetting(v, "max_retries", defaultMaxRetries, logger),
			MaxResults: intSetting(v, "max_results", 0, logger),
		},
		Harvest: types.HarvestConfig{
			Provider:      v.GetString("provider"),
			ProviderURL:   v.GetString("provider_url"),
			ItemDelayMin:  v.GetDuration("pacing.item_min"),
			ItemDelayMax:  v.GetDuration("pacing.item_max"),
			RetryDelayMin: v.GetDuration("pacing.retry_min"),
			RetryDelayMax: v.GetDuration("pacing.retry_max"),
		},
		Proxy: types.ProxyConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   v.GetDuration("timeout"),
				UserAgent: v.GetString("user_agent"),
			},
			Mode:             types.ProxyMode(strings.ToLower(v.GetString("proxy.mode"))),
			ListURL:          v.GetString("proxy.list_url"),
			CheckURL:         v.GetString("proxy.check_url"),
			ProbeTimeout:     v.GetDuration("proxy.probe_timeout"),
			ProbeLimit:       v.GetInt("proxy.probe_limit"),
			ProbeConcurrency: v.GetInt("proxy.probe_concurrency"),
			TorAddr:          v.GetString("proxy.tor_addr"),
			DisableTor:       v.GetBool("proxy.disable_tor"),
		},
		Output:   v.GetString("output_filename"),
		Manifest: v.GetString("manifest"),
	}
	if !v.GetBool("no_history") {
		st.HistoryDB = v.GetString("history_db")
	}

	switch st.Proxy.Mode {
	case types.ProxyFree, types.ProxyTor, types.ProxyNone:
	default:
		return st, fmt.Errorf("invalid proxy mode %q: must be free, tor, or none", st.Proxy.Mode)
	}
	if st.Output == "" {
		return st, fmt.Errorf("output filename is empty")
	}
	if err := st.Request.Validate(); err != nil {
		return st, fmt.Errorf("invalid search request: %w", err)
	}
	if st.Request.EmptyRange() {
		logger.Warn("start year is after end year, the search will collect nothing",
			"start_year", st.Request.StartYear, "end_year", st.Request.EndYear)
	}
	return st, nil
}

// intSetting reads key as an integer, returning def with a warning when the
// value is not a valid integer.
func intSetting(v *viper.Viper, key string, def int, logger *slog.Logger) int {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warn("invalid integer setting, using default",
			"key", key, "env", "INPUT_"+strings.ToUpper(key), "value", raw, "default", def)
		return def
	}
	return n
}

// newLogger returns a text logger on w at the named level. Unknown level
// names fall back to info.
func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	bad := lvl.UnmarshalText([]byte(level)) != nil
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	if bad && level != "" {
		logger.Warn("unknown log level, using info", "level", level)
	}
	return logger
}
