// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/scholar-harvest/internal/harvest"
	"github.com/pdiddy/scholar-harvest/pkg/types"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	configureViper(v)
	v.Set("history_db", "history.db")
	return v
}

func TestLoadSettingsDefaults(t *testing.T) {
	st, err := loadSettings(newTestViper(t), nil)
	require.NoError(t, err)

	assert.Equal(t, harvest.Request{
		Keywords:   "triatomine United States",
		StartYear:  2022,
		EndYear:    2024,
		MaxRetries: 5,
	}, st.Request)
	assert.Equal(t, "north_america_triatomine/google_scholar_raw_US.csv", st.Output)
	assert.Equal(t, "google_scholar", st.Harvest.Provider)
	assert.Equal(t, types.ProxyFree, st.Proxy.Mode)
	assert.Equal(t, defaultTimeout, st.Proxy.Timeout)
	assert.Equal(t, "history.db", st.HistoryDB)
}

func TestLoadSettingsFromEnvironment(t *testing.T) {
	t.Setenv("INPUT_KEYWORDS", "Rhodnius prolixus")
	t.Setenv("INPUT_START_YEAR", "2019")
	t.Setenv("INPUT_END_YEAR", "2020")
	t.Setenv("INPUT_OUTPUT_FILENAME", "out/rhodnius.csv")
	t.Setenv("INPUT_MAX_RESULTS", "50")
	t.Setenv("INPUT_PROVIDER", "openalex")
	t.Setenv("INPUT_PROXY_MODE", "NONE")
	t.Setenv("INPUT_PACING_ITEM_MAX", "1s")
	t.Setenv("INPUT_PROVIDER_URL", "http://mirror.test/works")

	st, err := loadSettings(newTestViper(t), nil)
	require.NoError(t, err)

	assert.Equal(t, "Rhodnius prolixus", st.Request.Keywords)
	assert.Equal(t, 2019, st.Request.StartYear)
	assert.Equal(t, 2020, st.Request.EndYear)
	assert.Equal(t, 50, st.Request.MaxResults)
	assert.Equal(t, "out/rhodnius.csv", st.Output)
	assert.Equal(t, "openalex", st.Harvest.Provider)
	assert.Equal(t, types.ProxyNone, st.Proxy.Mode)
	assert.Equal(t, time.Second, st.Harvest.ItemDelayMax)
	assert.Equal(t, "http://mirror.test/works", st.Harvest.ProviderURL)
}

func TestLoadSettingsInvalidYearFallsBackWithWarning(t *testing.T) {
	t.Setenv("INPUT_START_YEAR", "abc")
	t.Setenv("INPUT_END_YEAR", "20x4")

	var buf bytes.Buffer
	st, err := loadSettings(newTestViper(t), newLogger(&buf, "info"))
	require.NoError(t, err)

	assert.Equal(t, 2022, st.Request.StartYear)
	assert.Equal(t, 2024, st.Request.EndYear)
	assert.Contains(t, buf.String(), "INPUT_START_YEAR")
	assert.Contains(t, buf.String(), "INPUT_END_YEAR")
}

func TestLoadSettingsRejects(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]any
		want string
	}{
		{"blank keywords", map[string]any{"keywords": "   "}, "keywords"},
		{"negative retries", map[string]any{"max_retries": -1}, "max retries"},
		{"bad proxy mode", map[string]any{"proxy.mode": "vpn"}, "invalid proxy mode"},
		{"empty output", map[string]any{"output_filename": ""}, "output filename"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestViper(t)
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := loadSettings(v, nil)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadSettingsNoHistory(t *testing.T) {
	v := newTestViper(t)
	v.Set("no_history", true)
	st, err := loadSettings(v, nil)
	require.NoError(t, err)
	assert.Empty(t, st.HistoryDB)
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "warn")
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	l = newLogger(&buf, "loud")
	assert.Contains(t, buf.String(), "unknown log level")
	l.Debug("hidden")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestLoadSettingsReversedYearsRunWithWarning(t *testing.T) {
	t.Setenv("INPUT_START_YEAR", "2024")
	t.Setenv("INPUT_END_YEAR", "2022")

	var buf bytes.Buffer
	st, err := loadSettings(newTestViper(t), newLogger(&buf, "info"))
	require.NoError(t, err)
	assert.Equal(t, 2024, st.Request.StartYear)
	assert.Equal(t, 2022, st.Request.EndYear)
	assert.True(t, st.Request.EmptyRange())
	assert.Contains(t, buf.String(), "start year is after end year")
}

func TestRootCommandHarvestsByDefault(t *testing.T) {
	require.NotNil(t, rootCmd.RunE)
	assert.Contains(t, rootCmd.Long, "Run without a\nsubcommand, it harvests")

	cmd, _, err := rootCmd.Find([]string{})
	require.NoError(t, err)
	assert.Same(t, rootCmd, cmd)
	assert.True(t, cmd.Runnable())
}
