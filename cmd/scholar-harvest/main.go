// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the scholar-harvest CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/scholar-harvest/internal/history"
	"github.com/pdiddy/scholar-harvest/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds API keys loaded from the secrets directory at startup.
	loadedSecrets map[string]string
	logger        = slog.Default()
)

// rootCmd is the base command for the scholar-harvest CLI.
var rootCmd = &cobra.Command{
	Use:   "scholar-harvest",
	Short: "Collect academic search results for a keyword and year range into CSV",
	Long: `scholar-harvest pages through an academic search provider for publications
matching keywords within a publication-year range and writes the matches to a
CSV file. Throttled searches are resumed on a fresh proxy.

Settings come from flags, INPUT_* environment variables, or a
scholar-harvest.yaml config file, in that order of precedence. Run without a
subcommand, it harvests using the environment and config file alone:

  INPUT_KEYWORDS="triatomine United States" INPUT_START_YEAR=2022 \
  INPUT_END_YEAR=2024 scholar-harvest`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger(os.Stderr, viper.GetString("log_level"))
		slog.SetDefault(logger)

		s, err := secrets.Load(viper.GetString("secrets_dir"))
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./scholar-harvest.yaml or ~/.config/scholar-harvest/config.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, or error")
	pf.String("secrets-dir", secrets.DefaultDir, "directory of secret files")
	pf.String("history-db", history.DefaultPath, "run history database")

	_ = viper.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("secrets_dir", pf.Lookup("secrets-dir"))
	_ = viper.BindPFlag("history_db", pf.Lookup("history-db"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("scholar-harvest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "scholar-harvest"))
		}
	}

	configureViper(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
