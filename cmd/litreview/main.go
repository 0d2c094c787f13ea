// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the litreview CLI: PDF intake with a
// relevance gate, structured analysis, and a local paper collection.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/litreview/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the litreview CLI.
var rootCmd = &cobra.Command{
	Use:   "litreview",
	Short: "Relevance-gated PDF intake and analysis for literature reviews",
	Long: `litreview screens PDF papers against a research profile, extracts a
structured record from each accepted paper with a language model, repairs
bibliographic fields from CrossRef, and keeps the results in a local
collection that can be edited, searched, exported, and backed up.

Configuration is read from ./litreview.yaml or ~/.config/litreview/litreview.yaml
and LITREVIEW_* environment variables. Credentials live in plain-text files
under secrets_dir (default .secrets/): proxy-api-key for the openai provider,
gemini-api-key for the gemini provider.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(viper.GetString("log.mode"))
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		zap.ReplaceGlobals(logger)

		s, err := secrets.Load(viper.GetString("secrets_dir"))
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("secrets available", zap.Strings("keys", keys))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./litreview.yaml or ~/.config/litreview/litreview.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding the collection database")
	rootCmd.PersistentFlags().String("provider", "", "model provider: openai or gemini")
	rootCmd.PersistentFlags().String("model", "", "model identifier (provider default when empty)")
	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))
	viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("litreview")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "litreview"))
		}
	}

	viper.SetDefault("provider", "openai")
	viper.SetDefault("secrets_dir", ".secrets")
	viper.SetDefault("data_dir", "data")
	viper.SetDefault("concurrency", 4)
	viper.SetDefault("excerpt_pages", 3)
	viper.SetDefault("timeout", 2*time.Minute)
	viper.SetDefault("user_agent", "litreview/"+version)
	viper.SetDefault("registry.base_url", "https://api.crossref.org")
	viper.SetDefault("registry.timeout", 30*time.Second)
	viper.SetDefault("log.mode", "dev")

	viper.SetEnvPrefix("LITREVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
