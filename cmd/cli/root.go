package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sevigo/doc-sentry/internal/config"
	"github.com/sevigo/doc-sentry/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "doc-sentry",
	Short: "doc-sentry analyzes code changes and keeps documentation in sync",
	Long: `doc-sentry runs a five-layer analysis over two repository references,
ranks the documentation files the change impacts, and can rewrite the
affected sections with an LLM.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(rewriteCmd)
	rootCmd.AddCommand(reportCmd)
}

// loadConfig loads the global configuration and installs the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.NewLogger(cfg.Logging, nil)
	slog.SetDefault(log)
	return cfg, nil
}
