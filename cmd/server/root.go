package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/agrineural/agrineural/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agrineural",
	Short: "AgriNeural - farm image ingestion and anomaly reporting",
	Long: `AgriNeural ingests aerial images of registered farms, classifies each one
with an anomaly detection model and reports crop health per farm.

Run 'agrineural serve' to start the API server, 'agrineural import' to load
farms from a JSON file, or 'agrineural token' to mint an API token.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(tokenCmd)
}

// newLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
