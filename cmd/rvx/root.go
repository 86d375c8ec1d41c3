package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "rvx",
	Short: "RVX Relay - LLM-backed crypto news explanation service",
	Long: `RVX Relay answers crypto and finance news questions through an
OpenAI-compatible LLM provider.

It provides:
  - A bounded, TTL-limited response cache keyed on normalized questions
  - Per-user sliding-window rate limiting with exact retry-after hints
  - Conversation context fed back on follow-up questions
  - Token usage accounting per user
  - Prometheus metrics and structured logging`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
