package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rvx-hq/relay/pkg/cli"
	"rvx-hq/relay/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load and validate the configuration file without starting the server.

Exits non-zero when the configuration is invalid, printing what failed.

Examples:
  # Validate default config
  rvx validate

  # Validate a specific file
  rvx validate --config /etc/rvx/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}

	fmt.Printf("✓ Configuration valid: %s\n", cfgFile)
	fmt.Printf("  listen address:  %s\n", cfg.Server.ListenAddress)
	fmt.Printf("  provider:        %s (%s)\n", cfg.Provider.Name, cfg.Provider.Model)
	fmt.Printf("  cache:           %d entries, %s TTL\n", cfg.Cache.MaxEntries, cfg.Cache.TTL)
	fmt.Printf("  rate limit:      %d requests / %s\n", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	fmt.Printf("  conversation:    %s backend\n", cfg.Conversation.Backend)
	return nil
}
