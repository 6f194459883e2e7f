package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trendscribe/trendwatch/config"
)

// validateCmd validates a config file without starting the watcher.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a trendwatch configuration file without starting the watcher.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  trendwatch validate -c config.yaml
  trendwatch validate --config /etc/trendwatch/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// count distinct endpoints (several subscriptions can share one)
	endpoints := make(map[string]struct{})
	for _, sc := range cfg.Subscriptions {
		endpoints[sc.Endpoint] = struct{}{}
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Base URL:        %s\n", cfg.BaseURL)
	fmt.Printf("  Min interval:    %s\n", cfg.MinInterval.Duration())
	fmt.Printf("  Activity window: %s\n", cfg.ActivityWindow.Duration())
	fmt.Printf("  Subscriptions:   %d across %d endpoints\n",
		len(cfg.Subscriptions), len(endpoints))

	return nil
}
