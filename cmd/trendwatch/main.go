// Package main is the entry point for the trendwatch CLI.
//
// The polling service can be used either as a library (SDK) or as a
// standalone watcher with YAML configuration. This CLI provides the
// standalone approach.
//
// Usage:
//
//	trendwatch watch -c config.yaml    # Poll the backend and log updates
//	trendwatch validate -c config.yaml # Validate configuration
//	trendwatch version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "trendwatch",
	Short: "Poll the TrendScribe backend and stream updates",
	Long: `Trendwatch polls logical TrendScribe backend endpoints at adaptive
intervals and streams every update as structured log output.

Multiple subscriptions to the same endpoint share a single polling
loop; responses are cached and deduplicated, and cadence slows
automatically while the backend is failing.

Quick start:
  1. Create a config file (trendwatch.yaml)
  2. Run: trendwatch watch -c trendwatch.yaml

Example config:
  base_url: https://backend.trendscribe.io
  token: ${TRENDSCRIBE_TOKEN}
  subscriptions:
    - endpoint: jobs
      interval: 10s
    - endpoint: dashboard-stats`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this trendwatch binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("trendwatch %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
