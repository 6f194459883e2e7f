package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/trendscribe/trendwatch/config"
)

// newLogger creates a JSON logger for CLI use.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// watchCmd starts polling and streams updates until interrupted.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll configured endpoints and log updates",
	Long: `Start polling the configured TrendScribe endpoints.

The watcher will:
  - Load configuration from the specified YAML file
  - Subscribe to every configured endpoint
  - Log each broadcast update and error as structured JSON

The watcher runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  trendwatch watch -c config.yaml
  trendwatch watch --config /etc/trendwatch/config.yaml --debug`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	watchCmd.Flags().Bool("debug", false, "log every completed poll, not just updates with errors")
	_ = watchCmd.MarkFlagRequired("config")
}

func runWatch(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	logger := newLogger(debug)

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"base_url", cfg.BaseURL,
		"subscriptions", len(cfg.Subscriptions),
	)

	client, svc, err := config.Build(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer client.Close()
	defer svc.Close()

	err = config.Subscribe(svc, cfg,
		func(sc config.SubscriptionConfig, data any) {
			logger.Info("update",
				"endpoint", sc.Endpoint,
				"subscription_id", sc.ID,
				"payload", data,
			)
		},
		func(sc config.SubscriptionConfig, pollErr error) {
			logger.Warn("poll error",
				"endpoint", sc.Endpoint,
				"subscription_id", sc.ID,
				"error", pollErr.Error(),
			)
		},
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	logger.Info("watching", "endpoints", len(cfg.Subscriptions))

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
