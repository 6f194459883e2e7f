// Package config provides YAML configuration parsing for the trendwatch
// CLI.
//
// This package enables running the watcher as a standalone binary with
// a configuration file, as an alternative to the programmatic SDK
// approach.
//
// Example configuration:
//
//	base_url: https://backend.trendscribe.io
//	token: ${TRENDSCRIBE_TOKEN}
//
//	subscriptions:
//	  - id: job-table
//	    endpoint: jobs
//	    interval: 10s
//	  - endpoint: detailed-costs
//	    interval: 1m
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/trendscribe/trendwatch"
)

// interval bounds for subscriptions. The lower bound prevents
// accidental DoS of the backend with overly aggressive polling.
const (
	minInterval = 1 * time.Second
	maxInterval = 1 * time.Hour
)

// Config is the root configuration structure for the trendwatch CLI.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// BaseURL is the TrendScribe backend base URL.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	BaseURL string `yaml:"base_url"`

	// Token is the bearer token sent with every request.
	// Supports environment variable substitution. Optional; empty
	// means requests are unauthenticated.
	Token string `yaml:"token"`

	// MinInterval is the floor below which no effective polling
	// interval drops. Defaults to 5s.
	MinInterval Duration `yaml:"min_interval"`

	// ActivityWindow is how long after a manual refresh job-related
	// endpoints poll at 5x speed. Defaults to 2m.
	ActivityWindow Duration `yaml:"activity_window"`

	// Subscriptions defines which endpoints to watch.
	Subscriptions []SubscriptionConfig `yaml:"subscriptions"`
}

// SubscriptionConfig defines a single endpoint subscription.
type SubscriptionConfig struct {
	// ID identifies the subscription in logs. Optional; a UUID is
	// generated when empty.
	ID string `yaml:"id"`

	// Endpoint is the logical endpoint name (e.g. "jobs",
	// "dashboard-stats", "detailed-costs").
	Endpoint string `yaml:"endpoint"`

	// Interval is the requested polling interval.
	// If not specified, the service default (30s) is used.
	// Must be between 1s and 1h.
	Interval Duration `yaml:"interval"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in BaseURL and Token. Defaults are
// applied for MinInterval (5s) and ActivityWindow (2m).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.MinInterval == 0 {
		cfg.MinInterval = Duration(5 * time.Second)
	}
	if cfg.ActivityWindow == 0 {
		cfg.ActivityWindow = Duration(2 * time.Minute)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	expanded, err := expandEnvVars(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	c.BaseURL = expanded

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("base_url scheme must be http or https, got %q", parsedURL.Scheme)
	}

	expanded, err = expandEnvVars(c.Token)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	c.Token = expanded

	if c.MinInterval.Duration() < 0 {
		return fmt.Errorf("min_interval cannot be negative, got %s", c.MinInterval.Duration())
	}
	if c.ActivityWindow.Duration() < 0 {
		return fmt.Errorf("activity_window cannot be negative, got %s", c.ActivityWindow.Duration())
	}

	if len(c.Subscriptions) == 0 {
		return errors.New("at least one subscription must be defined")
	}

	known := make(map[string]bool)
	for _, endpoint := range trendwatch.KnownEndpoints() {
		known[endpoint.String()] = true
	}

	seenIDs := make(map[string]int)
	for i := range c.Subscriptions {
		sc := &c.Subscriptions[i]

		if sc.Endpoint == "" {
			return fmt.Errorf("subscriptions[%d]: endpoint is required", i)
		}
		if !known[sc.Endpoint] {
			return fmt.Errorf("subscriptions[%d]: unknown endpoint %q", i, sc.Endpoint)
		}

		if sc.ID != "" {
			if prev, dup := seenIDs[sc.ID]; dup {
				return fmt.Errorf("subscriptions[%d]: duplicate id %q (already used by subscriptions[%d])", i, sc.ID, prev)
			}
			seenIDs[sc.ID] = i
		}

		if sc.Interval != 0 {
			if sc.Interval.Duration() < minInterval {
				return fmt.Errorf("subscriptions[%d] (%s): interval must be at least %s, got %s",
					i, sc.Endpoint, minInterval, sc.Interval.Duration())
			}
			if sc.Interval.Duration() > maxInterval {
				return fmt.Errorf("subscriptions[%d] (%s): interval must not exceed %s, got %s",
					i, sc.Endpoint, maxInterval, sc.Interval.Duration())
			}
		}
	}

	return nil
}
