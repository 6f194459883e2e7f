package trendwatch

import (
	"errors"
	"log/slog"
	"time"
)

// serviceConfig holds mutable state during Service construction.
type serviceConfig struct {
	logger         *slog.Logger
	visibility     Visibility
	floor          time.Duration
	activityWindow time.Duration
}

// Option configures a [Service] during construction.
//
// Option implements the functional options pattern. Options return an
// error if validation fails.
//
// Built-in options: [WithLogger], [WithVisibility], [WithFloor],
// [WithActivityWindow].
type Option func(*serviceConfig) error

// WithLogger sets a custom [slog.Logger] for the service.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *serviceConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithVisibility sets the [Visibility] source consulted when computing
// effective intervals.
//
// A hidden host multiplies every effective interval by 6 to reduce
// backend load while nobody is looking at the data. If not specified,
// the host is treated as always visible.
//
// Returns an error if the source is nil.
func WithVisibility(v Visibility) Option {
	return func(cfg *serviceConfig) error {
		if v == nil {
			return errors.New("visibility source cannot be nil")
		}
		cfg.visibility = v
		return nil
	}
}

// WithFloor sets the minimum effective polling interval.
//
// No combination of speed-up factors drives an endpoint below this
// floor. Defaults to 5 seconds.
//
// Returns an error if the duration is zero or negative.
func WithFloor(d time.Duration) Option {
	return func(cfg *serviceConfig) error {
		if d <= 0 {
			return errors.New("interval floor must be positive")
		}
		cfg.floor = d
		return nil
	}
}

// WithActivityWindow sets how long after a manual refresh the
// job-related endpoints poll at 5x speed.
//
// Defaults to 2 minutes.
//
// Returns an error if the duration is zero or negative.
func WithActivityWindow(d time.Duration) Option {
	return func(cfg *serviceConfig) error {
		if d <= 0 {
			return errors.New("activity window must be positive")
		}
		cfg.activityWindow = d
		return nil
	}
}
