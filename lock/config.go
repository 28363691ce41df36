package lock

import (
	"time"

	"github.com/ArdentAILabs/benchlock/logger"
	"github.com/ArdentAILabs/benchlock/types"
)

// Option applies a configuration setting to a Client during construction.
type Option func(*Config)

// Config holds configuration parameters for a Client.
type Config struct {
	// DefaultTTL is the fallback expiry window used when AcquireLock is
	// called with a zero ttl.
	DefaultTTL time.Duration

	// DefaultPollInterval is the fallback retry interval used when
	// AcquireLock is called with a zero pollInterval.
	DefaultPollInterval time.Duration

	// Metadata is attached verbatim to every record this client inserts.
	// Diagnostic only; never consulted by lock logic.
	Metadata types.Metadata

	Logger  logger.Logger
	Metrics Metrics
	Clock   types.Clock
}

// DefaultConfig returns a Config with the predefined defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:          DefaultTTL,
		DefaultPollInterval: DefaultPollInterval,
	}
}

// WithDefaultTTL sets the fallback TTL for acquire attempts that don't
// specify one. Non-positive values are ignored.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(cfg *Config) {
		if ttl > 0 {
			cfg.DefaultTTL = ttl
		}
	}
}

// WithDefaultPollInterval sets the fallback poll interval for blocking
// acquisition. Non-positive values are ignored.
func WithDefaultPollInterval(interval time.Duration) Option {
	return func(cfg *Config) {
		if interval > 0 {
			cfg.DefaultPollInterval = interval
		}
	}
}

// WithMetadata sets the diagnostic payload stored with every record this
// client inserts.
func WithMetadata(meta types.Metadata) Option {
	return func(cfg *Config) {
		if meta != nil {
			cfg.Metadata = meta
		}
	}
}

// WithLogger sets the logger for internal events.
func WithLogger(l logger.Logger) Option {
	return func(cfg *Config) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

// WithMetrics sets the metrics collector for operational data.
func WithMetrics(m Metrics) Option {
	return func(cfg *Config) {
		if m != nil {
			cfg.Metrics = m
		}
	}
}

// WithClock sets the clock used for timeout accounting and poll sleeps.
func WithClock(c types.Clock) Option {
	return func(cfg *Config) {
		if c != nil {
			cfg.Clock = c
		}
	}
}
