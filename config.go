package orchestrator

import (
	"log/slog"
	"time"
)

// Config holds the tunables for a single Orchestrator instance (§2, §9
// ambient stack). It is loaded either via functional options passed to New,
// or via the feeders sub-package from environment variables or a config
// file, following the teacher's Feeder abstraction.
type Config struct {
	// PoolSize is the number of event buses. Each registered machine is
	// pinned to exactly one bus for its lifetime (§3, §4.4).
	PoolSize int `env:"POOL_SIZE" toml:"pool_size" yaml:"poolSize"`

	// EnableBackpressure gates MaxQueueDepth: when false, bus queues are
	// unbounded and tryEnqueue never returns admitFull.
	EnableBackpressure bool `env:"ENABLE_BACKPRESSURE" toml:"enable_backpressure" yaml:"enableBackpressure"`
	MaxQueueDepth      int  `env:"MAX_QUEUE_DEPTH" toml:"max_queue_depth" yaml:"maxQueueDepth"`

	// ThrottleDelay, when non-zero, is handed to a single
	// golang.org/x/time/rate limiter shared by all buses, so bursty callers
	// are paced rather than rejected outright once their target bus nears
	// MaxQueueDepth (§4.7).
	ThrottleDelay time.Duration `env:"THROTTLE_DELAY" toml:"throttle_delay" yaml:"throttleDelay"`

	// EnableMetrics allocates Prometheus collectors on construction, which
	// the bus workers update inline after each event. When false, no
	// Prometheus collector is ever allocated.
	EnableMetrics bool `env:"ENABLE_METRICS" toml:"enable_metrics" yaml:"enableMetrics"`

	// EnableLogging registers a slog-backed trace Observer on construction.
	EnableLogging bool `env:"ENABLE_LOGGING" toml:"enable_logging" yaml:"enableLogging"`

	// DefaultTimeout is used by SendAndWait when the caller passes a negative
	// timeout; a zero timeout is the explicit "don't wait" signal.
	DefaultTimeout time.Duration `env:"DEFAULT_TIMEOUT" toml:"default_timeout" yaml:"defaultTimeout"`

	Logger *slog.Logger `toml:"-" yaml:"-"`
}

// DefaultConfig returns the recommended starting configuration (mirrors the
// teacher's pattern of a conservative, always-safe default for every
// tunable). New fills zero-valued fields of any Config with the same values,
// except EnableBackpressure, which it leaves as given.
func DefaultConfig() Config {
	return Config{
		PoolSize:           8,
		EnableBackpressure: true,
		MaxQueueDepth:      1024,
		ThrottleDelay:      0,
		EnableMetrics:      false,
		EnableLogging:      false,
		DefaultTimeout:     5 * time.Second,
		Logger:             slog.Default(),
	}
}

// Option customizes a Config produced by DefaultConfig.
type Option func(*Config)

func WithPoolSize(n int) Option {
	return func(c *Config) { c.PoolSize = n }
}

func WithBackpressure(maxQueueDepth int) Option {
	return func(c *Config) {
		c.EnableBackpressure = true
		c.MaxQueueDepth = maxQueueDepth
	}
}

func WithoutBackpressure() Option {
	return func(c *Config) { c.EnableBackpressure = false }
}

func WithThrottleDelay(d time.Duration) Option {
	return func(c *Config) { c.ThrottleDelay = d }
}

func WithMetrics() Option {
	return func(c *Config) { c.EnableMetrics = true }
}

func WithLogging(logger *slog.Logger) Option {
	return func(c *Config) {
		c.EnableLogging = true
		if logger != nil {
			c.Logger = logger
		}
	}
}

func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Config) { c.DefaultTimeout = d }
}

func (c *Config) setDefaults() {
	if c.PoolSize <= 0 {
		c.PoolSize = 8
	}
	if c.EnableBackpressure && c.MaxQueueDepth <= 0 {
		c.MaxQueueDepth = 1024
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

func (c *Config) validate() error {
	if c.PoolSize <= 0 {
		return wrapInvalidConfig("poolSize must be positive")
	}
	if c.EnableBackpressure && c.MaxQueueDepth <= 0 {
		return wrapInvalidConfig("maxQueueDepth must be positive when backpressure is enabled")
	}
	if c.ThrottleDelay < 0 {
		return wrapInvalidConfig("throttleDelay must not be negative")
	}
	return nil
}
