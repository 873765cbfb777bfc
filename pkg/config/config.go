package config

import "time"

// Config is the root configuration structure for Polaris. It contains
// configuration for the policy engine, policy sources, the decision
// store, and telemetry.
type Config struct {
	// Policy contains configuration for the policy source including
	// location, watch mode, and scheduled resync.
	Policy PolicyConfig `yaml:"policy"`

	// Engine contains configuration for expression evaluation.
	Engine EngineConfig `yaml:"engine"`

	// Server contains configuration for the HTTP check API.
	Server ServerConfig `yaml:"server"`

	// Store contains configuration for policy and decision persistence.
	Store StoreConfig `yaml:"store"`

	// Telemetry contains configuration for logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// PolicyConfig contains configuration for the policy source.
type PolicyConfig struct {
	// Path is the policy file or directory to load.
	// Default: "./policies"
	Path string `yaml:"path"`

	// Watch enables hot-reload on file changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// ResyncSchedule is an optional cron expression for periodic reloads
	// independent of file events. Empty disables scheduled resync.
	ResyncSchedule string `yaml:"resync_schedule"`

	// MaxFileSize is the maximum policy file size in bytes.
	// Default: 10485760 (10MB)
	MaxFileSize int64 `yaml:"max_file_size"`
}

// EngineConfig contains configuration for expression evaluation.
type EngineConfig struct {
	// Strict makes unknown operators hard errors. When false, an unknown
	// operator degrades to an unresolvable residual.
	// Default: true
	Strict bool `yaml:"strict"`

	// Trace enables per-node evaluation tracing.
	// Default: false
	Trace bool `yaml:"trace"`
}

// ServerConfig contains configuration for the HTTP check API.
type ServerConfig struct {
	// ListenAddress is the address the server binds to.
	// Default: ":8388"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum duration to wait for the next request on
	// a keep-alive connection.
	// Default: 60s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for in-flight
	// requests during graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes is the maximum size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// StoreConfig contains configuration for policy and decision persistence.
type StoreConfig struct {
	// Enabled controls whether decisions are persisted.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file path.
	// Default: "data/polaris.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the log output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes source file positions in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	// Default: "polaris"
	Namespace string `yaml:"namespace"`
}
