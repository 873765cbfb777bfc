package config

import "time"

// Default values for configuration fields.
const (
	// Policy defaults
	DefaultPolicyPath        = "./policies"
	DefaultPolicyWatch       = false
	DefaultPolicyMaxFileSize = int64(10 * 1024 * 1024)

	// Engine defaults
	DefaultEngineStrict = true
	DefaultEngineTrace  = false

	// Server defaults
	DefaultServerListenAddress   = ":8388"
	DefaultServerReadTimeout     = 10 * time.Second
	DefaultServerWriteTimeout    = 10 * time.Second
	DefaultServerIdleTimeout     = 60 * time.Second
	DefaultServerShutdownTimeout = 15 * time.Second
	DefaultServerMaxHeaderBytes  = 1 << 20

	// Store defaults
	DefaultStoreEnabled      = false
	DefaultStorePath         = "data/polaris.db"
	DefaultStoreMaxOpenConns = 10
	DefaultStoreMaxIdleConns = 5
	DefaultStoreWALMode      = true
	DefaultStoreBusyTimeout  = 5 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsEnabled   = true
	DefaultMetricsNamespace = "polaris"
)

// DefaultConfig returns a configuration populated with all defaults,
// including the boolean fields that default to true and are therefore
// not recoverable by ApplyDefaults.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Engine.Strict = DefaultEngineStrict
	cfg.Store.WALMode = DefaultStoreWALMode
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in default values for any unset fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Policy.Path == "" {
		cfg.Policy.Path = DefaultPolicyPath
	}
	if cfg.Policy.MaxFileSize == 0 {
		cfg.Policy.MaxFileSize = DefaultPolicyMaxFileSize
	}

	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultServerListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultServerIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultServerMaxHeaderBytes
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if cfg.Store.MaxOpenConns == 0 {
		cfg.Store.MaxOpenConns = DefaultStoreMaxOpenConns
	}
	if cfg.Store.MaxIdleConns == 0 {
		cfg.Store.MaxIdleConns = DefaultStoreMaxIdleConns
	}
	if cfg.Store.BusyTimeout == 0 {
		cfg.Store.BusyTimeout = DefaultStoreBusyTimeout
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
}
