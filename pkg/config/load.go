package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file. Defaults are applied
// before decoding, so a field omitted from the file keeps its default,
// including boolean fields that default to true.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention POLARIS_SECTION_FIELD (e.g. POLARIS_POLICY_PATH) and always
// take precedence over file-based configuration.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("POLARIS_POLICY_PATH"); val != "" {
		cfg.Policy.Path = val
	}
	if val := os.Getenv("POLARIS_POLICY_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Policy.Watch = b
		}
	}
	if val := os.Getenv("POLARIS_POLICY_RESYNC_SCHEDULE"); val != "" {
		cfg.Policy.ResyncSchedule = val
	}

	if val := os.Getenv("POLARIS_ENGINE_STRICT"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Engine.Strict = b
		}
	}
	if val := os.Getenv("POLARIS_ENGINE_TRACE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Engine.Trace = b
		}
	}

	if val := os.Getenv("POLARIS_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}

	if val := os.Getenv("POLARIS_STORE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Store.Enabled = b
		}
	}
	if val := os.Getenv("POLARIS_STORE_PATH"); val != "" {
		cfg.Store.Path = val
	}
	if val := os.Getenv("POLARIS_STORE_BUSY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Store.BusyTimeout = d
		}
	}

	if val := os.Getenv("POLARIS_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("POLARIS_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("POLARIS_METRICS_NAMESPACE"); val != "" {
		cfg.Telemetry.Metrics.Namespace = val
	}
}
