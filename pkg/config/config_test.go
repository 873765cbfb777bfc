package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfigFile(t, "{}\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Policy.Path != DefaultPolicyPath {
		t.Errorf("Policy.Path = %q, want %q", cfg.Policy.Path, DefaultPolicyPath)
	}
	if !cfg.Engine.Strict {
		t.Error("Engine.Strict = false, want default true")
	}
	if !cfg.Store.WALMode {
		t.Error("Store.WALMode = false, want default true")
	}
	if cfg.Store.BusyTimeout != DefaultStoreBusyTimeout {
		t.Errorf("Store.BusyTimeout = %v, want %v", cfg.Store.BusyTimeout, DefaultStoreBusyTimeout)
	}
	if cfg.Server.ListenAddress != DefaultServerListenAddress {
		t.Errorf("Server.ListenAddress = %q, want %q", cfg.Server.ListenAddress, DefaultServerListenAddress)
	}
	if cfg.Server.ShutdownTimeout != DefaultServerShutdownTimeout {
		t.Errorf("Server.ShutdownTimeout = %v, want %v", cfg.Server.ShutdownTimeout, DefaultServerShutdownTimeout)
	}
	if cfg.Telemetry.Logging.Level != "info" || cfg.Telemetry.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want info/json defaults", cfg.Telemetry.Logging)
	}
	if cfg.Telemetry.Metrics.Namespace != "polaris" {
		t.Errorf("Metrics.Namespace = %q, want polaris", cfg.Telemetry.Metrics.Namespace)
	}
}

func TestLoadConfig_ExplicitValues(t *testing.T) {
	path := writeConfigFile(t, `
policy:
  path: /etc/polaris/policies
  watch: true
  resync_schedule: "0 * * * *"
engine:
  strict: false
  trace: true
server:
  listen_address: ":9000"
  read_timeout: 5s
store:
  enabled: true
  path: /var/lib/polaris/polaris.db
  busy_timeout: 2s
telemetry:
  logging:
    level: debug
    format: text
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Policy.Path != "/etc/polaris/policies" || !cfg.Policy.Watch {
		t.Errorf("Policy = %+v, want explicit values", cfg.Policy)
	}
	if cfg.Engine.Strict {
		t.Error("Engine.Strict = true, want explicit false")
	}
	if !cfg.Engine.Trace {
		t.Error("Engine.Trace = false, want true")
	}
	if cfg.Store.BusyTimeout != 2*time.Second {
		t.Errorf("Store.BusyTimeout = %v, want 2s", cfg.Store.BusyTimeout)
	}
	if cfg.Server.ListenAddress != ":9000" || cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("Server = %+v, want explicit values", cfg.Server)
	}
	if cfg.Server.IdleTimeout != DefaultServerIdleTimeout {
		t.Errorf("Server.IdleTimeout = %v, want default %v", cfg.Server.IdleTimeout, DefaultServerIdleTimeout)
	}
	if cfg.Telemetry.Logging.Level != "debug" || cfg.Telemetry.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want debug/text", cfg.Telemetry.Logging)
	}
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	path := writeConfigFile(t, `
telemetry:
  logging:
    level: loud
    format: xml
`)

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("LoadConfig() error = nil, want validation failure")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("LoadConfig() error = %v, want ValidationError", err)
	}
	if len(verr.Errors) != 2 {
		t.Errorf("ValidationError = %d field errors, want 2: %v", len(verr.Errors), verr)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("LoadConfig() error = %v, want read failure", err)
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "policy: [unclosed")

	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("LoadConfig() error = %v, want parse failure", err)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
policy:
  path: /from/file
`)

	t.Setenv("POLARIS_POLICY_PATH", "/from/env")
	t.Setenv("POLARIS_POLICY_WATCH", "true")
	t.Setenv("POLARIS_ENGINE_STRICT", "false")
	t.Setenv("POLARIS_LOGGING_LEVEL", "warn")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if cfg.Policy.Path != "/from/env" {
		t.Errorf("Policy.Path = %q, want env override", cfg.Policy.Path)
	}
	if !cfg.Policy.Watch {
		t.Error("Policy.Watch = false, want env override true")
	}
	if cfg.Engine.Strict {
		t.Error("Engine.Strict = true, want env override false")
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Telemetry.Logging.Level)
	}
}

func TestValidate_StoreFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Enabled = true
	cfg.Store.Path = ""
	cfg.Store.MaxOpenConns = -1

	err := Validate(cfg)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want ValidationError", err)
	}
	if len(verr.Errors) != 2 {
		t.Errorf("Validate() = %d field errors, want 2: %v", len(verr.Errors), verr)
	}
}
