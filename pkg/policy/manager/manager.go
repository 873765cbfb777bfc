package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"polaris-hq/polaris/pkg/policy/compile"
	"polaris-hq/polaris/pkg/policy/residual"
)

// Config contains configuration for the policy manager.
type Config struct {
	// Path is the policy file or directory to load from.
	Path string

	// Watch enables hot-reload on file changes.
	Watch bool

	// ResyncSchedule is an optional cron expression for periodic reloads,
	// independent of file events. Empty disables scheduled resync.
	ResyncSchedule string

	// Loader overrides the default loader configuration.
	Loader *LoaderConfig

	// Compile overrides the compile options applied to every rule.
	Compile *compile.Options
}

// DefaultManager is the default implementation of Manager. It coordinates
// policy loading, compilation, registration, and hot-reload.
type DefaultManager struct {
	config   *Config
	loader   *Loader
	registry *Registry
	logger   *slog.Logger

	mu               sync.RWMutex
	lastLoadTime     time.Time
	lastLoadError    error
	lastGoodPolicies []*Policy

	cron *cron.Cron

	watchMu     sync.Mutex
	watchCancel context.CancelFunc
}

// NewManager creates a new policy manager.
func NewManager(config *Config, logger *slog.Logger) (*DefaultManager, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Path == "" {
		return nil, fmt.Errorf("policy path cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &DefaultManager{
		config:   config,
		loader:   NewLoader(config.Loader, config.Compile),
		registry: NewRegistry(),
		logger:   logger,
	}

	if config.ResyncSchedule != "" {
		c := cron.New()
		_, err := c.AddFunc(config.ResyncSchedule, func() {
			logger.Info("Scheduled policy resync")
			if err := m.ReloadPolicies(); err != nil {
				logger.Error("Scheduled resync failed", "error", err)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("invalid resync schedule %q: %w", config.ResyncSchedule, err)
		}
		m.cron = c
	}

	return m, nil
}

// LoadPolicies loads all policies from the configured source.
func (m *DefaultManager) LoadPolicies() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	startTime := time.Now()
	m.logger.Info("Loading policies", "path", m.config.Path)

	policies, err := m.loadFromSource()
	if err != nil {
		m.lastLoadError = err
		m.logger.Error("Failed to load policies",
			"error", err,
			"duration_ms", time.Since(startTime).Milliseconds(),
		)
		return err
	}

	if err := m.registry.Replace(policies); err != nil {
		m.lastLoadError = err
		return err
	}

	m.lastLoadTime = time.Now()
	m.lastLoadError = nil
	m.lastGoodPolicies = policies

	if m.cron != nil {
		m.cron.Start()
	}

	m.logger.Info("Policies loaded",
		"count", len(policies),
		"version", m.registry.GetVersion(),
		"duration_ms", time.Since(startTime).Milliseconds(),
	)
	return nil
}

// ReloadPolicies reloads all policies from the configured source. On any
// failure the previous policy set remains active.
func (m *DefaultManager) ReloadPolicies() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	startTime := time.Now()
	m.logger.Info("Reloading policies", "path", m.config.Path)

	policies, err := m.loadFromSource()
	if err != nil {
		m.lastLoadError = err
		m.logger.Error("Failed to reload policies, keeping previous set",
			"error", err,
			"duration_ms", time.Since(startTime).Milliseconds(),
		)
		return err
	}

	if err := m.registry.Replace(policies); err != nil {
		m.lastLoadError = err
		if len(m.lastGoodPolicies) > 0 {
			_ = m.registry.Replace(m.lastGoodPolicies)
		}
		return err
	}

	m.lastLoadTime = time.Now()
	m.lastLoadError = nil
	m.lastGoodPolicies = policies

	m.logger.Info("Policies reloaded",
		"count", len(policies),
		"version", m.registry.GetVersion(),
		"duration_ms", time.Since(startTime).Milliseconds(),
	)
	return nil
}

// GetPolicy retrieves a single policy by ID.
func (m *DefaultManager) GetPolicy(id string) (*Policy, error) {
	policy, ok := m.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("policy %q not found", id)
	}
	return policy, nil
}

// GetAllPolicies retrieves all loaded policies.
func (m *DefaultManager) GetAllPolicies() []*Policy {
	return m.registry.GetAll()
}

// GetPolicyVersion returns the version of the currently loaded policies.
func (m *DefaultManager) GetPolicyVersion() string {
	return m.registry.GetVersion()
}

// Check evaluates a document against a single policy.
func (m *DefaultManager) Check(id string, doc map[string]interface{}) (residual.Result, error) {
	policy, err := m.GetPolicy(id)
	if err != nil {
		return residual.Contradiction(), err
	}
	return policy.Check.Evaluate(doc)
}

// CheckAll evaluates a document against every loaded policy, keyed by
// policy ID.
func (m *DefaultManager) CheckAll(doc map[string]interface{}) (map[string]residual.Result, error) {
	results := make(map[string]residual.Result)
	for _, policy := range m.registry.GetAll() {
		result, err := policy.Check.Evaluate(doc)
		if err != nil {
			return nil, fmt.Errorf("policy %q: %w", policy.ID, err)
		}
		results[policy.ID] = result
	}
	return results, nil
}

// ValidateDryRun loads and compiles policies without applying them to
// the registry. Useful for linting policy files before deployment.
func (m *DefaultManager) ValidateDryRun() error {
	m.logger.Info("Dry-run validation", "path", m.config.Path)

	policies, err := m.loadFromSource()
	if err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}

	m.logger.Info("Dry-run validation successful", "count", len(policies))
	return nil
}

// Watch starts watching the policy source for changes. Blocks until the
// context is cancelled.
func (m *DefaultManager) Watch(ctx context.Context) error {
	if !m.config.Watch {
		return fmt.Errorf("policy watching is not enabled in configuration")
	}

	m.watchMu.Lock()
	if m.watchCancel != nil {
		m.watchMu.Unlock()
		return fmt.Errorf("watch already started")
	}
	watchCtx, cancel := context.WithCancel(ctx)
	m.watchCancel = cancel
	m.watchMu.Unlock()

	defer func() {
		m.watchMu.Lock()
		if m.watchCancel != nil {
			m.watchCancel()
			m.watchCancel = nil
		}
		m.watchMu.Unlock()
	}()

	m.logger.Info("Starting policy watcher", "path", m.config.Path)

	watchConfig := DefaultFileWatcherConfig()
	watchConfig.Path = m.config.Path

	watcher, err := NewFileWatcher(watchConfig, m.logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	go func() {
		if err := watcher.Watch(watchCtx, m.ReloadPolicies); err != nil {
			m.logger.Error("File watcher error", "error", err)
		}
	}()

	<-watchCtx.Done()

	if err := watcher.Stop(); err != nil {
		m.logger.Error("Failed to stop file watcher", "error", err)
		return err
	}
	return nil
}

// Close releases resources: the file watcher and resync scheduler.
func (m *DefaultManager) Close() error {
	m.watchMu.Lock()
	if m.watchCancel != nil {
		m.watchCancel()
		m.watchCancel = nil
	}
	m.watchMu.Unlock()

	if m.cron != nil {
		m.cron.Stop()
	}

	m.logger.Info("Policy manager closed")
	return nil
}

// GetLastLoadTime returns the timestamp of the last successful load.
func (m *DefaultManager) GetLastLoadTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastLoadTime
}

// GetLastLoadError returns the error from the last load attempt.
func (m *DefaultManager) GetLastLoadError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastLoadError
}

// GetRegistry returns the underlying policy registry, for testing and
// introspection.
func (m *DefaultManager) GetRegistry() *Registry {
	return m.registry
}

// loadFromSource loads policies from the configured path, which may be a
// single file or a directory.
func (m *DefaultManager) loadFromSource() ([]*Policy, error) {
	isDir, err := m.loader.IsDirectory(m.config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to access policy path: %w", err)
	}

	if isDir {
		policies, err := m.loader.LoadFromDirectory(m.config.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to load policies from directory: %w", err)
		}
		return policies, nil
	}

	policy, err := m.loader.LoadFromFile(m.config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy file: %w", err)
	}
	return []*Policy{policy}, nil
}
