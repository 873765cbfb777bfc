package manager

import (
	"context"
	"time"

	"polaris-hq/polaris/pkg/policy/compile"
	"polaris-hq/polaris/pkg/policy/residual"
)

// Manager is the main interface for policy lifecycle operations.
// It coordinates policy loading, compilation, registration, and hot-reload.
type Manager interface {
	// LoadPolicies loads all policies from the configured source.
	// Every file is parsed and compiled before any policy becomes visible.
	LoadPolicies() error

	// ReloadPolicies reloads all policies from the configured source.
	// This is an atomic operation: all policies are compiled before any
	// are applied. If compilation fails, the previous set remains active.
	ReloadPolicies() error

	// GetPolicy retrieves a single policy by ID.
	GetPolicy(id string) (*Policy, error)

	// GetAllPolicies retrieves all loaded policies. The returned slice is
	// a snapshot and will not be modified by the manager.
	GetAllPolicies() []*Policy

	// GetPolicyVersion returns the version of the currently loaded set.
	// This is a hash over policy identities and source files.
	GetPolicyVersion() string

	// Check evaluates a document against a single policy.
	Check(id string, doc map[string]interface{}) (residual.Result, error)

	// CheckAll evaluates a document against every loaded policy.
	CheckAll(doc map[string]interface{}) (map[string]residual.Result, error)

	// Watch starts watching the policy source for changes. Changed files
	// trigger an automatic reload. Blocks until the context is cancelled.
	Watch(ctx context.Context) error

	// Close releases resources: file watchers and the resync scheduler.
	Close() error
}

// Policy is a named set of compiled constraint rules. The rules form an
// implicit conjunction: a document conforms when every enabled rule holds.
type Policy struct {
	// ID is the unique policy identifier.
	ID string

	// Name is the human-readable policy name.
	Name string

	// Description documents the policy's intent.
	Description string

	// Version is the policy version declared in the source file.
	Version string

	// SourceFile is the path the policy was loaded from.
	SourceFile string

	// Rules holds the individual rules in declaration order.
	Rules []*Rule

	// Check is the compiled conjunction of all enabled rules.
	Check *compile.CompiledCheck
}

// Rule is a single constraint expression within a policy.
type Rule struct {
	// ID identifies the rule within its policy.
	ID string

	// Description documents what the rule enforces.
	Description string

	// Expr is the raw tagged-tuple expression as decoded from YAML.
	Expr interface{}

	// Disabled excludes the rule from the policy's compiled check while
	// keeping it visible for introspection.
	Disabled bool

	// Check is the rule compiled in isolation.
	Check *compile.CompiledCheck
}

// EnabledRules returns the rules participating in the policy's check.
func (p *Policy) EnabledRules() []*Rule {
	enabled := make([]*Rule, 0, len(p.Rules))
	for _, r := range p.Rules {
		if !r.Disabled {
			enabled = append(enabled, r)
		}
	}
	return enabled
}

// LoadResult contains the results of a policy loading operation.
type LoadResult struct {
	// Policies is the list of successfully loaded policies.
	Policies []*Policy

	// Errors is the list of errors encountered during loading.
	Errors []error

	// LoadTime is the duration of the load operation.
	LoadTime time.Duration

	// FileCount is the number of files processed.
	FileCount int
}

// LoaderConfig contains configuration for the policy loader.
type LoaderConfig struct {
	// MaxFileSize is the maximum file size in bytes (default: 10MB).
	MaxFileSize int64

	// AllowedExtensions is the list of policy file extensions
	// (default: [".yaml", ".yml"]).
	AllowedExtensions []string

	// FollowSymlinks controls whether to follow symbolic links
	// (default: true).
	FollowSymlinks bool

	// SkipHidden controls whether to skip hidden files and directories
	// (default: true).
	SkipHidden bool
}

// DefaultLoaderConfig returns the default loader configuration.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		MaxFileSize:       10 * 1024 * 1024,
		AllowedExtensions: []string{".yaml", ".yml"},
		FollowSymlinks:    true,
		SkipHidden:        true,
	}
}
