package engine

import (
	"fmt"

	"polaris-hq/polaris/pkg/policy/operator"
)

// FallbackResolver supplies a definition for an operator identifier that
// is not in the registry. It returns false when it cannot resolve the
// identifier either.
type FallbackResolver func(id string) (operator.Definition, bool)

// Config controls evaluator behavior.
type Config struct {
	// Registry is the operator table. Defaults to the built-in set.
	Registry *operator.Registry

	// Fallback resolves operators missing from the registry. Optional.
	Fallback FallbackResolver

	// Strict makes an unknown operator (after the fallback) a hard
	// evaluation error. When false, an unknown operator degrades to a
	// residual: conservative callers treat that as "not satisfied".
	Strict bool

	// Trace enables per-node evaluation tracing.
	Trace bool
}

// DefaultConfig returns the default evaluator configuration: built-in
// operators, strict about unknown ones, no tracing.
func DefaultConfig() *Config {
	return &Config{
		Registry: operator.Default(),
		Strict:   true,
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Registry == nil {
		return fmt.Errorf("config requires an operator registry")
	}
	return nil
}
