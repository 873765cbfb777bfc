package manager

import (
	"fmt"
	"strings"
)

// LoadError represents an error that occurred during policy loading.
// This includes file system errors like "file not found" or "permission
// denied", and violations of size or encoding limits.
type LoadError struct {
	// FilePath is the path to the file that failed to load.
	FilePath string

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load policy file %q: %s: %v", e.FilePath, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load policy file %q: %s", e.FilePath, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// PolicyError represents an error in a policy file's contents: YAML that
// does not decode, a missing ID, or a rule expression that fails to
// compile.
type PolicyError struct {
	// FilePath is the path to the offending file.
	FilePath string

	// PolicyID is the policy's declared ID, if decoding got that far.
	PolicyID string

	// RuleID is the offending rule, if applicable.
	RuleID string

	// Message describes the problem.
	Message string

	// Cause is the underlying decode or compile error.
	Cause error
}

// Error implements the error interface.
func (e *PolicyError) Error() string {
	parts := []string{fmt.Sprintf("invalid policy in %q", e.FilePath)}
	if e.PolicyID != "" {
		parts = append(parts, fmt.Sprintf("policy %q", e.PolicyID))
	}
	if e.RuleID != "" {
		parts = append(parts, fmt.Sprintf("rule %q", e.RuleID))
	}
	parts = append(parts, e.Message)
	return strings.Join(parts, ": ")
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *PolicyError) Unwrap() error {
	return e.Cause
}

// RegistryError represents an error during registry operations.
type RegistryError struct {
	// PolicyID is the ID of the policy involved in the error.
	PolicyID string

	// Operation is the operation that failed (e.g. "register", "replace").
	Operation string

	// Message describes the error.
	Message string
}

// Error implements the error interface.
func (e *RegistryError) Error() string {
	if e.PolicyID != "" {
		return fmt.Sprintf("registry error for policy %q during %s: %s", e.PolicyID, e.Operation, e.Message)
	}
	return fmt.Sprintf("registry error during %s: %s", e.Operation, e.Message)
}

// ErrorList contains multiple errors from a policy operation. This is used
// when loading a directory where some files succeed and others fail.
type ErrorList struct {
	Errors []error
}

// Error implements the error interface.
func (e *ErrorList) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %v\n", i+1, err))
	}
	return sb.String()
}

// Add adds an error to the list.
func (e *ErrorList) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if the list contains any errors.
func (e *ErrorList) HasErrors() bool {
	return len(e.Errors) > 0
}

// ToError returns nil if there are no errors, the single error if there is
// one, or the ErrorList itself if there are multiple.
func (e *ErrorList) ToError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	if len(e.Errors) == 1 {
		return e.Errors[0]
	}
	return e
}
