package parser

import (
	"fmt"
	"strings"
)

// ParseError describes why a policy expression was rejected. It identifies
// the offending sub-expression so policy authors can locate the problem in
// a larger document.
type ParseError struct {
	// Reason categorizes the failure.
	Reason ErrorReason

	// Message is the human-readable description.
	Message string

	// Expr is a rendering of the offending sub-expression.
	Expr string
}

// ErrorReason categorizes parse failures.
type ErrorReason string

const (
	ReasonMalformed       ErrorReason = "malformed"        // not a tuple, empty tuple, bad shape
	ReasonUnknownOperator ErrorReason = "unknown_operator" // operator not registered and no fallback allowed
	ReasonArity           ErrorReason = "arity"            // wrong number of arguments
	ReasonBadPath         ErrorReason = "bad_path"         // malformed document path
)

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Expr == "" {
		return fmt.Sprintf("parse: %s: %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("parse: %s: %s in %s", e.Reason, e.Message, e.Expr)
}

// ErrorList accumulates parse errors across multiple expressions, so a
// policy file with several bad rules reports all of them at once.
type ErrorList struct {
	Errors []*ParseError
}

// Add appends an error to the list.
func (el *ErrorList) Add(err *ParseError) {
	el.Errors = append(el.Errors, err)
}

// HasErrors reports whether any errors were accumulated.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// ToError returns nil when the list is empty, the list itself otherwise.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

// Error implements the error interface.
func (el *ErrorList) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "found %d parse error(s):\n", len(el.Errors))
	for i, err := range el.Errors {
		fmt.Fprintf(&sb, "  %d: %s\n", i+1, err.Error())
	}
	return sb.String()
}
