package engine

import "fmt"

// UnknownOperatorError reports an operator that is neither registered nor
// resolvable through the fallback, encountered in strict mode. It is a
// hard evaluation error, distinct from the three result values.
type UnknownOperatorError struct {
	// Op is the unresolved operator identifier.
	Op string
}

// Error implements the error interface.
func (e *UnknownOperatorError) Error() string {
	return fmt.Sprintf("evaluate: unknown operator %q", e.Op)
}

// OperandError reports an operand shape the engine cannot evaluate, such
// as a nested call where a document path or literal is required.
type OperandError struct {
	// Op is the operator whose operand is malformed.
	Op string

	// Expr is a rendering of the offending operand.
	Expr string
}

// Error implements the error interface.
func (e *OperandError) Error() string {
	return fmt.Sprintf("evaluate: operator %q requires document path or literal operands, got %s", e.Op, e.Expr)
}

// TypeError reports a document value whose type does not fit where the
// expression uses it, such as a quantifier path resolving to a scalar.
type TypeError struct {
	// Path is the document path holding the offending value.
	Path string

	// Message describes the mismatch.
	Message string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("evaluate: %s at %q", e.Message, e.Path)
}
