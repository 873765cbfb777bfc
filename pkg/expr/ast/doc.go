// Package ast defines the abstract syntax tree for Polaris constraint
// expressions.
//
// An expression is one of three node kinds:
//
//   - Literal: a constant scalar or collection value
//   - DocAccessor: a reference to a value at a path inside the evaluated
//     document
//   - Call: an operator, connective, or quantifier applied to child nodes
//
// Trees are immutable after construction and safe for concurrent use.
// The parser package builds them from the tagged-tuple surface syntax;
// the engine, compile, and negate packages consume them.
package ast
