// Package parser turns tagged-tuple policy expressions into expression
// trees.
//
// The surface syntax is the generic nested-list form produced by YAML or
// JSON decoding: the first element of a tuple is the operator identifier,
// the rest are arguments. String arguments with the "doc." prefix are
// document accessors; everything else is a literal.
//
//	["=", "doc.role", "admin"]
//	["and", [">", "doc.age", 18], ["in", "doc.region", ["eu", "us"]]]
//	["forall", "doc.users", ["=", "doc.active", true]]
//
// Parsing is a pure transform: the same expression always parses to a
// structurally equal tree, and malformed input yields a ParseError that
// names the offending sub-expression.
package parser
