// Package operator defines the open, table-driven operator set used in
// policy expressions.
//
// Each operator carries its evaluation function plus optional algebraic
// metadata: the identifier of its logical negation, a simplification class
// and function used by the compiler to merge same-path constraints, and a
// subsumption predicate. The boolean connectives (and/or/not) and the
// quantifiers are deliberately not in the table; they need control over
// three-valued short-circuit semantics and live in the engine.
//
// Registries are built once during startup via a Builder and are immutable
// afterwards, so concurrent evaluation never races with registration.
package operator
