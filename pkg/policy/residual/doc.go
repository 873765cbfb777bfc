// Package residual implements the three-valued result model for policy
// evaluation.
//
// Evaluating a policy against a (possibly partial) document yields one of
// three outcomes:
//
//   - Satisfied: every constraint holds
//   - Contradiction: at least one constraint provably fails
//   - Residual: some constraints could not be resolved because the
//     document is missing values; the residual records exactly which
//     constraints remain outstanding, keyed by document path
//
// Classification is purely structural: a satisfied result is an empty
// residual, a contradiction is the absent map. This keeps Merge (AND) and
// Combine (OR) closed over a single representation.
package residual
