// Package compile turns one or more policy expressions into a fast,
// reusable check.
//
// Compilation parses its inputs, constant-folds literal sub-expressions,
// flattens nested conjunctions, groups per-path constraints, and merges
// same-path constraints into their tightest equivalent bounds (">3" and
// ">5" become ">5"; ">10" and "<5" are detected as contradictory). When
// the analysis proves a global contradiction or tautology, the compiled
// check is a constant that never inspects a document.
//
// Compiled evaluation is behaviorally equivalent to evaluating the
// conjunction of the original expressions on any document: simplification
// may change performance and residual minimality, never the three-valued
// classification.
package compile
