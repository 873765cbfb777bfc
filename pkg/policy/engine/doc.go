// Package engine evaluates policy expression trees against documents
// under three-valued logic.
//
// Evaluation walks the tree bottom-up. Table-driven operators check a
// document value against an expected operand; a missing document value
// produces a residual naming the outstanding constraint rather than a
// failure. The boolean connectives and/or/not short-circuit with residual
// accumulation, and forall/exists quantify over sequences found at
// document paths.
//
// An Evaluator is immutable after construction: evaluating the same tree
// against different documents from many goroutines is safe without
// locking. Unify is the same walk entered with a possibly empty document,
// answering "what would satisfy this policy" as an inverse query.
package engine
