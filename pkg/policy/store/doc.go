// Package store provides SQLite-backed persistence for policies and an
// append-only log of evaluation decisions.
//
// Policies are stored by ID with their raw source, so a deployment can
// be reconstructed without the original files. Decisions record the
// outcome of each evaluation together with the outstanding constraints
// when the outcome was a residual, which supports later auditing of why
// a document was or was not accepted.
package store
