package residual

import (
	"fmt"
	"sort"
	"strings"
)

// Reserved residual keys. Regular keys are document paths in dot notation;
// these two hold constraints that cannot be attributed to a single path.
const (
	// CrossPathKey holds comparisons between two document paths.
	CrossPathKey = "$cross"

	// ComplexKey holds sub-expressions that cannot be flattened into
	// per-path constraint lists (disjunctive branches, quantifiers).
	ComplexKey = "$complex"
)

// Constraint is a single outstanding requirement on a document value:
// the value at the owning path must satisfy Op against Value.
type Constraint struct {
	// Op is the operator identifier ("=", ">", "in", ...).
	Op string

	// Value is the expected operand. For CrossPathKey constraints this is
	// the other path; for ComplexKey constraints it is a rendering of the
	// unflattened sub-expression.
	Value interface{}
}

// PathConstraint is the flat form of a residual entry, used when a
// residual is presented to callers as policy-shaped data.
type PathConstraint struct {
	Path  string
	Op    string
	Value interface{}
}

// Result is the three-valued outcome of evaluating a policy.
//
// The zero value is a Contradiction; construct results with Satisfied,
// Contradiction, or New. Results are immutable once returned by the
// engine and safe for concurrent reads.
type Result struct {
	paths map[string][]Constraint
}

// Satisfied returns the result with no outstanding constraints.
func Satisfied() Result {
	return Result{paths: map[string][]Constraint{}}
}

// Contradiction returns the result for a provably failed constraint.
func Contradiction() Result {
	return Result{}
}

// New returns a residual with a single outstanding constraint at path.
func New(path string, c Constraint) Result {
	return Result{paths: map[string][]Constraint{path: {c}}}
}

// FromMap builds a residual from a path-to-constraints mapping. An empty
// map is Satisfied; a nil map is Contradiction.
func FromMap(m map[string][]Constraint) Result {
	if m == nil {
		return Contradiction()
	}
	copied := make(map[string][]Constraint, len(m))
	for path, cs := range m {
		copied[path] = append([]Constraint(nil), cs...)
	}
	return Result{paths: copied}
}

// IsSatisfied reports whether the result has no outstanding constraints.
func (r Result) IsSatisfied() bool {
	return r.paths != nil && len(r.paths) == 0
}

// IsContradiction reports whether the result is a provable failure.
func (r Result) IsContradiction() bool {
	return r.paths == nil
}

// IsResidual reports whether constraints remain outstanding.
func (r Result) IsResidual() bool {
	return r.paths != nil && len(r.paths) > 0
}

// IsBoolean reports whether the result is a definite true/false outcome.
func (r Result) IsBoolean() bool {
	return !r.IsResidual()
}

// Paths returns the sorted residual paths. Empty for boolean results.
func (r Result) Paths() []string {
	if !r.IsResidual() {
		return nil
	}
	paths := make([]string, 0, len(r.paths))
	for path := range r.paths {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// At returns the outstanding constraints for a path, in evaluation order.
func (r Result) At(path string) []Constraint {
	return r.paths[path]
}

// Merge conjoins two results (logical AND). Contradiction is absorbing,
// Satisfied is the identity; otherwise per-path constraint lists are
// concatenated, since all constraints must hold.
func Merge(a, b Result) Result {
	if a.IsContradiction() || b.IsContradiction() {
		return Contradiction()
	}
	if a.IsSatisfied() {
		return b
	}
	if b.IsSatisfied() {
		return a
	}
	merged := make(map[string][]Constraint, len(a.paths)+len(b.paths))
	for path, cs := range a.paths {
		merged[path] = append([]Constraint(nil), cs...)
	}
	for path, cs := range b.paths {
		merged[path] = append(merged[path], cs...)
	}
	return Result{paths: merged}
}

// Combine disjoins two results (logical OR). Satisfied is absorbing; two
// contradictions stay a contradiction; a contradiction yields the other
// branch unchanged. Two genuine residuals collapse to a single complex
// disjunction marker: arbitrary OR cannot in general be flattened into one
// per-path constraint list, and the engine deliberately does not try.
func Combine(a, b Result) Result {
	if a.IsSatisfied() || b.IsSatisfied() {
		return Satisfied()
	}
	if a.IsContradiction() {
		return b
	}
	if b.IsContradiction() {
		return a
	}
	return Result{paths: map[string][]Constraint{
		ComplexKey: {{
			Op:    "or",
			Value: []interface{}{a.Constraints(), b.Constraints()},
		}},
	}}
}

// Constraints flattens a residual into path/operator/value tuples, in
// sorted path order. Boolean results flatten to nil.
func (r Result) Constraints() []PathConstraint {
	if !r.IsResidual() {
		return nil
	}
	var flat []PathConstraint
	for _, path := range r.Paths() {
		for _, c := range r.paths[path] {
			flat = append(flat, PathConstraint{Path: path, Op: c.Op, Value: c.Value})
		}
	}
	return flat
}

// FromConstraints rebuilds a residual from its flat form, inverting
// Constraints. An empty list yields Satisfied.
func FromConstraints(flat []PathConstraint) Result {
	m := make(map[string][]Constraint, len(flat))
	for _, pc := range flat {
		m[pc.Path] = append(m[pc.Path], Constraint{Op: pc.Op, Value: pc.Value})
	}
	return Result{paths: m}
}

// Rekey returns a copy of the residual with every regular path mapped
// through fn. Reserved keys keep their meaning and are left unchanged.
// Boolean results are returned as-is. Quantifier evaluation uses this to
// attribute element-level constraints to their position in the sequence.
func (r Result) Rekey(fn func(path string) string) Result {
	if !r.IsResidual() {
		return r
	}
	m := make(map[string][]Constraint, len(r.paths))
	for path, cs := range r.paths {
		key := path
		if path != CrossPathKey && path != ComplexKey {
			key = fn(path)
		}
		m[key] = append(m[key], cs...)
	}
	return Result{paths: m}
}

// String renders the result for logs and error messages.
func (r Result) String() string {
	switch {
	case r.IsSatisfied():
		return "satisfied"
	case r.IsContradiction():
		return "contradiction"
	default:
		var sb strings.Builder
		sb.WriteString("residual{")
		for i, path := range r.Paths() {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s: %v", path, r.paths[path])
		}
		sb.WriteString("}")
		return sb.String()
	}
}

// Equal reports whether two results are identical, treating constraint
// order within a path as significant.
func (r Result) Equal(other Result) bool {
	if r.IsContradiction() || other.IsContradiction() {
		return r.IsContradiction() == other.IsContradiction()
	}
	if len(r.paths) != len(other.paths) {
		return false
	}
	for path, cs := range r.paths {
		ocs, ok := other.paths[path]
		if !ok || len(cs) != len(ocs) {
			return false
		}
		for i, c := range cs {
			if c.Op != ocs[i].Op || fmt.Sprint(c.Value) != fmt.Sprint(ocs[i].Value) {
				return false
			}
		}
	}
	return true
}
