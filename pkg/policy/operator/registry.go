package operator

import (
	"fmt"
	"sort"

	"polaris-hq/polaris/pkg/policy/residual"
)

// EvalFunc checks a document value against the expected operand.
type EvalFunc func(actual, expected interface{}) (bool, error)

// SimplifyFunc merges same-path constraints of one simplification class
// into the tightest equivalent set. It reports a compile-time
// contradiction when the constraints cannot all hold.
type SimplifyFunc func(cs []residual.Constraint) (simplified []residual.Constraint, contradicted bool)

// SubsumesFunc reports whether constraint a implies constraint b, so b
// can be dropped during compilation.
type SubsumesFunc func(a, b residual.Constraint) bool

// Definition describes one table-driven operator.
type Definition struct {
	// ID is the operator identifier used in policy expressions.
	ID string

	// Eval checks a value against the expected operand.
	Eval EvalFunc

	// Negate is the identifier of the logical complement, or empty when
	// the operator has no declared negation (negating it is an error).
	Negate string

	// Converse is the identifier expressing the same relation with the
	// operands swapped ("5 < x" is "x > 5"). Empty when no converse is
	// declared; a constraint on a right-operand accessor then degrades
	// to a complex residual instead of flipping direction.
	Converse string

	// Class groups operators whose same-path constraints simplify
	// together (e.g. the ordering comparisons). Empty means the operator
	// does not participate in compile-time merging.
	Class string

	// Simplify merges constraints of this operator's class. All operators
	// in a class share the same function.
	Simplify SimplifyFunc

	// Subsumes reports implication between two constraints of this
	// operator's class.
	Subsumes SubsumesFunc
}

// Registry is an immutable operator table. Build one with a Builder; the
// zero value is empty.
type Registry struct {
	defs map[string]Definition
}

// Lookup returns the definition for an operator identifier.
func (r *Registry) Lookup(id string) (Definition, bool) {
	def, ok := r.defs[id]
	return def, ok
}

// Has reports whether an operator identifier is registered. It satisfies
// the parser's OperatorResolver.
func (r *Registry) Has(id string) bool {
	_, ok := r.defs[id]
	return ok
}

// IDs returns all registered operator identifiers, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.defs))
	for id := range r.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Builder accumulates operator definitions during startup. Builders are
// not safe for concurrent use; finish registration before evaluation
// begins.
type Builder struct {
	defs map[string]Definition
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{defs: map[string]Definition{}}
}

// DefaultBuilder returns a builder seeded with the built-in operators,
// for callers that extend the default set.
func DefaultBuilder() *Builder {
	b := NewBuilder()
	for _, def := range builtins() {
		b.defs[def.ID] = def
	}
	return b
}

// Register adds or replaces an operator definition.
func (b *Builder) Register(def Definition) error {
	if def.ID == "" {
		return fmt.Errorf("operator definition requires an ID")
	}
	if def.Eval == nil {
		return fmt.Errorf("operator %q requires an Eval function", def.ID)
	}
	b.defs[def.ID] = def
	return nil
}

// MustRegister is Register that panics on error, for init-time tables.
func (b *Builder) MustRegister(def Definition) {
	if err := b.Register(def); err != nil {
		panic(err)
	}
}

// Build freezes the builder into an immutable registry.
func (b *Builder) Build() *Registry {
	defs := make(map[string]Definition, len(b.defs))
	for id, def := range b.defs {
		defs[id] = def
	}
	return &Registry{defs: defs}
}

// Default returns a registry holding only the built-in operators.
func Default() *Registry {
	return DefaultBuilder().Build()
}
