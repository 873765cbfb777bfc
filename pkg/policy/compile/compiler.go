package compile

import (
	"fmt"
	"log/slog"
	"sort"

	"polaris-hq/polaris/pkg/expr/ast"
	"polaris-hq/polaris/pkg/expr/parser"
	"polaris-hq/polaris/pkg/policy/engine"
	"polaris-hq/polaris/pkg/policy/operator"
	"polaris-hq/polaris/pkg/policy/residual"
	"polaris-hq/polaris/pkg/telemetry/metrics"
)

// Options controls compilation and the behavior of the compiled check.
type Options struct {
	// Registry is the operator table. Defaults to the built-in set.
	Registry *operator.Registry

	// Fallback resolves operators missing from the registry at
	// evaluation time. Its presence also relaxes parse-time operator
	// validation.
	Fallback engine.FallbackResolver

	// Strict makes unknown operators hard errors instead of residuals.
	Strict bool

	// Trace enables per-node tracing on the compiled check's evaluator.
	Trace bool

	// Logger receives compilation and evaluation debug logging.
	Logger *slog.Logger

	// Metrics records compilation and evaluation outcomes. Optional.
	Metrics *metrics.EvaluationMetrics
}

// normalize fills in defaults.
func (o *Options) normalize() *Options {
	out := &Options{}
	if o != nil {
		*out = *o
	}
	if out.Registry == nil {
		out.Registry = operator.Default()
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// EngineConfig renders the options as an evaluator configuration, for
// callers that evaluate or unify outside a compiled check. Safe on a
// nil receiver.
func (o *Options) EngineConfig() *engine.Config {
	n := o.normalize()
	return &engine.Config{
		Registry: n.Registry,
		Fallback: n.Fallback,
		Strict:   n.Strict,
		Trace:    n.Trace,
	}
}

// Compile parses the given tagged-tuple expressions, implicitly ANDs
// them, and compiles the conjunction into a reusable check.
func Compile(exprs []interface{}, opts *Options) (*CompiledCheck, error) {
	opts = opts.normalize()

	p := parser.New(parser.Config{
		Operators:    opts.Registry,
		AllowUnknown: !opts.Strict || opts.Fallback != nil,
	})
	nodes, err := p.ParseAll(exprs)
	if err != nil {
		if opts.Metrics != nil {
			opts.Metrics.RecordCompilation("error")
		}
		return nil, err
	}
	return CompileNodes(nodes, opts)
}

// CompileNodes compiles already-parsed expression trees. The trees are
// implicitly ANDed and are never mutated.
func CompileNodes(nodes []*ast.Node, opts *Options) (*CompiledCheck, error) {
	opts = opts.normalize()

	eval, err := engine.NewEvaluator(opts.EngineConfig(), opts.Logger, opts.Metrics)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	// Normalize: fold constants, then flatten the implicit conjunction.
	root := fold(ast.Call(ast.OpAnd, nodes...), opts.Registry)
	if b, ok := literalBool(root); ok {
		// The whole conjunction folded to a constant.
		if opts.Metrics != nil {
			opts.Metrics.RecordCompilation("constant")
		}
		if b {
			return constantCheck(residual.Satisfied()), nil
		}
		return constantCheck(residual.Contradiction()), nil
	}
	conjuncts := flattenConjunction(root)

	// Partition the conjunction into per-path simple constraints and
	// sub-expressions that cannot be flattened (disjunctions,
	// quantifiers, cross-path comparisons, negations).
	simple, complex := partition(conjuncts, opts.Registry)

	// Merge same-path constraints per simplification class.
	merged, contradicted := mergePaths(simple, opts.Registry)
	if contradicted {
		opts.Logger.Debug("compile-time contradiction detected")
		if opts.Metrics != nil {
			opts.Metrics.RecordCompilation("constant")
		}
		return constantCheck(residual.Contradiction()), nil
	}

	if len(merged) == 0 && len(complex) == 0 {
		// Everything folded away: the conjunction is a tautology.
		if opts.Metrics != nil {
			opts.Metrics.RecordCompilation("constant")
		}
		return constantCheck(residual.Satisfied()), nil
	}

	// Rebuild the minimal conjunction the check will evaluate.
	minimized := rebuild(merged, complex)
	opts.Logger.Debug("policy compiled",
		"paths", len(merged),
		"complex_terms", len(complex),
		"expr", minimized.String(),
	)
	if opts.Metrics != nil {
		opts.Metrics.RecordCompilation("compiled")
	}

	return &CompiledCheck{
		evaluator:   eval,
		root:        minimized,
		constraints: flattenMerged(merged),
	}, nil
}

// pathConstraints is the per-path grouping of simple constraints.
type pathConstraints map[string][]residual.Constraint

// partition splits top-level conjuncts into per-path simple constraints
// (accessor op literal) and everything else.
func partition(conjuncts []*ast.Node, registry *operator.Registry) (pathConstraints, []*ast.Node) {
	simple := pathConstraints{}
	var complex []*ast.Node
	for _, node := range conjuncts {
		path, c, ok := asSimpleConstraint(node, registry)
		if !ok {
			complex = append(complex, node)
			continue
		}
		simple[path] = append(simple[path], c)
	}
	return simple, complex
}

// asSimpleConstraint recognizes `[op doc.path literal]` conjuncts with a
// registered table operator, and the mirrored `[op literal doc.path]`
// form when the operator declares a converse.
func asSimpleConstraint(node *ast.Node, registry *operator.Registry) (string, residual.Constraint, bool) {
	if node.Kind != ast.KindCall || ast.IsConnective(node.Op) || ast.IsQuantifier(node.Op) {
		return "", residual.Constraint{}, false
	}
	if !registry.Has(node.Op) || len(node.Children) != 2 {
		return "", residual.Constraint{}, false
	}
	left, right := node.Children[0], node.Children[1]
	if left.Kind == ast.KindDocAccessor && right.Kind == ast.KindLiteral {
		return left.Path.String(), residual.Constraint{Op: node.Op, Value: right.Value}, true
	}
	if left.Kind == ast.KindLiteral && right.Kind == ast.KindDocAccessor {
		def, _ := registry.Lookup(node.Op)
		if def.Converse != "" {
			return right.Path.String(), residual.Constraint{Op: def.Converse, Value: left.Value}, true
		}
	}
	return "", residual.Constraint{}, false
}

// mergePaths merges each path's constraints through the simplification
// class shared by their operators. Constraints whose operators declare no
// simplifier pass through untouched.
func mergePaths(simple pathConstraints, registry *operator.Registry) (pathConstraints, bool) {
	merged := pathConstraints{}
	for path, cs := range simple {
		byClass := map[string][]residual.Constraint{}
		var plain []residual.Constraint
		var classes []string
		for _, c := range cs {
			def, _ := registry.Lookup(c.Op)
			if def.Class == "" || def.Simplify == nil {
				plain = append(plain, c)
				continue
			}
			if _, seen := byClass[def.Class]; !seen {
				classes = append(classes, def.Class)
			}
			byClass[def.Class] = append(byClass[def.Class], c)
		}

		sort.Strings(classes)
		var out []residual.Constraint
		for _, class := range classes {
			group := byClass[class]
			def, _ := registry.Lookup(group[0].Op)
			simplified, contradicted := def.Simplify(group)
			if contradicted {
				return nil, true
			}
			out = append(out, simplified...)
		}
		out = append(out, plain...)
		merged[path] = out
	}
	return merged, false
}

// rebuild constructs the minimal conjunction from merged per-path
// constraints and the unflattened complex terms, in deterministic order.
func rebuild(merged pathConstraints, complex []*ast.Node) *ast.Node {
	paths := make([]string, 0, len(merged))
	for path := range merged {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var children []*ast.Node
	for _, path := range paths {
		for _, c := range merged[path] {
			children = append(children, ast.Call(c.Op, ast.Accessor(ast.ParsePath(path)), ast.Literal(c.Value)))
		}
	}
	children = append(children, complex...)

	if len(children) == 1 {
		return children[0]
	}
	return ast.Call(ast.OpAnd, children...)
}

// flattenMerged renders the merged constraint set for introspection.
func flattenMerged(merged pathConstraints) []residual.PathConstraint {
	paths := make([]string, 0, len(merged))
	for path := range merged {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var flat []residual.PathConstraint
	for _, path := range paths {
		for _, c := range merged[path] {
			flat = append(flat, residual.PathConstraint{Path: path, Op: c.Op, Value: c.Value})
		}
	}
	return flat
}
