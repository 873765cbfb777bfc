package compile

import (
	"polaris-hq/polaris/pkg/expr/ast"
	"polaris-hq/polaris/pkg/policy/engine"
	"polaris-hq/polaris/pkg/policy/residual"
)

// CompiledCheck is a reusable, stateless policy check. The same document
// always yields the same result, and a single check may be evaluated from
// many goroutines concurrently.
type CompiledCheck struct {
	evaluator   *engine.Evaluator
	root        *ast.Node
	constant    *residual.Result
	constraints []residual.PathConstraint
}

// constantCheck builds a check with a compile-time proven outcome. It
// never inspects a document.
func constantCheck(result residual.Result) *CompiledCheck {
	return &CompiledCheck{constant: &result}
}

// Evaluate runs the check against a document, returning the same
// three-valued contract as direct evaluation.
func (c *CompiledCheck) Evaluate(doc map[string]interface{}) (residual.Result, error) {
	if c.constant != nil {
		return *c.constant, nil
	}
	return c.evaluator.Evaluate(c.root, doc)
}

// IsConstant reports whether compile-time analysis proved the outcome,
// making document inspection unnecessary.
func (c *CompiledCheck) IsConstant() bool {
	return c.constant != nil
}

// Constraints returns the minimized per-path constraint set the check
// evaluates, for introspection. Constant checks and complex terms
// contribute nothing here.
func (c *CompiledCheck) Constraints() []residual.PathConstraint {
	return c.constraints
}

// Expr returns the minimized expression tree, or nil for constant checks.
func (c *CompiledCheck) Expr() *ast.Node {
	return c.root
}
