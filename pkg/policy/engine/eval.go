package engine

import (
	"fmt"
	"time"

	"polaris-hq/polaris/pkg/expr/ast"
	"polaris-hq/polaris/pkg/policy/negate"
	"polaris-hq/polaris/pkg/policy/operator"
	"polaris-hq/polaris/pkg/policy/residual"
)

// evalNode evaluates one node bottom-up, recording a trace step.
func (e *Evaluator) evalNode(node *ast.Node, doc map[string]interface{}, trace *Trace) (residual.Result, error) {
	start := time.Now()
	result, err := e.evalNodeInner(node, doc, trace)
	if trace != nil {
		outcome := "error"
		if err == nil {
			outcome = result.String()
		}
		trace.add(node.String(), outcome, time.Since(start))
	}
	return result, err
}

func (e *Evaluator) evalNodeInner(node *ast.Node, doc map[string]interface{}, trace *Trace) (residual.Result, error) {
	switch node.Kind {
	case ast.KindLiteral:
		b, ok := node.Value.(bool)
		if !ok {
			return residual.Contradiction(), fmt.Errorf("evaluate: non-boolean literal %s in predicate position", node.String())
		}
		return fromBool(b), nil

	case ast.KindDocAccessor:
		// A bare accessor asserts the value at the path is true.
		value, present := node.Path.Resolve(doc)
		if !present {
			return residual.New(node.Path.String(), residual.Constraint{Op: operator.OpEqual, Value: true}), nil
		}
		b, ok := value.(bool)
		if !ok {
			return residual.Contradiction(), &TypeError{Path: node.Path.String(), Message: fmt.Sprintf("expected boolean, got %T", value)}
		}
		return fromBool(b), nil

	case ast.KindCall:
		switch node.Op {
		case ast.OpAnd:
			return e.evalAnd(node, doc, trace)
		case ast.OpOr:
			return e.evalOr(node, doc, trace)
		case ast.OpNot:
			return e.evalNot(node, doc, trace)
		case ast.OpForall, ast.OpExists:
			return e.evalQuantifier(node, doc, trace)
		default:
			return e.applyOperator(node, doc)
		}

	default:
		return residual.Contradiction(), fmt.Errorf("evaluate: invalid node kind %q", node.Kind)
	}
}

// evalAnd evaluates a conjunction left to right. A contradicted child
// short-circuits the whole node; residual children accumulate via Merge
// while scanning continues, so a later unconditional failure still wins.
func (e *Evaluator) evalAnd(node *ast.Node, doc map[string]interface{}, trace *Trace) (residual.Result, error) {
	acc := residual.Satisfied()
	for _, child := range node.Children {
		result, err := e.evalNode(child, doc, trace)
		if err != nil {
			return residual.Contradiction(), err
		}
		if result.IsContradiction() {
			return residual.Contradiction(), nil
		}
		acc = residual.Merge(acc, result)
	}
	return acc, nil
}

// evalOr evaluates a disjunction left to right, short-circuiting to
// satisfied on the first satisfied child. Residual children accumulate
// via Combine; the node contradicts only when every child does.
func (e *Evaluator) evalOr(node *ast.Node, doc map[string]interface{}, trace *Trace) (residual.Result, error) {
	acc := residual.Contradiction()
	for _, child := range node.Children {
		result, err := e.evalNode(child, doc, trace)
		if err != nil {
			return residual.Contradiction(), err
		}
		if result.IsSatisfied() {
			return residual.Satisfied(), nil
		}
		acc = residual.Combine(acc, result)
	}
	return acc, nil
}

// evalNot evaluates a negation. Boolean children invert directly. A
// residual child re-evaluates the syntactic negation of the sub-tree, so
// the residual names the constraints that would make the original false.
// When the sub-tree has no declared negation the node stays residual
// rather than guessing a boolean.
func (e *Evaluator) evalNot(node *ast.Node, doc map[string]interface{}, trace *Trace) (residual.Result, error) {
	child := node.Children[0]
	result, err := e.evalNode(child, doc, trace)
	if err != nil {
		return residual.Contradiction(), err
	}
	if result.IsSatisfied() {
		return residual.Contradiction(), nil
	}
	if result.IsContradiction() {
		return residual.Satisfied(), nil
	}

	negated, err := negate.Negate(child, e.config.Registry)
	if err != nil {
		return residual.New(residual.ComplexKey, residual.Constraint{Op: ast.OpNot, Value: child.String()}), nil
	}
	return e.evalNode(negated, doc, trace)
}

// applyOperator evaluates a table-driven operator over its two operands.
func (e *Evaluator) applyOperator(node *ast.Node, doc map[string]interface{}) (residual.Result, error) {
	def, known, err := e.lookupOperator(node.Op)
	if err != nil {
		return residual.Contradiction(), err
	}
	if !known {
		// Unknown operator in non-strict mode: conservatively residual.
		return residual.New(residual.ComplexKey, residual.Constraint{Op: node.Op, Value: node.String()}), nil
	}

	if len(node.Children) != 2 {
		return residual.Contradiction(), fmt.Errorf("evaluate: operator %q requires two operands, got %d", node.Op, len(node.Children))
	}
	left, err := e.resolveOperand(node.Op, node.Children[0], doc)
	if err != nil {
		return residual.Contradiction(), err
	}
	right, err := e.resolveOperand(node.Op, node.Children[1], doc)
	if err != nil {
		return residual.Contradiction(), err
	}

	switch {
	case left.known && right.known:
		holds, err := def.Eval(left.value, right.value)
		if err != nil {
			return residual.Contradiction(), fmt.Errorf("evaluate: operator %q: %w", node.Op, err)
		}
		return fromBool(holds), nil

	case left.isAccessor && right.isAccessor:
		// Cross-path comparison with at least one side missing.
		return residual.New(residual.CrossPathKey, residual.Constraint{
			Op:    node.Op,
			Value: []interface{}{left.path.String(), right.path.String()},
		}), nil

	case !left.known:
		return residual.New(left.path.String(), residual.Constraint{Op: node.Op, Value: right.value}), nil

	default:
		// The accessor is the right operand: "5 < doc.x" constrains x
		// from the other side, so the residual records the converse
		// operator. Operators without a declared converse cannot name
		// the constraint on x and stay complex.
		if def.Converse == "" {
			return residual.New(residual.ComplexKey, residual.Constraint{Op: node.Op, Value: node.String()}), nil
		}
		return residual.New(right.path.String(), residual.Constraint{Op: def.Converse, Value: left.value}), nil
	}
}

// lookupOperator resolves an operator through the registry, then the
// fallback. In strict mode an unresolved operator is a hard error.
func (e *Evaluator) lookupOperator(op string) (operator.Definition, bool, error) {
	if def, ok := e.config.Registry.Lookup(op); ok {
		return def, true, nil
	}
	if e.config.Fallback != nil {
		if def, ok := e.config.Fallback(op); ok {
			return def, true, nil
		}
	}
	if e.config.Strict {
		return operator.Definition{}, false, &UnknownOperatorError{Op: op}
	}
	return operator.Definition{}, false, nil
}

// operand is a resolved operator argument.
type operand struct {
	value      interface{}
	known      bool
	isAccessor bool
	path       ast.Path
}

// resolveOperand resolves a literal or accessor operand. Nested calls are
// not valid operator operands in this language.
func (e *Evaluator) resolveOperand(op string, node *ast.Node, doc map[string]interface{}) (operand, error) {
	switch node.Kind {
	case ast.KindLiteral:
		return operand{value: node.Value, known: true}, nil
	case ast.KindDocAccessor:
		value, present := node.Path.Resolve(doc)
		return operand{value: value, known: present, isAccessor: true, path: node.Path}, nil
	default:
		return operand{}, &OperandError{Op: op, Expr: node.String()}
	}
}

// fromBool maps a definite boolean onto the three-valued model.
func fromBool(b bool) residual.Result {
	if b {
		return residual.Satisfied()
	}
	return residual.Contradiction()
}
