// Package negate transforms an expression tree into its logical
// complement.
//
// The transform is purely syntactic: connectives negate by De Morgan's
// laws, double negation is eliminated, quantifiers flip into their duals,
// and table-driven operators map through the negation declared in their
// registry definition. An operator with no declared negation cannot be
// negated; that is an explicit error, never a guess.
package negate

import (
	"fmt"

	"polaris-hq/polaris/pkg/expr/ast"
	"polaris-hq/polaris/pkg/policy/operator"
)

// Error reports that an expression cannot be negated.
type Error struct {
	// Op is the operator that lacks a negation mapping.
	Op string

	// Expr is a rendering of the offending sub-expression.
	Expr string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("negate: operator %q has no declared negation in %s", e.Op, e.Expr)
}

// Negate returns the expression tree of the logical complement of node.
// The input tree is never mutated. For every document on which the
// original evaluates to a boolean, the negated tree evaluates to the
// opposite boolean.
func Negate(node *ast.Node, registry *operator.Registry) (*ast.Node, error) {
	if node == nil {
		return nil, fmt.Errorf("negate: nil expression")
	}

	switch node.Kind {
	case ast.KindLiteral:
		if b, ok := node.Value.(bool); ok {
			return ast.Literal(!b), nil
		}
		return nil, &Error{Op: "literal", Expr: node.String()}

	case ast.KindDocAccessor:
		return nil, &Error{Op: "accessor", Expr: node.String()}

	case ast.KindCall:
		return negateCall(node, registry)

	default:
		return nil, fmt.Errorf("negate: invalid node kind %q", node.Kind)
	}
}

// negateCall negates an operator application.
func negateCall(node *ast.Node, registry *operator.Registry) (*ast.Node, error) {
	switch node.Op {
	case ast.OpAnd, ast.OpOr:
		// De Morgan: the dual connective over negated children.
		dual := ast.OpOr
		if node.Op == ast.OpOr {
			dual = ast.OpAnd
		}
		children := make([]*ast.Node, 0, len(node.Children))
		for _, child := range node.Children {
			negated, err := Negate(child, registry)
			if err != nil {
				return nil, err
			}
			children = append(children, negated)
		}
		return ast.Call(dual, children...), nil

	case ast.OpNot:
		// Double negation elimination.
		return node.Children[0], nil

	case ast.OpForall, ast.OpExists:
		// Quantifier duality: not-forall is exists-not, and vice versa.
		dual := ast.OpExists
		if node.Op == ast.OpExists {
			dual = ast.OpForall
		}
		body, err := Negate(node.Children[1], registry)
		if err != nil {
			return nil, err
		}
		return ast.Call(dual, node.Children[0], body), nil

	default:
		def, ok := registry.Lookup(node.Op)
		if !ok || def.Negate == "" {
			return nil, &Error{Op: node.Op, Expr: node.String()}
		}
		return ast.Call(def.Negate, node.Children...), nil
	}
}
