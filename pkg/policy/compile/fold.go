package compile

import (
	"polaris-hq/polaris/pkg/expr/ast"
	"polaris-hq/polaris/pkg/policy/operator"
)

// fold constant-folds literal sub-expressions and flattens nested
// connectives of the same kind. Operator calls whose operands are both
// literals evaluate at compile time. The input tree is never mutated.
func fold(node *ast.Node, registry *operator.Registry) *ast.Node {
	if node == nil || node.Kind != ast.KindCall {
		return node
	}

	switch node.Op {
	case ast.OpAnd:
		return foldConnective(node, true, registry)
	case ast.OpOr:
		return foldConnective(node, false, registry)
	case ast.OpNot:
		return foldNot(node, registry)
	case ast.OpForall, ast.OpExists:
		return node
	default:
		return foldCall(node, registry)
	}
}

// foldConnective folds and/or. identity is the literal absorbed by the
// connective (true for and, false for or); its inverse short-circuits.
func foldConnective(node *ast.Node, identity bool, registry *operator.Registry) *ast.Node {
	var children []*ast.Node
	for _, child := range node.Children {
		folded := fold(child, registry)

		if b, ok := literalBool(folded); ok {
			if b == identity {
				continue // identity element drops out
			}
			return ast.Literal(!identity) // absorbing element wins
		}

		// Flatten same-kind nesting: and(and(a b) c) => and(a b c).
		if folded.Kind == ast.KindCall && folded.Op == node.Op {
			children = append(children, folded.Children...)
			continue
		}
		children = append(children, folded)
	}

	switch len(children) {
	case 0:
		return ast.Literal(identity)
	case 1:
		return children[0]
	default:
		return ast.Call(node.Op, children...)
	}
}

// foldNot folds a negation: literal booleans invert, double negation
// cancels.
func foldNot(node *ast.Node, registry *operator.Registry) *ast.Node {
	child := fold(node.Children[0], registry)
	if b, ok := literalBool(child); ok {
		return ast.Literal(!b)
	}
	if child.Kind == ast.KindCall && child.Op == ast.OpNot {
		return child.Children[0]
	}
	return ast.Call(ast.OpNot, child)
}

// foldCall evaluates a table operator over two literal operands. Calls
// the evaluation cannot prove (accessor operands, unknown operator,
// evaluation error) pass through unchanged for the evaluator to handle.
func foldCall(node *ast.Node, registry *operator.Registry) *ast.Node {
	if len(node.Children) != 2 {
		return node
	}
	left, right := node.Children[0], node.Children[1]
	if left.Kind != ast.KindLiteral || right.Kind != ast.KindLiteral {
		return node
	}
	def, ok := registry.Lookup(node.Op)
	if !ok {
		return node
	}
	holds, err := def.Eval(left.Value, right.Value)
	if err != nil {
		return node
	}
	return ast.Literal(holds)
}

// flattenConjunction returns the top-level conjuncts of a folded tree.
func flattenConjunction(node *ast.Node) []*ast.Node {
	if node.Kind == ast.KindCall && node.Op == ast.OpAnd {
		return node.Children
	}
	if b, ok := literalBool(node); ok && b {
		return nil // tautology: no conjuncts
	}
	return []*ast.Node{node}
}

// literalBool extracts a literal boolean value.
func literalBool(node *ast.Node) (bool, bool) {
	if node.Kind != ast.KindLiteral {
		return false, false
	}
	b, ok := node.Value.(bool)
	return b, ok
}
