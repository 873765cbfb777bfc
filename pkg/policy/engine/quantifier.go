package engine

import (
	"fmt"

	"polaris-hq/polaris/pkg/expr/ast"
	"polaris-hq/polaris/pkg/policy/residual"
)

// evalQuantifier evaluates forall/exists over the ordered sequence at the
// bound path. Each element becomes the document root for the body, so
// nested quantifiers compose by plain recursion.
func (e *Evaluator) evalQuantifier(node *ast.Node, doc map[string]interface{}, trace *Trace) (residual.Result, error) {
	pathNode, body := node.Children[0], node.Children[1]
	path := pathNode.Path

	value, present := path.Resolve(doc)
	if !present {
		// The sequence itself is missing: the whole quantifier is an
		// outstanding constraint at its path.
		return residual.New(path.String(), residual.Constraint{Op: node.Op, Value: body.String()}), nil
	}
	elements, ok := value.([]interface{})
	if !ok {
		return residual.Contradiction(), &TypeError{Path: path.String(), Message: fmt.Sprintf("quantifier requires a sequence, got %T", value)}
	}

	if node.Op == ast.OpForall {
		return e.evalForall(path, body, elements, trace)
	}
	return e.evalExists(path, body, elements, trace)
}

// evalForall is satisfied when the body holds for every element. The
// first contradicted element short-circuits; residual elements accumulate
// keyed by their position in the sequence. An empty sequence is
// vacuously satisfied.
func (e *Evaluator) evalForall(path ast.Path, body *ast.Node, elements []interface{}, trace *Trace) (residual.Result, error) {
	acc := residual.Satisfied()
	for i, element := range elements {
		result, err := e.evalElement(path, body, i, element, trace)
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

// evalExists is satisfied when the body holds for any element,
// short-circuiting on the first. It contradicts only when every element
// does, which includes the empty sequence. Residual elements keep the
// node residual via Combine.
func (e *Evaluator) evalExists(path ast.Path, body *ast.Node, elements []interface{}, trace *Trace) (residual.Result, error) {
	acc := residual.Contradiction()
	for i, element := range elements {
		result, err := e.evalElement(path, body, i, element, trace)
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

// evalElement evaluates the body against one sequence element, re-keying
// any residual so its constraints name the element's position.
func (e *Evaluator) evalElement(path ast.Path, body *ast.Node, index int, element interface{}, trace *Trace) (residual.Result, error) {
	elementDoc, ok := element.(map[string]interface{})
	if !ok {
		return residual.Contradiction(), &TypeError{
			Path:    fmt.Sprintf("%s[%d]", path.String(), index),
			Message: fmt.Sprintf("quantifier element must be a document, got %T", element),
		}
	}
	result, err := e.evalNode(body, elementDoc, trace)
	if err != nil {
		return residual.Contradiction(), err
	}
	return result.Rekey(func(sub string) string {
		return fmt.Sprintf("%s[%d].%s", path.String(), index, sub)
	}), nil
}
