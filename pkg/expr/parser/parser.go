package parser

import (
	"fmt"
	"strings"

	"polaris-hq/polaris/pkg/expr/ast"
)

// accessorPrefix marks a string argument as a document path reference.
const accessorPrefix = "doc."

// OperatorResolver reports whether an operator identifier is registered.
// The operator package's Registry satisfies this.
type OperatorResolver interface {
	Has(id string) bool
}

// Config controls parser behavior.
type Config struct {
	// Operators resolves table-driven operator identifiers. Connectives and
	// quantifiers are always known. If nil, every operator is accepted.
	Operators OperatorResolver

	// AllowUnknown accepts unregistered operators instead of failing. Use
	// this when a fallback resolver will be configured on the evaluator;
	// an unknown operator then becomes an evaluation-time concern.
	AllowUnknown bool
}

// Parser converts tagged-tuple expressions into expression trees.
// A Parser is immutable and safe for concurrent use.
type Parser struct {
	config Config
}

// New creates a parser with the given configuration.
func New(config Config) *Parser {
	return &Parser{config: config}
}

// Parse converts a single tagged-tuple expression into an expression tree.
func (p *Parser) Parse(expr interface{}) (*ast.Node, error) {
	return p.parseExpr(expr, "")
}

// ParseAll converts a list of expressions, accumulating every error rather
// than stopping at the first. The returned slice holds a tree per input
// expression that parsed cleanly.
func (p *Parser) ParseAll(exprs []interface{}) ([]*ast.Node, error) {
	var (
		nodes []*ast.Node
		errs  ErrorList
	)
	for _, expr := range exprs {
		node, err := p.Parse(expr)
		if err != nil {
			if pe, ok := err.(*ParseError); ok {
				errs.Add(pe)
				continue
			}
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, errs.ToError()
}

// parseExpr parses one expression. boundVar is the quantifier placeholder
// in scope, if any; accessors using it resolve relative to the quantified
// element.
func (p *Parser) parseExpr(expr interface{}, boundVar string) (*ast.Node, error) {
	switch v := expr.(type) {
	case []interface{}:
		return p.parseTuple(v, boundVar)
	case string:
		if path, ok := accessorPath(v, boundVar); ok {
			if len(path) == 0 {
				return nil, &ParseError{
					Reason:  ReasonBadPath,
					Message: "empty document path",
					Expr:    v,
				}
			}
			return ast.Accessor(path), nil
		}
		return ast.Literal(v), nil
	default:
		return ast.Literal(expr), nil
	}
}

// parseTuple parses a tagged tuple: [op, args...].
func (p *Parser) parseTuple(tuple []interface{}, boundVar string) (*ast.Node, error) {
	if len(tuple) == 0 {
		return nil, &ParseError{
			Reason:  ReasonMalformed,
			Message: "empty tuple",
		}
	}

	op, ok := tuple[0].(string)
	if !ok {
		return nil, &ParseError{
			Reason:  ReasonMalformed,
			Message: fmt.Sprintf("operator must be a string, got %T", tuple[0]),
			Expr:    renderExpr(tuple),
		}
	}
	args := tuple[1:]

	switch {
	case op == ast.OpAnd || op == ast.OpOr:
		if len(args) < 1 {
			return nil, &ParseError{
				Reason:  ReasonArity,
				Message: fmt.Sprintf("%s requires at least one argument", op),
				Expr:    renderExpr(tuple),
			}
		}
		return p.parseCall(op, args, boundVar)

	case op == ast.OpNot:
		if len(args) != 1 {
			return nil, &ParseError{
				Reason:  ReasonArity,
				Message: fmt.Sprintf("not requires exactly one argument, got %d", len(args)),
				Expr:    renderExpr(tuple),
			}
		}
		return p.parseCall(op, args, boundVar)

	case ast.IsQuantifier(op):
		return p.parseQuantifier(op, tuple, boundVar)

	default:
		if p.config.Operators != nil && !p.config.Operators.Has(op) && !p.config.AllowUnknown {
			return nil, &ParseError{
				Reason:  ReasonUnknownOperator,
				Message: fmt.Sprintf("unknown operator %q", op),
				Expr:    renderExpr(tuple),
			}
		}
		if len(args) != 2 {
			return nil, &ParseError{
				Reason:  ReasonArity,
				Message: fmt.Sprintf("operator %q requires exactly two arguments, got %d", op, len(args)),
				Expr:    renderExpr(tuple),
			}
		}
		return p.parseOperands(op, args, boundVar)
	}
}

// parseOperands parses table-operator arguments. Unlike connective
// children these are operands, not sub-expressions: a nested list is a
// literal collection value (the expected operand of in/not-in), never a
// tuple.
func (p *Parser) parseOperands(op string, args []interface{}, boundVar string) (*ast.Node, error) {
	children := make([]*ast.Node, 0, len(args))
	for _, arg := range args {
		if s, ok := arg.(string); ok {
			if path, ok := accessorPath(s, boundVar); ok {
				if len(path) == 0 {
					return nil, &ParseError{
						Reason:  ReasonBadPath,
						Message: "empty document path",
						Expr:    s,
					}
				}
				children = append(children, ast.Accessor(path))
				continue
			}
		}
		children = append(children, ast.Literal(arg))
	}
	return ast.Call(op, children...), nil
}

// parseCall parses the arguments of a call node.
func (p *Parser) parseCall(op string, args []interface{}, boundVar string) (*ast.Node, error) {
	children := make([]*ast.Node, 0, len(args))
	for _, arg := range args {
		child, err := p.parseExpr(arg, boundVar)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return ast.Call(op, children...), nil
}

// parseQuantifier parses forall/exists. Two forms are accepted:
//
//	[forall, doc.users, body]           body accessors are element-relative
//	[forall, doc.users, "u", body]      body accessors use the placeholder
func (p *Parser) parseQuantifier(op string, tuple []interface{}, boundVar string) (*ast.Node, error) {
	args := tuple[1:]
	if len(args) != 2 && len(args) != 3 {
		return nil, &ParseError{
			Reason:  ReasonArity,
			Message: fmt.Sprintf("%s requires a bound path and a body (optionally a placeholder), got %d argument(s)", op, len(args)),
			Expr:    renderExpr(tuple),
		}
	}

	pathArg, ok := args[0].(string)
	if !ok {
		return nil, &ParseError{
			Reason:  ReasonBadPath,
			Message: fmt.Sprintf("%s bound path must be a document accessor string, got %T", op, args[0]),
			Expr:    renderExpr(tuple),
		}
	}
	path, ok := accessorPath(pathArg, boundVar)
	if !ok || len(path) == 0 {
		return nil, &ParseError{
			Reason:  ReasonBadPath,
			Message: fmt.Sprintf("%s bound path %q is not a document accessor", op, pathArg),
			Expr:    renderExpr(tuple),
		}
	}

	bodyArg := args[1]
	innerVar := ""
	if len(args) == 3 {
		placeholder, ok := args[1].(string)
		if !ok || placeholder == "" || strings.Contains(placeholder, ".") {
			return nil, &ParseError{
				Reason:  ReasonMalformed,
				Message: fmt.Sprintf("%s placeholder must be a bare identifier, got %v", op, args[1]),
				Expr:    renderExpr(tuple),
			}
		}
		innerVar = placeholder
		bodyArg = args[2]
	}

	body, err := p.parseExpr(bodyArg, innerVar)
	if err != nil {
		return nil, err
	}

	// The bound path is carried as an accessor child; the body evaluates
	// with each element as its document root.
	return ast.Call(op, ast.Accessor(path), body), nil
}

// accessorPath extracts the document path from an accessor string. When a
// quantifier placeholder is in scope, "<placeholder>.x" and the bare
// placeholder refer to the quantified element.
func accessorPath(s, boundVar string) (ast.Path, bool) {
	if boundVar != "" {
		if s == boundVar {
			return ast.Path{}, false // bare placeholder is not addressable
		}
		if strings.HasPrefix(s, boundVar+".") {
			return ast.ParsePath(strings.TrimPrefix(s, boundVar+".")), true
		}
	}
	if strings.HasPrefix(s, accessorPrefix) {
		return ast.ParsePath(strings.TrimPrefix(s, accessorPrefix)), true
	}
	return nil, false
}

// renderExpr renders a raw tuple for error messages.
func renderExpr(expr interface{}) string {
	switch v := expr.(type) {
	case []interface{}:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = renderExpr(e)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case string:
		return v
	default:
		return fmt.Sprint(expr)
	}
}
