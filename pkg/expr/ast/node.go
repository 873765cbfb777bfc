package ast

import (
	"fmt"
	"reflect"
	"strings"
)

// NodeKind identifies the variant of an expression node.
type NodeKind string

const (
	KindLiteral     NodeKind = "literal"  // constant value
	KindDocAccessor NodeKind = "accessor" // document path reference
	KindCall        NodeKind = "call"     // operator, connective, or quantifier
)

// Connective and quantifier identifiers. These are not table-driven
// operators: the engine gives them special short-circuit semantics.
const (
	OpAnd    = "and"
	OpOr     = "or"
	OpNot    = "not"
	OpForall = "forall"
	OpExists = "exists"
)

// Node is a single expression tree node. Exactly one variant is populated,
// selected by Kind.
type Node struct {
	// Kind selects the node variant.
	Kind NodeKind

	// Value is the constant value (for Literal nodes).
	Value interface{}

	// Path is the document path (for DocAccessor nodes).
	Path Path

	// Op is the operator, connective, or quantifier identifier (for Call nodes).
	Op string

	// Children are the call arguments, in order (for Call nodes).
	Children []*Node
}

// Literal constructs a constant-value node.
func Literal(value interface{}) *Node {
	return &Node{Kind: KindLiteral, Value: value}
}

// Accessor constructs a document path reference node.
func Accessor(path Path) *Node {
	return &Node{Kind: KindDocAccessor, Path: path}
}

// Call constructs an operator application node.
func Call(op string, children ...*Node) *Node {
	return &Node{Kind: KindCall, Op: op, Children: children}
}

// IsConnective reports whether op is one of the boolean connectives
// handled specially by the evaluation engine.
func IsConnective(op string) bool {
	return op == OpAnd || op == OpOr || op == OpNot
}

// IsQuantifier reports whether op is forall or exists.
func IsQuantifier(op string) bool {
	return op == OpForall || op == OpExists
}

// Equal reports structural equality of two trees.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Kind != other.Kind {
		return false
	}
	switch n.Kind {
	case KindLiteral:
		return reflect.DeepEqual(n.Value, other.Value)
	case KindDocAccessor:
		return n.Path.Equal(other.Path)
	case KindCall:
		if n.Op != other.Op || len(n.Children) != len(other.Children) {
			return false
		}
		for i, c := range n.Children {
			if !c.Equal(other.Children[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the node in the tagged-tuple surface form, for error
// messages and traces.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case KindLiteral:
		if s, ok := n.Value.(string); ok {
			return fmt.Sprintf("%q", s)
		}
		return fmt.Sprint(n.Value)
	case KindDocAccessor:
		return "doc." + n.Path.String()
	case KindCall:
		parts := make([]string, 0, len(n.Children)+1)
		parts = append(parts, n.Op)
		for _, c := range n.Children {
			parts = append(parts, c.String())
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
	return "<invalid>"
}

// Walk calls fn for n and every descendant in depth-first pre-order.
// Walking stops early if fn returns false.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
