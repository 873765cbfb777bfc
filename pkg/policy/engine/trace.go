package engine

import (
	"time"

	"github.com/google/uuid"
)

// Trace records per-node evaluation steps for debugging.
type Trace struct {
	// ID uniquely identifies this evaluation.
	ID string

	// Steps contains one entry per evaluated node, in completion order.
	Steps []*TraceStep

	// TotalTime is the total evaluation time.
	TotalTime time.Duration
}

// TraceStep describes the evaluation of a single expression node.
type TraceStep struct {
	// Expr is a rendering of the node.
	Expr string

	// Result is the node's three-valued outcome ("satisfied",
	// "contradiction", or the residual rendering).
	Result string

	// Duration is how long the node took, children included.
	Duration time.Duration
}

// newTrace starts a trace for one evaluation.
func newTrace() *Trace {
	return &Trace{ID: uuid.NewString()}
}

// add appends a step. Nil traces ignore the call so untraced evaluation
// pays nothing.
func (t *Trace) add(expr, result string, duration time.Duration) {
	if t == nil {
		return
	}
	t.Steps = append(t.Steps, &TraceStep{
		Expr:     expr,
		Result:   result,
		Duration: duration,
	})
}
