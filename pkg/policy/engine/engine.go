package engine

import (
	"fmt"
	"log/slog"
	"time"

	"polaris-hq/polaris/pkg/expr/ast"
	"polaris-hq/polaris/pkg/policy/residual"
	"polaris-hq/polaris/pkg/telemetry/metrics"
)

// Evaluator evaluates expression trees against documents. It is immutable
// after construction and safe for concurrent use.
type Evaluator struct {
	config  *Config
	logger  *slog.Logger
	metrics *metrics.EvaluationMetrics
}

// NewEvaluator creates an evaluator. A nil config uses DefaultConfig; a
// nil logger uses slog.Default; metrics may be nil to disable recording.
func NewEvaluator(config *Config, logger *slog.Logger, m *metrics.EvaluationMetrics) (*Evaluator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{config: config, logger: logger, metrics: m}, nil
}

// Evaluate walks the expression tree against the document and returns the
// three-valued outcome. A missing document value is not a failure: it
// yields a residual naming the outstanding constraint. The only errors
// are unknown operators (in strict mode), malformed operands, and
// document values of unusable type.
func (e *Evaluator) Evaluate(node *ast.Node, doc map[string]interface{}) (residual.Result, error) {
	result, _, err := e.evaluate(node, doc, nil)
	return result, err
}

// EvaluateTraced is Evaluate with a per-node trace, regardless of the
// Trace config flag.
func (e *Evaluator) EvaluateTraced(node *ast.Node, doc map[string]interface{}) (residual.Result, *Trace, error) {
	return e.evaluate(node, doc, newTrace())
}

// Unify generalizes Evaluate to inverse queries: against the empty (or
// nil) document it answers "what must any document satisfy for this
// policy to hold". It is the same walk as Evaluate; the residual it
// returns converts to policy-shaped data via Result.Constraints.
func (e *Evaluator) Unify(node *ast.Node, doc map[string]interface{}) (residual.Result, error) {
	if doc == nil {
		doc = map[string]interface{}{}
	}
	return e.Evaluate(node, doc)
}

// evaluate runs one evaluation, recording metrics and the optional trace.
func (e *Evaluator) evaluate(node *ast.Node, doc map[string]interface{}, trace *Trace) (residual.Result, *Trace, error) {
	if node == nil {
		return residual.Contradiction(), nil, fmt.Errorf("evaluate: nil expression")
	}
	if trace == nil && e.config.Trace {
		trace = newTrace()
	}

	start := time.Now()
	result, err := e.evalNode(node, doc, trace)
	elapsed := time.Since(start)

	if trace != nil {
		trace.TotalTime = elapsed
	}
	if e.metrics != nil {
		outcome := "error"
		if err == nil {
			outcome = classify(result)
		}
		e.metrics.RecordEvaluation(outcome, elapsed)
	}
	if err != nil {
		return residual.Contradiction(), trace, err
	}

	e.logger.Debug("policy evaluated",
		"expr", node.String(),
		"result", result.String(),
		"duration", elapsed,
	)
	return result, trace, nil
}

// classify renders a result class for metrics labels.
func classify(r residual.Result) string {
	switch {
	case r.IsSatisfied():
		return "satisfied"
	case r.IsContradiction():
		return "contradiction"
	default:
		return "residual"
	}
}
