package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"polaris-hq/polaris/pkg/expr/ast"
	"polaris-hq/polaris/pkg/expr/parser"
	"polaris-hq/polaris/pkg/policy/engine"
	"polaris-hq/polaris/pkg/policy/negate"
	"polaris-hq/polaris/pkg/policy/residual"
	"polaris-hq/polaris/pkg/policy/store"
)

// CheckRequest is the body of POST /v1/check.
type CheckRequest struct {
	// Policy restricts the check to a single policy ID. Empty checks all.
	Policy string `json:"policy,omitempty"`

	// Document is the set of fields to check.
	Document map[string]interface{} `json:"document"`
}

// CheckResult is one policy's outcome for the checked document.
type CheckResult struct {
	PolicyID    string                    `json:"policy_id"`
	Outcome     string                    `json:"outcome"`
	Constraints []residual.PathConstraint `json:"constraints,omitempty"`
}

// CheckResponse is the body of a successful check.
type CheckResponse struct {
	PolicyVersion string        `json:"policy_version"`
	Results       []CheckResult `json:"results"`
}

// ExplainRequest is the body of POST /v1/explain.
type ExplainRequest struct {
	// Policy is the policy ID to explain. Required.
	Policy string `json:"policy"`

	// Document is an optional partial document; bound fields participate
	// in evaluation and only outstanding constraints are reported.
	Document map[string]interface{} `json:"document,omitempty"`

	// Negated explains what would make the policy fail instead.
	Negated bool `json:"negated,omitempty"`
}

// PolicyInfo describes one loaded policy.
type PolicyInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
	Rules       int    `json:"rules"`
}

// PoliciesResponse is the body of GET /v1/policies.
type PoliciesResponse struct {
	PolicyVersion string       `json:"policy_version"`
	Policies      []PolicyInfo `json:"policies"`
}

// ErrorResponse is the body of any error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Document == nil {
		writeError(w, r, http.StatusBadRequest, "document is required")
		return
	}

	startTime := time.Now()

	var results []CheckResult
	if req.Policy != "" {
		result, err := s.policies.Check(req.Policy, req.Document)
		if err != nil {
			writeError(w, r, http.StatusNotFound, err.Error())
			return
		}
		results = append(results, newCheckResult(req.Policy, result))
	} else {
		all, err := s.policies.CheckAll(req.Document)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		for _, policy := range s.policies.GetAllPolicies() {
			results = append(results, newCheckResult(policy.ID, all[policy.ID]))
		}
	}

	if s.metrics != nil {
		duration := time.Since(startTime)
		for _, result := range results {
			s.metrics.RecordEvaluation(result.Outcome, duration)
		}
	}

	if s.recorder != nil {
		s.recordDecisions(r, results)
	}

	writeJSON(w, http.StatusOK, CheckResponse{
		PolicyVersion: s.policies.GetPolicyVersion(),
		Results:       results,
	})
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Policy == "" {
		writeError(w, r, http.StatusBadRequest, "policy is required")
		return
	}

	policy, err := s.policies.GetPolicy(req.Policy)
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}

	// Explain re-parses the rules with the same options the policies were
	// compiled with, so custom operators resolve here too.
	engineCfg := s.compileOpts.EngineConfig()
	p := parser.New(parser.Config{
		Operators:    engineCfg.Registry,
		AllowUnknown: !engineCfg.Strict || engineCfg.Fallback != nil,
	})

	var exprs []interface{}
	for _, rule := range policy.EnabledRules() {
		exprs = append(exprs, rule.Expr)
	}
	nodes, err := p.ParseAll(exprs)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	root := ast.Call(ast.OpAnd, nodes...)
	if req.Negated {
		root, err = negate.Negate(root, engineCfg.Registry)
		if err != nil {
			writeError(w, r, http.StatusBadRequest,
				fmt.Sprintf("policy %q cannot be negated: %v", policy.ID, err))
			return
		}
	}

	eval, err := engine.NewEvaluator(engineCfg, s.logger, s.metrics)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	result, err := eval.Unify(root, req.Document)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, CheckResponse{
		PolicyVersion: s.policies.GetPolicyVersion(),
		Results:       []CheckResult{newCheckResult(policy.ID, result)},
	})
}

func (s *Server) handlePolicies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	policies := s.policies.GetAllPolicies()
	infos := make([]PolicyInfo, 0, len(policies))
	for _, policy := range policies {
		infos = append(infos, PolicyInfo{
			ID:          policy.ID,
			Name:        policy.Name,
			Description: policy.Description,
			Version:     policy.Version,
			Rules:       len(policy.Rules),
		})
	}

	writeJSON(w, http.StatusOK, PoliciesResponse{
		PolicyVersion: s.policies.GetPolicyVersion(),
		Policies:      infos,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.policies.GetLastLoadError(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	if s.policies.GetPolicyVersion() == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "no policies loaded",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":         "ready",
		"policy_version": s.policies.GetPolicyVersion(),
		"loaded_at":      s.policies.GetLastLoadTime().UTC().Format(time.RFC3339),
	})
}

// recordDecisions appends check outcomes to the decision log. Recording
// failures are logged and do not fail the request.
func (s *Server) recordDecisions(r *http.Request, results []CheckResult) {
	version := s.policies.GetPolicyVersion()
	for _, result := range results {
		err := s.recorder.RecordDecision(r.Context(), &store.Decision{
			PolicyID:      result.PolicyID,
			PolicyVersion: version,
			Outcome:       result.Outcome,
			Constraints:   result.Constraints,
			TraceID:       RequestID(r.Context()),
		})
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Failed to record decision",
				"policy_id", result.PolicyID,
				"error", err,
			)
		}
	}
}

func newCheckResult(policyID string, result residual.Result) CheckResult {
	return CheckResult{
		PolicyID:    policyID,
		Outcome:     outcomeString(result),
		Constraints: result.Constraints(),
	}
}

func outcomeString(result residual.Result) string {
	switch {
	case result.IsSatisfied():
		return "satisfied"
	case result.IsContradiction():
		return "contradiction"
	default:
		return "residual"
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:     message,
		RequestID: RequestID(r.Context()),
	})
}
